/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */

// Package repo is the optional Postgres layer: an audit trail of processed
// webhook deliveries and the advisory locks that keep scheduled jobs from
// double-firing across replicas.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
)

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Open connects and pings; the caller decides whether a failure is fatal
// (it is when DB_DSN is set, since the operator asked for auditing).
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		pool.Close()
		return nil, err
	}
	return &DB{Pool: pool, log: log}, nil
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
	if !ok && err == nil {
		return errors.New("advisory unlock returned false")
	}
	return err
}

// ProcessedEvent is one audited webhook delivery with its flow outcomes.
type ProcessedEvent struct {
	ID          int64            `json:"id"`
	WebhookID   string           `json:"webhookId"`
	EntityType  string           `json:"entityType"`
	Action      string           `json:"action"`
	Outcomes    []domain.Outcome `json:"outcomes"`
	ProcessedAt time.Time        `json:"processedAt"`
}

// RecordEvent appends one delivery to the audit trail. Outcomes are stored
// as JSONB so the schema survives flow additions.
func (r *Repository) RecordEvent(ctx context.Context, webhookID string, entityType domain.EntityType, action domain.Action, outcomes []domain.Outcome) error {
	payload, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}
	const q = `
        INSERT INTO processed_events(webhook_id, entity_type, action, outcomes, processed_at)
        VALUES($1,$2,$3,$4,now())`
	if _, err := r.db.Pool.Exec(ctx, q, webhookID, string(entityType), string(action), payload); err != nil {
		r.log.Error().Err(err).Str("webhookId", webhookID).Msg("audit insert failed")
		return err
	}
	return nil
}

// LastEvents returns the most recent deliveries, newest first.
func (r *Repository) LastEvents(ctx context.Context, limit int) ([]ProcessedEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
        SELECT id, webhook_id, entity_type, action, outcomes, processed_at
        FROM processed_events ORDER BY id DESC LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProcessedEvent
	for rows.Next() {
		var ev ProcessedEvent
		var outcomes []byte
		if err := rows.Scan(&ev.ID, &ev.WebhookID, &ev.EntityType, &ev.Action, &outcomes, &ev.ProcessedAt); err != nil {
			return nil, err
		}
		if len(outcomes) > 0 {
			if err := json.Unmarshal(outcomes, &ev.Outcomes); err != nil {
				r.log.Warn().Err(err).Int64("id", ev.ID).Msg("audit outcomes decode failed")
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
