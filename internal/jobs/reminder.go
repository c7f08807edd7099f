/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */

// Package jobs holds the scheduled work: the daily release-reminder sweep
// over pending release documents.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/report"
)

type DocumentStore interface {
	List(ctx context.Context, parentID string) ([]domain.DocumentRef, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
}

type AlertSink interface {
	Send(ctx context.Context, webhookURL, text string) error
}

// Reminder pings the channel about release documents still marked
// not_released whose release date is within the lead window (or already
// past). One bad document never stops the sweep.
type Reminder struct {
	docs       DocumentStore
	sink       AlertSink
	parentID   string
	webhookURL string
	leadDays   int
	now        func() time.Time
	log        zerolog.Logger
}

func NewReminder(docs DocumentStore, sink AlertSink, cfg config.Config, log zerolog.Logger) *Reminder {
	return &Reminder{
		docs:       docs,
		sink:       sink,
		parentID:   cfg.NotionReleaseParent,
		webhookURL: cfg.SlackReminderURL,
		leadDays:   cfg.ReminderLeadDays,
		now:        time.Now,
		log:        log,
	}
}

// Run sweeps the release database once and returns how many reminders were
// sent.
func (r *Reminder) Run(ctx context.Context) (int, error) {
	if r.parentID == "" || r.webhookURL == "" {
		r.log.Info().Msg("reminder: not configured, skipping sweep")
		return 0, nil
	}
	refs, err := r.docs.List(ctx, r.parentID)
	if err != nil {
		return 0, err
	}
	deadline := r.now().AddDate(0, 0, r.leadDays)
	sent := 0
	for _, ref := range refs {
		doc, err := r.docs.Get(ctx, ref.ID)
		if err != nil {
			r.log.Warn().Err(err).Str("doc", ref.ID).Msg("reminder: fetch failed, skipping document")
			continue
		}
		fm, err := report.ParseFrontMatter(doc.Body)
		if err != nil {
			r.log.Warn().Err(err).Str("doc", ref.ID).Msg("reminder: front matter unparseable, skipping document")
			continue
		}
		if fm.ReleaseStatus != report.ReleaseNotReleased {
			continue
		}
		releaseAt, err := time.Parse(report.DateFormat, fm.ReleaseAt)
		if err != nil {
			r.log.Warn().Err(err).Str("doc", ref.ID).Str("releaseAt", fm.ReleaseAt).Msg("reminder: bad release date, skipping document")
			continue
		}
		if releaseAt.After(deadline) {
			continue
		}
		text := fmt.Sprintf("⏰ Release *%s* is due %s and still marked not_released.", ref.Title, fm.ReleaseAt)
		if err := r.sink.Send(ctx, r.webhookURL, text); err != nil {
			r.log.Warn().Err(err).Str("doc", ref.ID).Msg("reminder: send failed")
			continue
		}
		sent++
	}
	r.log.Info().Int("sent", sent).Int("docs", len(refs)).Msg("reminder sweep done")
	return sent, nil
}
