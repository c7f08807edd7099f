/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */

// Package service is the orchestrator behind the webhook endpoint: it
// decodes the entity payload, runs change detection, dispatches the flows,
// and hands cycle completions to the retrospective generator.
package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/detect"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/flows"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/retro"
)

// Auditor records processed deliveries; nil when no database is configured.
type Auditor interface {
	RecordEvent(ctx context.Context, webhookID string, entityType domain.EntityType, action domain.Action, outcomes []domain.Outcome) error
}

type Service struct {
	detector *detect.Detector
	router   *flows.Router
	retro    *retro.Generator
	audit    Auditor
	log      zerolog.Logger
}

func New(detector *detect.Detector, router *flows.Router, generator *retro.Generator, audit Auditor, log zerolog.Logger) *Service {
	return &Service{detector: detector, router: router, retro: generator, audit: audit, log: log}
}

// Result is the processing summary returned to the webhook handler. Failed
// is true only when a document-store write failed; alert-delivery failures
// are reported in Outcomes but still acknowledge the delivery.
type Result struct {
	Outcomes []domain.Outcome
	Failed   bool
}

// ProcessWebhook routes one verified delivery. Unsupported entity types are
// acknowledged without work so the source never retries them.
func (s *Service) ProcessWebhook(ctx context.Context, ev *domain.WebhookEvent) (*Result, error) {
	var outcomes []domain.Outcome

	switch ev.Type {
	case domain.EntityIssue:
		if ev.Action == domain.ActionRemove {
			s.log.Info().Str("webhookId", ev.WebhookID).Msg("issue removed, acknowledged")
			break
		}
		issue, err := ev.Issue()
		if err != nil {
			return nil, err
		}
		diff := s.detector.Detect(ctx, ev, issue)
		outcomes = s.router.Dispatch(ctx, ev, issue, diff)

	case domain.EntityCycle:
		if ev.Action != domain.ActionUpdate {
			s.log.Info().Str("webhookId", ev.WebhookID).Str("action", string(ev.Action)).Msg("cycle event ignored")
			break
		}
		cycle, err := ev.Cycle()
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, s.retro.Generate(ctx, cycle))

	case domain.EntityComment, domain.EntityProject:
		// tracked for auditing only
		s.log.Debug().Str("type", string(ev.Type)).Str("action", string(ev.Action)).Msg("event acknowledged without dispatch")

	default:
		s.log.Info().Str("type", string(ev.Type)).Msg("unknown entity type, acknowledged")
	}

	if s.audit != nil {
		if err := s.audit.RecordEvent(ctx, ev.WebhookID, ev.Type, ev.Action, outcomes); err != nil {
			// audit is observability, not correctness
			s.log.Warn().Err(err).Str("webhookId", ev.WebhookID).Msg("audit record failed")
		}
	}

	res := &Result{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Fatal {
			res.Failed = true
		}
	}
	return res, nil
}
