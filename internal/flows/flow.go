/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */

// Package flows holds the routed reactions to issue changes: the fireman
// alert, the milestone alert, and the release-document sync. Each flow has a
// cheap Evaluate gate and an Execute that does the I/O; the router runs
// matching flows concurrently and isolates their failures.
package flows

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
)

// AlertSink posts a plain-text message to a chat webhook.
type AlertSink interface {
	Send(ctx context.Context, webhookURL, text string) error
}

type Flow interface {
	Name() string
	Evaluate(issue *domain.Issue, diff *domain.ChangeDiff) bool
	Execute(ctx context.Context, issue *domain.Issue, diff *domain.ChangeDiff) domain.Outcome
}

type Router struct {
	flows []Flow
	log   zerolog.Logger
}

func NewRouter(log zerolog.Logger, flows ...Flow) *Router {
	return &Router{flows: flows, log: log}
}

// Dispatch evaluates every flow against the diff and executes the matches
// concurrently. Remove actions and updates with no detected change are
// acknowledged without dispatch (nil outcomes). A panicking flow is reported
// as its own failed outcome and never takes down its siblings.
func (r *Router) Dispatch(ctx context.Context, ev *domain.WebhookEvent, issue *domain.Issue, diff *domain.ChangeDiff) []domain.Outcome {
	if ev.Action == domain.ActionRemove {
		return nil
	}
	if ev.Action == domain.ActionUpdate && !diff.HasChanges() {
		r.log.Debug().Str("issue", issue.Identifier).Msg("no changes detected, nothing to dispatch")
		return nil
	}
	var matched []Flow
	for _, f := range r.flows {
		if f.Evaluate(issue, diff) {
			matched = append(matched, f)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	outcomes := make([]domain.Outcome, len(matched))
	var wg sync.WaitGroup
	for i, f := range matched {
		wg.Add(1)
		go func(i int, f Flow) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error().Str("flow", f.Name()).Interface("panic", rec).Msg("flow panicked")
					outcomes[i] = domain.Outcome{
						Flow:   f.Name(),
						Status: domain.StatusFailed,
						Error:  fmt.Sprintf("panic: %v", rec),
					}
				}
			}()
			outcomes[i] = f.Execute(ctx, issue, diff)
		}(i, f)
	}
	wg.Wait()

	for _, o := range outcomes {
		le := r.log.Info()
		if o.Status == domain.StatusFailed {
			le = r.log.Error()
		}
		le.Str("flow", o.Flow).Str("status", o.Status).Str("reason", o.Reason).Str("issue", issue.Identifier).Msg("flow outcome")
	}
	return outcomes
}
