/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
)

// DedupeCache suppresses repeat alerts for the same key inside a TTL window.
// FirstSeen returns false when the key was already recorded.
type DedupeCache interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
}

// Fireman alerts the on-call channel when an urgent issue lands in the
// fireman validation state.
type Fireman struct {
	sink       AlertSink
	cache      DedupeCache
	webhookURL string
	stateName  string
	log        zerolog.Logger
}

// NewFireman builds the flow; cache may be nil, in which case every match
// alerts.
func NewFireman(sink AlertSink, cache DedupeCache, cfg config.Config, log zerolog.Logger) *Fireman {
	return &Fireman{
		sink:       sink,
		cache:      cache,
		webhookURL: cfg.SlackFiremanURL,
		stateName:  cfg.FiremanStateName,
		log:        log,
	}
}

func (f *Fireman) Name() string { return "fireman" }

// Evaluate matches when a status, priority, or title change left the issue
// urgent and sitting in the fireman validation state.
func (f *Fireman) Evaluate(issue *domain.Issue, diff *domain.ChangeDiff) bool {
	if !diff.Status.Changed && !diff.Priority.Changed && !diff.Title.Changed {
		return false
	}
	return strings.EqualFold(issue.State.Name, f.stateName) && issue.Priority == domain.PriorityUrgent
}

func (f *Fireman) Execute(ctx context.Context, issue *domain.Issue, diff *domain.ChangeDiff) domain.Outcome {
	if f.webhookURL == "" {
		f.log.Warn().Str("issue", issue.Identifier).Msg("fireman webhook not configured")
		return domain.Outcome{Flow: f.Name(), Status: domain.StatusSkipped, Reason: "no webhook configured"}
	}
	if f.cache != nil {
		first, err := f.cache.FirstSeen(ctx, "fireman:"+issue.ID)
		if err != nil {
			// dedupe is best-effort: a broken cache must not drop alerts
			f.log.Warn().Err(err).Str("issue", issue.Identifier).Msg("dedupe check failed, alerting anyway")
		} else if !first {
			return domain.Outcome{Flow: f.Name(), Status: domain.StatusSkipped, Reason: "duplicate alert suppressed"}
		}
	}
	text := fmt.Sprintf("🚨 *%s* needs fireman validation\n%s\n%s", issue.Identifier, issue.Title, issue.URL)
	if err := f.sink.Send(ctx, f.webhookURL, text); err != nil {
		return domain.Outcome{Flow: f.Name(), Status: domain.StatusFailed, Error: err.Error()}
	}
	return domain.Outcome{Flow: f.Name(), Status: domain.StatusFired, Reason: "urgent issue in " + f.stateName}
}
