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

// Milestone pings the team channel when an issue in the active cycle crosses
// a milestone state or gets flagged. Only issues of the configured team, and
// only while the issue's cycle is still running.
type Milestone struct {
	sink         AlertSink
	webhookURL   string
	teamID       string
	targets      []string
	flaggedLabel string
	log          zerolog.Logger
}

func NewMilestone(sink AlertSink, cfg config.Config, log zerolog.Logger) *Milestone {
	return &Milestone{
		sink:         sink,
		webhookURL:   cfg.SlackMilestoneURL,
		teamID:       cfg.MilestoneTeamID,
		targets:      cfg.MilestoneStates,
		flaggedLabel: cfg.FlaggedLabelName,
		log:          log,
	}
}

func (m *Milestone) Name() string { return "milestone" }

func (m *Milestone) Evaluate(issue *domain.Issue, diff *domain.ChangeDiff) bool {
	if m.teamID != "" && issue.TeamID != m.teamID {
		return false
	}
	if !diff.Cycle.Active() {
		return false
	}
	return m.reason(issue, diff) != ""
}

// reason decides what, if anything, to announce. Flagging takes precedence
// over a status crossing when both happened in one update.
func (m *Milestone) reason(issue *domain.Issue, diff *domain.ChangeDiff) string {
	if m.flaggedLabel != "" && diff.Labels.Changed && issue.HasLabel(m.flaggedLabel) {
		return "flagged"
	}
	if diff.Status.Changed && m.isTarget(diff.Status.Current) &&
		diff.Status.HasPrevious && !strings.EqualFold(diff.Status.Previous, diff.Status.Current) {
		return diff.Status.Current
	}
	return ""
}

func (m *Milestone) isTarget(status string) bool {
	for _, t := range m.targets {
		if strings.EqualFold(status, t) {
			return true
		}
	}
	return false
}

func (m *Milestone) Execute(ctx context.Context, issue *domain.Issue, diff *domain.ChangeDiff) domain.Outcome {
	if m.webhookURL == "" {
		m.log.Warn().Str("issue", issue.Identifier).Msg("milestone webhook not configured")
		return domain.Outcome{Flow: m.Name(), Status: domain.StatusSkipped, Reason: "no webhook configured"}
	}
	reason := m.reason(issue, diff)
	cycleName := diff.Cycle.DisplayName()
	var text string
	switch reason {
	case "flagged":
		text = fmt.Sprintf("🚩 *%s* was flagged in %s\n%s\n%s", issue.Identifier, cycleName, issue.Title, issue.URL)
	default:
		text = fmt.Sprintf("✅ *%s* moved to %s in %s\n%s\n%s", issue.Identifier, diff.Status.Current, cycleName, issue.Title, issue.URL)
	}
	if err := m.sink.Send(ctx, m.webhookURL, text); err != nil {
		return domain.Outcome{Flow: m.Name(), Status: domain.StatusFailed, Error: err.Error()}
	}
	return domain.Outcome{Flow: m.Name(), Status: domain.StatusFired, Reason: reason}
}
