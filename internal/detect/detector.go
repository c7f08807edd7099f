/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */

// Package detect turns a webhook snapshot plus its partial prior delta into
// a ChangeDiff. It is a pure function of (current, priorDelta, gateway
// lookups); the gateway is injected so detection is testable offline.
package detect

import (
	"context"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
	"github.com/rs/zerolog"
)

// Gateway is the subset of the tracker the detector needs: resolving prior
// state ids into names and enriching with cycle details.
type Gateway interface {
	WorkflowState(ctx context.Context, id string) (*domain.WorkflowState, error)
	Cycle(ctx context.Context, id string) (*domain.Cycle, error)
}

type Detector struct {
	gw           Gateway
	flaggedLabel string
	log          zerolog.Logger
}

func New(gw Gateway, flaggedLabel string, log zerolog.Logger) *Detector {
	return &Detector{gw: gw, flaggedLabel: flaggedLabel, log: log}
}

// Detect builds the diff for an issue event. Gateway failures during
// enrichment degrade to "no enrichment" and never abort detection of the
// fields that do not depend on the failed fetch.
func (d *Detector) Detect(ctx context.Context, ev *domain.WebhookEvent, issue *domain.Issue) *domain.ChangeDiff {
	diff := &domain.ChangeDiff{}
	switch ev.Action {
	case domain.ActionCreate:
		d.detectCreate(issue, diff)
	case domain.ActionUpdate:
		d.detectUpdate(ctx, ev.UpdatedFrom, issue, diff)
	}
	// Downstream flows gate on cycle state even when the trigger was a
	// different field, so the fetch is eager.
	if issue.CycleID != "" {
		cy, err := d.gw.Cycle(ctx, issue.CycleID)
		if err != nil {
			d.log.Warn().Err(err).Str("issue", issue.Identifier).Str("cycle", issue.CycleID).Msg("cycle enrichment failed")
		} else {
			diff.Cycle = cy
		}
	}
	return diff
}

// detectCreate marks every tracked field changed; there is no prior state.
func (d *Detector) detectCreate(issue *domain.Issue, diff *domain.ChangeDiff) {
	diff.Status = domain.StringChange{Changed: true, Current: issue.State.Name}
	diff.Priority = domain.IntChange{Changed: true, Current: issue.Priority}
	diff.Assignee = domain.StringChange{Changed: true, Current: issue.AssigneeID()}
	diff.CycleID = domain.StringChange{Changed: true, Current: issue.CycleID}
	diff.Project = domain.StringChange{Changed: true, Current: issue.ProjectID()}
	diff.Title = domain.StringChange{Changed: true, Current: issue.Title}
	diff.Description = domain.StringChange{Changed: true, Current: issue.Description}
	diff.Estimate = domain.FloatChange{Changed: true, Current: issue.Estimate}
	diff.Labels = domain.LabelChange{
		Changed:    true,
		Confidence: domain.LabelConfirmed,
		Current:    issue.Labels,
		Added:      issue.Labels,
	}
}

func (d *Detector) detectUpdate(ctx context.Context, prior *domain.UpdatedFrom, issue *domain.Issue, diff *domain.ChangeDiff) {
	diff.Status = domain.StringChange{Current: issue.State.Name}
	diff.Priority = domain.IntChange{Current: issue.Priority}
	diff.Assignee = domain.StringChange{Current: issue.AssigneeID()}
	diff.CycleID = domain.StringChange{Current: issue.CycleID}
	diff.Project = domain.StringChange{Current: issue.ProjectID()}
	diff.Title = domain.StringChange{Current: issue.Title}
	diff.Description = domain.StringChange{Current: issue.Description}
	diff.Estimate = domain.FloatChange{Current: issue.Estimate}

	if prior.Has("stateId") && prior.StateID != issue.State.ID {
		// A status change only counts once the prior id resolves to a
		// name; failure is insufficient evidence, not a change.
		ws, err := d.gw.WorkflowState(ctx, prior.StateID)
		if err != nil || ws == nil {
			d.log.Warn().Err(err).Str("issue", issue.Identifier).Str("priorState", prior.StateID).Msg("prior state resolution failed; status change not reported")
		} else {
			diff.Status.Changed = true
			diff.Status.Previous = ws.Name
			diff.Status.HasPrevious = true
		}
	}
	if prior.Has("priority") && prior.Priority != issue.Priority {
		diff.Priority.Changed = true
		diff.Priority.Previous = prior.Priority
		diff.Priority.HasPrevious = true
	}
	if prior.Has("assigneeId") && prior.AssigneeID != issue.AssigneeID() {
		diff.Assignee.Changed = true
		diff.Assignee.Previous = prior.AssigneeID
		diff.Assignee.HasPrevious = true
	}
	if prior.Has("cycleId") && prior.CycleID != issue.CycleID {
		diff.CycleID.Changed = true
		diff.CycleID.Previous = prior.CycleID
		diff.CycleID.HasPrevious = true
	}
	if prior.Has("projectId") && prior.ProjectID != issue.ProjectID() {
		diff.Project.Changed = true
		diff.Project.Previous = prior.ProjectID
		diff.Project.HasPrevious = true
	}
	if prior.Has("title") && prior.Title != issue.Title {
		diff.Title.Changed = true
		diff.Title.Previous = prior.Title
		diff.Title.HasPrevious = true
	}
	if prior.Has("description") && prior.Description != issue.Description {
		diff.Description.Changed = true
		diff.Description.Previous = prior.Description
		diff.Description.HasPrevious = true
	}
	if prior.Has("estimate") && !floatEq(prior.Estimate, issue.Estimate) {
		diff.Estimate.Changed = true
		diff.Estimate.Previous = prior.Estimate
		diff.Estimate.HasPrevious = true
	}

	diff.Labels = d.detectLabels(issue, diff)
}

// detectLabels applies the documented heuristic: the source does not report
// prior labels, so a label change is asserted when the sentinel flagged
// label is present, or when the update touched nothing else and labels are
// non-empty (probably label-only). Both are heuristic, never confirmed.
func (d *Detector) detectLabels(issue *domain.Issue, diff *domain.ChangeDiff) domain.LabelChange {
	lc := domain.LabelChange{Confidence: domain.LabelUnknown, Current: issue.Labels}
	if d.flaggedLabel != "" && issue.HasLabel(d.flaggedLabel) {
		lc.Changed = true
		lc.Confidence = domain.LabelHeuristic
		return lc
	}
	if len(issue.Labels) > 0 && diff.FieldChanges() == 0 {
		lc.Changed = true
		lc.Confidence = domain.LabelHeuristic
	}
	return lc
}

func floatEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
