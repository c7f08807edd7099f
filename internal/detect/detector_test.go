/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package detect

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
)

type fakeGateway struct {
	states   map[string]*domain.WorkflowState
	cycles   map[string]*domain.Cycle
	stateErr error
	cycleErr error
}

func (g *fakeGateway) WorkflowState(_ context.Context, id string) (*domain.WorkflowState, error) {
	if g.stateErr != nil {
		return nil, g.stateErr
	}
	ws, ok := g.states[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return ws, nil
}

func (g *fakeGateway) Cycle(_ context.Context, id string) (*domain.Cycle, error) {
	if g.cycleErr != nil {
		return nil, g.cycleErr
	}
	cy, ok := g.cycles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return cy, nil
}

func prior(t *testing.T, raw string) *domain.UpdatedFrom {
	t.Helper()
	var u domain.UpdatedFrom
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	return &u
}

func testIssue() *domain.Issue {
	return &domain.Issue{
		ID:         "i1",
		Identifier: "ENG-1",
		Title:      "Fix login",
		Priority:   domain.PriorityUrgent,
		State:      domain.WorkflowState{ID: "s2", Name: "In Progress", Type: "started"},
		Assignee:   &domain.User{ID: "u1", Name: "Alice"},
	}
}

func TestDetect_CreateMarksEverythingChanged(t *testing.T) {
	d := New(&fakeGateway{}, "Flagged", zerolog.Nop())
	issue := testIssue()
	issue.Labels = []domain.Label{{ID: "l1", Name: "backend"}}
	ev := &domain.WebhookEvent{Action: domain.ActionCreate, Type: domain.EntityIssue}

	diff := d.Detect(context.Background(), ev, issue)

	assert.True(t, diff.Status.Changed)
	assert.False(t, diff.Status.HasPrevious)
	assert.True(t, diff.Priority.Changed)
	assert.True(t, diff.Title.Changed)
	assert.True(t, diff.Labels.Changed)
	assert.Equal(t, domain.LabelConfirmed, diff.Labels.Confidence)
	assert.Equal(t, issue.Labels, diff.Labels.Added)
}

func TestDetect_UpdateResolvesPriorState(t *testing.T) {
	gw := &fakeGateway{states: map[string]*domain.WorkflowState{
		"s1": {ID: "s1", Name: "Todo", Type: "unstarted"},
	}}
	d := New(gw, "Flagged", zerolog.Nop())
	ev := &domain.WebhookEvent{
		Action:      domain.ActionUpdate,
		Type:        domain.EntityIssue,
		UpdatedFrom: prior(t, `{"stateId":"s1"}`),
	}

	diff := d.Detect(context.Background(), ev, testIssue())

	assert.True(t, diff.Status.Changed)
	assert.True(t, diff.Status.HasPrevious)
	assert.Equal(t, "Todo", diff.Status.Previous)
	assert.Equal(t, "In Progress", diff.Status.Current)
	// nothing else was in the delta
	assert.False(t, diff.Priority.Changed)
	assert.False(t, diff.Assignee.Changed)
}

func TestDetect_StateResolutionFailureIsNotAChange(t *testing.T) {
	gw := &fakeGateway{stateErr: errors.New("boom")}
	d := New(gw, "Flagged", zerolog.Nop())
	ev := &domain.WebhookEvent{
		Action:      domain.ActionUpdate,
		Type:        domain.EntityIssue,
		UpdatedFrom: prior(t, `{"stateId":"s1"}`),
	}

	diff := d.Detect(context.Background(), ev, testIssue())

	assert.False(t, diff.Status.Changed)
	assert.False(t, diff.Status.HasPrevious)
	assert.Equal(t, "In Progress", diff.Status.Current)
}

func TestDetect_OmittedFieldsAreNotInferred(t *testing.T) {
	d := New(&fakeGateway{}, "Flagged", zerolog.Nop())
	ev := &domain.WebhookEvent{
		Action:      domain.ActionUpdate,
		Type:        domain.EntityIssue,
		UpdatedFrom: prior(t, `{"priority":3}`),
	}

	diff := d.Detect(context.Background(), ev, testIssue())

	assert.True(t, diff.Priority.Changed)
	assert.Equal(t, 3, diff.Priority.Previous)
	assert.Equal(t, domain.PriorityUrgent, diff.Priority.Current)
	assert.False(t, diff.Status.Changed)
	assert.False(t, diff.Title.Changed)
	assert.False(t, diff.Description.Changed)
}

func TestDetect_LabelHeuristics(t *testing.T) {
	d := New(&fakeGateway{}, "Flagged", zerolog.Nop())

	// flagged label present: heuristic change regardless of other fields
	issue := testIssue()
	issue.Labels = []domain.Label{{ID: "l1", Name: "Flagged"}}
	ev := &domain.WebhookEvent{Action: domain.ActionUpdate, Type: domain.EntityIssue, UpdatedFrom: prior(t, `{"priority":3}`)}
	diff := d.Detect(context.Background(), ev, issue)
	assert.True(t, diff.Labels.Changed)
	assert.Equal(t, domain.LabelHeuristic, diff.Labels.Confidence)

	// label-only update: non-empty labels and no other changed field
	issue = testIssue()
	issue.Labels = []domain.Label{{ID: "l2", Name: "backend"}}
	ev = &domain.WebhookEvent{Action: domain.ActionUpdate, Type: domain.EntityIssue, UpdatedFrom: prior(t, `{}`)}
	diff = d.Detect(context.Background(), ev, issue)
	assert.True(t, diff.Labels.Changed)
	assert.Equal(t, domain.LabelHeuristic, diff.Labels.Confidence)

	// another field changed: no basis to assert a label change
	ev = &domain.WebhookEvent{Action: domain.ActionUpdate, Type: domain.EntityIssue, UpdatedFrom: prior(t, `{"priority":3}`)}
	diff = d.Detect(context.Background(), ev, issue)
	assert.False(t, diff.Labels.Changed)
	assert.Equal(t, domain.LabelUnknown, diff.Labels.Confidence)
}

func TestDetect_CycleEnrichment(t *testing.T) {
	cycle := &domain.Cycle{ID: "c1", Name: "Sprint 12"}
	gw := &fakeGateway{cycles: map[string]*domain.Cycle{"c1": cycle}}
	d := New(gw, "Flagged", zerolog.Nop())
	issue := testIssue()
	issue.CycleID = "c1"
	ev := &domain.WebhookEvent{Action: domain.ActionUpdate, Type: domain.EntityIssue, UpdatedFrom: prior(t, `{"priority":3}`)}

	diff := d.Detect(context.Background(), ev, issue)
	require.NotNil(t, diff.Cycle)
	assert.Equal(t, "Sprint 12", diff.Cycle.Name)

	// fetch failure degrades to no enrichment, the rest of the diff stands
	gw.cycleErr = errors.New("boom")
	diff = d.Detect(context.Background(), ev, issue)
	assert.Nil(t, diff.Cycle)
	assert.True(t, diff.Priority.Changed)
}
