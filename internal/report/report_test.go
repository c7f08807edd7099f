/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
)

func fp(f float64) *float64 { return &f }

func sampleIssues() []domain.Issue {
	alice := &domain.User{ID: "u1", Name: "Alice"}
	return []domain.Issue{
		{ID: "i1", Identifier: "ENG-1", Title: "Ship it", Estimate: fp(5), Assignee: alice,
			State: domain.WorkflowState{Name: "Done", Type: "completed"}},
		{ID: "i2", Identifier: "ENG-2", Title: "Build it", Estimate: fp(3), Assignee: alice,
			State: domain.WorkflowState{Name: "In Progress", Type: "started"}},
		{ID: "i3", Identifier: "ENG-3", Title: "Plan it", Estimate: fp(8),
			State: domain.WorkflowState{Name: "Todo", Type: "unstarted"}},
	}
}

func TestAggregateIssues(t *testing.T) {
	agg := AggregateIssues(sampleIssues())

	assert.Equal(t, 16.0, agg.Total)
	assert.Equal(t, 5.0, agg.Buckets[BucketDone])
	assert.Equal(t, 3.0, agg.Buckets[BucketInProgress])
	assert.Equal(t, 8.0, agg.Buckets[BucketTodo])

	require.Len(t, agg.Assignees, 2)
	alice := agg.Assignees[0]
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, 8.0, alice.Total)
	assert.InDelta(t, 62.5, alice.DonePercent(), 0.001)
	assert.Equal(t, "Unassigned", agg.Assignees[1].Name)
	assert.Equal(t, 0.0, agg.Assignees[1].DonePercent())
}

func TestBucketIndex_Aliases(t *testing.T) {
	assert.Equal(t, BucketDevReview, BucketIndex("Review"))
	assert.Equal(t, BucketDevReview, BucketIndex("DEV Review"))
	assert.Equal(t, BucketDone, BucketIndex("Completed"))
	assert.Equal(t, -1, BucketIndex("Blocked"))
}

func TestAggregateIssues_UntrackedStatusCountsTowardTotal(t *testing.T) {
	issues := []domain.Issue{
		{ID: "i1", Estimate: fp(4), State: domain.WorkflowState{Name: "Blocked"}},
	}
	agg := AggregateIssues(issues)
	assert.Equal(t, 4.0, agg.Total)
	for _, b := range agg.Buckets {
		assert.Equal(t, 0.0, b)
	}
}

func TestFrontMatter_Roundtrip(t *testing.T) {
	fm := FrontMatter{ReleaseStatus: ReleaseNotReleased, ReleaseAt: "2026-09-01"}
	body := RenderFrontMatter(fm) + "\n# Doc\n"

	got, err := ParseFrontMatter(body)
	require.NoError(t, err)
	assert.Equal(t, ReleaseNotReleased, got.ReleaseStatus)
	assert.Equal(t, "2026-09-01", got.ReleaseAt)
}

func TestParseFrontMatter_Rejects(t *testing.T) {
	cases := map[string]string{
		"no block":      "# Doc without front matter\n",
		"unterminated":  "---\nrelease_status: not_released\n",
		"missing field": "---\nrelease_at: \"2026-09-01\"\n---\n",
		"bad yaml":      "---\n\t: :\n---\n",
	}
	for name, body := range cases {
		if _, err := ParseFrontMatter(body); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestRenderRelease(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	fm := FrontMatter{ReleaseStatus: ReleaseNotReleased, ReleaseAt: "2026-09-01"}
	body := RenderRelease("payments-v2", sampleIssues(), fm, now)

	parsed, err := ParseFrontMatter(body)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", parsed.ReleaseAt)

	assert.Contains(t, body, "# payments-v2")
	assert.Contains(t, body, "ENG-1 Ship it")
	assert.Contains(t, body, "| Alice |")
	assert.Contains(t, body, "62.5%")
	assert.Contains(t, body, "| **Total** |")
	assert.Contains(t, body, "_Generated: 2026-08-25T10:00:00Z_")

	// full regeneration is deterministic for a fixed timestamp
	assert.Equal(t, body, RenderRelease("payments-v2", sampleIssues(), fm, now))
}

func TestCountReopenSignals(t *testing.T) {
	comments := []domain.Comment{
		{Body: "This was Reopened after QA found a bug"},
		{Body: "moving it back to todo for rework"},
		{Body: "lgtm"},
	}
	assert.Equal(t, 2, CountReopenSignals(comments))
	assert.Equal(t, 0, CountReopenSignals(nil))

	// several keywords inside one comment are still one matching comment
	multi := []domain.Comment{{Body: "this was reopened and then rolled back"}}
	assert.Equal(t, 1, CountReopenSignals(multi))
}

func TestRenderRetrospective(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	done := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	cycle := &domain.Cycle{ID: "c1", Name: "Sprint 12", CompletedAt: &done}
	issues := sampleIssues()
	rows := []IssueReport{
		{Issue: issues[0]},
		{Issue: issues[1], ReopenedCount: 2},
		{Issue: issues[2]},
	}
	body := RenderRetrospective(cycle, rows, "", now)

	assert.Contains(t, body, "# Retrospective: Sprint 12")
	assert.Contains(t, body, "cycle_id: c1")
	assert.Contains(t, body, "- Issues: 3")
	assert.Contains(t, body, "- Story points: 16")
	assert.Contains(t, body, "- Completed points: 5")
	assert.Contains(t, body, "ENG-2 Build it: 2 reopen signal(s)")
	assert.Contains(t, body, PlaceholderCommentsSummary)
	// both recommendation triggers fire
	assert.Contains(t, body, "committing to less scope")
	assert.Contains(t, body, "root-cause review")

	// regeneration from identical input is byte-identical for a fixed timestamp
	assert.Equal(t, body, RenderRetrospective(cycle, rows, "", now))
}

func TestRenderRetrospective_Healthy(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	cycle := &domain.Cycle{ID: "c2", Number: 7}
	rows := []IssueReport{
		{Issue: domain.Issue{ID: "i1", Identifier: "ENG-9", Estimate: fp(5),
			State: domain.WorkflowState{Name: "Done", Type: "completed"}}},
	}
	body := RenderRetrospective(cycle, rows, "model summary here", now)

	assert.Contains(t, body, "# Retrospective: Cycle 7")
	assert.Contains(t, body, "🎉 No reopened issues")
	assert.Contains(t, body, "model summary here")
	assert.NotContains(t, body, PlaceholderCommentsSummary)
	assert.Contains(t, body, "metrics look healthy")
}

func TestRenderRetrospective_EmptyCycle(t *testing.T) {
	// the body must never render NaN when the cycle carried no points
	body := RenderRetrospective(&domain.Cycle{ID: "c3", Number: 1}, nil, "", time.Now())
	if strings.Contains(body, "NaN") {
		t.Fatalf("body contains NaN: %s", body)
	}
}
