/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
)

// ReopenKeywords are the comment phrases counted as reopen signals,
// matched case-insensitively against comment bodies.
var ReopenKeywords = []string{
	"reopened",
	"back to todo",
	"moved to in progress",
	"reverted",
	"rolled back",
}

// CountReopenSignals counts the comments containing at least one reopen
// keyword; a comment matching several keywords still counts once.
func CountReopenSignals(comments []domain.Comment) int {
	n := 0
	for _, cm := range comments {
		body := strings.ToLower(cm.Body)
		for _, kw := range ReopenKeywords {
			if strings.Contains(body, kw) {
				n++
				break
			}
		}
	}
	return n
}

// IssueReport is one cycle issue with its fetched discussion and the reopen
// signals counted in it.
type IssueReport struct {
	Issue         domain.Issue
	ReopenedCount int
}

// RetroTotals summarizes the cycle: completed means the issue's state
// category is "completed", regardless of the state's display name.
type RetroTotals struct {
	TotalIssues     int
	TotalPoints     float64
	CompletedPoints float64
	ReopenedIssues  int
}

// CompletionRate is the completed share of points, 0 when the cycle carried
// no points.
func (t RetroTotals) CompletionRate() float64 {
	if t.TotalPoints == 0 {
		return 0
	}
	return t.CompletedPoints / t.TotalPoints
}

// ComputeRetroTotals derives the summary metrics from the per-issue rows.
func ComputeRetroTotals(rows []IssueReport) RetroTotals {
	t := RetroTotals{TotalIssues: len(rows)}
	for _, r := range rows {
		pts := r.Issue.Points()
		t.TotalPoints += pts
		if r.Issue.State.Type == "completed" {
			t.CompletedPoints += pts
		}
		if r.ReopenedCount > 0 {
			t.ReopenedIssues++
		}
	}
	return t
}

// PlaceholderCommentsSummary is rendered when no automated summary is
// available for the cycle's discussion threads.
const PlaceholderCommentsSummary = "No automated comment summary is available for this cycle; review the discussion threads directly."

// RenderRetrospective builds the full Markdown body of a cycle
// retrospective. commentsSummary may be empty, in which case the placeholder
// text is rendered.
func RenderRetrospective(cycle *domain.Cycle, rows []IssueReport, commentsSummary string, now time.Time) string {
	issues := make([]domain.Issue, 0, len(rows))
	for _, r := range rows {
		issues = append(issues, r.Issue)
	}
	agg := AggregateIssues(issues)
	totals := ComputeRetroTotals(rows)

	b := &strings.Builder{}
	b.WriteString(retroFrontMatter(cycle))
	fmt.Fprintf(b, "\n# Retrospective: %s\n\n", cycle.DisplayName())

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(b, "- Issues: %d\n", totals.TotalIssues)
	fmt.Fprintf(b, "- Story points: %s\n", formatPoints(totals.TotalPoints))
	fmt.Fprintf(b, "- Completed points: %s\n", formatPoints(totals.CompletedPoints))
	fmt.Fprintf(b, "- Completion rate: %s\n", formatPercent(totals.CompletionRate()*100))
	fmt.Fprintf(b, "- Issues with reopen signals: %d\n\n", totals.ReopenedIssues)

	b.WriteString("## Issues by person and status\n\n")
	writePointsTable(b, agg)

	writeReopenedSection(b, rows)

	b.WriteString("## Comments summary\n\n")
	if strings.TrimSpace(commentsSummary) == "" {
		commentsSummary = PlaceholderCommentsSummary
	}
	b.WriteString(strings.TrimSpace(commentsSummary) + "\n\n")

	writeRecommendations(b, totals)

	fmt.Fprintf(b, "_Generated: %s_\n", now.UTC().Format(time.RFC3339))
	return b.String()
}

func retroFrontMatter(cycle *domain.Cycle) string {
	type header struct {
		CycleID     string `yaml:"cycle_id"`
		CycleName   string `yaml:"cycle_name"`
		CompletedAt string `yaml:"completed_at"`
	}
	h := header{CycleID: cycle.ID, CycleName: cycle.DisplayName()}
	if cycle.CompletedAt != nil {
		h.CompletedAt = cycle.CompletedAt.UTC().Format(DateFormat)
	}
	return RenderFrontMatter(h)
}

func writeReopenedSection(b *strings.Builder, rows []IssueReport) {
	b.WriteString("## Reopened issues\n\n")
	any := false
	for _, r := range rows {
		if r.ReopenedCount == 0 {
			continue
		}
		any = true
		fmt.Fprintf(b, "- %s %s: %d reopen signal(s). Candidate causes: incomplete acceptance criteria, regressions found in QA, unclear requirements.\n",
			r.Issue.Identifier, r.Issue.Title, r.ReopenedCount)
	}
	if !any {
		b.WriteString("🎉 No reopened issues this cycle. Great job keeping quality high!\n")
	}
	b.WriteString("\n")
}

func writeRecommendations(b *strings.Builder, totals RetroTotals) {
	b.WriteString("## Recommendations\n\n")
	wrote := false
	if totals.TotalPoints > 0 && totals.CompletionRate() < 0.8 {
		fmt.Fprintf(b, "- Completion rate was %s. Consider committing to less scope or splitting large stories.\n",
			formatPercent(totals.CompletionRate()*100))
		wrote = true
	}
	if totals.ReopenedIssues > 0 {
		fmt.Fprintf(b, "- %d issue(s) showed reopen signals. Run a root-cause review on acceptance criteria and QA handoff.\n",
			totals.ReopenedIssues)
		wrote = true
	}
	if !wrote {
		b.WriteString("- Cycle metrics look healthy. Keep the current working agreements.\n")
	}
	b.WriteString("\n")
}
