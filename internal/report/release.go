/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
)

// RenderRelease builds the full Markdown body of a release document: front
// matter, ticket list, and the two per-assignee tables. The output is a full
// replacement; idempotent for the same inputs and timestamp.
func RenderRelease(labelName string, issues []domain.Issue, fm FrontMatter, now time.Time) string {
	agg := AggregateIssues(issues)
	b := &strings.Builder{}
	b.WriteString(RenderFrontMatter(fm))
	fmt.Fprintf(b, "\n# %s\n\n", labelName)

	b.WriteString("## Tickets\n\n")
	if len(issues) == 0 {
		b.WriteString("No tickets carry this label yet.\n")
	} else {
		b.WriteString("| State | Points | Ticket |\n| --- | --- | --- |\n")
		for _, is := range issues {
			fmt.Fprintf(b, "| %s %s | %s | %s |\n",
				stateIcon(is.State.Name), is.State.Name, formatPoints(is.Points()), ticketLink(is))
		}
	}
	b.WriteString("\n")

	writePointsTable(b, agg)
	writePercentTable(b, agg)

	fmt.Fprintf(b, "_Generated: %s_\n", now.UTC().Format(time.RFC3339))
	return b.String()
}

func writePointsTable(b *strings.Builder, agg Aggregate) {
	b.WriteString("## Story points by assignee\n\n")
	b.WriteString("| Assignee | " + strings.Join(Buckets[:], " | ") + " | Total |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for _, st := range agg.Assignees {
		fmt.Fprintf(b, "| %s |", st.Name)
		for _, p := range st.Points {
			fmt.Fprintf(b, " %s |", formatPoints(p))
		}
		fmt.Fprintf(b, " %s |\n", formatPoints(st.Total))
	}
	b.WriteString("| **Total** |")
	for _, p := range agg.Buckets {
		fmt.Fprintf(b, " %s |", formatPoints(p))
	}
	fmt.Fprintf(b, " %s |\n\n", formatPoints(agg.Total))
}

func writePercentTable(b *strings.Builder, agg Aggregate) {
	b.WriteString("## Completion by assignee\n\n")
	b.WriteString("| Assignee | Done | Total | Done % |\n| --- | --- | --- | --- |\n")
	for _, st := range agg.Assignees {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			st.Name, formatPoints(st.Points[BucketDone]), formatPoints(st.Total), formatPercent(st.DonePercent()))
	}
	overall := 0.0
	if agg.Total > 0 {
		overall = agg.Buckets[BucketDone] / agg.Total * 100
	}
	fmt.Fprintf(b, "| **Total** | %s | %s | %s |\n\n",
		formatPoints(agg.Buckets[BucketDone]), formatPoints(agg.Total), formatPercent(overall))
}

func ticketLink(is domain.Issue) string {
	text := strings.TrimSpace(is.Identifier + " " + is.Title)
	if is.URL == "" {
		return text
	}
	return fmt.Sprintf("[%s](%s)", text, is.URL)
}

func stateIcon(status string) string {
	switch BucketIndex(status) {
	case BucketTodo:
		return "⚪"
	case BucketInProgress:
		return "🔵"
	case BucketDevReview:
		return "🟣"
	case BucketQATesting:
		return "🟡"
	case BucketDone:
		return "🟢"
	default:
		return "⚫"
	}
}

func formatPoints(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f)
}
