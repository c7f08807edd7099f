/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */

// Package report holds the pure formatting and aggregation layer: status
// buckets, per-assignee story-point breakdowns, and the Markdown bodies of
// release and retrospective documents. Nothing here performs I/O.
package report

import (
	"sort"
	"strings"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
)

const BucketCount = 5

const (
	BucketTodo = iota
	BucketInProgress
	BucketDevReview
	BucketQATesting
	BucketDone
)

// Buckets is the fixed ordered set of tracked status columns.
var Buckets = [BucketCount]string{"Todo", "In Progress", "DEV Review", "QA Testing", "Done"}

// BucketIndex maps a status name to its column, -1 when untracked.
// Untracked statuses still count toward totals, just not toward a column.
func BucketIndex(status string) int {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "todo":
		return BucketTodo
	case "in progress":
		return BucketInProgress
	case "dev review", "review":
		return BucketDevReview
	case "qa testing":
		return BucketQATesting
	case "done", "completed":
		return BucketDone
	default:
		return -1
	}
}

type AssigneeStats struct {
	Name   string
	Points [BucketCount]float64
	Total  float64
}

// DonePercent is the assignee's share of points in the Done bucket, 0 when
// the assignee has no points at all (never NaN).
func (a AssigneeStats) DonePercent() float64 {
	if a.Total == 0 {
		return 0
	}
	return a.Points[BucketDone] / a.Total * 100
}

type Aggregate struct {
	Total     float64
	Buckets   [BucketCount]float64
	Assignees []AssigneeStats
}

// AggregateIssues computes grand and per-assignee story-point totals.
// Assignees are sorted by name so rendering is deterministic.
func AggregateIssues(issues []domain.Issue) Aggregate {
	agg := Aggregate{}
	byName := map[string]*AssigneeStats{}
	for _, is := range issues {
		pts := is.Points()
		agg.Total += pts
		name := is.AssigneeName()
		st := byName[name]
		if st == nil {
			st = &AssigneeStats{Name: name}
			byName[name] = st
		}
		st.Total += pts
		if idx := BucketIndex(is.State.Name); idx >= 0 {
			st.Points[idx] += pts
			agg.Buckets[idx] += pts
		}
	}
	agg.Assignees = make([]AssigneeStats, 0, len(byName))
	for _, st := range byName {
		agg.Assignees = append(agg.Assignees, *st)
	}
	sort.Slice(agg.Assignees, func(i, j int) bool { return agg.Assignees[i].Name < agg.Assignees[j].Name })
	return agg
}
