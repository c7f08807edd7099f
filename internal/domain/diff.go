/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

// StringChange is a single tracked field diff. Current is always populated
// from the snapshot; Previous only when the delta carried (and, for status,
// resolution produced) a prior value.
type StringChange struct {
	Changed     bool   `json:"changed"`
	Current     string `json:"current,omitempty"`
	Previous    string `json:"previous,omitempty"`
	HasPrevious bool   `json:"hasPrevious,omitempty"`
}

type IntChange struct {
	Changed     bool `json:"changed"`
	Current     int  `json:"current,omitempty"`
	Previous    int  `json:"previous,omitempty"`
	HasPrevious bool `json:"hasPrevious,omitempty"`
}

type FloatChange struct {
	Changed     bool     `json:"changed"`
	Current     *float64 `json:"current,omitempty"`
	Previous    *float64 `json:"previous,omitempty"`
	HasPrevious bool     `json:"hasPrevious,omitempty"`
}

// LabelConfidence tags how much the label diff can be trusted. The webhook
// source does not reliably report prior labels, so most update-action label
// changes are heuristic.
type LabelConfidence string

const (
	LabelConfirmed LabelConfidence = "confirmed"
	LabelHeuristic LabelConfidence = "heuristic"
	LabelUnknown   LabelConfidence = "unknown"
)

type LabelChange struct {
	Changed    bool            `json:"changed"`
	Confidence LabelConfidence `json:"confidence"`
	Current    []Label         `json:"current,omitempty"`
	Added      []Label         `json:"added,omitempty"`
	Removed    []Label         `json:"removed,omitempty"`
}

// ChangeDiff is the detector output: per-field diffs plus the eagerly
// fetched cycle enrichment (nil when the issue has no cycle or the fetch
// degraded).
type ChangeDiff struct {
	Status      StringChange `json:"status"`
	Priority    IntChange    `json:"priority"`
	Assignee    StringChange `json:"assignee"`
	CycleID     StringChange `json:"cycleId"`
	Project     StringChange `json:"project"`
	Title       StringChange `json:"title"`
	Description StringChange `json:"description"`
	Estimate    FloatChange  `json:"estimate"`
	Labels      LabelChange  `json:"labels"`

	Cycle *Cycle `json:"cycle,omitempty"`
}

// HasChanges reports whether any tracked field changed.
func (d *ChangeDiff) HasChanges() bool {
	return d.Status.Changed ||
		d.Priority.Changed ||
		d.Assignee.Changed ||
		d.CycleID.Changed ||
		d.Project.Changed ||
		d.Title.Changed ||
		d.Description.Changed ||
		d.Estimate.Changed ||
		d.Labels.Changed
}

// FieldChanges counts the non-label fields flagged changed; the label
// heuristic uses it to decide whether an update was probably label-only.
func (d *ChangeDiff) FieldChanges() int {
	n := 0
	for _, c := range []bool{
		d.Status.Changed, d.Priority.Changed, d.Assignee.Changed,
		d.CycleID.Changed, d.Project.Changed, d.Title.Changed,
		d.Description.Changed, d.Estimate.Changed,
	} {
		if c {
			n++
		}
	}
	return n
}
