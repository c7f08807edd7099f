/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority ordinals as Linear reports them. Zero means no priority set.
const (
	PriorityUrgent = 1
	PriorityHigh   = 2
	PriorityMedium = 3
	PriorityLow    = 4
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkflowState carries the state category in Type (triage, backlog,
// unstarted, started, completed, canceled).
type WorkflowState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Label struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

type Issue struct {
	ID          string        `json:"id"`
	Identifier  string        `json:"identifier"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Estimate    *float64      `json:"estimate,omitempty"`
	Priority    int           `json:"priority"`
	State       WorkflowState `json:"state"`
	Assignee    *User         `json:"assignee,omitempty"`
	TeamID      string        `json:"teamId"`
	Project     *Ref          `json:"project,omitempty"`
	CycleID     string        `json:"cycleId,omitempty"`
	Labels      []Label       `json:"labels,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Points returns the story-point estimate, treating absent as 0.
func (i Issue) Points() float64 {
	if i.Estimate == nil {
		return 0
	}
	return *i.Estimate
}

// AssigneeName returns the display name or "Unassigned".
func (i Issue) AssigneeName() string {
	if i.Assignee == nil || i.Assignee.Name == "" {
		return "Unassigned"
	}
	return i.Assignee.Name
}

// AssigneeID returns the assignee id or "" when unassigned.
func (i Issue) AssigneeID() string {
	if i.Assignee == nil {
		return ""
	}
	return i.Assignee.ID
}

// ProjectID returns the project id or "".
func (i Issue) ProjectID() string {
	if i.Project == nil {
		return ""
	}
	return i.Project.ID
}

// HasLabel reports whether any current label matches name case-insensitively.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

type Cycle struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Number      int        `json:"number"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Active reports whether the cycle has not been completed yet.
func (c *Cycle) Active() bool {
	return c != nil && c.CompletedAt == nil
}

// DisplayName falls back to the cycle number when no name is set.
func (c Cycle) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("Cycle %d", c.Number)
}

type Comment struct {
	ID        string     `json:"id"`
	Body      string     `json:"body"`
	Author    string     `json:"author,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// DocumentRef is a listed document: enough to match by title.
type DocumentRef struct {
	ID    string
	Title string
}

type Document struct {
	ID    string
	Title string
	Body  string
}

// Outcome is the per-flow (or per-generator) result attached to a webhook
// response. Fatal marks document-store write failures, which are the only
// flow-level failures allowed to flip the overall request outcome.
type Outcome struct {
	Flow   string `json:"flow"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
	Fatal  bool   `json:"-"`
}

const (
	StatusFired   = "fired"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)
