/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"encoding/json"
	"fmt"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
)

type EntityType string

const (
	EntityIssue   EntityType = "Issue"
	EntityCycle   EntityType = "Cycle"
	EntityComment EntityType = "Comment"
	EntityProject EntityType = "Project"
)

// WebhookEvent is the inbound Linear envelope. Data is decoded lazily per
// entity type; the event lives only for the duration of one request.
type WebhookEvent struct {
	Action           Action          `json:"action"`
	Type             EntityType      `json:"type"`
	Data             json.RawMessage `json:"data"`
	UpdatedFrom      *UpdatedFrom    `json:"updatedFrom,omitempty"`
	OrganizationID   string          `json:"organizationId"`
	WebhookID        string          `json:"webhookId"`
	WebhookTimestamp int64           `json:"webhookTimestamp"`
	URL              string          `json:"url,omitempty"`
}

// Issue decodes the payload as an issue snapshot.
func (e *WebhookEvent) Issue() (*Issue, error) {
	var is Issue
	if err := json.Unmarshal(e.Data, &is); err != nil {
		return nil, fmt.Errorf("decode issue data: %w", err)
	}
	if is.ID == "" {
		return nil, fmt.Errorf("issue data missing id")
	}
	return &is, nil
}

// Cycle decodes the payload as a cycle snapshot.
func (e *WebhookEvent) Cycle() (*Cycle, error) {
	var cy Cycle
	if err := json.Unmarshal(e.Data, &cy); err != nil {
		return nil, fmt.Errorf("decode cycle data: %w", err)
	}
	if cy.ID == "" {
		return nil, fmt.Errorf("cycle data missing id")
	}
	return &cy, nil
}

// UpdatedFrom is the partial prior snapshot embedded in update webhooks.
// The source omits unchanged fields, so "absent" and "present but null" must
// stay distinguishable: Has reports whether the key appeared at all.
type UpdatedFrom struct {
	StateID     string
	Priority    int
	AssigneeID  string
	CycleID     string
	ProjectID   string
	Title       string
	Description string
	Estimate    *float64

	present map[string]bool
}

func (u *UpdatedFrom) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	u.present = make(map[string]bool, len(raw))
	for k, v := range raw {
		u.present[k] = true
		switch k {
		case "stateId":
			_ = json.Unmarshal(v, &u.StateID)
		case "priority":
			_ = json.Unmarshal(v, &u.Priority)
		case "assigneeId":
			_ = json.Unmarshal(v, &u.AssigneeID)
		case "cycleId":
			_ = json.Unmarshal(v, &u.CycleID)
		case "projectId":
			_ = json.Unmarshal(v, &u.ProjectID)
		case "title":
			_ = json.Unmarshal(v, &u.Title)
		case "description":
			_ = json.Unmarshal(v, &u.Description)
		case "estimate":
			_ = json.Unmarshal(v, &u.Estimate)
		}
	}
	return nil
}

// Has reports whether the named key was present in the delta, null included.
func (u *UpdatedFrom) Has(key string) bool {
	if u == nil {
		return false
	}
	return u.present[key]
}
