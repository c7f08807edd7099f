/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
	"github.com/rs/zerolog"
)

// Client is a read-only gateway to the Linear GraphQL API. Callers treat
// errors as "no data" and degrade; the client logs the failing operation and
// entity id before returning.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.LinearBaseURL,
		key:     cfg.LinearAPIKey,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		log:     log,
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	if c.baseURL == "" || c.key == "" {
		return errors.New("linear: missing base url or api key")
	}
	b, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.key)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("linear api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var env struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if len(env.Errors) > 0 {
		return fmt.Errorf("linear api: %s", env.Errors[0].Message)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// issueNode mirrors the GraphQL issue selection used by the list queries.
type issueNode struct {
	ID          string               `json:"id"`
	Identifier  string               `json:"identifier"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Estimate    *float64             `json:"estimate"`
	Priority    int                  `json:"priority"`
	URL         string               `json:"url"`
	State       domain.WorkflowState `json:"state"`
	Assignee    *domain.User         `json:"assignee"`
	Team        *domain.Ref          `json:"team"`
	Project     *domain.Ref          `json:"project"`
	Cycle       *domain.Ref          `json:"cycle"`
	Labels      struct {
		Nodes []labelNode `json:"nodes"`
	} `json:"labels"`
}

type labelNode struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Parent *struct {
		ID string `json:"id"`
	} `json:"parent"`
}

func (n issueNode) toDomain() domain.Issue {
	is := domain.Issue{
		ID:          n.ID,
		Identifier:  n.Identifier,
		Title:       n.Title,
		Description: n.Description,
		Estimate:    n.Estimate,
		Priority:    n.Priority,
		URL:         n.URL,
		State:       n.State,
		Assignee:    n.Assignee,
		Project:     n.Project,
	}
	if n.Team != nil {
		is.TeamID = n.Team.ID
	}
	if n.Cycle != nil {
		is.CycleID = n.Cycle.ID
	}
	for _, l := range n.Labels.Nodes {
		lbl := domain.Label{ID: l.ID, Name: l.Name}
		if l.Parent != nil {
			lbl.ParentID = l.Parent.ID
		}
		is.Labels = append(is.Labels, lbl)
	}
	return is
}

const issueSelection = `
  id identifier title description estimate priority url
  state { id name type }
  assignee { id name }
  team { id name }
  project { id name }
  cycle { id name }
  labels { nodes { id name parent { id } } }`

// WorkflowState fetches a workflow state by id, used to resolve prior state
// ids from update deltas into display names.
func (c *Client) WorkflowState(ctx context.Context, id string) (*domain.WorkflowState, error) {
	if id == "" {
		return nil, errors.New("linear: empty state id")
	}
	var out struct {
		WorkflowState *domain.WorkflowState `json:"workflowState"`
	}
	q := `query($id: String!) { workflowState(id: $id) { id name type } }`
	if err := c.do(ctx, q, map[string]any{"id": id}, &out); err != nil {
		c.log.Error().Err(err).Str("op", "workflowState").Str("id", id).Msg("linear fetch failed")
		return nil, err
	}
	if out.WorkflowState == nil {
		return nil, fmt.Errorf("linear: workflow state %s not found", id)
	}
	return out.WorkflowState, nil
}

// Cycle fetches a cycle by id.
func (c *Client) Cycle(ctx context.Context, id string) (*domain.Cycle, error) {
	if id == "" {
		return nil, errors.New("linear: empty cycle id")
	}
	var out struct {
		Cycle *domain.Cycle `json:"cycle"`
	}
	q := `query($id: String!) { cycle(id: $id) { id name number startsAt endsAt completedAt } }`
	if err := c.do(ctx, q, map[string]any{"id": id}, &out); err != nil {
		c.log.Error().Err(err).Str("op", "cycle").Str("id", id).Msg("linear fetch failed")
		return nil, err
	}
	if out.Cycle == nil {
		return nil, fmt.Errorf("linear: cycle %s not found", id)
	}
	return out.Cycle, nil
}

type issuePage struct {
	Issues struct {
		Nodes    []issueNode `json:"nodes"`
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
	} `json:"issues"`
}

func (c *Client) pagedIssues(ctx context.Context, op, query string, vars map[string]any) ([]domain.Issue, error) {
	var all []domain.Issue
	cursor := ""
	for {
		if cursor != "" {
			vars["after"] = cursor
		}
		var page issuePage
		if err := c.do(ctx, query, vars, &page); err != nil {
			c.log.Error().Err(err).Str("op", op).Fields(vars).Msg("linear fetch failed")
			return nil, err
		}
		for _, n := range page.Issues.Nodes {
			all = append(all, n.toDomain())
		}
		if !page.Issues.PageInfo.HasNextPage {
			break
		}
		cursor = page.Issues.PageInfo.EndCursor
	}
	return all, nil
}

// IssuesByLabel lists every issue carrying the given label id.
func (c *Client) IssuesByLabel(ctx context.Context, labelID string) ([]domain.Issue, error) {
	if labelID == "" {
		return nil, errors.New("linear: empty label id")
	}
	q := `query($id: ID!, $after: String) {
  issues(first: 50, after: $after, filter: { labels: { id: { eq: $id } } }) {
    nodes {` + issueSelection + ` }
    pageInfo { hasNextPage endCursor }
  }
}`
	return c.pagedIssues(ctx, "issuesByLabel", q, map[string]any{"id": labelID})
}

// IssuesByLabelParent lists issues carrying any label under the given parent
// taxonomy label.
func (c *Client) IssuesByLabelParent(ctx context.Context, parentID string) ([]domain.Issue, error) {
	if parentID == "" {
		return nil, errors.New("linear: empty label parent id")
	}
	q := `query($id: ID!, $after: String) {
  issues(first: 50, after: $after, filter: { labels: { parent: { id: { eq: $id } } } }) {
    nodes {` + issueSelection + ` }
    pageInfo { hasNextPage endCursor }
  }
}`
	return c.pagedIssues(ctx, "issuesByLabelParent", q, map[string]any{"id": parentID})
}

// IssuesByCycle lists every issue assigned to the given cycle.
func (c *Client) IssuesByCycle(ctx context.Context, cycleID string) ([]domain.Issue, error) {
	if cycleID == "" {
		return nil, errors.New("linear: empty cycle id")
	}
	q := `query($id: ID!, $after: String) {
  issues(first: 50, after: $after, filter: { cycle: { id: { eq: $id } } }) {
    nodes {` + issueSelection + ` }
    pageInfo { hasNextPage endCursor }
  }
}`
	return c.pagedIssues(ctx, "issuesByCycle", q, map[string]any{"id": cycleID})
}

// Comments fetches up to limit comments of an issue, oldest first.
func (c *Client) Comments(ctx context.Context, issueID string, limit int) ([]domain.Comment, error) {
	if issueID == "" {
		return nil, errors.New("linear: empty issue id")
	}
	if limit <= 0 {
		limit = 50
	}
	var out struct {
		Issue *struct {
			Comments struct {
				Nodes []struct {
					ID        string       `json:"id"`
					Body      string       `json:"body"`
					CreatedAt *time.Time   `json:"createdAt"`
					User      *domain.User `json:"user"`
				} `json:"nodes"`
			} `json:"comments"`
		} `json:"issue"`
	}
	q := `query($id: String!, $first: Int!) {
  issue(id: $id) {
    comments(first: $first) { nodes { id body createdAt user { id name } } }
  }
}`
	if err := c.do(ctx, q, map[string]any{"id": issueID, "first": limit}, &out); err != nil {
		c.log.Error().Err(err).Str("op", "comments").Str("id", issueID).Msg("linear fetch failed")
		return nil, err
	}
	if out.Issue == nil {
		return nil, fmt.Errorf("linear: issue %s not found", issueID)
	}
	comments := make([]domain.Comment, 0, len(out.Issue.Comments.Nodes))
	for _, n := range out.Issue.Comments.Nodes {
		cm := domain.Comment{ID: n.ID, Body: n.Body}
		if n.User != nil {
			cm.Author = n.User.Name
		}
		if n.CreatedAt != nil {
			cm.CreatedAt = n.CreatedAt
		}
		comments = append(comments, cm)
	}
	return comments, nil
}
