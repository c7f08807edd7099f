/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
	"github.com/rs/zerolog"
)

// Client stores documents as rows of a Notion database: the Name title
// property holds the lookup title, the Body rich-text property holds the
// rendered Markdown split into chunks under Notion's 2000-char block limit.
// There is no server-side title filter; lookup is a client-side scan.
type Client struct {
	baseURL string
	token   string
	version string
	http    *http.Client
	log     zerolog.Logger
}

const bodyChunkLimit = 1900

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.NotionBaseURL,
		token:   cfg.NotionToken,
		version: cfg.NotionVersion,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		log:     log,
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) (map[string]any, error) {
	if c.baseURL == "" || c.token == "" {
		return nil, errors.New("notion: missing base url or token")
	}
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.baseURL, "/")+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("notion api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the pages of the given database with their titles.
func (c *Client) List(ctx context.Context, parentID string) ([]domain.DocumentRef, error) {
	if parentID == "" {
		return nil, errors.New("notion: empty parent id")
	}
	var refs []domain.DocumentRef
	var cursor string
	for {
		body := map[string]any{"page_size": 100}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		out, err := c.doJSON(ctx, http.MethodPost, "/v1/databases/"+parentID+"/query", body)
		if err != nil {
			c.log.Error().Err(err).Str("op", "list").Str("parent", parentID).Msg("notion fetch failed")
			return nil, err
		}
		results, _ := out["results"].([]any)
		for _, r0 := range results {
			page, _ := r0.(map[string]any)
			if page == nil {
				continue
			}
			id, _ := page["id"].(string)
			refs = append(refs, domain.DocumentRef{ID: id, Title: pageTitle(page)})
		}
		more, _ := out["has_more"].(bool)
		if !more {
			break
		}
		cursor, _ = out["next_cursor"].(string)
		if cursor == "" {
			break
		}
	}
	return refs, nil
}

// Get fetches one page and reassembles its body from the chunked property.
func (c *Client) Get(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, errors.New("notion: empty page id")
	}
	out, err := c.doJSON(ctx, http.MethodGet, "/v1/pages/"+id, nil)
	if err != nil {
		c.log.Error().Err(err).Str("op", "get").Str("id", id).Msg("notion fetch failed")
		return nil, err
	}
	return &domain.Document{ID: id, Title: pageTitle(out), Body: pageBody(out)}, nil
}

// Create adds a page under the parent database.
func (c *Client) Create(ctx context.Context, parentID, title, body string) (string, error) {
	if parentID == "" {
		return "", errors.New("notion: empty parent id")
	}
	payload := map[string]any{
		"parent": map[string]any{"database_id": parentID},
		"properties": map[string]any{
			"Name": map[string]any{"title": richText(title)},
			"Body": map[string]any{"rich_text": richTextChunks(body)},
		},
	}
	out, err := c.doJSON(ctx, http.MethodPost, "/v1/pages", payload)
	if err != nil {
		c.log.Error().Err(err).Str("op", "create").Str("title", title).Msg("notion write failed")
		return "", err
	}
	id, _ := out["id"].(string)
	return id, nil
}

// Update replaces a page body.
func (c *Client) Update(ctx context.Context, id, body string) error {
	if id == "" {
		return errors.New("notion: empty page id")
	}
	payload := map[string]any{
		"properties": map[string]any{
			"Body": map[string]any{"rich_text": richTextChunks(body)},
		},
	}
	if _, err := c.doJSON(ctx, http.MethodPatch, "/v1/pages/"+id, payload); err != nil {
		c.log.Error().Err(err).Str("op", "update").Str("id", id).Msg("notion write failed")
		return err
	}
	return nil
}

func richText(s string) []map[string]any {
	return []map[string]any{{"text": map[string]any{"content": s}}}
}

func richTextChunks(s string) []map[string]any {
	chunks := chunkText(s, bodyChunkLimit)
	out := make([]map[string]any, 0, len(chunks))
	for _, ch := range chunks {
		out = append(out, map[string]any{"text": map[string]any{"content": ch}})
	}
	return out
}

func pageTitle(page map[string]any) string {
	props, _ := page["properties"].(map[string]any)
	name, _ := props["Name"].(map[string]any)
	items, _ := name["title"].([]any)
	return joinPlainText(items)
}

func pageBody(page map[string]any) string {
	props, _ := page["properties"].(map[string]any)
	body, _ := props["Body"].(map[string]any)
	items, _ := body["rich_text"].([]any)
	return joinPlainText(items)
}

func joinPlainText(items []any) string {
	b := &strings.Builder{}
	for _, it := range items {
		m, _ := it.(map[string]any)
		if m == nil {
			continue
		}
		if s, ok := m["plain_text"].(string); ok {
			b.WriteString(s)
			continue
		}
		if txt, ok := m["text"].(map[string]any); ok {
			if s, ok := txt["content"].(string); ok {
				b.WriteString(s)
			}
		}
	}
	return b.String()
}

// chunkText splits text into chunks of up to max runes, attempting to break
// on line boundaries.
func chunkText(s string, max int) []string {
	if max <= 0 {
		return []string{s}
	}
	var chunks []string
	lines := strings.Split(s, "\n")
	cur := ""
	curlen := 0
	for _, ln := range lines {
		rl := len([]rune(ln))
		if rl > max {
			if curlen > 0 {
				chunks = append(chunks, cur)
				cur = ""
				curlen = 0
			}
			r := []rune(ln)
			for i := 0; i < rl; i += max {
				j := i + max
				if j > rl {
					j = rl
				}
				chunks = append(chunks, string(r[i:j]))
			}
			continue
		}
		extra := rl
		if curlen > 0 {
			extra++
		}
		if curlen+extra > max {
			chunks = append(chunks, cur)
			cur = ln
			curlen = rl
		} else if curlen == 0 {
			cur = ln
			curlen = rl
		} else {
			cur += "\n" + ln
			curlen += extra
		}
	}
	if curlen > 0 {
		chunks = append(chunks, cur)
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks
}
