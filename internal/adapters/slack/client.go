/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client posts alert messages to Slack incoming webhooks. One POST per
// alert; failures are logged with status and body and never retried.
type Client struct {
	http *http.Client
	log  zerolog.Logger
}

func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}, log: log}
}

func (c *Client) Send(ctx context.Context, webhookURL, text string) error {
	if webhookURL == "" || text == "" {
		return fmt.Errorf("slack: missing webhook url or text")
	}
	b, _ := json.Marshal(map[string]any{"text": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Msg("slack send failed")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("slack send status=%d body=%s", resp.StatusCode, string(body))
		c.log.Error().Err(err).Msg("slack send failed")
		return err
	}
	return nil
}
