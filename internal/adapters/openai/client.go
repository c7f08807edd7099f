/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package openai

import (
	"context"
	"errors"
	"strings"

	oa "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
)

// Client produces the optional comments summary for retrospectives. When no
// API key is configured the caller renders the static placeholder instead.
type Client struct {
	key   string
	model string
	cli   oa.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	model := cfg.OpenAIModel
	if strings.TrimSpace(model) == "" {
		model = "gpt-4.1-mini"
	}
	cli := oa.NewClient(option.WithAPIKey(cfg.OpenAIKey), option.WithRequestTimeout(cfg.OpenAITimeout))
	return &Client{key: cfg.OpenAIKey, model: model, cli: cli, log: log}
}

func (c *Client) SummarizeComments(ctx context.Context, comments []string) (string, error) {
	if strings.TrimSpace(c.key) == "" {
		return "", errors.New("openai: missing key")
	}
	if len(comments) == 0 {
		return "", errors.New("openai: no comments")
	}
	c.log.Info().Str("model", c.model).Int("comments", len(comments)).Msg("openai summarize call")
	params := oa.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage("You are an agile coach reviewing a completed cycle. Summarize the discussion threads below in at most five bullet points: recurring blockers, QA churn, and notable decisions. Plain text, no preamble."),
			oa.UserMessage(strings.Join(comments, "\n---\n")),
		},
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
