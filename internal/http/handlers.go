/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/repo"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/service"
)

const signatureHeader = "Linear-Signature"

type processor interface {
	ProcessWebhook(ctx context.Context, ev *domain.WebhookEvent) (*service.Result, error)
}

type reminder interface {
	Run(ctx context.Context) (int, error)
}

type storyLister interface {
	IssuesByLabelParent(ctx context.Context, parentID string) ([]domain.Issue, error)
}

type Handlers struct {
	cfg      config.Config
	log      zerolog.Logger
	svc      processor
	repo     *repo.Repository
	reminder reminder
	tracker  storyLister
	now      func() time.Time
}

// NewHandlers wires the endpoint handlers; repo, reminder and tracker may be
// nil when those optional components are not configured.
func NewHandlers(cfg config.Config, log zerolog.Logger, svc processor, r *repo.Repository, rem reminder, tracker storyLister) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, repo: r, reminder: rem, tracker: tracker, now: time.Now}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// WebhookInfo answers GET probes on the webhook path so operators can check
// the endpoint is up without crafting a signed payload.
func (h *Handlers) WebhookInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoint":  c.FullPath(),
		"method":    "POST",
		"signature": h.cfg.LinearWebhookSecret != "",
		"note":      "signature verification is skipped when no webhook secret is configured",
	})
}

// Webhook is the single POST entry point: verify, decode, process, answer.
// Alert-delivery failures still acknowledge with success=false kept only for
// document-store write failures, so the source does not retry chat noise.
func (h *Handlers) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}
	if h.cfg.LinearWebhookSecret != "" && !h.verifySignature(body, c.GetHeader(signatureHeader)) {
		h.log.Warn().Str("ip", c.ClientIP()).Msg("webhook signature mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var ev domain.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		h.log.Warn().Err(err).Msg("webhook payload not valid json")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	h.log.Info().Str("type", string(ev.Type)).Str("action", string(ev.Action)).Str("webhookId", ev.WebhookID).Msg("webhook received")

	res, err := h.svc.ProcessWebhook(c.Request.Context(), &ev)
	if err != nil {
		h.log.Error().Err(err).Str("webhookId", ev.WebhookID).Msg("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   !res.Failed,
		"type":      ev.Type,
		"result":    res.Outcomes,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) verifySignature(body []byte, header string) bool {
	mac := hmac.New(sha256.New, []byte(h.cfg.LinearWebhookSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}

// LastEvents exposes the audit trail when a database is configured.
func (h *Handlers) LastEvents(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "auditing not configured"})
		return
	}
	events, err := h.repo.LastEvents(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// StoryIssues is a connectivity probe: it lists every issue under the story
// label taxonomy so operators can verify tracker access and the configured
// taxonomy id without waiting for a webhook.
func (h *Handlers) StoryIssues(c *gin.Context) {
	if h.tracker == nil || h.cfg.StoryLabelParentID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "story taxonomy not configured"})
		return
	}
	issues, err := h.tracker.IssuesByLabelParent(c.Request.Context(), h.cfg.StoryLabelParentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(issues), "issues": issues})
}

// RunReminders triggers the release-reminder sweep out of schedule.
func (h *Handlers) RunReminders(c *gin.Context) {
	if h.reminder == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reminders not configured"})
		return
	}
	// detached from the request so a slow sweep does not get cancelled
	go func() {
		if _, err := h.reminder.Run(context.Background()); err != nil {
			h.log.Error().Err(err).Msg("manual reminder sweep failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
