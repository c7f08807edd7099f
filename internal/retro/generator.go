/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */

// Package retro produces the cycle retrospective document: issue and
// story-point breakdowns, reopen-signal detection from comments, and an
// optional model-written summary of the discussion threads.
package retro

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/report"
)

type Tracker interface {
	IssuesByCycle(ctx context.Context, cycleID string) ([]domain.Issue, error)
	Comments(ctx context.Context, issueID string, limit int) ([]domain.Comment, error)
}

type DocumentStore interface {
	List(ctx context.Context, parentID string) ([]domain.DocumentRef, error)
	Create(ctx context.Context, parentID, title, body string) (string, error)
	Update(ctx context.Context, id, body string) error
}

// Summarizer condenses the cycle's comment bodies into a few bullets.
type Summarizer interface {
	SummarizeComments(ctx context.Context, comments []string) (string, error)
}

type Generator struct {
	tracker    Tracker
	docs       DocumentStore
	summarizer Summarizer
	parentID   string
	workers    int
	pageSize   int
	now        func() time.Time
	log        zerolog.Logger
}

// New builds the generator; summarizer may be nil, in which case the
// document carries the static placeholder section.
func New(tracker Tracker, docs DocumentStore, summarizer Summarizer, cfg config.Config, log zerolog.Logger) *Generator {
	workers := cfg.CommentWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Generator{
		tracker:    tracker,
		docs:       docs,
		summarizer: summarizer,
		parentID:   cfg.NotionRetroParent,
		workers:    workers,
		pageSize:   cfg.CommentPageSize,
		now:        time.Now,
		log:        log,
	}
}

// Generate renders and upserts the retrospective for one cycle. Comment
// fetches run on a bounded worker pool; a failed fetch degrades that issue
// to zero reopen signals instead of failing the whole document.
func (g *Generator) Generate(ctx context.Context, cycle *domain.Cycle) domain.Outcome {
	const flow = "retrospective"
	if g.parentID == "" {
		g.log.Warn().Str("cycle", cycle.ID).Msg("retro parent not configured")
		return domain.Outcome{Flow: flow, Status: domain.StatusSkipped, Reason: "no retro parent configured"}
	}
	issues, err := g.tracker.IssuesByCycle(ctx, cycle.ID)
	if err != nil {
		return domain.Outcome{Flow: flow, Status: domain.StatusFailed, Error: err.Error()}
	}

	rows := make([]report.IssueReport, len(issues))
	bodies := make([][]string, len(issues))
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := g.workers
	if workers > len(issues) {
		workers = len(issues)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				is := issues[i]
				rows[i] = report.IssueReport{Issue: is}
				comments, err := g.tracker.Comments(ctx, is.ID, g.pageSize)
				if err != nil {
					g.log.Warn().Err(err).Str("issue", is.Identifier).Msg("comment fetch failed, counting zero reopen signals")
					continue
				}
				rows[i].ReopenedCount = report.CountReopenSignals(comments)
				for _, cm := range comments {
					if strings.TrimSpace(cm.Body) != "" {
						bodies[i] = append(bodies[i], cm.Body)
					}
				}
			}
		}()
	}
	for i := range issues {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := g.summarize(ctx, bodies)
	body := report.RenderRetrospective(cycle, rows, summary, g.now())
	title := "Retrospective-" + cycle.DisplayName()

	refs, err := g.docs.List(ctx, g.parentID)
	if err != nil {
		return domain.Outcome{Flow: flow, Status: domain.StatusFailed, Error: err.Error()}
	}
	for _, ref := range refs {
		if strings.EqualFold(strings.TrimSpace(ref.Title), title) {
			if err := g.docs.Update(ctx, ref.ID, body); err != nil {
				return domain.Outcome{Flow: flow, Status: domain.StatusFailed, Error: err.Error(), Fatal: true}
			}
			return domain.Outcome{Flow: flow, Status: domain.StatusFired, Reason: "document updated"}
		}
	}
	if _, err := g.docs.Create(ctx, g.parentID, title, body); err != nil {
		return domain.Outcome{Flow: flow, Status: domain.StatusFailed, Error: err.Error(), Fatal: true}
	}
	return domain.Outcome{Flow: flow, Status: domain.StatusFired, Reason: "document created"}
}

// summarize is best-effort: no summarizer, no comments, or a model error all
// fall back to the placeholder.
func (g *Generator) summarize(ctx context.Context, bodies [][]string) string {
	if g.summarizer == nil {
		return ""
	}
	var all []string
	for _, bs := range bodies {
		all = append(all, bs...)
	}
	if len(all) == 0 {
		return ""
	}
	s, err := g.summarizer.SummarizeComments(ctx, all)
	if err != nil {
		g.log.Warn().Err(err).Msg("comment summary failed, using placeholder")
		return ""
	}
	return s
}
