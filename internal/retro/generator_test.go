/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package retro

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
)

type fakeTracker struct {
	mu        sync.Mutex
	issues    []domain.Issue
	issuesErr error
	comments  map[string][]domain.Comment
	failFor   map[string]bool
}

func (f *fakeTracker) IssuesByCycle(context.Context, string) ([]domain.Issue, error) {
	return f.issues, f.issuesErr
}

func (f *fakeTracker) Comments(_ context.Context, issueID string, _ int) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[issueID] {
		return nil, errors.New("comments unavailable")
	}
	return f.comments[issueID], nil
}

type fakeDocs struct {
	refs      []domain.DocumentRef
	listErr   error
	created   map[string]string
	createErr error
	updated   map[string]string
	updateErr error
}

func (f *fakeDocs) List(context.Context, string) ([]domain.DocumentRef, error) {
	return f.refs, f.listErr
}

func (f *fakeDocs) Create(_ context.Context, _, title, body string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.created == nil {
		f.created = map[string]string{}
	}
	f.created[title] = body
	return "new-id", nil
}

func (f *fakeDocs) Update(_ context.Context, id, body string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = map[string]string{}
	}
	f.updated[id] = body
	return nil
}

type fakeSummarizer struct {
	summary string
	err     error
	got     []string
}

func (f *fakeSummarizer) SummarizeComments(_ context.Context, comments []string) (string, error) {
	f.got = comments
	return f.summary, f.err
}

func fp(f float64) *float64 { return &f }

func testCfg() config.Config {
	return config.Config{NotionRetroParent: "retro-db", CommentWorkers: 2, CommentPageSize: 50}
}

func testCycle() *domain.Cycle {
	done := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	return &domain.Cycle{ID: "c1", Name: "Sprint 12", CompletedAt: &done}
}

func cycleIssues() []domain.Issue {
	return []domain.Issue{
		{ID: "i1", Identifier: "ENG-1", Title: "Ship it", Estimate: fp(5),
			Assignee: &domain.User{ID: "u1", Name: "Alice"},
			State:    domain.WorkflowState{Name: "Done", Type: "completed"}},
		{ID: "i2", Identifier: "ENG-2", Title: "Fix it", Estimate: fp(3),
			State: domain.WorkflowState{Name: "In Progress", Type: "started"}},
	}
}

func TestGenerate_CreatesRetrospective(t *testing.T) {
	tracker := &fakeTracker{
		issues: cycleIssues(),
		comments: map[string][]domain.Comment{
			"i2": {{Body: "this got reopened twice"}, {Body: "and reverted once"}},
		},
	}
	docs := &fakeDocs{}
	sum := &fakeSummarizer{summary: "QA churn around ENG-2"}
	g := New(tracker, docs, sum, testCfg(), zerolog.Nop())
	g.now = func() time.Time { return time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC) }

	out := g.Generate(context.Background(), testCycle())
	if out.Status != domain.StatusFired || out.Reason != "document created" {
		t.Fatalf("expected created, got %#v", out)
	}
	body, ok := docs.created["Retrospective-Sprint 12"]
	if !ok {
		t.Fatalf("document not created under expected title: %#v", docs.created)
	}
	if !strings.Contains(body, "ENG-2 Fix it: 2 reopen signal(s)") {
		t.Fatalf("reopen signals missing from body:\n%s", body)
	}
	if !strings.Contains(body, "QA churn around ENG-2") {
		t.Fatal("model summary missing from body")
	}
	if len(sum.got) != 2 {
		t.Fatalf("summarizer should see both comment bodies, got %#v", sum.got)
	}
}

func TestGenerate_UpdatesExistingDocument(t *testing.T) {
	tracker := &fakeTracker{issues: cycleIssues()}
	docs := &fakeDocs{refs: []domain.DocumentRef{{ID: "doc-1", Title: "Retrospective-Sprint 12"}}}
	g := New(tracker, docs, nil, testCfg(), zerolog.Nop())

	out := g.Generate(context.Background(), testCycle())
	if out.Status != domain.StatusFired || out.Reason != "document updated" {
		t.Fatalf("expected updated, got %#v", out)
	}
	if _, ok := docs.updated["doc-1"]; !ok {
		t.Fatalf("existing document not updated: %#v", docs.updated)
	}
	if len(docs.created) != 0 {
		t.Fatal("must not create a duplicate document")
	}
}

func TestGenerate_CommentFetchFailureDegrades(t *testing.T) {
	tracker := &fakeTracker{
		issues:  cycleIssues(),
		failFor: map[string]bool{"i2": true},
	}
	docs := &fakeDocs{}
	g := New(tracker, docs, nil, testCfg(), zerolog.Nop())

	out := g.Generate(context.Background(), testCycle())
	if out.Status != domain.StatusFired {
		t.Fatalf("one failed comment fetch must not fail the document, got %#v", out)
	}
	body := docs.created["Retrospective-Sprint 12"]
	if !strings.Contains(body, "🎉 No reopened issues") {
		t.Fatal("failed fetch should count as zero reopen signals")
	}
}

func TestGenerate_Failures(t *testing.T) {
	// tracker failure: no document to write, non-fatal
	g := New(&fakeTracker{issuesErr: errors.New("graphql down")}, &fakeDocs{}, nil, testCfg(), zerolog.Nop())
	out := g.Generate(context.Background(), testCycle())
	if out.Status != domain.StatusFailed || out.Fatal {
		t.Fatalf("expected non-fatal failure, got %#v", out)
	}

	// document write failure is the fatal case
	g = New(&fakeTracker{issues: cycleIssues()}, &fakeDocs{createErr: errors.New("503")}, nil, testCfg(), zerolog.Nop())
	out = g.Generate(context.Background(), testCycle())
	if out.Status != domain.StatusFailed || !out.Fatal {
		t.Fatalf("expected fatal failure, got %#v", out)
	}

	// missing parent is a configuration gap
	cfg := testCfg()
	cfg.NotionRetroParent = ""
	g = New(&fakeTracker{}, &fakeDocs{}, nil, cfg, zerolog.Nop())
	out = g.Generate(context.Background(), testCycle())
	if out.Status != domain.StatusSkipped {
		t.Fatalf("expected skipped, got %#v", out)
	}
}

func TestGenerate_SummarizerErrorFallsBack(t *testing.T) {
	tracker := &fakeTracker{
		issues:   cycleIssues(),
		comments: map[string][]domain.Comment{"i1": {{Body: "lgtm"}}},
	}
	docs := &fakeDocs{}
	g := New(tracker, docs, &fakeSummarizer{err: errors.New("model down")}, testCfg(), zerolog.Nop())

	out := g.Generate(context.Background(), testCycle())
	if out.Status != domain.StatusFired {
		t.Fatalf("summary failure must not fail the document, got %#v", out)
	}
	if !strings.Contains(docs.created["Retrospective-Sprint 12"], "No automated comment summary") {
		t.Fatal("expected placeholder summary section")
	}
}
