/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/report"
)

type fakeDocs struct {
	refs   []domain.DocumentRef
	docs   map[string]*domain.Document
	getErr map[string]error
}

func (f *fakeDocs) List(context.Context, string) ([]domain.DocumentRef, error) {
	return f.refs, nil
}

func (f *fakeDocs) Get(_ context.Context, id string) (*domain.Document, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	return f.docs[id], nil
}

type fakeSink struct {
	texts []string
	err   error
}

func (s *fakeSink) Send(_ context.Context, _, text string) error {
	s.texts = append(s.texts, text)
	return s.err
}

func releaseBody(status report.ReleaseStatus, releaseAt string) string {
	return report.RenderFrontMatter(report.FrontMatter{ReleaseStatus: status, ReleaseAt: releaseAt}) + "\n# doc\n"
}

func newTestReminder(docs DocumentStore, sink AlertSink) *Reminder {
	cfg := config.Config{
		NotionReleaseParent: "release-db",
		SlackReminderURL:    "https://hooks.example.com/reminders",
		ReminderLeadDays:    2,
	}
	r := NewReminder(docs, sink, cfg, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC) }
	return r
}

func TestReminder_Run(t *testing.T) {
	docs := &fakeDocs{
		refs: []domain.DocumentRef{
			{ID: "due", Title: "payments-v2"},
			{ID: "overdue", Title: "checkout-v3"},
			{ID: "future", Title: "reports-v1"},
			{ID: "released", Title: "onboarding-v4"},
			{ID: "broken", Title: "search-v2"},
		},
		docs: map[string]*domain.Document{
			"due":      {ID: "due", Body: releaseBody(report.ReleaseNotReleased, "2026-08-26")},
			"overdue":  {ID: "overdue", Body: releaseBody(report.ReleaseNotReleased, "2026-08-20")},
			"future":   {ID: "future", Body: releaseBody(report.ReleaseNotReleased, "2026-09-15")},
			"released": {ID: "released", Body: releaseBody(report.ReleaseReleased, "2026-08-26")},
			"broken":   {ID: "broken", Body: "# no front matter\n"},
		},
	}
	sink := &fakeSink{}
	sent, err := newTestReminder(docs, sink).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected 2 reminders, got %d: %#v", sent, sink.texts)
	}
	joined := strings.Join(sink.texts, "\n")
	if !strings.Contains(joined, "payments-v2") || !strings.Contains(joined, "checkout-v3") {
		t.Fatalf("wrong documents pinged: %#v", sink.texts)
	}
	if strings.Contains(joined, "reports-v1") || strings.Contains(joined, "onboarding-v4") {
		t.Fatalf("future or released documents must not ping: %#v", sink.texts)
	}
}

func TestReminder_OneBadDocumentDoesNotStopSweep(t *testing.T) {
	docs := &fakeDocs{
		refs: []domain.DocumentRef{
			{ID: "bad", Title: "broken"},
			{ID: "due", Title: "payments-v2"},
		},
		docs: map[string]*domain.Document{
			"due": {ID: "due", Body: releaseBody(report.ReleaseNotReleased, "2026-08-25")},
		},
		getErr: map[string]error{"bad": errors.New("503")},
	}
	sink := &fakeSink{}
	sent, err := newTestReminder(docs, sink).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected the healthy document to ping, got %d", sent)
	}
}

func TestReminder_NotConfigured(t *testing.T) {
	r := NewReminder(&fakeDocs{}, &fakeSink{}, config.Config{}, zerolog.Nop())
	sent, err := r.Run(context.Background())
	if err != nil || sent != 0 {
		t.Fatalf("unconfigured reminder must no-op, got sent=%d err=%v", sent, err)
	}
}
