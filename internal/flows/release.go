/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package flows

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/domain"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/report"
)

// Tracker lists every issue carrying a label; the release flow regenerates
// the whole document from that list, never patching incrementally.
type Tracker interface {
	IssuesByLabel(ctx context.Context, labelID string) ([]domain.Issue, error)
}

// DocumentStore is the release flow's view of the document service.
type DocumentStore interface {
	List(ctx context.Context, parentID string) ([]domain.DocumentRef, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	Create(ctx context.Context, parentID, title, body string) (string, error)
	Update(ctx context.Context, id, body string) error
}

// Release keeps one document per story label in sync with the tracker. A
// document whose release_status left not_released is locked and never
// touched again; a document whose front matter cannot be parsed is left
// alone rather than overwritten.
type Release struct {
	tracker       Tracker
	docs          DocumentStore
	parentID      string
	storyParentID string
	leadDays      int
	now           func() time.Time
	log           zerolog.Logger
}

func NewRelease(tracker Tracker, docs DocumentStore, cfg config.Config, log zerolog.Logger) *Release {
	return &Release{
		tracker:       tracker,
		docs:          docs,
		parentID:      cfg.NotionReleaseParent,
		storyParentID: cfg.StoryLabelParentID,
		leadDays:      cfg.ReleaseLeadDays,
		now:           time.Now,
		log:           log,
	}
}

func (r *Release) Name() string { return "release" }

// storyLabel returns the issue's label under the configured story taxonomy,
// nil when it has none.
func (r *Release) storyLabel(issue *domain.Issue) *domain.Label {
	if r.storyParentID == "" {
		return nil
	}
	for i := range issue.Labels {
		if issue.Labels[i].ParentID == r.storyParentID {
			return &issue.Labels[i]
		}
	}
	return nil
}

// Evaluate matches real status transitions (both sides known and non-empty)
// on issues that carry a story label.
func (r *Release) Evaluate(issue *domain.Issue, diff *domain.ChangeDiff) bool {
	if !diff.Status.Changed || !diff.Status.HasPrevious {
		return false
	}
	if diff.Status.Previous == "" || diff.Status.Current == "" {
		return false
	}
	return r.storyLabel(issue) != nil
}

func (r *Release) Execute(ctx context.Context, issue *domain.Issue, diff *domain.ChangeDiff) domain.Outcome {
	if r.parentID == "" {
		r.log.Warn().Str("issue", issue.Identifier).Msg("release parent not configured")
		return domain.Outcome{Flow: r.Name(), Status: domain.StatusSkipped, Reason: "no release parent configured"}
	}
	label := r.storyLabel(issue)
	if label == nil {
		return domain.Outcome{Flow: r.Name(), Status: domain.StatusSkipped, Reason: "no story label"}
	}

	issues, err := r.tracker.IssuesByLabel(ctx, label.ID)
	if err != nil {
		return domain.Outcome{Flow: r.Name(), Status: domain.StatusFailed, Error: err.Error()}
	}
	refs, err := r.docs.List(ctx, r.parentID)
	if err != nil {
		return domain.Outcome{Flow: r.Name(), Status: domain.StatusFailed, Error: err.Error()}
	}

	var existing *domain.DocumentRef
	for i := range refs {
		if strings.EqualFold(strings.TrimSpace(refs[i].Title), label.Name) {
			existing = &refs[i]
			break
		}
	}
	now := r.now()

	if existing == nil {
		fm := report.FrontMatter{
			ReleaseStatus: report.ReleaseNotReleased,
			ReleaseAt:     now.AddDate(0, 0, r.leadDays).Format(report.DateFormat),
		}
		body := report.RenderRelease(label.Name, issues, fm, now)
		if _, err := r.docs.Create(ctx, r.parentID, label.Name, body); err != nil {
			return domain.Outcome{Flow: r.Name(), Status: domain.StatusFailed, Error: err.Error(), Fatal: true}
		}
		return domain.Outcome{Flow: r.Name(), Status: domain.StatusFired, Reason: "document created"}
	}

	doc, err := r.docs.Get(ctx, existing.ID)
	if err != nil {
		return domain.Outcome{Flow: r.Name(), Status: domain.StatusFailed, Error: err.Error()}
	}
	fm, err := report.ParseFrontMatter(doc.Body)
	if err != nil {
		r.log.Warn().Err(err).Str("doc", doc.ID).Str("label", label.Name).Msg("release front matter unparseable, leaving document alone")
		return domain.Outcome{Flow: r.Name(), Status: domain.StatusSkipped, Reason: "front matter unparseable"}
	}
	if fm.ReleaseStatus != report.ReleaseNotReleased {
		return domain.Outcome{Flow: r.Name(), Status: domain.StatusSkipped, Reason: "release locked"}
	}

	// regenerate, preserving the human-owned release date
	body := report.RenderRelease(label.Name, issues, fm, now)
	if err := r.docs.Update(ctx, existing.ID, body); err != nil {
		return domain.Outcome{Flow: r.Name(), Status: domain.StatusFailed, Error: err.Error(), Fatal: true}
	}
	return domain.Outcome{Flow: r.Name(), Status: domain.StatusFired, Reason: "document updated"}
}
