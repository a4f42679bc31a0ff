package repository

import (
	"testing"
	"time"

	"github.com/soapboxhq/soapbox/internal/models"
)

func createTestDraft(t *testing.T, d *DraftRepository, campaignID, postID string) *models.ResponseDraft {
	t.Helper()
	draft := &models.ResponseDraft{
		CampaignID:          campaignID,
		PostID:              postID,
		Text:                "we built a tool for this",
		Model:               "gemini-2.5-flash",
		Confidence:          0.8,
		Sentiment:           0.6,
		EngagementPotential: 7,
		Priority:            models.PriorityMedium,
	}
	if err := d.Create(draft); err != nil {
		t.Fatalf("Create() draft error = %v", err)
	}
	return draft
}

func TestDraftRepository_OneDraftPerPost(t *testing.T) {
	d := setupTestDB(t)
	drafts := NewDraftRepository(d)
	c := createTestCampaign(t, d)
	p := createTestPost(t, d, c.ID, "t3_abc")

	createTestDraft(t, drafts, c.ID, p.ID)

	err := drafts.Create(&models.ResponseDraft{CampaignID: c.ID, PostID: p.ID, Text: "again"})
	if err != ErrDuplicateDraft {
		t.Errorf("Create(second draft) error = %v, want ErrDuplicateDraft", err)
	}
}

func TestDraftRepository_ReviewTransitions(t *testing.T) {
	d := setupTestDB(t)
	drafts := NewDraftRepository(d)
	c := createTestCampaign(t, d)
	p := createTestPost(t, d, c.ID, "t3_abc")
	draft := createTestDraft(t, drafts, c.ID, p.ID)

	if err := drafts.SetReview(draft.ID, models.DraftApproved); err != nil {
		t.Fatalf("SetReview(approved) error = %v", err)
	}

	got, _ := drafts.GetByID(draft.ID)
	if got.Status != models.DraftApproved {
		t.Errorf("status = %v, want approved", got.Status)
	}

	// posted is not a review status
	if err := drafts.SetReview(draft.ID, models.DraftPosted); err != ErrInvalidTransition {
		t.Errorf("SetReview(posted) error = %v, want ErrInvalidTransition", err)
	}
}

func TestDraftRepository_PostedIsTerminal(t *testing.T) {
	d := setupTestDB(t)
	drafts := NewDraftRepository(d)
	c := createTestCampaign(t, d)
	p := createTestPost(t, d, c.ID, "t3_abc")
	draft := createTestDraft(t, drafts, c.ID, p.ID)

	// cannot post a pending draft
	if err := drafts.MarkPosted(draft.ID, "t1_xyz", time.Now()); err != ErrInvalidTransition {
		t.Errorf("MarkPosted(pending) error = %v, want ErrInvalidTransition", err)
	}

	drafts.SetReview(draft.ID, models.DraftApproved)

	postedAt := time.Now()
	if err := drafts.MarkPosted(draft.ID, "t1_xyz", postedAt); err != nil {
		t.Fatalf("MarkPosted() error = %v", err)
	}

	got, _ := drafts.GetByID(draft.ID)
	if got.Status != models.DraftPosted {
		t.Errorf("status = %v, want posted", got.Status)
	}
	if got.PlatformCommentID != "t1_xyz" {
		t.Errorf("PlatformCommentID = %v, want t1_xyz", got.PlatformCommentID)
	}
	if got.PostedAt == nil {
		t.Fatal("PostedAt not set")
	}

	// second outcome must be rejected: posted_at is set exactly once
	if err := drafts.MarkPosted(draft.ID, "t1_other", time.Now()); err != ErrInvalidTransition {
		t.Errorf("MarkPosted(again) error = %v, want ErrInvalidTransition", err)
	}
	if err := drafts.MarkFailed(draft.ID, "late failure"); err != ErrInvalidTransition {
		t.Errorf("MarkFailed(posted draft) error = %v, want ErrInvalidTransition", err)
	}

	got, _ = drafts.GetByID(draft.ID)
	if got.PlatformCommentID != "t1_xyz" {
		t.Error("terminal draft was mutated")
	}
}

func TestDraftRepository_MarkFailed(t *testing.T) {
	d := setupTestDB(t)
	drafts := NewDraftRepository(d)
	c := createTestCampaign(t, d)
	p := createTestPost(t, d, c.ID, "t3_abc")
	draft := createTestDraft(t, drafts, c.ID, p.ID)

	drafts.SetReview(draft.ID, models.DraftApproved)

	if err := drafts.MarkFailed(draft.ID, "403 forbidden"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	got, _ := drafts.GetByID(draft.ID)
	if got.Status != models.DraftFailed {
		t.Errorf("status = %v, want failed", got.Status)
	}
	if got.PostingError != "403 forbidden" {
		t.Errorf("PostingError = %q", got.PostingError)
	}

	// failed is terminal too
	if err := drafts.MarkPosted(draft.ID, "t1_xyz", time.Now()); err != ErrInvalidTransition {
		t.Errorf("MarkPosted(failed draft) error = %v, want ErrInvalidTransition", err)
	}
}

func TestDraftRepository_CountPostedSince(t *testing.T) {
	d := setupTestDB(t)
	drafts := NewDraftRepository(d)
	c := createTestCampaign(t, d)

	now := time.Now()
	for i, age := range []time.Duration{10 * time.Minute, 30 * time.Minute, 2 * time.Hour} {
		p := createTestPost(t, d, c.ID, "t3_"+string(rune('a'+i)))
		draft := createTestDraft(t, drafts, c.ID, p.ID)
		drafts.SetReview(draft.ID, models.DraftApproved)
		if err := drafts.MarkPosted(draft.ID, "t1_"+draft.ID, now.Add(-age)); err != nil {
			t.Fatalf("MarkPosted() error = %v", err)
		}
	}

	n, err := drafts.CountPostedSince(models.PlatformReddit, "user-1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountPostedSince() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountPostedSince() = %d, want 2 (one outcome is outside the window)", n)
	}

	// other user sees nothing
	n, err = drafts.CountPostedSince(models.PlatformReddit, "user-2", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountPostedSince() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountPostedSince(other user) = %d, want 0", n)
	}
}

func TestDraftRepository_ListByStatus(t *testing.T) {
	d := setupTestDB(t)
	drafts := NewDraftRepository(d)
	c := createTestCampaign(t, d)

	p1 := createTestPost(t, d, c.ID, "t3_one")
	p2 := createTestPost(t, d, c.ID, "t3_two")
	d1 := createTestDraft(t, drafts, c.ID, p1.ID)
	createTestDraft(t, drafts, c.ID, p2.ID)

	drafts.SetReview(d1.ID, models.DraftApproved)

	approved, err := drafts.ListByStatus(c.ID, models.DraftApproved, 10)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(approved) != 1 || approved[0].ID != d1.ID {
		t.Errorf("ListByStatus(approved) = %d drafts, want the 1 approved", len(approved))
	}

	pending, _ := drafts.ListByStatus(c.ID, models.DraftPending, 10)
	if len(pending) != 1 {
		t.Errorf("ListByStatus(pending) = %d drafts, want 1", len(pending))
	}
}
