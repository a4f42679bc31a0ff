package ratelimit

import (
	"testing"
	"time"

	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/db"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/repository"
)

type harness struct {
	limiter  *Limiter
	drafts   *repository.DraftRepository
	posts    *repository.PostRepository
	campaign *models.Campaign
}

func setupLimiter(t *testing.T, perHour map[string]int) *harness {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	campaigns := repository.NewCampaignRepository(database.DB)
	campaign := &models.Campaign{
		UserID:    "user-1",
		CompanyID: "company-1",
		Name:      "launch buzz",
		Platform:  models.PlatformReddit,
	}
	if err := campaigns.Create(campaign); err != nil {
		t.Fatalf("campaign Create() error = %v", err)
	}

	drafts := repository.NewDraftRepository(database.DB)
	cfg := config.RateLimitConfig{Window: time.Hour, PerHour: perHour}
	return &harness{
		limiter:  NewLimiter(cfg, drafts),
		drafts:   drafts,
		posts:    repository.NewPostRepository(database.DB),
		campaign: campaign,
	}
}

// postOutcome creates a posted draft backdated by age.
func (h *harness) postOutcome(t *testing.T, platformID string, age time.Duration) {
	t.Helper()

	post := &models.DiscoveredPost{
		CampaignID:     h.campaign.ID,
		PlatformPostID: platformID,
		PostedAt:       time.Now().Add(-24 * time.Hour),
	}
	if err := h.posts.Create(post); err != nil {
		t.Fatalf("post Create() error = %v", err)
	}

	draft := &models.ResponseDraft{CampaignID: h.campaign.ID, PostID: post.ID, Text: "reply"}
	if err := h.drafts.Create(draft); err != nil {
		t.Fatalf("draft Create() error = %v", err)
	}
	if err := h.drafts.SetReview(draft.ID, models.DraftApproved); err != nil {
		t.Fatalf("SetReview() error = %v", err)
	}
	if err := h.drafts.MarkPosted(draft.ID, "t1_"+platformID, time.Now().Add(-age)); err != nil {
		t.Fatalf("MarkPosted() error = %v", err)
	}
}

func TestLimiter_UnderLimit(t *testing.T) {
	h := setupLimiter(t, map[string]int{"reddit": 3})
	h.postOutcome(t, "p1", 10*time.Minute)

	res, err := h.limiter.Check(models.PlatformReddit, "user-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Allowed || res.Remaining != 2 {
		t.Errorf("Check() = %+v, want allowed with 2 remaining", res)
	}
}

func TestLimiter_AtCeiling(t *testing.T) {
	h := setupLimiter(t, map[string]int{"reddit": 2})
	h.postOutcome(t, "p1", 10*time.Minute)
	h.postOutcome(t, "p2", 30*time.Minute)

	res, err := h.limiter.Check(models.PlatformReddit, "user-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Allowed || res.Remaining != 0 {
		t.Errorf("Check() = %+v, want blocked with 0 remaining", res)
	}
	// Oldest in-window post is 30m old, so a slot frees in ~30m.
	if res.RetryAfter <= 25*time.Minute || res.RetryAfter > 31*time.Minute {
		t.Errorf("RetryAfter = %v, want ~30m", res.RetryAfter)
	}
}

func TestLimiter_WindowExpiry(t *testing.T) {
	h := setupLimiter(t, map[string]int{"reddit": 1})
	h.postOutcome(t, "p1", 2*time.Hour)

	res, err := h.limiter.Check(models.PlatformReddit, "user-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Allowed || res.Remaining != 1 {
		t.Errorf("Check() = %+v, want allowed once old post ages out", res)
	}
}

func TestLimiter_UnconfiguredPlatform(t *testing.T) {
	h := setupLimiter(t, map[string]int{"reddit": 1})

	res, err := h.limiter.Check(models.PlatformLinkedIn, "user-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Allowed {
		t.Errorf("Check() = %+v, want unlimited for unconfigured platform", res)
	}
}

func TestLimiter_OtherUserUnaffected(t *testing.T) {
	h := setupLimiter(t, map[string]int{"reddit": 1})
	h.postOutcome(t, "p1", 10*time.Minute)

	res, err := h.limiter.Check(models.PlatformReddit, "user-2")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Allowed || res.Remaining != 1 {
		t.Errorf("Check() = %+v, want full allowance for other user", res)
	}
}

func TestLimiter_LockSerializes(t *testing.T) {
	h := setupLimiter(t, map[string]int{"reddit": 1})

	unlock := h.limiter.Lock(models.PlatformReddit, "user-1")
	acquired := make(chan struct{})
	go func() {
		u := h.limiter.Lock(models.PlatformReddit, "user-1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock() acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock() never acquired after release")
	}
}
