package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/soapboxhq/soapbox/internal/db"
	"github.com/soapboxhq/soapbox/internal/models"
)

// setupTestDB creates an in-memory SQLite database with all migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database.DB
}

// createTestCampaign inserts a minimal active-ready campaign and returns it
func createTestCampaign(t *testing.T, d *sql.DB) *models.Campaign {
	t.Helper()

	repo := NewCampaignRepository(d)
	c := &models.Campaign{
		UserID:     "user-1",
		CompanyID:  "company-1",
		Name:       "launch buzz",
		Platform:   models.PlatformReddit,
		Subreddits: []string{"golang", "selfhosted"},
		Keywords:   []string{"automation"},
		Monitoring: models.MonitoringRules{Sort: "hot", PerTargetLimit: 10},
		Schedule:   models.ScheduleSettings{PostsPerHour: 2},
	}
	if err := repo.Create(c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return c
}

// createTestPost inserts a discovered post for the campaign
func createTestPost(t *testing.T, d *sql.DB, campaignID, platformID string) *models.DiscoveredPost {
	t.Helper()

	repo := NewPostRepository(d)
	p := &models.DiscoveredPost{
		CampaignID:     campaignID,
		PlatformPostID: platformID,
		Subreddit:      "golang",
		Title:          "how do you automate outreach?",
		Body:           "looking for tools",
		Author:         "gopher42",
		Score:          12,
		Permalink:      "/r/golang/comments/" + platformID,
		PostedAt:       time.Now().Add(-time.Hour),
	}
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() post error = %v", err)
	}
	return p
}
