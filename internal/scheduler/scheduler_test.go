package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/db"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/orchestrator"
	"github.com/soapboxhq/soapbox/internal/repository"
)

type recordingRunner struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingRunner) ExecuteCycle(ctx context.Context, campaignID string) (*orchestrator.CycleResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, campaignID)
	return &orchestrator.CycleResult{Executed: true}, nil
}

func (r *recordingRunner) executed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func setupScheduler(t *testing.T) (*Scheduler, *repository.CampaignRepository, *recordingRunner) {
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
	runner := &recordingRunner{}
	s := New(campaigns, runner, config.SchedulerConfig{
		PollInterval: 10 * time.Millisecond,
		Concurrency:  2,
	}, slog.Default())
	return s, campaigns, runner
}

func seedActiveCampaign(t *testing.T, campaigns *repository.CampaignRepository, next time.Time) *models.Campaign {
	t.Helper()
	c := &models.Campaign{
		UserID:     "user-1",
		CompanyID:  "company-1",
		Name:       "launch buzz",
		Platform:   models.PlatformReddit,
		Subreddits: []string{"golang"},
	}
	if err := campaigns.Create(c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := campaigns.UpdateStatus(c.ID, models.CampaignActive, ""); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if err := campaigns.SetNextExecution(c.ID, &next); err != nil {
		t.Fatalf("SetNextExecution() error = %v", err)
	}
	return c
}

func TestRunDue_ExecutesDueCampaigns(t *testing.T) {
	s, campaigns, runner := setupScheduler(t)

	due := seedActiveCampaign(t, campaigns, time.Now().Add(-time.Minute))
	seedActiveCampaign(t, campaigns, time.Now().Add(time.Hour)) // not due yet

	s.runDue()

	ids := runner.executed()
	if len(ids) != 1 || ids[0] != due.ID {
		t.Errorf("executed = %v, want only %s", ids, due.ID)
	}
}

func TestRunDue_SkipsInactiveCampaigns(t *testing.T) {
	s, campaigns, runner := setupScheduler(t)

	c := seedActiveCampaign(t, campaigns, time.Now().Add(-time.Minute))
	if err := campaigns.UpdateStatus(c.ID, models.CampaignPaused, ""); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	s.runDue()

	if ids := runner.executed(); len(ids) != 0 {
		t.Errorf("executed = %v, want none for paused campaign", ids)
	}
}

func TestRunDue_NoNextExecution(t *testing.T) {
	s, campaigns, runner := setupScheduler(t)

	c := &models.Campaign{
		UserID: "user-1", CompanyID: "company-1", Name: "x",
		Platform: models.PlatformReddit, Subreddits: []string{"golang"},
	}
	if err := campaigns.Create(c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := campaigns.UpdateStatus(c.ID, models.CampaignActive, ""); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	s.runDue()

	if ids := runner.executed(); len(ids) != 0 {
		t.Errorf("executed = %v, want none without a schedule", ids)
	}
}

func TestStartStop(t *testing.T) {
	s, campaigns, runner := setupScheduler(t)
	seedActiveCampaign(t, campaigns, time.Now().Add(-time.Minute))

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if len(runner.executed()) == 0 {
		t.Error("poll loop never executed the due campaign")
	}
	after := len(runner.executed())
	time.Sleep(30 * time.Millisecond)
	if got := len(runner.executed()); got != after {
		t.Errorf("runner still invoked after Stop(): %d -> %d", after, got)
	}
}
