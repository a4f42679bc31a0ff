// Package scheduler polls for due campaigns and hands them to the
// orchestrator in the background.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/orchestrator"
	"github.com/soapboxhq/soapbox/internal/repository"
)

// CycleRunner executes one campaign cycle.
type CycleRunner interface {
	ExecuteCycle(ctx context.Context, campaignID string) (*orchestrator.CycleResult, error)
}

// Scheduler runs due campaign cycles on a poll loop.
type Scheduler struct {
	campaigns *repository.CampaignRepository
	runner    CycleRunner
	logger    *slog.Logger

	pollInterval time.Duration
	concurrency  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

// New creates a scheduler. It does not start polling until Start is called.
func New(campaigns *repository.CampaignRepository, runner CycleRunner, cfg config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Scheduler{
		campaigns:    campaigns,
		runner:       runner,
		logger:       logger.With("component", "scheduler"),
		pollInterval: pollInterval,
		concurrency:  concurrency,
		ctx:          ctx,
		cancel:       cancel,
		now:          time.Now,
	}
}

// Start starts the poll loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Info("scheduler started", "poll_interval", s.pollInterval, "concurrency", s.concurrency)
}

// Stop stops the scheduler gracefully. In-flight cycles finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler...")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runDue()
		}
	}
}

// runDue executes one cycle for every campaign whose next_execution has
// passed. Campaigns run concurrently up to the configured limit; a campaign
// whose cycle is still running is turned away by the orchestrator's
// per-campaign lock, so overlapping polls are harmless.
func (s *Scheduler) runDue() {
	due, err := s.campaigns.ListDue(s.now())
	if err != nil {
		s.logger.Error("failed to list due campaigns", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, campaign := range due {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		g.Go(func() error {
			result, err := s.runner.ExecuteCycle(s.ctx, campaign.ID)
			if err != nil {
				s.logger.Error("cycle failed", "campaign_id", campaign.ID, "error", err)
				return nil
			}
			if !result.Executed {
				s.logger.Debug("cycle not executed", "campaign_id", campaign.ID, "reason", result.Reason)
			}
			return nil
		})
	}
	g.Wait()
}
