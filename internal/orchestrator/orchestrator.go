// Package orchestrator owns campaign lifecycle and drives the
// discovery → generation → posting cycle.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/credentials"
	"github.com/soapboxhq/soapbox/internal/discovery"
	"github.com/soapboxhq/soapbox/internal/metrics"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/posting"
	"github.com/soapboxhq/soapbox/internal/reddit"
	"github.com/soapboxhq/soapbox/internal/repository"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

// generationWorkers bounds intra-cycle parallelism in the generation and
// posting loops.
const generationWorkers = 3

// Discoverer runs one discovery pass for a campaign.
type Discoverer interface {
	Discover(ctx context.Context, client reddit.Client, campaign *models.Campaign) (*discovery.Result, error)
}

// Generator produces one draft for a discovered post.
type Generator interface {
	Generate(ctx context.Context, post *models.DiscoveredPost, campaign *models.Campaign, company *models.CompanyProfile) (*models.ResponseDraft, error)
}

// Poster submits one approved draft.
type Poster interface {
	Post(ctx context.Context, draftID string) (*posting.Outcome, error)
}

// Orchestrator coordinates all campaign operations.
type Orchestrator struct {
	campaigns *repository.CampaignRepository
	posts     *repository.PostRepository
	drafts    *repository.DraftRepository
	cycles    *repository.CycleRepository
	profiles  *repository.ProfileRepository
	creds     credentials.Provider

	discoverer Discoverer
	generator  Generator
	poster     Poster
	clients    posting.ClientProvider

	cfg    config.CycleConfig
	logger *slog.Logger
	locks  *lockTable

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Campaigns  *repository.CampaignRepository
	Posts      *repository.PostRepository
	Drafts     *repository.DraftRepository
	Cycles     *repository.CycleRepository
	Profiles   *repository.ProfileRepository
	Creds      credentials.Provider
	Discoverer Discoverer
	Generator  Generator
	Poster     Poster
	Clients    posting.ClientProvider
}

func New(deps Deps, cfg config.CycleConfig, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		campaigns:  deps.Campaigns,
		posts:      deps.Posts,
		drafts:     deps.Drafts,
		cycles:     deps.Cycles,
		profiles:   deps.Profiles,
		creds:      deps.Creds,
		discoverer: deps.Discoverer,
		generator:  deps.Generator,
		poster:     deps.Poster,
		clients:    deps.Clients,
		cfg:        cfg,
		logger:     logger.With("component", "orchestrator"),
		locks:      newLockTable(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}
}

// CampaignSpec is the input to CreateCampaign.
type CampaignSpec struct {
	UserID     string                  `json:"user_id"`
	CompanyID  string                  `json:"company_id"`
	Name       string                  `json:"name"`
	Platform   models.Platform         `json:"platform"`
	Subreddits []string                `json:"subreddits"`
	Keywords   []string                `json:"keywords"`
	Monitoring models.MonitoringRules  `json:"monitoring_rules"`
	Engagement models.EngagementRules  `json:"engagement_rules"`
	AISettings models.AISettings       `json:"ai_settings"`
	Schedule   models.ScheduleSettings `json:"schedule_settings"`
}

// CreateCampaign validates the spec and persists a new campaign in draft.
func (o *Orchestrator) CreateCampaign(ctx context.Context, spec CampaignSpec) (*models.Campaign, error) {
	if spec.Name == "" {
		return nil, soaperr.E(soaperr.KindValidation, "campaign name is required")
	}
	if spec.UserID == "" || spec.CompanyID == "" {
		return nil, soaperr.E(soaperr.KindValidation, "user_id and company_id are required")
	}
	switch spec.Platform {
	case models.PlatformReddit, models.PlatformLinkedIn:
	default:
		return nil, soaperr.E(soaperr.KindValidation, "unsupported platform %q", spec.Platform)
	}
	if len(spec.Subreddits) == 0 {
		return nil, soaperr.E(soaperr.KindValidation, "at least one target subreddit is required")
	}
	if spec.Schedule.PostsPerHour < 0 {
		return nil, soaperr.E(soaperr.KindValidation, "posts_per_hour must not be negative")
	}
	if err := validActiveHours(spec.Schedule); err != nil {
		return nil, err
	}

	campaign := &models.Campaign{
		UserID:     spec.UserID,
		CompanyID:  spec.CompanyID,
		Name:       spec.Name,
		Platform:   spec.Platform,
		Subreddits: spec.Subreddits,
		Keywords:   spec.Keywords,
		Monitoring: spec.Monitoring,
		Engagement: spec.Engagement,
		AISettings: spec.AISettings,
		Schedule:   spec.Schedule,
		Status:     models.CampaignDraft,
	}
	if err := o.campaigns.Create(campaign); err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to persist campaign")
	}

	o.logger.Info("campaign created", "campaign_id", campaign.ID, "name", campaign.Name)
	return campaign, nil
}

func validActiveHours(s models.ScheduleSettings) error {
	if s.ActiveHourStart < 0 || s.ActiveHourStart > 23 || s.ActiveHourEnd < 0 || s.ActiveHourEnd > 23 {
		return soaperr.E(soaperr.KindValidation, "active hours must be within 0-23")
	}
	if s.Randomize && s.MaxDelayMinutes < s.MinDelayMinutes {
		return soaperr.E(soaperr.KindValidation, "max_delay_minutes must be >= min_delay_minutes")
	}
	return nil
}

// ValidateSettings checks that everything a cycle needs actually exists:
// platform credentials, an AI key, and the company profile. Returns
// human-readable problems; empty means valid.
func (o *Orchestrator) ValidateSettings(ctx context.Context, campaign *models.Campaign) []string {
	var problems []string

	switch campaign.Platform {
	case models.PlatformReddit:
		if _, err := o.creds.Get(campaign.UserID, models.PlatformReddit, models.CredentialClientID); err != nil {
			problems = append(problems, "reddit client id credential missing or invalid")
		}
		if _, err := o.creds.Get(campaign.UserID, models.PlatformReddit, models.CredentialClientSecret); err != nil {
			problems = append(problems, "reddit client secret credential missing or invalid")
		}
	default:
		if _, err := o.creds.Get(campaign.UserID, campaign.Platform, models.CredentialAccessToken); err != nil {
			problems = append(problems, fmt.Sprintf("%s access token missing or invalid", campaign.Platform))
		}
	}

	if _, err := o.creds.Get(campaign.UserID, models.AIProvider, models.CredentialAPIKey); err != nil {
		problems = append(problems, "AI provider key missing or invalid")
	}

	profile, err := o.profiles.GetByID(campaign.CompanyID)
	if err != nil || profile == nil {
		problems = append(problems, fmt.Sprintf("company profile %s not found", campaign.CompanyID))
	}

	return problems
}

// Validation is the outcome of a start-time settings check.
type Validation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// StartResult reports what StartCampaign did.
type StartResult struct {
	Status             models.CampaignStatus `json:"status"`
	NextExecution      *time.Time            `json:"next_execution,omitempty"`
	Validation         Validation            `json:"validation"`
	FirstCycleExecuted bool                  `json:"first_cycle_executed"`
}

// StartCampaign validates settings, activates the campaign, and runs one
// immediate cycle. On validation failure the campaign keeps its current
// status. A fatal first cycle flips the campaign to error rather than leaving
// it dangling in active.
func (o *Orchestrator) StartCampaign(ctx context.Context, campaignID string) (*StartResult, error) {
	campaign, err := o.campaigns.GetByID(campaignID)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load campaign")
	}
	if campaign == nil {
		return nil, soaperr.E(soaperr.KindValidation, "campaign %s not found", campaignID)
	}
	if campaign.Status == models.CampaignActive {
		return nil, soaperr.E(soaperr.KindValidation, "campaign is already active")
	}
	if !models.ValidStatusTransition(campaign.Status, models.CampaignActive) {
		return nil, soaperr.E(soaperr.KindValidation, "cannot start a %s campaign", campaign.Status)
	}

	if problems := o.ValidateSettings(ctx, campaign); len(problems) > 0 {
		return &StartResult{
			Status:     campaign.Status,
			Validation: Validation{IsValid: false, Errors: problems},
		}, nil
	}

	if err := o.campaigns.UpdateStatus(campaignID, models.CampaignActive, ""); err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to activate campaign")
	}
	o.logger.Info("campaign started", "campaign_id", campaignID)

	result := &StartResult{
		Status:     models.CampaignActive,
		Validation: Validation{IsValid: true, Errors: []string{}},
	}

	cycle, err := o.ExecuteCycle(ctx, campaignID)
	if err != nil {
		// ExecuteCycle already moved the campaign to error.
		result.Status = models.CampaignError
		result.Validation.Errors = append(result.Validation.Errors, err.Error())
		return result, nil
	}
	result.FirstCycleExecuted = cycle.Executed
	result.NextExecution = cycle.NextExecution
	return result, nil
}

// StopCampaign moves an active campaign to stopped or paused. An in-flight
// cycle is not cancelled; it finishes and no further cycle is scheduled.
func (o *Orchestrator) StopCampaign(ctx context.Context, campaignID string, pause bool) (*models.Campaign, error) {
	campaign, err := o.campaigns.GetByID(campaignID)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load campaign")
	}
	if campaign == nil {
		return nil, soaperr.E(soaperr.KindValidation, "campaign %s not found", campaignID)
	}

	target := models.CampaignStopped
	if pause {
		target = models.CampaignPaused
	}
	if !models.ValidStatusTransition(campaign.Status, target) {
		return nil, soaperr.E(soaperr.KindValidation, "cannot move a %s campaign to %s", campaign.Status, target)
	}

	if err := o.campaigns.UpdateStatus(campaignID, target, ""); err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to stop campaign")
	}
	o.logger.Info("campaign stopped", "campaign_id", campaignID, "status", target)

	return o.campaigns.GetByID(campaignID)
}

// CycleResult aggregates one ExecuteCycle invocation.
type CycleResult struct {
	Executed      bool               `json:"executed"`
	Reason        string             `json:"reason,omitempty"`
	Discovered    int                `json:"discovered"`
	Generated     int                `json:"generated"`
	Posted        int                `json:"posted"`
	Skipped       int                `json:"skipped"`
	TargetLogs    []models.TargetLog `json:"target_logs,omitempty"`
	Errors        []string           `json:"errors"`
	NextExecution *time.Time         `json:"next_execution,omitempty"`
}

// ExecuteCycle runs one discovery → generation → posting pass. Per-item
// failures land in the error list and the cycle continues; a returned error
// means the cycle was fatal and the campaign has been moved to error.
func (o *Orchestrator) ExecuteCycle(ctx context.Context, campaignID string) (*CycleResult, error) {
	release := o.locks.tryAcquire(campaignID)
	if release == nil {
		return &CycleResult{Executed: false, Reason: "cycle already running"}, nil
	}
	defer release()

	campaign, err := o.campaigns.GetByID(campaignID)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load campaign")
	}
	if campaign == nil {
		return nil, soaperr.E(soaperr.KindUnexpected, "campaign %s not found", campaignID)
	}
	if campaign.Status != models.CampaignActive {
		return &CycleResult{Executed: false, Reason: fmt.Sprintf("campaign is %s, not active", campaign.Status)}, nil
	}

	started := o.now()
	if !withinActiveHours(campaign.Schedule, started) {
		next := nextActiveTime(campaign.Schedule, started)
		if err := o.campaigns.SetNextExecution(campaignID, &next); err != nil {
			o.logger.Warn("failed to defer campaign", "campaign_id", campaignID, "error", err)
		}
		return &CycleResult{
			Executed:      false,
			Reason:        "outside active hours",
			NextExecution: &next,
		}, nil
	}

	result := &CycleResult{Executed: true, Errors: []string{}}

	client, err := o.clients.ForUser(ctx, campaign.UserID)
	if err != nil {
		return nil, o.failCampaign(campaignID, err)
	}

	disc, err := o.discoverer.Discover(ctx, client, campaign)
	if err != nil {
		return nil, o.failCampaign(campaignID, err)
	}
	result.Discovered = len(disc.Posts)
	result.TargetLogs = disc.TargetLogs
	for _, log := range disc.TargetLogs {
		if log.Error != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("discovery %s: %s", log.Target, log.Error))
		}
	}

	if err := o.runGeneration(ctx, campaign, result); err != nil {
		return nil, o.failCampaign(campaignID, err)
	}
	o.runPosting(ctx, campaign, result)

	next := o.scheduleNext(campaign.Schedule)
	result.NextExecution = &next

	record := &models.CycleRecord{
		CampaignID:    campaignID,
		StartedAt:     started,
		CompletedAt:   o.now(),
		Discovered:    result.Discovered,
		Generated:     result.Generated,
		Posted:        result.Posted,
		Skipped:       result.Skipped,
		Errors:        result.Errors,
		NextExecution: &next,
	}
	if err := o.cycles.Create(record); err != nil {
		o.logger.Error("failed to persist cycle record", "campaign_id", campaignID, "error", err)
	}
	if err := o.campaigns.RecordExecution(campaignID, started, &next); err != nil {
		o.logger.Error("failed to record execution", "campaign_id", campaignID, "error", err)
	}

	metrics.ObserveCycle("completed", result.Discovered, result.Generated, result.Skipped)
	o.logger.Info("cycle completed",
		"campaign_id", campaignID,
		"discovered", result.Discovered,
		"generated", result.Generated,
		"posted", result.Posted,
		"skipped", result.Skipped,
		"errors", len(result.Errors))

	return result, nil
}

// runGeneration drafts replies for up to one batch of posts without drafts.
// Item failures are contained; an error return means the loop could not even
// start (profile missing) and is fatal to the cycle.
func (o *Orchestrator) runGeneration(ctx context.Context, campaign *models.Campaign, result *CycleResult) error {
	pending, err := o.posts.ListWithoutDraft(campaign.ID, o.cfg.GenerationBatchSize)
	if err != nil {
		return soaperr.Wrap(soaperr.KindUnexpected, err, "failed to list posts without drafts")
	}
	if len(pending) == 0 {
		return nil
	}

	company, err := o.profiles.GetByID(campaign.CompanyID)
	if err != nil {
		return soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load company profile")
	}
	if company == nil {
		return soaperr.E(soaperr.KindUnexpected, "company profile %s not found", campaign.CompanyID)
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(generationWorkers)
	for _, post := range pending {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
			defer cancel()

			draft, err := o.generator.Generate(cctx, post, campaign, company)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("generation %s: %v", post.PlatformPostID, err))
				return nil
			}
			result.Generated++
			if campaign.Engagement.AutoApprove && draft.Confidence >= campaign.Engagement.MinConfidence {
				if err := o.drafts.SetReview(draft.ID, models.DraftApproved); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("auto-approve %s: %v", draft.ID, err))
				}
			}
			return nil
		})
	}
	g.Wait()
	return nil
}

// runPosting posts up to one batch of approved drafts. Rate-limited drafts
// stay approved and count as skipped; platform failures are terminal for the
// draft and land in the error list.
func (o *Orchestrator) runPosting(ctx context.Context, campaign *models.Campaign, result *CycleResult) {
	batch := o.cfg.PostingBatchSize
	if max := campaign.Engagement.MaxPostsPerCycle; max > 0 && max < batch {
		batch = max
	}

	approved, err := o.drafts.ListByStatus(campaign.ID, models.DraftApproved, batch)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("posting: failed to list approved drafts: %v", err))
		return
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(generationWorkers)
	for _, draft := range approved {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
			defer cancel()

			out, err := o.poster.Post(cctx, draft.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, fmt.Sprintf("posting %s: %v", draft.ID, err))
			case out.Success:
				result.Posted++
			case out.RateLimited:
				result.Skipped++
			default:
				result.Errors = append(result.Errors, fmt.Sprintf("posting %s: %s", draft.ID, out.Error))
			}
			return nil
		})
	}
	g.Wait()
}

// failCampaign flips the campaign to error with the cause attached.
func (o *Orchestrator) failCampaign(campaignID string, cause error) error {
	metrics.ObserveCycle("failed", 0, 0, 0)
	o.logger.Error("cycle fatal", "campaign_id", campaignID, "error", cause)
	if err := o.campaigns.UpdateStatus(campaignID, models.CampaignError, cause.Error()); err != nil {
		o.logger.Error("failed to mark campaign error", "campaign_id", campaignID, "error", err)
	}
	return cause
}

func (o *Orchestrator) scheduleNext(s models.ScheduleSettings) time.Time {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return nextExecution(s, o.now(), o.rng)
}

// StatusReport is the dashboard view of one campaign.
type StatusReport struct {
	Campaign        *models.Campaign             `json:"campaign"`
	IsActive        bool                         `json:"is_active"`
	Runtime         time.Duration                `json:"runtime"`
	NextExecution   *time.Time                   `json:"next_execution,omitempty"`
	DraftCounts     map[models.DraftStatus]int   `json:"draft_counts"`
	PostCount       int                          `json:"post_count"`
	LatestCycle     *models.CycleRecord          `json:"latest_cycle,omitempty"`
	RecentResponses []*models.ResponseDraft      `json:"recent_responses"`
}

// CampaignStatus assembles status, metrics, and recent drafts for a campaign.
func (o *Orchestrator) CampaignStatus(ctx context.Context, campaignID string) (*StatusReport, error) {
	campaign, err := o.campaigns.GetByID(campaignID)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load campaign")
	}
	if campaign == nil {
		return nil, soaperr.E(soaperr.KindValidation, "campaign %s not found", campaignID)
	}

	report := &StatusReport{
		Campaign:      campaign,
		IsActive:      campaign.Status == models.CampaignActive,
		NextExecution: campaign.NextExecution,
	}
	if campaign.StartedAt != nil && report.IsActive {
		report.Runtime = o.now().Sub(*campaign.StartedAt)
	}

	if report.DraftCounts, err = o.drafts.CountByStatus(campaignID); err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to count drafts")
	}
	if report.PostCount, err = o.posts.CountByCampaign(campaignID); err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to count posts")
	}
	if report.LatestCycle, err = o.cycles.Latest(campaignID); err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load latest cycle")
	}
	if report.RecentResponses, err = o.drafts.ListRecent(campaignID, 10); err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load recent drafts")
	}
	return report, nil
}
