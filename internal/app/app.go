// Package app wires configuration, storage, and all components into a
// running service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soapboxhq/soapbox/internal/analytics"
	"github.com/soapboxhq/soapbox/internal/api"
	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/contextstore"
	"github.com/soapboxhq/soapbox/internal/credentials"
	"github.com/soapboxhq/soapbox/internal/db"
	"github.com/soapboxhq/soapbox/internal/discovery"
	"github.com/soapboxhq/soapbox/internal/generate"
	"github.com/soapboxhq/soapbox/internal/metrics"
	"github.com/soapboxhq/soapbox/internal/orchestrator"
	"github.com/soapboxhq/soapbox/internal/posting"
	"github.com/soapboxhq/soapbox/internal/ratelimit"
	"github.com/soapboxhq/soapbox/internal/reddit"
	"github.com/soapboxhq/soapbox/internal/repository"
	"github.com/soapboxhq/soapbox/internal/scheduler"
)

// App is the main application
type App struct {
	config *config.Config
	logger *slog.Logger

	database  *db.DB
	seenIndex *discovery.SeenIndex

	orch      *orchestrator.Orchestrator
	scheduler *scheduler.Scheduler
	apiServer *api.Server

	metricsServer    *metrics.Server
	metricsCollector *metrics.Collector

	version string
}

// Core holds storage and the domain components, without the servers. The CLI
// campaign commands use it directly.
type Core struct {
	Database  *db.DB
	SeenIndex *discovery.SeenIndex

	Campaigns *repository.CampaignRepository
	Drafts    *repository.DraftRepository
	CredRepo  *repository.CredentialRepository
	Tokens    *repository.APITokenRepository

	Orchestrator *orchestrator.Orchestrator
	Poster       *posting.Poster
}

// NewCore opens storage and builds the discovery/generation/posting pipeline.
func NewCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Core, error) {
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	seenIndex, err := discovery.NewSeenIndex(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seen-post index: %w", err)
	}

	campaigns := repository.NewCampaignRepository(database.DB)
	posts := repository.NewPostRepository(database.DB)
	drafts := repository.NewDraftRepository(database.DB)
	cycles := repository.NewCycleRepository(database.DB)
	profiles := repository.NewProfileRepository(database.DB)
	snippets := repository.NewSnippetRepository(database.DB)
	credRepo := repository.NewCredentialRepository(database.DB)
	tokens := repository.NewAPITokenRepository(database.DB)

	creds := credentials.NewStoreProvider(credRepo)
	clients := reddit.NewFactory(cfg.Reddit, creds)

	generator := generate.NewGenerator(
		contextstore.NewStore(snippets),
		generate.NewFactory(creds),
		generate.HeuristicScorer{},
		drafts,
		cfg.AI.DefaultModel,
		logger,
	)

	limiter := ratelimit.NewLimiter(cfg.RateLimit, drafts)
	poster := posting.NewPoster(drafts, posts, campaigns, limiter, clients, logger)
	discoverer := discovery.NewDiscoverer(posts, seenIndex, logger)

	orch := orchestrator.New(orchestrator.Deps{
		Campaigns:  campaigns,
		Posts:      posts,
		Drafts:     drafts,
		Cycles:     cycles,
		Profiles:   profiles,
		Creds:      creds,
		Discoverer: discoverer,
		Generator:  generator,
		Poster:     poster,
		Clients:    clients,
	}, cfg.Cycle, logger)

	return &Core{
		Database:     database,
		SeenIndex:    seenIndex,
		Campaigns:    campaigns,
		Drafts:       drafts,
		CredRepo:     credRepo,
		Tokens:       tokens,
		Orchestrator: orch,
		Poster:       poster,
	}, nil
}

// Close releases storage handles
func (c *Core) Close() error {
	if err := c.SeenIndex.Close(); err != nil {
		c.Database.Close()
		return err
	}
	return c.Database.Close()
}

// New builds the full component graph. Nothing starts listening until Run.
func New(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:    cfg,
		logger:    logger,
		database:  core.Database,
		seenIndex: core.SeenIndex,
		orch:      core.Orchestrator,
		version:   version,
	}

	if cfg.Scheduler.Enabled {
		a.scheduler = scheduler.New(core.Campaigns, core.Orchestrator, cfg.Scheduler, logger)
	}

	a.apiServer = api.NewServer(api.Deps{
		Service:   core.Orchestrator,
		Poster:    core.Poster,
		Campaigns: core.Campaigns,
		Drafts:    core.Drafts,
		Creds:     core.CredRepo,
		Tokens:    core.Tokens,
		Rollup:    analytics.NewRollup(core.Database.DB),
	}, &cfg.API, version, logger)

	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)
		a.metricsCollector = metrics.NewCollector(m, core.Campaigns, cfg.Metrics.FlushInterval)
		a.metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, cfg.Metrics.AllowedIPs, logger)
	}

	return a, nil
}

// Run starts all servers and blocks until a signal or a server error.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting soapbox",
		"version", a.version,
		"api_addr", a.config.API.ListenAddr,
		"scheduler", a.config.Scheduler.Enabled,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.scheduler != nil {
		a.scheduler.Start()
	}
	if a.metricsCollector != nil {
		a.metricsCollector.Start(ctx)
	}

	errCh := make(chan error, 2)

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop accepting new cycles first; in-flight cycles finish.
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}
	if a.metricsCollector != nil {
		a.metricsCollector.Stop()
	}

	if err := a.seenIndex.Close(); err != nil {
		a.logger.Error("seen-post index close error", "error", err)
	}
	if err := a.database.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
