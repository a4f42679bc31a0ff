// Package api exposes the campaign platform over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/soapboxhq/soapbox/internal/analytics"
	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/metrics"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/orchestrator"
	"github.com/soapboxhq/soapbox/internal/posting"
	"github.com/soapboxhq/soapbox/internal/repository"
)

// CampaignService is the orchestrator surface the API dispatches to.
type CampaignService interface {
	CreateCampaign(ctx context.Context, spec orchestrator.CampaignSpec) (*models.Campaign, error)
	StartCampaign(ctx context.Context, campaignID string) (*orchestrator.StartResult, error)
	StopCampaign(ctx context.Context, campaignID string, pause bool) (*models.Campaign, error)
	ExecuteCycle(ctx context.Context, campaignID string) (*orchestrator.CycleResult, error)
	CampaignStatus(ctx context.Context, campaignID string) (*orchestrator.StatusReport, error)
}

// Poster submits one approved draft.
type Poster interface {
	Post(ctx context.Context, draftID string) (*posting.Outcome, error)
}

// Deps bundles the server's collaborators.
type Deps struct {
	Service   CampaignService
	Poster    Poster
	Campaigns *repository.CampaignRepository
	Drafts    *repository.DraftRepository
	Creds     *repository.CredentialRepository
	Tokens    *repository.APITokenRepository
	Rollup    *analytics.Rollup
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	service   CampaignService
	poster    Poster
	campaigns *repository.CampaignRepository
	drafts    *repository.DraftRepository
	creds     *repository.CredentialRepository
	tokens    *repository.APITokenRepository
	rollup    *analytics.Rollup

	cfg       *config.APIConfig
	logger    *slog.Logger
	startTime time.Time
	version   string
}

// NewServer creates a new API server
func NewServer(deps Deps, cfg *config.APIConfig, version string, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		service:   deps.Service,
		poster:    deps.Poster,
		campaigns: deps.Campaigns,
		drafts:    deps.Drafts,
		creds:     deps.Creds,
		tokens:    deps.Tokens,
		rollup:    deps.Rollup,
		cfg:       cfg,
		logger:    logger.With("component", "api"),
		startTime: time.Now(),
		version:   version,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(chimw.Recoverer)
	s.router.Use(metrics.HTTPMiddleware)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/campaigns/actions", s.handleCampaignAction)
		r.Get("/campaigns", s.handleListCampaigns)
		r.Get("/campaigns/{id}/analytics", s.handleCampaignAnalytics)

		r.Post("/responses/post", s.handlePostResponse)
		r.Post("/responses/{id}/approve", s.handleApprove)
		r.Post("/responses/{id}/reject", s.handleReject)

		r.Get("/credentials", s.handleListCredentials)
		r.Put("/credentials", s.handleUpsertCredential)
		r.Delete("/credentials", s.handleDeleteCredential)

		r.Post("/tokens", s.handleCreateToken)
		r.Delete("/tokens/{id}", s.handleRevokeToken)
	})
}

// Router returns the chi router, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	readTimeout := s.cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := s.cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}
	idleTimeout := s.cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	s.logger.Info("starting HTTP API server", "addr", s.cfg.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
