package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/repository"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

// envelope is the uniform response wrapper
type envelope struct {
	Success bool      `json:"success"`
	Result  any       `json:"result,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) sendResult(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Result: result})
}

func (s *Server) sendError(w http.ResponseWriter, err error) {
	kind := soaperr.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForKind(kind))
	json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   &apiError{Kind: string(kind), Message: err.Error()},
	})
}

func statusForKind(kind soaperr.Kind) int {
	switch kind {
	case soaperr.KindValidation:
		return http.StatusBadRequest
	case soaperr.KindPrecondition:
		return http.StatusConflict
	case soaperr.KindRateLimit:
		return http.StatusTooManyRequests
	case soaperr.KindAuth, soaperr.KindPlatform:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleCampaignAction handles POST /api/v1/campaigns/actions
func (s *Server) handleCampaignAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.sendError(w, soaperr.E(soaperr.KindValidation, "failed to read request body"))
		return
	}

	req, err := decodeAction(body)
	if err != nil {
		s.sendError(w, err)
		return
	}

	ctx := r.Context()
	switch a := req.(type) {
	case *createCampaignAction:
		campaign, err := s.service.CreateCampaign(ctx, a.spec())
		if err != nil {
			s.sendError(w, err)
			return
		}
		s.sendResult(w, http.StatusCreated, map[string]any{
			"campaign_id": campaign.ID,
			"status":      campaign.Status,
		})

	case *startCampaignAction:
		result, err := s.service.StartCampaign(ctx, a.CampaignID)
		if err != nil {
			s.sendError(w, err)
			return
		}
		s.sendResult(w, http.StatusOK, result)

	case *stopCampaignAction:
		campaign, err := s.service.StopCampaign(ctx, a.CampaignID, a.Pause)
		if err != nil {
			s.sendError(w, err)
			return
		}
		s.sendResult(w, http.StatusOK, map[string]any{
			"status":     campaign.Status,
			"stopped_at": campaign.StoppedAt,
		})

	case *executeCycleAction:
		result, err := s.service.ExecuteCycle(ctx, a.CampaignID)
		if err != nil {
			s.sendError(w, err)
			return
		}
		s.sendResult(w, http.StatusOK, result)

	case *campaignStatusAction:
		report, err := s.service.CampaignStatus(ctx, a.CampaignID)
		if err != nil {
			s.sendError(w, err)
			return
		}
		s.sendResult(w, http.StatusOK, report)
	}
}

// postResponseResult is the posting boundary payload. The endpoint always
// answers HTTP 200; callers inspect the success flag.
type postResponseResult struct {
	Success            bool   `json:"success"`
	PlatformID         string `json:"platform_id,omitempty"`
	Error              string `json:"error,omitempty"`
	RateLimitRemaining int    `json:"rate_limit_remaining"`
	RetryAfterSeconds  int    `json:"retry_after_seconds,omitempty"`
}

// handlePostResponse handles POST /api/v1/responses/post
func (s *Server) handlePostResponse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResponseID string `json:"response_id"`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ResponseID == "" {
		json.NewEncoder(w).Encode(postResponseResult{Success: false, Error: "response_id is required"})
		return
	}

	out, err := s.poster.Post(r.Context(), req.ResponseID)
	if err != nil {
		json.NewEncoder(w).Encode(postResponseResult{Success: false, Error: err.Error()})
		return
	}

	json.NewEncoder(w).Encode(postResponseResult{
		Success:            out.Success,
		PlatformID:         out.PlatformCommentID,
		Error:              out.Error,
		RateLimitRemaining: out.RateLimitRemaining,
		RetryAfterSeconds:  int(out.RetryAfter / time.Second),
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.reviewDraft(w, r, models.DraftApproved)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.reviewDraft(w, r, models.DraftRejected)
}

func (s *Server) reviewDraft(w http.ResponseWriter, r *http.Request, status models.DraftStatus) {
	id := chi.URLParam(r, "id")

	if err := s.drafts.SetReview(id, status); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			s.sendError(w, soaperr.E(soaperr.KindPrecondition, "draft %s cannot move to %s", id, status))
			return
		}
		s.sendError(w, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to review draft"))
		return
	}

	draft, err := s.drafts.GetByID(id)
	if err != nil {
		s.sendError(w, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load draft"))
		return
	}
	s.sendResult(w, http.StatusOK, draft)
}

// handleListCampaigns handles GET /api/v1/campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	filter := repository.CampaignListFilter{
		UserID: r.URL.Query().Get("user_id"),
		Status: models.CampaignStatus(r.URL.Query().Get("status")),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		filter.Offset, _ = strconv.Atoi(offset)
	}

	campaigns, err := s.campaigns.List(filter)
	if err != nil {
		s.sendError(w, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to list campaigns"))
		return
	}
	s.sendResult(w, http.StatusOK, campaigns)
}

// handleCampaignAnalytics handles GET /api/v1/campaigns/{id}/analytics
func (s *Server) handleCampaignAnalytics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	days := 0
	if d := r.URL.Query().Get("days"); d != "" {
		days, _ = strconv.Atoi(d)
	}

	summary, err := s.rollup.CampaignSummary(id, days)
	if err != nil {
		s.sendError(w, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to compute analytics"))
		return
	}
	s.sendResult(w, http.StatusOK, summary)
}

// handleListCredentials handles GET /api/v1/credentials. Secret values are
// never serialized.
func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.sendError(w, soaperr.E(soaperr.KindValidation, "user_id is required"))
		return
	}

	creds, err := s.creds.ListByUser(userID)
	if err != nil {
		s.sendError(w, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to list credentials"))
		return
	}
	s.sendResult(w, http.StatusOK, creds)
}

// handleUpsertCredential handles PUT /api/v1/credentials
func (s *Server) handleUpsertCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string     `json:"user_id"`
		Platform  string     `json:"platform"`
		Kind      string     `json:"kind"`
		Value     string     `json:"value"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, soaperr.E(soaperr.KindValidation, "invalid request body"))
		return
	}
	if req.UserID == "" || req.Platform == "" || req.Kind == "" || req.Value == "" {
		s.sendError(w, soaperr.E(soaperr.KindValidation, "user_id, platform, kind, and value are required"))
		return
	}

	cred := &models.Credential{
		UserID:    req.UserID,
		Platform:  models.Platform(req.Platform),
		Kind:      models.CredentialKind(req.Kind),
		Value:     req.Value,
		Valid:     true,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.creds.Upsert(cred); err != nil {
		s.sendError(w, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to store credential"))
		return
	}
	s.sendResult(w, http.StatusOK, cred)
}

// handleDeleteCredential handles DELETE /api/v1/credentials
func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	platform := r.URL.Query().Get("platform")
	kind := r.URL.Query().Get("kind")
	if userID == "" || platform == "" || kind == "" {
		s.sendError(w, soaperr.E(soaperr.KindValidation, "user_id, platform, and kind are required"))
		return
	}

	if err := s.creds.Delete(userID, models.Platform(platform), models.CredentialKind(kind)); err != nil {
		s.sendError(w, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to delete credential"))
		return
	}
	s.sendResult(w, http.StatusOK, map[string]any{"deleted": true})
}

// handleCreateToken handles POST /api/v1/tokens. The full token appears in
// this response only.
func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.sendError(w, soaperr.E(soaperr.KindValidation, "name is required"))
		return
	}

	created, err := s.tokens.Create(req.Name)
	if err != nil {
		s.sendError(w, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to create token"))
		return
	}
	s.sendResult(w, http.StatusCreated, map[string]any{
		"id":    created.Token.ID,
		"name":  created.Token.Name,
		"token": created.Full,
	})
}

// handleRevokeToken handles DELETE /api/v1/tokens/{id}
func (s *Server) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.tokens.Revoke(id); err != nil {
		s.sendError(w, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to revoke token"))
		return
	}
	s.sendResult(w, http.StatusOK, map[string]any{"revoked": true})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	})
}
