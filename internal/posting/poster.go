// Package posting submits approved drafts to the platform under the rate
// limiter and records the terminal outcome.
package posting

import (
	"context"
	"log/slog"
	"time"

	"github.com/soapboxhq/soapbox/internal/metrics"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/ratelimit"
	"github.com/soapboxhq/soapbox/internal/reddit"
	"github.com/soapboxhq/soapbox/internal/repository"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

// ClientProvider hands out a platform client authenticating as a user.
// *reddit.Factory is the production implementation.
type ClientProvider interface {
	ForUser(ctx context.Context, userID string) (reddit.Client, error)
}

// Outcome is the result of one posting attempt. RateLimitRemaining is always
// populated so callers can surface remaining slots even on failure.
type Outcome struct {
	Success            bool          `json:"success"`
	PlatformCommentID  string        `json:"platform_comment_id,omitempty"`
	Error              string        `json:"error,omitempty"`
	RateLimited        bool          `json:"rate_limited,omitempty"`
	RateLimitRemaining int           `json:"rate_limit_remaining"`
	RetryAfter         time.Duration `json:"retry_after,omitempty"`
}

// Poster posts approved drafts.
type Poster struct {
	drafts    *repository.DraftRepository
	posts     *repository.PostRepository
	campaigns *repository.CampaignRepository
	limiter   *ratelimit.Limiter
	clients   ClientProvider
	logger    *slog.Logger
}

func NewPoster(drafts *repository.DraftRepository, posts *repository.PostRepository, campaigns *repository.CampaignRepository, limiter *ratelimit.Limiter, clients ClientProvider, logger *slog.Logger) *Poster {
	return &Poster{
		drafts:    drafts,
		posts:     posts,
		campaigns: campaigns,
		limiter:   limiter,
		clients:   clients,
		logger:    logger.With("component", "posting"),
	}
}

// Post submits one approved draft. The draft is reloaded first so stale
// callers cannot double-post; the (platform, user) lock is held across the
// limit check, the platform call, and the outcome write. Both posted and
// failed are terminal for the draft.
func (p *Poster) Post(ctx context.Context, draftID string) (*Outcome, error) {
	draft, err := p.drafts.GetByID(draftID)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load draft")
	}
	if draft == nil {
		return nil, soaperr.E(soaperr.KindPrecondition, "draft %s not found", draftID)
	}
	if draft.Status != models.DraftApproved || draft.PostedAt != nil {
		return nil, soaperr.E(soaperr.KindPrecondition, "draft %s is %s, not approved", draftID, draft.Status)
	}

	campaign, err := p.campaigns.GetByID(draft.CampaignID)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load campaign %s", draft.CampaignID)
	}
	if campaign == nil {
		return nil, soaperr.E(soaperr.KindUnexpected, "campaign %s not found", draft.CampaignID)
	}
	post, err := p.posts.GetByID(draft.PostID)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "failed to load post %s", draft.PostID)
	}
	if post == nil {
		return nil, soaperr.E(soaperr.KindUnexpected, "post %s not found", draft.PostID)
	}

	unlock := p.limiter.Lock(campaign.Platform, campaign.UserID)
	defer unlock()

	limit, err := p.limiter.Check(campaign.Platform, campaign.UserID)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "rate limit check failed")
	}
	if !limit.Allowed {
		// No platform call, no outcome write; the draft stays approved.
		metrics.IncRateLimitRejected(string(campaign.Platform))
		p.logger.Info("posting rate limited",
			"draft_id", draftID, "platform", campaign.Platform,
			"user_id", campaign.UserID, "retry_after", limit.RetryAfter)
		return &Outcome{
			Success:            false,
			Error:              "rate limit reached",
			RateLimited:        true,
			RateLimitRemaining: 0,
			RetryAfter:         limit.RetryAfter,
		}, nil
	}

	client, err := p.clients.ForUser(ctx, campaign.UserID)
	if err != nil {
		return nil, err
	}

	commentID, err := client.SubmitComment(ctx, post.PlatformPostID, draft.Text)
	if err != nil {
		if markErr := p.drafts.MarkFailed(draftID, err.Error()); markErr != nil {
			p.logger.Error("failed to record posting failure",
				"draft_id", draftID, "error", markErr)
		}
		p.logger.Warn("posting failed",
			"draft_id", draftID, "platform", campaign.Platform, "error", err)
		return &Outcome{
			Success:            false,
			Error:              err.Error(),
			RateLimitRemaining: remaining(limit),
		}, nil
	}

	now := time.Now()
	if err := p.drafts.MarkPosted(draftID, commentID, now); err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "comment %s submitted but outcome write failed", commentID)
	}

	metrics.IncRepliesPosted(string(campaign.Platform))
	p.logger.Info("draft posted",
		"draft_id", draftID, "platform", campaign.Platform, "comment_id", commentID)

	out := &Outcome{
		Success:            true,
		PlatformCommentID:  commentID,
		RateLimitRemaining: remaining(limit) - 1,
	}
	if out.RateLimitRemaining < 0 {
		out.RateLimitRemaining = 0
	}
	return out, nil
}

func remaining(r ratelimit.Result) int {
	if r.Remaining < 0 { // unlimited platform
		return 0
	}
	return r.Remaining
}
