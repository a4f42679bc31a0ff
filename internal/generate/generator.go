// Package generate turns discovered posts into response drafts.
package generate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/soapboxhq/soapbox/internal/contextstore"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/repository"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

const defaultMaxSnippets = 3

// Generator produces one pending draft per discovered post.
type Generator struct {
	searcher     contextstore.Searcher
	clients      ClientProvider
	scorer       Scorer
	drafts       *repository.DraftRepository
	defaultModel string
	logger       *slog.Logger
}

func NewGenerator(searcher contextstore.Searcher, clients ClientProvider, scorer Scorer, drafts *repository.DraftRepository, defaultModel string, logger *slog.Logger) *Generator {
	return &Generator{
		searcher:     searcher,
		clients:      clients,
		scorer:       scorer,
		drafts:       drafts,
		defaultModel: defaultModel,
		logger:       logger.With("component", "generate"),
	}
}

// Generate retrieves context, calls the model, scores the opportunity, and
// persists the draft in pending. A model failure creates no partial draft;
// the error propagates to the caller's per-item handling.
func (g *Generator) Generate(ctx context.Context, post *models.DiscoveredPost, campaign *models.Campaign, company *models.CompanyProfile) (*models.ResponseDraft, error) {
	maxSnippets := campaign.AISettings.MaxContextSnippets
	if maxSnippets <= 0 {
		maxSnippets = defaultMaxSnippets
	}

	query := strings.TrimSpace(post.Title + " " + post.Body)
	snippets, err := g.searcher.Search(ctx, company.ID, query, maxSnippets)
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindUnexpected, err, "context retrieval failed")
	}

	modelName := campaign.AISettings.Model
	if modelName == "" {
		modelName = g.defaultModel
	}

	// The model client is bound to the campaign owner's stored API key, the
	// same credential start-time validation checks.
	model, err := g.clients.ForUser(ctx, campaign.UserID)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(post, campaign, company, snippets)
	text, err := model.Complete(ctx, modelName, prompt, campaign.AISettings.Temperature)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, soaperr.E(soaperr.KindPlatform, "model returned empty reply")
	}

	scores := g.scorer.Score(post.Title, post.Body)

	draft := &models.ResponseDraft{
		CampaignID:          campaign.ID,
		PostID:              post.ID,
		Text:                text,
		Model:               modelName,
		Confidence:          confidence(post, text, len(snippets)),
		Sentiment:           scores.Sentiment,
		EngagementPotential: scores.EngagementPotential,
		Priority:            PriorityFor(scores.EngagementPotential, scores.Sentiment),
		Status:              models.DraftPending,
		ContextSnippets:     snippetTexts(snippets),
	}

	if err := g.drafts.Create(draft); err != nil {
		return nil, err
	}

	g.logger.Debug("draft generated",
		"campaign_id", campaign.ID,
		"post_id", post.ID,
		"priority", draft.Priority,
		"confidence", draft.Confidence)

	return draft, nil
}

// confidence estimates how grounded the reply is: context availability, a
// keyword-matched source, and a reply of conversational length all raise it.
func confidence(post *models.DiscoveredPost, reply string, snippetCount int) float64 {
	c := 0.5
	c += 0.05 * float64(min(snippetCount, 4))
	if post.MatchedKeyword != "" {
		c += 0.1
	}
	if words := len(strings.Fields(reply)); words >= 30 && words <= 200 {
		c += 0.1
	}
	return clamp(c, 0, 1)
}

func snippetTexts(snippets []contextstore.Result) []string {
	if len(snippets) == 0 {
		return nil
	}
	texts := make([]string, len(snippets))
	for i, s := range snippets {
		texts[i] = s.Text
	}
	return texts
}
