package generate

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/soapboxhq/soapbox/internal/contextstore"
	"github.com/soapboxhq/soapbox/internal/credentials"
	"github.com/soapboxhq/soapbox/internal/db"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/repository"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

type fakeSearcher struct {
	results []contextstore.Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, companyID, query string, maxResults int) ([]contextstore.Result, error) {
	return f.results, f.err
}

type fakeModel struct {
	reply string
	err   error

	lastModel  string
	lastPrompt string
}

func (f *fakeModel) Complete(ctx context.Context, model, prompt string, temperature float64) (string, error) {
	f.lastModel = model
	f.lastPrompt = prompt
	return f.reply, f.err
}

// staticClients hands every user the same model client.
type staticClients struct{ model ModelClient }

func (s staticClients) ForUser(ctx context.Context, userID string) (ModelClient, error) {
	return s.model, nil
}

type fixture struct {
	drafts   *repository.DraftRepository
	creds    *repository.CredentialRepository
	campaign *models.Campaign
	post     *models.DiscoveredPost
	company  *models.CompanyProfile
}

func setupFixture(t *testing.T) *fixture {
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
		UserID:     "user-1",
		CompanyID:  "company-1",
		Name:       "launch buzz",
		Platform:   models.PlatformReddit,
		AISettings: models.AISettings{Tone: "friendly", MaxContextSnippets: 2},
	}
	if err := campaigns.Create(campaign); err != nil {
		t.Fatalf("campaign Create() error = %v", err)
	}

	posts := repository.NewPostRepository(database.DB)
	post := &models.DiscoveredPost{
		CampaignID:     campaign.ID,
		PlatformPostID: "t3_abc",
		Subreddit:      "golang",
		Title:          "how do you automate deployment?",
		Body:           "looking for a tool that does canary releases",
		Author:         "gopher42",
		MatchedKeyword: "automate",
		PostedAt:       time.Now().Add(-time.Hour),
	}
	if err := posts.Create(post); err != nil {
		t.Fatalf("post Create() error = %v", err)
	}

	return &fixture{
		drafts:   repository.NewDraftRepository(database.DB),
		creds:    repository.NewCredentialRepository(database.DB),
		campaign: campaign,
		post:     post,
		company: &models.CompanyProfile{
			ID:          "company-1",
			Name:        "Acme",
			Description: "deployment automation",
			Voice:       "practical",
			Rules:       []string{"never disparage competitors"},
		},
	}
}

func newTestGenerator(f *fixture, searcher contextstore.Searcher, model ModelClient) *Generator {
	return NewGenerator(searcher, staticClients{model}, HeuristicScorer{}, f.drafts, "gemini-2.5-flash", slog.Default())
}

func TestGenerator_Generate(t *testing.T) {
	f := setupFixture(t)
	searcher := &fakeSearcher{results: []contextstore.Result{
		{Text: "Acme supports canary releases", SourceType: "fact", RelevanceScore: 0.4},
	}}
	model := &fakeModel{reply: "Acme handles canary releases out of the box, worth a look."}

	draft, err := newTestGenerator(f, searcher, model).Generate(context.Background(), f.post, f.campaign, f.company)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if draft.Status != models.DraftPending {
		t.Errorf("status = %v, want pending", draft.Status)
	}
	if draft.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q", draft.Model)
	}
	if len(draft.ContextSnippets) != 1 || draft.ContextSnippets[0] != "Acme supports canary releases" {
		t.Errorf("context snippets = %v", draft.ContextSnippets)
	}
	if draft.Confidence <= 0.5 || draft.Confidence > 1 {
		t.Errorf("confidence = %v, want in (0.5, 1]", draft.Confidence)
	}
	if draft.EngagementPotential < 1 || draft.EngagementPotential > 10 {
		t.Errorf("engagement = %v out of range", draft.EngagementPotential)
	}

	// Persisted, retrievable by post id.
	stored, err := f.drafts.GetByPostID(f.post.ID)
	if err != nil {
		t.Fatalf("GetByPostID() error = %v", err)
	}
	if stored == nil || stored.ID != draft.ID {
		t.Errorf("stored draft = %+v", stored)
	}
}

func TestGenerator_GenerateUsesCampaignModel(t *testing.T) {
	f := setupFixture(t)
	f.campaign.AISettings.Model = "gemini-2.5-pro"
	model := &fakeModel{reply: "a reply"}

	_, err := newTestGenerator(f, &fakeSearcher{}, model).Generate(context.Background(), f.post, f.campaign, f.company)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if model.lastModel != "gemini-2.5-pro" {
		t.Errorf("model used = %q, want campaign override", model.lastModel)
	}
}

func TestGenerator_ModelFailureCreatesNoDraft(t *testing.T) {
	f := setupFixture(t)
	model := &fakeModel{err: soaperr.E(soaperr.KindPlatform, "model unavailable")}

	_, err := newTestGenerator(f, &fakeSearcher{}, model).Generate(context.Background(), f.post, f.campaign, f.company)
	if !soaperr.IsKind(err, soaperr.KindPlatform) {
		t.Fatalf("error kind = %v, want platform", soaperr.KindOf(err))
	}

	stored, err := f.drafts.GetByPostID(f.post.ID)
	if err != nil {
		t.Fatalf("GetByPostID() error = %v", err)
	}
	if stored != nil {
		t.Errorf("partial draft persisted after model failure: %+v", stored)
	}
}

func TestGenerator_SecondDraftRejected(t *testing.T) {
	f := setupFixture(t)
	gen := newTestGenerator(f, &fakeSearcher{}, &fakeModel{reply: "a reply"})

	if _, err := gen.Generate(context.Background(), f.post, f.campaign, f.company); err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	if _, err := gen.Generate(context.Background(), f.post, f.campaign, f.company); err != repository.ErrDuplicateDraft {
		t.Errorf("second Generate() error = %v, want ErrDuplicateDraft", err)
	}
}

func TestFactory_ForUser(t *testing.T) {
	f := setupFixture(t)
	factory := NewFactory(credentials.NewStoreProvider(f.creds))
	ctx := context.Background()

	if _, err := factory.ForUser(ctx, "user-1"); !soaperr.IsKind(err, soaperr.KindAuth) {
		t.Fatalf("error kind without stored key = %v, want auth", soaperr.KindOf(err))
	}

	cred := &models.Credential{
		UserID:   "user-1",
		Platform: models.AIProvider,
		Kind:     models.CredentialAPIKey,
		Value:    "key-a",
		Valid:    true,
	}
	if err := f.creds.Upsert(cred); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	c1, err := factory.ForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	c2, err := factory.ForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ForUser() second call error = %v", err)
	}
	if c1 != c2 {
		t.Error("client not reused for an unchanged key")
	}

	// Rotating the stored key yields a fresh client.
	cred.Value = "key-b"
	if err := f.creds.Upsert(cred); err != nil {
		t.Fatalf("Upsert() rotate error = %v", err)
	}
	c3, err := factory.ForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ForUser() after rotation error = %v", err)
	}
	if c3 == c1 {
		t.Error("client reused across a key rotation")
	}
}

func TestGenerator_MissingUserKeyIsAuthError(t *testing.T) {
	f := setupFixture(t)
	gen := NewGenerator(&fakeSearcher{}, NewFactory(credentials.NewStoreProvider(f.creds)),
		HeuristicScorer{}, f.drafts, "gemini-2.5-flash", slog.Default())

	_, err := gen.Generate(context.Background(), f.post, f.campaign, f.company)
	if !soaperr.IsKind(err, soaperr.KindAuth) {
		t.Fatalf("error kind = %v, want auth for missing gemini key", soaperr.KindOf(err))
	}

	stored, err := f.drafts.GetByPostID(f.post.ID)
	if err != nil {
		t.Fatalf("GetByPostID() error = %v", err)
	}
	if stored != nil {
		t.Errorf("draft persisted despite missing key: %+v", stored)
	}
}

func TestHeuristicScorer(t *testing.T) {
	s := HeuristicScorer{}

	question := s.Score("how do I fix this?", "I love this tool but I am stuck, any help would be great?")
	if question.EngagementPotential <= 3 {
		t.Errorf("question engagement = %v, want > 3", question.EngagementPotential)
	}
	if question.Sentiment < 0 || question.Sentiment > 1 {
		t.Errorf("sentiment = %v out of range", question.Sentiment)
	}

	negative := s.Score("terrible broken mess", "worst bug, useless, awful, hate it")
	if negative.Sentiment >= 0.5 {
		t.Errorf("negative sentiment = %v, want < 0.5", negative.Sentiment)
	}
}

func TestPriorityFor(t *testing.T) {
	if got := PriorityFor(8, 0.7); got != models.PriorityHigh {
		t.Errorf("PriorityFor(8, 0.7) = %v", got)
	}
	if got := PriorityFor(5, 0.5); got != models.PriorityMedium {
		t.Errorf("PriorityFor(5, 0.5) = %v", got)
	}
	if got := PriorityFor(2, 0.2); got != models.PriorityLow {
		t.Errorf("PriorityFor(2, 0.2) = %v", got)
	}
}
