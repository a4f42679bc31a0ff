package discovery

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/soapboxhq/soapbox/internal/db"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/reddit"
	"github.com/soapboxhq/soapbox/internal/repository"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

// fakeClient serves canned listings per subreddit and records calls.
type fakeClient struct {
	listings map[string][]*reddit.Link // subreddit -> links
	errors   map[string]error          // subreddit -> fetch error

	searchCalls []string // "subreddit/query"
}

func (f *fakeClient) SearchSubreddit(ctx context.Context, subreddit, query string, opts reddit.SearchOptions) ([]*reddit.Link, error) {
	f.searchCalls = append(f.searchCalls, subreddit+"/"+query)
	if err := f.errors[subreddit]; err != nil {
		return nil, err
	}
	return f.listings[subreddit], nil
}

func (f *fakeClient) ListSubreddit(ctx context.Context, subreddit, sort string, limit int) ([]*reddit.Link, error) {
	if err := f.errors[subreddit]; err != nil {
		return nil, err
	}
	return f.listings[subreddit], nil
}

func (f *fakeClient) SubmitComment(ctx context.Context, parentFullname, text string) (string, error) {
	return "", soaperr.E(soaperr.KindUnexpected, "not implemented")
}

func (f *fakeClient) Vote(ctx context.Context, fullname string, dir int) error { return nil }

func (f *fakeClient) Me(ctx context.Context) (*reddit.Account, error) {
	return &reddit.Account{Name: "test"}, nil
}

func link(name, title string, score int) *reddit.Link {
	return &reddit.Link{
		ID:         name[3:],
		Name:       name,
		Subreddit:  "golang",
		Title:      title,
		Author:     "gopher42",
		Score:      score,
		Permalink:  "/r/golang/comments/" + name,
		CreatedUTC: 1700000000,
	}
}

func setupDiscoverer(t *testing.T) (*Discoverer, *repository.PostRepository, *models.Campaign) {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	index, err := NewSeenIndex(filepath.Join(t.TempDir(), "seen.db"))
	if err != nil {
		t.Fatalf("NewSeenIndex() error = %v", err)
	}
	t.Cleanup(func() { index.Close() })

	campaigns := repository.NewCampaignRepository(database.DB)
	campaign := &models.Campaign{
		UserID:     "user-1",
		CompanyID:  "company-1",
		Name:       "launch buzz",
		Platform:   models.PlatformReddit,
		Subreddits: []string{"golang"},
		Keywords:   []string{"automation"},
		Monitoring: models.MonitoringRules{PerTargetLimit: 10, TimeFilter: "week"},
	}
	if err := campaigns.Create(campaign); err != nil {
		t.Fatalf("campaign Create() error = %v", err)
	}

	posts := repository.NewPostRepository(database.DB)
	return NewDiscoverer(posts, index, slog.Default()), posts, campaign
}

func TestDiscoverer_Discover(t *testing.T) {
	d, posts, campaign := setupDiscoverer(t)
	client := &fakeClient{listings: map[string][]*reddit.Link{
		"golang": {link("t3_a", "need automation", 5), link("t3_b", "another post", 2)},
	}}

	result, err := d.Discover(context.Background(), client, campaign)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(result.Posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(result.Posts))
	}
	if result.Posts[0].MatchedKeyword != "automation" {
		t.Errorf("matched keyword = %q", result.Posts[0].MatchedKeyword)
	}
	if len(result.TargetLogs) != 1 || result.TargetLogs[0].Found != 2 || result.TargetLogs[0].Scanned != 2 {
		t.Errorf("target logs = %+v", result.TargetLogs)
	}

	n, err := posts.CountByCampaign(campaign.ID)
	if err != nil {
		t.Fatalf("CountByCampaign() error = %v", err)
	}
	if n != 2 {
		t.Errorf("persisted %d posts, want 2", n)
	}
}

func TestDiscoverer_SecondPassDedups(t *testing.T) {
	d, _, campaign := setupDiscoverer(t)
	client := &fakeClient{listings: map[string][]*reddit.Link{
		"golang": {link("t3_a", "need automation", 5)},
	}}

	if _, err := d.Discover(context.Background(), client, campaign); err != nil {
		t.Fatalf("first Discover() error = %v", err)
	}

	result, err := d.Discover(context.Background(), client, campaign)
	if err != nil {
		t.Fatalf("second Discover() error = %v", err)
	}
	if len(result.Posts) != 0 {
		t.Errorf("second pass accepted %d posts, want 0", len(result.Posts))
	}
	if result.TargetLogs[0].Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", result.TargetLogs[0].Duplicates)
	}
}

func TestDiscoverer_MinScoreFilter(t *testing.T) {
	d, _, campaign := setupDiscoverer(t)
	campaign.Monitoring.MinScore = 3
	client := &fakeClient{listings: map[string][]*reddit.Link{
		"golang": {link("t3_a", "high score", 5), link("t3_b", "low score", 1)},
	}}

	result, err := d.Discover(context.Background(), client, campaign)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(result.Posts) != 1 || result.Posts[0].PlatformPostID != "t3_a" {
		t.Errorf("posts = %+v, want only the high-score one", result.Posts)
	}
}

func TestDiscoverer_TargetErrorContained(t *testing.T) {
	d, _, campaign := setupDiscoverer(t)
	campaign.Subreddits = []string{"broken", "golang"}
	client := &fakeClient{
		listings: map[string][]*reddit.Link{
			"golang": {link("t3_a", "need automation", 5)},
		},
		errors: map[string]error{
			"broken": soaperr.E(soaperr.KindPlatform, "subreddit unavailable"),
		},
	}

	result, err := d.Discover(context.Background(), client, campaign)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(result.Posts) != 1 {
		t.Errorf("got %d posts, want 1 from the healthy target", len(result.Posts))
	}
	if len(result.TargetLogs) != 2 || result.TargetLogs[0].Error == "" {
		t.Errorf("target logs = %+v, want error recorded on first target", result.TargetLogs)
	}
}

func TestDiscoverer_AuthErrorAbortsPass(t *testing.T) {
	d, _, campaign := setupDiscoverer(t)
	client := &fakeClient{errors: map[string]error{
		"golang": soaperr.E(soaperr.KindAuth, "token revoked"),
	}}

	_, err := d.Discover(context.Background(), client, campaign)
	if !soaperr.IsKind(err, soaperr.KindAuth) {
		t.Errorf("error kind = %v, want auth to abort the pass", soaperr.KindOf(err))
	}
}

func TestDiscoverer_NoKeywordsUsesListing(t *testing.T) {
	d, _, campaign := setupDiscoverer(t)
	campaign.Keywords = nil
	client := &fakeClient{listings: map[string][]*reddit.Link{
		"golang": {link("t3_a", "hot post", 5)},
	}}

	result, err := d.Discover(context.Background(), client, campaign)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(client.searchCalls) != 0 {
		t.Errorf("search called %v, want listing path", client.searchCalls)
	}
	if len(result.Posts) != 1 || result.Posts[0].MatchedKeyword != "" {
		t.Errorf("posts = %+v", result.Posts)
	}
}

func TestSeenIndex(t *testing.T) {
	index, err := NewSeenIndex(filepath.Join(t.TempDir(), "seen.db"))
	if err != nil {
		t.Fatalf("NewSeenIndex() error = %v", err)
	}
	defer index.Close()

	if err := index.Mark("c1", []string{"t3_a", "t3_b"}); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}

	seen, err := index.Load("c1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("got %d seen ids, want 2", len(seen))
	}

	// Other campaigns are isolated.
	other, err := index.Load("c2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("got %d seen ids for other campaign, want 0", len(other))
	}

	if err := index.Drop("c1"); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	seen, _ = index.Load("c1")
	if len(seen) != 0 {
		t.Errorf("got %d seen ids after Drop, want 0", len(seen))
	}
}
