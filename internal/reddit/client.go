// Package reddit is a minimal Reddit API client covering the surface the
// campaign engine needs: subreddit listings, search, comment submission,
// voting, and an identity check.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/credentials"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

// Client is the platform surface used by discovery and posting.
type Client interface {
	SearchSubreddit(ctx context.Context, subreddit, query string, opts SearchOptions) ([]*Link, error)
	ListSubreddit(ctx context.Context, subreddit, sort string, limit int) ([]*Link, error)
	SubmitComment(ctx context.Context, parentFullname, text string) (string, error)
	Vote(ctx context.Context, fullname string, dir int) error
	Me(ctx context.Context) (*Account, error)
}

// HTTPClient talks to the Reddit OAuth API.
type HTTPClient struct {
	baseURL    string
	userAgent  string
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

// NewHTTPClient creates a client that authenticates with the given token source.
func NewHTTPClient(cfg config.RedditConfig, tokens oauth2.TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		tokens:    tokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Factory builds per-user clients from stored credentials.
type Factory struct {
	cfg      config.RedditConfig
	provider credentials.Provider
}

func NewFactory(cfg config.RedditConfig, provider credentials.Provider) *Factory {
	return &Factory{cfg: cfg, provider: provider}
}

// ForUser returns a client authenticating as the given user.
func (f *Factory) ForUser(ctx context.Context, userID string) (Client, error) {
	ts, err := NewTokenSource(ctx, f.cfg, f.provider, userID)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(f.cfg, ts), nil
}

// request performs an authenticated request and decodes the JSON response.
func (c *HTTPClient) request(ctx context.Context, method, path string, form url.Values, result any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return soaperr.Wrap(soaperr.KindAuth, err, "no reddit access token")
	}
	tok.SetAuthHeader(req)
	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return soaperr.Wrap(soaperr.KindPlatform, err, "reddit request failed")
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, path); err != nil {
		io.Copy(io.Discard, resp.Body)
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return soaperr.Wrap(soaperr.KindPlatform, err, "decode reddit response")
		}
	}
	return nil
}

func classifyStatus(status int, path string) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return soaperr.E(soaperr.KindAuth, "reddit rejected credentials (HTTP %d) on %s", status, path)
	case status == http.StatusTooManyRequests:
		return soaperr.E(soaperr.KindRateLimit, "reddit rate limit hit (HTTP 429) on %s", path)
	default:
		return soaperr.E(soaperr.KindPlatform, "reddit returned HTTP %d on %s", status, path)
	}
}

// SearchSubreddit searches within a single subreddit.
func (c *HTTPClient) SearchSubreddit(ctx context.Context, subreddit, query string, opts SearchOptions) ([]*Link, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	if opts.Sort != "" {
		params.Set("sort", opts.Sort)
	}
	if opts.TimeFilter != "" {
		params.Set("t", opts.TimeFilter)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var resp listing
	if err := c.request(ctx, http.MethodGet, "/r/"+subreddit+"/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.links(), nil
}

// ListSubreddit fetches the subreddit front listing by sort (hot, new, top).
func (c *HTTPClient) ListSubreddit(ctx context.Context, subreddit, sort string, limit int) ([]*Link, error) {
	if sort == "" {
		sort = "hot"
	}
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp listing
	if err := c.request(ctx, http.MethodGet, "/r/"+subreddit+"/"+sort+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.links(), nil
}

// SubmitComment posts a comment under the given parent fullname and returns
// the new comment's fullname.
func (c *HTTPClient) SubmitComment(ctx context.Context, parentFullname, text string) (string, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", parentFullname)
	form.Set("text", text)

	var resp commentResponse
	if err := c.request(ctx, http.MethodPost, "/api/comment", form, &resp); err != nil {
		return "", err
	}

	if len(resp.JSON.Errors) > 0 {
		return "", commentError(resp.JSON.Errors)
	}
	if len(resp.JSON.Data.Things) == 0 {
		return "", soaperr.E(soaperr.KindPlatform, "reddit accepted comment but returned no thing")
	}
	return resp.JSON.Data.Things[0].Data.Name, nil
}

// commentError maps the in-band error array of /api/comment. Reddit reports
// its own posting throttle here with a RATELIMIT code and HTTP 200.
func commentError(errs [][]any) error {
	code := ""
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		for i, field := range e {
			if s, ok := field.(string); ok {
				if i == 0 && code == "" {
					code = s
				}
				parts = append(parts, s)
			}
		}
	}
	msg := strings.Join(parts, "; ")
	if code == "RATELIMIT" {
		return soaperr.E(soaperr.KindRateLimit, "reddit comment throttled: %s", msg)
	}
	return soaperr.E(soaperr.KindPlatform, "reddit rejected comment: %s", msg)
}

// Vote casts a vote on a thing. dir is 1, 0, or -1.
func (c *HTTPClient) Vote(ctx context.Context, fullname string, dir int) error {
	form := url.Values{}
	form.Set("id", fullname)
	form.Set("dir", strconv.Itoa(dir))
	return c.request(ctx, http.MethodPost, "/api/vote", form, nil)
}

// Me returns the authenticated account, serving as a credential check.
func (c *HTTPClient) Me(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.request(ctx, http.MethodGet, "/api/v1/me", nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}
