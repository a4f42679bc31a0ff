package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/soapboxhq/soapbox/internal/config"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

func testClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.RedditConfig{
		BaseURL:   srv.URL,
		UserAgent: "soapbox-test/1.0",
		Timeout:   5 * time.Second,
	}
	return NewHTTPClient(cfg, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}))
}

func TestHTTPClient_SearchSubreddit(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/golang/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "automation" {
			t.Errorf("q = %q, want automation", got)
		}
		if got := r.URL.Query().Get("restrict_sr"); got != "1" {
			t.Errorf("restrict_sr = %q, want 1", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"data":{"children":[
			{"data":{"id":"abc","name":"t3_abc","subreddit":"golang","title":"need automation","author":"u1","score":7,"num_comments":3,"permalink":"/r/golang/comments/abc","created_utc":1700000000}}
		]}}`))
	}))

	links, err := client.SearchSubreddit(context.Background(), "golang", "automation", SearchOptions{Sort: "relevance", TimeFilter: "week", Limit: 5})
	if err != nil {
		t.Fatalf("SearchSubreddit() error = %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	if links[0].Name != "t3_abc" || links[0].Score != 7 {
		t.Errorf("link = %+v", links[0])
	}
	if got := links[0].Created(); got.Unix() != 1700000000 {
		t.Errorf("Created() = %v", got)
	}
}

func TestHTTPClient_ListSubreddit(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/selfhosted/hot" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"children":[{"data":{"id":"x","name":"t3_x","title":"a"}},{"data":{"id":"y","name":"t3_y","title":"b"}}]}}`))
	}))

	links, err := client.ListSubreddit(context.Background(), "selfhosted", "", 10)
	if err != nil {
		t.Fatalf("ListSubreddit() error = %v", err)
	}
	if len(links) != 2 {
		t.Errorf("got %d links, want 2", len(links))
	}
}

func TestHTTPClient_SubmitComment(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/comment" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		r.ParseForm()
		if got := r.PostFormValue("thing_id"); got != "t3_abc" {
			t.Errorf("thing_id = %q", got)
		}
		w.Write([]byte(`{"json":{"errors":[],"data":{"things":[{"data":{"id":"def","name":"t1_def"}}]}}}`))
	}))

	id, err := client.SubmitComment(context.Background(), "t3_abc", "great point")
	if err != nil {
		t.Fatalf("SubmitComment() error = %v", err)
	}
	if id != "t1_def" {
		t.Errorf("comment id = %q, want t1_def", id)
	}
}

func TestHTTPClient_SubmitCommentThrottled(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"json":{"errors":[["RATELIMIT","you are doing that too much","ratelimit"]],"data":{}}}`))
	}))

	_, err := client.SubmitComment(context.Background(), "t3_abc", "hi")
	if !soaperr.IsKind(err, soaperr.KindRateLimit) {
		t.Errorf("error kind = %v, want rate_limit", soaperr.KindOf(err))
	}
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		kind   soaperr.Kind
	}{
		{http.StatusUnauthorized, soaperr.KindAuth},
		{http.StatusForbidden, soaperr.KindAuth},
		{http.StatusTooManyRequests, soaperr.KindRateLimit},
		{http.StatusInternalServerError, soaperr.KindPlatform},
	}
	for _, tt := range tests {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := client.Me(context.Background())
		if !soaperr.IsKind(err, tt.kind) {
			t.Errorf("HTTP %d: error kind = %v, want %v", tt.status, soaperr.KindOf(err), tt.kind)
		}
	}
}
