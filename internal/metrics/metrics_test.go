package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/soapboxhq/soapbox/internal/models"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter != nil {
		return metric.Counter.GetValue()
	}
	return metric.Gauge.GetValue()
}

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	// Vec metrics without observations do not gather; the plain ones must.
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"soapbox_posts_discovered_total",
		"soapbox_drafts_generated_total",
		"soapbox_posts_skipped_total",
		"soapbox_uptime_seconds",
		"soapbox_goroutines",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestGlobalMetrics(t *testing.T) {
	if Global() != nil {
		t.Error("Global() should be nil before SetGlobal")
	}

	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	if Global() != m {
		t.Error("Global() did not return the set metrics")
	}
}

func TestObserveCycle(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	ObserveCycle("completed", 3, 2, 1)
	ObserveCycle("completed", 1, 0, 0)
	ObserveCycle("failed", 0, 0, 0)

	counter, err := m.CyclesTotal.GetMetricWithLabelValues("completed")
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	if got := counterValue(t, counter); got != 2 {
		t.Errorf("completed cycles = %f, want 2", got)
	}
	if got := counterValue(t, m.PostsDiscoveredTotal); got != 4 {
		t.Errorf("discovered = %f, want 4", got)
	}
	if got := counterValue(t, m.DraftsGeneratedTotal); got != 2 {
		t.Errorf("generated = %f, want 2", got)
	}
	if got := counterValue(t, m.PostsSkippedTotal); got != 1 {
		t.Errorf("skipped = %f, want 1", got)
	}
}

func TestIncRateLimitRejected(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncRateLimitRejected("reddit")
	IncRateLimitRejected("reddit")

	counter, err := m.RateLimitRejectedTotal.GetMetricWithLabelValues("reddit")
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	if got := counterValue(t, counter); got != 2 {
		t.Errorf("rejections = %f, want 2", got)
	}
}

type staticCounts map[models.CampaignStatus]int

func (s staticCounts) CountByStatus() (map[models.CampaignStatus]int, error) {
	return s, nil
}

func TestCollector_CampaignGauge(t *testing.T) {
	m := New()
	c := NewCollector(m, staticCounts{
		models.CampaignActive: 2,
		models.CampaignDraft:  1,
	}, 0)

	c.collect()

	gauge, err := m.CampaignsByStatus.GetMetricWithLabelValues("active")
	if err != nil {
		t.Fatalf("failed to get gauge: %v", err)
	}
	if got := counterValue(t, gauge); got != 2 {
		t.Errorf("active campaigns = %f, want 2", got)
	}
	if got := counterValue(t, m.Goroutines); got <= 0 {
		t.Errorf("goroutines gauge = %f, want > 0", got)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	counter, err := m.APIRequestsTotal.GetMetricWithLabelValues("GET", "/api/v1/campaigns", "404")
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	if got := counterValue(t, counter); got != 1 {
		t.Errorf("requests = %f, want 1", got)
	}

	errCounter, err := m.APIErrorsTotal.GetMetricWithLabelValues("not_found")
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	if got := counterValue(t, errCounter); got != 1 {
		t.Errorf("errors = %f, want 1", got)
	}
}

func TestCategorizeStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{500, "server_error"},
		{429, "rate_limited"},
		{401, "auth_error"},
		{404, "not_found"},
		{400, "bad_request"},
		{418, "client_error"},
	}
	for _, tt := range tests {
		if got := categorizeStatus(tt.status); got != tt.want {
			t.Errorf("categorizeStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
