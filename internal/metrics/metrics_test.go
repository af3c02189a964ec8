// v0
// internal/metrics/metrics_test.go
package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoadPhaseGauge(t *testing.T) {
	m := New()
	if got := testutil.ToFloat64(m.loadPhase.WithLabelValues("idle")); got != 1 {
		t.Fatalf("expected idle=1 after New, got %v", got)
	}
	m.SetLoadPhase("ready")
	if got := testutil.ToFloat64(m.loadPhase.WithLabelValues("idle")); got != 0 {
		t.Fatalf("expected idle=0, got %v", got)
	}
	if got := testutil.ToFloat64(m.loadPhase.WithLabelValues("ready")); got != 1 {
		t.Fatalf("expected ready=1, got %v", got)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.Action("toggle")
	m.Action("toggle")
	m.SeriesUpdate("kafka", nil)
	m.SeriesUpdate("kafka", errors.New("boom"))
	m.Event("dropped")
	m.LoadAttempt()
	m.SetCircuitBreakerState("upstream", 2)

	if got := testutil.ToFloat64(m.actions.WithLabelValues("toggle")); got != 2 {
		t.Fatalf("expected 2 toggles, got %v", got)
	}
	if got := testutil.ToFloat64(m.seriesUpdates.WithLabelValues("kafka", "rejected")); got != 1 {
		t.Fatalf("expected 1 rejected update, got %v", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("dropped")); got != 1 {
		t.Fatalf("expected 1 dropped event, got %v", got)
	}
	if got := testutil.ToFloat64(m.loadAttempts); got != 1 {
		t.Fatalf("expected 1 load attempt, got %v", got)
	}
	if got := testutil.ToFloat64(m.cbState.WithLabelValues("upstream")); got != 2 {
		t.Fatalf("expected open breaker gauge, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Action("toggle")
	m.SetLoadPhase("ready")
	m.SeriesUpdate("mqtt", nil)
	m.Event("published")
	m.LoadAttempt()
	m.SetCircuitBreakerState("x", 1)
	h := m.WrapHandler("/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected passthrough status, got %d", rec.Code)
	}
}

func TestWrapHandlerAndExposition(t *testing.T) {
	m := New()
	h := m.WrapHandler("/api/dashboard", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/dashboard", "404")); got != 1 {
		t.Fatalf("expected one 404, got %v", got)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"dashboard_http_requests_total", "dashboard_load_phase"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("expected %s in exposition", name)
		}
	}
}
