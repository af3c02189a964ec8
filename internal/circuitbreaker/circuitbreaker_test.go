// v0
// internal/circuitbreaker/circuitbreaker_test.go
package circuitbreaker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg Config, probe ProbeFunc) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}
	b := New("test", cfg, probe)
	b.now = clock.now
	return b, clock
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b, clock := newTestBreaker(Config{MaxFailures: 2, ResetTimeout: time.Second, SuccessesToClose: 1}, nil)
	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }

	if err := b.Execute(context.Background(), fail); !errors.Is(err, boom) || errors.Is(err, ErrOpen) {
		t.Fatalf("first failure should surface the cause only, got %v", err)
	}
	if err := b.Execute(context.Background(), fail); !errors.Is(err, ErrOpen) {
		t.Fatalf("second failure should trip the breaker, got %v", err)
	}
	if b.State() != Open {
		t.Fatalf("expected open, got %v", b.State())
	}

	called := false
	err := b.Execute(context.Background(), func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrOpen) || called {
		t.Fatalf("expected fast fail while open, err=%v called=%v", err, called)
	}

	clock.advance(2 * time.Second)
	if err := b.Execute(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("trial call should pass, got %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("expected closed after trial success, got %v", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{MaxFailures: 1, ResetTimeout: time.Second, SuccessesToClose: 2}, nil)
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("x") })
	clock.advance(time.Second)

	if err := b.Execute(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("expected half-open until enough successes, got %v", b.State())
	}
	if err := b.Execute(context.Background(), func(context.Context) error { return errors.New("y") }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected reopen, got %v", err)
	}
	if b.State() != Open {
		t.Fatalf("expected open, got %v", b.State())
	}
}

func TestBreakerProbeFailureKeepsOpen(t *testing.T) {
	probeErr := errors.New("unreachable")
	b, clock := newTestBreaker(Config{MaxFailures: 1, ResetTimeout: time.Second}, func(context.Context) error { return probeErr })
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("x") })
	clock.advance(time.Second)

	called := false
	err := b.Execute(context.Background(), func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrOpen) || called {
		t.Fatalf("expected probe failure to fast fail, err=%v called=%v", err, called)
	}
	if b.State() != Open {
		t.Fatalf("expected open, got %v", b.State())
	}
}

func TestBreakerNotifiesTransitions(t *testing.T) {
	b, _ := newTestBreaker(Config{MaxFailures: 1, ResetTimeout: time.Second}, nil)
	var got []State
	b.OnStateChange(func(_ string, _, to State) { got = append(got, to) })
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("x") })
	if len(got) != 1 || got[0] != Open {
		t.Fatalf("expected one open transition, got %v", got)
	}
}

func TestHTTPClientCountsServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient("upstream", Config{MaxFailures: 2, ResetTimeout: time.Minute}, "", srv.Client())
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		if resp, err := client.Do(req); err == nil || resp != nil {
			t.Fatalf("expected failure on attempt %d", i)
		}
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := client.Do(req); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected fast fail, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 upstream hits, got %d", hits.Load())
	}
	if client.Breaker().State() != Open {
		t.Fatalf("expected open breaker")
	}
}

func TestLoadConfigFromProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cb.properties")
	body := "# breaker\ncircuit.maxFailures=3\ncircuit.resetSeconds=1.5\ncircuit.successesToClose=2\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfigFromProperties(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxFailures != 3 || cfg.ResetTimeout != 1500*time.Millisecond || cfg.SuccessesToClose != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	if _, err := LoadConfigFromProperties(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
