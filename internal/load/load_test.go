// v0
// internal/load/load_test.go
package load

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"nrgchamp/dashboard/internal/circuitbreaker"
	"nrgchamp/dashboard/internal/series"
)

func TestMachineTransitions(t *testing.T) {
	m := NewMachine()
	if m.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", m.Phase())
	}
	steps := []struct {
		name  string
		do    func() error
		want  Phase
		valid bool
	}{
		{"retry from idle", m.Retry, PhaseIdle, false},
		{"complete from idle", func() error { return m.Complete(nil) }, PhaseIdle, false},
		{"mount", m.Mount, PhaseLoading, true},
		{"mount twice", m.Mount, PhaseLoading, false},
		{"fail", func() error { return m.Complete(errors.New("x")) }, PhaseError, true},
		{"refresh from error", m.Refresh, PhaseError, false},
		{"complete from error", func() error { return m.Complete(nil) }, PhaseError, false},
		{"retry", m.Retry, PhaseLoading, true},
		{"succeed", func() error { return m.Complete(nil) }, PhaseReady, true},
		{"retry from ready", m.Retry, PhaseReady, false},
		{"refresh", m.Refresh, PhaseLoading, true},
	}
	for _, s := range steps {
		err := s.do()
		if s.valid && err != nil {
			t.Fatalf("%s: unexpected error %v", s.name, err)
		}
		if !s.valid && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s: expected ErrInvalidTransition, got %v", s.name, err)
		}
		if m.Phase() != s.want {
			t.Fatalf("%s: expected %s, got %s", s.name, s.want, m.Phase())
		}
	}
	if m.Attempt() != 3 {
		t.Fatalf("expected 3 attempts, got %d", m.Attempt())
	}
}

func TestMachineErrorMessageClearedOnRetry(t *testing.T) {
	m := NewMachine()
	_ = m.Mount()
	_ = m.Complete(errors.New("boom"))
	if m.Message() != FailureMessage || m.Cause() == nil {
		t.Fatalf("expected failure message, got %q", m.Message())
	}
	_ = m.Retry()
	if m.Message() != "" || m.Cause() != nil {
		t.Fatalf("retry must clear the error")
	}
}

type scriptedSource struct {
	mu      sync.Mutex
	results []error
	data    map[string][]series.Point
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Load(context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if len(s.results) > 0 {
		err = s.results[0]
		s.results = s.results[1:]
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Series: s.data}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleData() map[string][]series.Point {
	return map[string][]series.Point{
		"infrastructureUnits": {{Label: "Apr", Value: 20000}, {Label: "May", Value: 45000}},
		"ghost":               {{Label: "Apr", Value: 1}, {Label: "May", Value: 2}},
	}
}

func TestControllerMountSucceeds(t *testing.T) {
	store := series.NewStore()
	src := &scriptedSource{data: sampleData()}
	c, err := NewController(src, store, discardLogger(), Options{Accept: func(id string) bool { return id != "ghost" }})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	var mu sync.Mutex
	var phases []Phase
	c.OnChange(func(st Status) {
		mu.Lock()
		phases = append(phases, st.Phase)
		mu.Unlock()
	})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Wait()

	if st := c.Status(); st.Phase != PhaseReady || st.Error != "" {
		t.Fatalf("expected ready, got %+v", st)
	}
	mu.Lock()
	if len(phases) != 2 || phases[0] != PhaseLoading || phases[1] != PhaseReady {
		t.Fatalf("unexpected phases %v", phases)
	}
	mu.Unlock()
	if _, ok := store.Get("infrastructureUnits"); !ok {
		t.Fatalf("expected series stored")
	}
	if _, ok := store.Get("ghost"); ok {
		t.Fatalf("filtered series must not be stored")
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected second start to fail, got %v", err)
	}
}

func TestControllerFailureThenRetry(t *testing.T) {
	store := series.NewStore()
	src := &scriptedSource{results: []error{errors.New("upstream down"), nil}, data: sampleData()}
	c, err := NewController(src, store, discardLogger(), Options{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.Retry(); err == nil {
		t.Fatalf("retry before start must fail")
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Wait()
	st := c.Status()
	if st.Phase != PhaseError || st.Error != FailureMessage {
		t.Fatalf("expected error phase, got %+v", st)
	}
	if err := c.Refresh(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("refresh from error must be rejected, got %v", err)
	}

	if err := c.Retry(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	c.Wait()
	st = c.Status()
	if st.Phase != PhaseReady || st.Error != "" || st.Attempt != 2 {
		t.Fatalf("expected ready after retry, got %+v", st)
	}

	if err := c.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	c.Wait()
	if c.Status().Phase != PhaseReady {
		t.Fatalf("expected ready after refresh")
	}
}

func TestControllerStoreRejectionFailsLoad(t *testing.T) {
	src := &scriptedSource{data: map[string][]series.Point{
		"a": {{Label: "Apr"}},
		"b": {{Label: "May"}},
	}}
	c, err := NewController(src, series.NewStore(), discardLogger(), Options{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Wait()
	if c.Status().Phase != PhaseError {
		t.Fatalf("mismatched labels must fail the load")
	}
}

func TestControllerStopCancelsLoad(t *testing.T) {
	src, err := NewSimulatedSource(sampleData(), time.Hour, 0, 1)
	if err != nil {
		t.Fatalf("NewSimulatedSource: %v", err)
	}
	c, err := NewController(src, series.NewStore(), discardLogger(), Options{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if c.Status().Phase != PhaseLoading {
		t.Fatalf("expected loading while delayed")
	}
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stop did not cancel the load")
	}
	if c.Status().Phase != PhaseError {
		t.Fatalf("cancelled load should end in error, got %s", c.Status().Phase)
	}
}

func TestSimulatedSourceFailureRate(t *testing.T) {
	always, _ := NewSimulatedSource(sampleData(), 0, 1, 7)
	if _, err := always.Load(context.Background()); !errors.Is(err, ErrSimulatedFailure) {
		t.Fatalf("expected simulated failure, got %v", err)
	}
	never, _ := NewSimulatedSource(sampleData(), time.Millisecond, 0, 7)
	res, err := never.Load(context.Background())
	if err != nil || len(res.Series) != 2 {
		t.Fatalf("expected data, got %v %+v", err, res)
	}

	demo, _ := NewSimulatedSource(sampleData(), 0, 0.1, 42)
	failures := 0
	for i := 0; i < 1000; i++ {
		if _, err := demo.Load(context.Background()); err != nil {
			failures++
		}
	}
	if failures < 50 || failures > 150 {
		t.Fatalf("expected about 10%% failures, got %d", failures)
	}

	if _, err := NewSimulatedSource(nil, 0, 1.5, 1); err == nil {
		t.Fatalf("expected invalid rate error")
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"series":{"fleetGrowth":[{"label":"Apr","value":12000,"display":"5.2%"}]}}`))
		case "/empty":
			_, _ = w.Write([]byte(`{"series":{}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := circuitbreaker.NewHTTPClient("test-upstream", circuitbreaker.DefaultConfig(), "", srv.Client())

	src, err := NewHTTPSource(srv.URL+"/ok", client)
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	res, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	pts := res.Series["fleetGrowth"]
	if len(pts) != 1 || pts[0].Display != "5.2%" {
		t.Fatalf("unexpected payload %+v", res)
	}

	empty, _ := NewHTTPSource(srv.URL+"/empty", client)
	if _, err := empty.Load(context.Background()); !errors.Is(err, series.ErrEmptySeries) {
		t.Fatalf("expected empty series error, got %v", err)
	}
	missing, _ := NewHTTPSource(srv.URL+"/missing", client)
	if _, err := missing.Load(context.Background()); err == nil {
		t.Fatalf("expected status error")
	}
}
