// v0
// internal/load/source.go
package load

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"nrgchamp/dashboard/internal/circuitbreaker"
	"nrgchamp/dashboard/internal/series"
)

// ErrSimulatedFailure is returned by SimulatedSource on a failed draw.
var ErrSimulatedFailure = errors.New("simulated load failure")

// Result is the payload of one successful load.
type Result struct {
	Series map[string][]series.Point `json:"series"`
}

// Source produces dashboard data.
type Source interface {
	Name() string
	Load(ctx context.Context) (Result, error)
}

// SimulatedSource serves a fixed dataset after a delay and fails with the
// configured probability.
type SimulatedSource struct {
	Delay       time.Duration
	FailureRate float64
	Data        map[string][]series.Point

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedSource returns a source drawing failures from seed.
func NewSimulatedSource(data map[string][]series.Point, delay time.Duration, failureRate float64, seed int64) (*SimulatedSource, error) {
	if failureRate < 0 || failureRate > 1 {
		return nil, fmt.Errorf("failure rate %v outside [0,1]", failureRate)
	}
	if delay < 0 {
		return nil, errors.New("delay must not be negative")
	}
	return &SimulatedSource{Delay: delay, FailureRate: failureRate, Data: data, rng: rand.New(rand.NewSource(seed))}, nil
}

// Name identifies the source in logs.
func (s *SimulatedSource) Name() string { return "simulated" }

// Load waits for Delay and then succeeds or fails.
func (s *SimulatedSource) Load(ctx context.Context) (Result, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}
	s.mu.Lock()
	draw := s.rng.Float64()
	s.mu.Unlock()
	if draw < s.FailureRate {
		return Result{}, ErrSimulatedFailure
	}
	out := make(map[string][]series.Point, len(s.Data))
	for id, pts := range s.Data {
		out[id] = append([]series.Point(nil), pts...)
	}
	return Result{Series: out}, nil
}

// HTTPSource fetches series from an upstream JSON endpoint through the
// circuit breaker.
type HTTPSource struct {
	url    string
	client *circuitbreaker.HTTPClient
}

// NewHTTPSource validates url and wraps client.
func NewHTTPSource(url string, client *circuitbreaker.HTTPClient) (*HTTPSource, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("upstream url must not be empty")
	}
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	return &HTTPSource{url: url, client: client}, nil
}

// Name identifies the source in logs.
func (s *HTTPSource) Name() string { return "http" }

// Load performs GET url and decodes {"series": {id: [points]}}.
func (s *HTTPSource) Load(ctx context.Context) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
		return Result{}, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	var out Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode upstream payload: %w", err)
	}
	if len(out.Series) == 0 {
		return Result{}, fmt.Errorf("upstream payload: %w", series.ErrEmptySeries)
	}
	return out, nil
}
