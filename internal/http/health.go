// v0
// internal/http/health.go
package httpserver

import (
	"io"
	"net/http"
	"sync"
)

// HealthState tracks readiness of the HTTP API. Liveness is always true
// while the process runs; readiness is set once the server listens and
// cleared again on shutdown. The data load phase is reported by the
// dashboard view, not by the probes.
type HealthState struct {
	mu    sync.RWMutex
	ready bool
}

// NewHealthState returns a tracker that starts not ready.
func NewHealthState() *HealthState {
	return &HealthState{}
}

func (h *HealthState) SetReady(value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = value
}

func (h *HealthState) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

func healthLiveHandler() http.Handler {
	return probeHandler(func() bool { return true })
}

func healthReadyHandler(health *HealthState) http.Handler {
	return probeHandler(func() bool { return health != nil && health.Ready() })
}

// probeHandler answers "OK" while check holds and 503 "NOT_READY" otherwise.
func probeHandler(check func() bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		status, body := http.StatusOK, "OK"
		if !check() {
			status, body = http.StatusServiceUnavailable, "NOT_READY"
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}
