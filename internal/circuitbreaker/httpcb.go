// v1
// internal/circuitbreaker/httpcb.go
package circuitbreaker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps an http.Client with breaker behaviour. Transport errors
// and 5xx responses count as failures.
type HTTPClient struct {
	Client *http.Client
	brk    *Breaker
}

// NewHTTPClient builds a guarded client. When probeURL is set, a GET on it
// must succeed before a half-open trial call.
func NewHTTPClient(name string, cfg Config, probeURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	var probe ProbeFunc
	if probeURL != "" {
		probe = func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
			if err != nil {
				return err
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, _ = io.CopyN(io.Discard, resp.Body, 64)
			if resp.StatusCode >= 200 && resp.StatusCode < 500 {
				return nil
			}
			return fmt.Errorf("probe_bad_status: %d", resp.StatusCode)
		}
	}
	return &HTTPClient{Client: httpClient, brk: New(name, cfg, probe)}
}

// Breaker exposes the underlying breaker.
func (h *HTTPClient) Breaker() *Breaker { return h.brk }

// Do sends req through the breaker. The caller closes the body of a
// successful response.
func (h *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := h.brk.Execute(req.Context(), func(ctx context.Context) error {
		r, err := h.Client.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			_, _ = io.CopyN(io.Discard, r.Body, 512)
			r.Body.Close()
			return fmt.Errorf("upstream status %d", r.StatusCode)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
