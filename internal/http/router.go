// v0
// internal/http/router.go
package httpserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"nrgchamp/dashboard/internal/auth"
	"nrgchamp/dashboard/internal/dashboard"
	"nrgchamp/dashboard/internal/export"
	"nrgchamp/dashboard/internal/metrics"
)

// Deps are the collaborators served by the router.
type Deps struct {
	Logger    *slog.Logger
	Health    *HealthState
	Dashboard *dashboard.Store
	Series    export.SeriesReader
	Auth      *auth.Authenticator
	Metrics   *metrics.Metrics
	// AccessLog receives combined-format access lines when set.
	AccessLog io.Writer
	// AllowedOrigins enables CORS for the listed origins.
	AllowedOrigins []string
}

// NewRouter wires all HTTP endpoints of the dashboard service.
func NewRouter(deps Deps) (http.Handler, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger must not be nil")
	}
	if deps.Dashboard == nil {
		return nil, errors.New("dashboard store must not be nil")
	}
	if deps.Series == nil {
		return nil, errors.New("series reader must not be nil")
	}
	if deps.Auth == nil {
		return nil, errors.New("authenticator must not be nil")
	}
	h := &api{
		log:   deps.Logger,
		store: deps.Dashboard,
		data:  deps.Series,
		auth:  deps.Auth,
	}

	r := mux.NewRouter()
	r.Handle("/health", healthLiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/live", healthLiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/ready", healthReadyHandler(deps.Health)).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/api/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", h.logout).Methods(http.MethodPost)
	r.HandleFunc("/api/dashboard", h.dashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog", h.catalog).Methods(http.MethodGet)
	r.HandleFunc("/api/variables", h.setVariables).Methods(http.MethodPut)
	r.HandleFunc("/api/variables/{id}/info", h.info).Methods(http.MethodGet)
	r.HandleFunc("/api/variables/{id}/toggle", h.toggle).Methods(http.MethodPost)
	r.HandleFunc("/api/variables/{id}/primary", h.primary).Methods(http.MethodPost)
	r.HandleFunc("/api/metric", h.metric).Methods(http.MethodPut)
	r.HandleFunc("/api/editor", h.openEditor).Methods(http.MethodPost)
	r.HandleFunc("/api/editor", h.closeEditor).Methods(http.MethodDelete)
	r.HandleFunc("/api/editor/toggle/{id}", h.toggleDraft).Methods(http.MethodPost)
	r.HandleFunc("/api/editor/reset", h.resetDraft).Methods(http.MethodPost)
	r.HandleFunc("/api/editor/save", h.saveDraft).Methods(http.MethodPost)
	r.HandleFunc("/api/scenarios/{id}/toggle", h.toggleScenario).Methods(http.MethodPost)
	r.HandleFunc("/api/hover", h.hover).Methods(http.MethodPost)
	r.HandleFunc("/api/hover", h.leave).Methods(http.MethodDelete)
	r.HandleFunc("/api/tooltip", h.tooltip).Methods(http.MethodGet)
	r.HandleFunc("/api/tooltip", h.clearTooltip).Methods(http.MethodDelete)
	r.HandleFunc("/api/load/retry", h.retry).Methods(http.MethodPost)
	r.HandleFunc("/api/load/refresh", h.refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/chart.png", h.chart).Methods(http.MethodGet)
	r.HandleFunc("/api/export.xlsx", h.workbook).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	if deps.Metrics != nil {
		r.Use(routeMetrics(deps.Metrics))
	}

	var handler http.Handler = r
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: deps.Logger}),
		handlers.PrintRecoveryStack(false),
	)(handler)
	if len(deps.AllowedOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(deps.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		)(handler)
	}
	if deps.AccessLog != nil {
		handler = handlers.LoggingHandler(deps.AccessLog, handler)
	}
	return WrapWithLogging(deps.Logger, handler), nil
}
