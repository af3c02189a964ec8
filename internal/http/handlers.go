// v0
// internal/http/handlers.go
package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"nrgchamp/dashboard/internal/auth"
	"nrgchamp/dashboard/internal/catalog"
	"nrgchamp/dashboard/internal/dashboard"
	"nrgchamp/dashboard/internal/export"
	"nrgchamp/dashboard/internal/load"
	"nrgchamp/dashboard/internal/tooltip"
)

const maxBodyBytes = 1 << 16

type api struct {
	log   *slog.Logger
	store *dashboard.Store
	data  export.SeriesReader
	auth  *auth.Authenticator
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type catalogResponse struct {
	Query string                              `json:"query,omitempty"`
	Tiers map[catalog.Tier][]catalog.Variable `json:"tiers"`
}

type infoResponse struct {
	ID   string `json:"id"`
	Info string `json:"info"`
}

type metricRequest struct {
	Metric string `json:"metric"`
}

type hoverRequest struct {
	SeriesID string        `json:"seriesId"`
	Label    string        `json:"label"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Viewport *tooltip.Size `json:"viewport,omitempty"`
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	sess, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.log.Info("login_rejected", slog.String("email", strings.TrimSpace(req.Email)))
			writeError(w, http.StatusUnauthorized, a.auth.Hint())
			return
		}
		a.fail(w, err)
		return
	}
	a.log.Info("login_succeeded", slog.String("email", sess.Email))
	a.writeJSON(w, http.StatusOK, sess)
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing bearer token")
		return
	}
	a.auth.Logout(token)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) dashboard(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.View())
}

func (a *api) catalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	a.writeJSON(w, http.StatusOK, catalogResponse{Query: q, Tiers: a.store.Search(q)})
}

func (a *api) info(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !a.store.Catalog().Has(id) {
		writeError(w, http.StatusNotFound, "unknown variable "+id)
		return
	}
	a.writeJSON(w, http.StatusOK, infoResponse{ID: id, Info: a.store.Info(id)})
}

func (a *api) toggle(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.Toggle(mux.Vars(r)["id"]))
}

func (a *api) primary(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.SetPrimary(mux.Vars(r)["id"]))
}

func (a *api) setVariables(w http.ResponseWriter, r *http.Request) {
	var patch map[string]bool
	if !a.decode(w, r, &patch) {
		return
	}
	a.writeJSON(w, http.StatusOK, a.store.SetVariables(patch))
}

func (a *api) metric(w http.ResponseWriter, r *http.Request) {
	var req metricRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.writeJSON(w, http.StatusOK, a.store.SelectMetric(req.Metric))
}

func (a *api) openEditor(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.OpenEditor())
}

func (a *api) closeEditor(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.CloseEditor())
}

func (a *api) toggleDraft(w http.ResponseWriter, r *http.Request) {
	a.respond(w, http.StatusOK)(a.store.ToggleDraft(mux.Vars(r)["id"]))
}

func (a *api) resetDraft(w http.ResponseWriter, r *http.Request) {
	a.respond(w, http.StatusOK)(a.store.ResetDraft())
}

func (a *api) saveDraft(w http.ResponseWriter, r *http.Request) {
	a.respond(w, http.StatusOK)(a.store.SaveDraft())
}

func (a *api) toggleScenario(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "scenario id must be an integer")
		return
	}
	a.writeJSON(w, http.StatusOK, a.store.ToggleScenario(id))
}

func (a *api) hover(w http.ResponseWriter, r *http.Request) {
	var req hoverRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	if req.SeriesID == "" {
		req.SeriesID = a.store.View().Primary
	}
	if req.Viewport != nil {
		if req.Viewport.W <= 0 || req.Viewport.H <= 0 {
			writeError(w, http.StatusBadRequest, "viewport must be positive")
			return
		}
		a.store.SetViewport(*req.Viewport)
	}
	tv, err := a.store.Hover(req.SeriesID, req.Label, tooltip.Point{X: req.X, Y: req.Y})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, tv)
}

func (a *api) leave(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.Leave())
}

func (a *api) tooltip(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.Tooltip())
}

func (a *api) clearTooltip(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.ClearTooltip())
}

func (a *api) retry(w http.ResponseWriter, r *http.Request) {
	a.loadAction(w, a.store.Retry)
}

func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	a.loadAction(w, a.store.Refresh)
}

func (a *api) loadAction(w http.ResponseWriter, fn func() error) {
	if err := fn(); err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusAccepted, a.store.View())
}

func (a *api) chart(w http.ResponseWriter, r *http.Request) {
	width, err := queryInt(r, "width")
	if err != nil {
		writeError(w, http.StatusBadRequest, "width must be an integer")
		return
	}
	height, err := queryInt(r, "height")
	if err != nil {
		writeError(w, http.StatusBadRequest, "height must be an integer")
		return
	}
	var buf bytes.Buffer
	if err := export.RenderChart(&buf, a.store.View().Chart, width, height); err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *api) workbook(w http.ResponseWriter, r *http.Request) {
	v := a.store.View()
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, v.KPIs, export.Tables(a.store.Catalog(), a.data)); err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (a *api) respond(w http.ResponseWriter, status int) func(dashboard.View, error) {
	return func(v dashboard.View, err error) {
		if err != nil {
			a.fail(w, err)
			return
		}
		a.writeJSON(w, status, v)
	}
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (a *api) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("http_handler_failed", slog.Any("err", err))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrEditorClosed), errors.Is(err, load.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrUnknownPoint), errors.Is(err, export.ErrNoChart):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrNoLoader):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *api) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Error("response_encode_failed", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
