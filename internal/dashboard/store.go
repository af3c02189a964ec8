// v0
// internal/dashboard/store.go
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"nrgchamp/dashboard/internal/catalog"
	"nrgchamp/dashboard/internal/dataset"
	"nrgchamp/dashboard/internal/events"
	"nrgchamp/dashboard/internal/load"
	"nrgchamp/dashboard/internal/selection"
	"nrgchamp/dashboard/internal/series"
	"nrgchamp/dashboard/internal/tooltip"
	"nrgchamp/dashboard/internal/view"
)

var (
	// ErrEditorClosed is returned by draft operations while the editor is closed.
	ErrEditorClosed = errors.New("variable editor is not open")
	// ErrUnknownPoint is returned when a hover names no stored point.
	ErrUnknownPoint = errors.New("unknown data point")
	// ErrNoLoader is returned by Retry and Refresh without a load controller.
	ErrNoLoader = errors.New("no data loader configured")
)

// Metric options of the chart header dropdown.
var MetricOptions = []string{"Unsatisfied Demand %", "Charging Growth Rate", "Infrastructure Utilization"}

// Loader drives the load state machine.
type Loader interface {
	Retry() error
	Refresh() error
	Status() load.Status
}

// Recorder counts dispatched actions.
type Recorder interface {
	Action(action string)
}

// Options wires a Store.
type Options struct {
	Dataset  *dataset.Dataset
	Series   *series.Store
	Loader   Loader
	Animator *tooltip.Animator
	Events   events.Sink
	Metrics  Recorder
	Logger   *slog.Logger
}

type hoverTarget struct {
	seriesID string
	point    series.Point
}

// Store is the session state of one dashboard. Every action runs under a
// single mutex, so actions are atomic with respect to each other and are
// applied in call order.
type Store struct {
	cat       *catalog.Catalog
	series    *series.Store
	loader    Loader
	animator  *tooltip.Animator
	sink      events.Sink
	rec       Recorder
	log       *slog.Logger
	scenarios []dataset.Scenario

	mu       sync.Mutex
	sel      *selection.State
	draft    *selection.State
	expanded int
	hasExp   bool
	metric   string
	hover    *hoverTarget
}

// New builds a store seeded from the dataset defaults.
func New(opts Options) (*Store, error) {
	if opts.Dataset == nil || opts.Dataset.Catalog == nil {
		return nil, errors.New("dataset must not be nil")
	}
	if opts.Series == nil {
		return nil, errors.New("series store must not be nil")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger must not be nil")
	}
	if opts.Animator == nil {
		opts.Animator = tooltip.NewAnimator(tooltip.NewTimerScheduler(tooltip.FrameInterval), tooltip.DefaultLayout(), tooltip.Size{W: 1280, H: 800})
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	scenarios := make([]dataset.Scenario, len(opts.Dataset.Scenarios))
	copy(scenarios, opts.Dataset.Scenarios)
	return &Store{
		cat:       opts.Dataset.Catalog,
		series:    opts.Series,
		loader:    opts.Loader,
		animator:  opts.Animator,
		sink:      opts.Events,
		rec:       opts.Metrics,
		log:       opts.Logger.With(slog.String("component", "dashboard")),
		scenarios: scenarios,
		sel:       opts.Dataset.NewSelection(),
		metric:    MetricOptions[0],
	}, nil
}

// Catalog returns the variable registry.
func (s *Store) Catalog() *catalog.Catalog { return s.cat }

// Accepts reports whether id may be stored as a series.
func (s *Store) Accepts(id string) bool { return s.cat.Has(id) }

// Toggle flips one variable. Unknown ids leave the state untouched.
func (s *Store) Toggle(id string) View {
	return s.dispatch("toggle", id, func(sel *selection.State) {
		sel.Toggle(id)
	})
}

// SetVariables merges patch into the active flags.
func (s *Store) SetVariables(patch map[string]bool) View {
	return s.dispatch("set_variables", "", func(sel *selection.State) {
		sel.SetMany(patch)
	})
}

// SetPrimary focuses an active variable, as a click on its KPI card does.
func (s *Store) SetPrimary(id string) View {
	return s.dispatch("set_primary", id, func(sel *selection.State) {
		sel.SetPrimary(id)
	})
}

// OpenEditor opens the variable editor with a draft of the live selection.
func (s *Store) OpenEditor() View {
	return s.dispatch("editor_open", "", func(sel *selection.State) {
		sel.SetEditorOpen(true)
		s.draft = sel.Clone()
	})
}

// CloseEditor discards the draft.
func (s *Store) CloseEditor() View {
	return s.dispatch("editor_close", "", func(sel *selection.State) {
		sel.SetEditorOpen(false)
		s.draft = nil
	})
}

// ToggleDraft flips one variable in the editor draft.
func (s *Store) ToggleDraft(id string) (View, error) {
	return s.dispatchDraft("editor_toggle", id, func(d *selection.State) { d.Toggle(id) })
}

// ResetDraft restores the default flags in the editor draft.
func (s *Store) ResetDraft() (View, error) {
	return s.dispatchDraft("editor_reset", "", func(d *selection.State) { d.Reset() })
}

// SaveDraft applies the draft to the live selection and closes the editor.
func (s *Store) SaveDraft() (View, error) {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return View{}, ErrEditorClosed
	}
	s.sel.SetMany(s.draft.Flags())
	s.sel.SetEditorOpen(false)
	s.draft = nil
	v, ev := s.afterLocked("editor_save", "")
	s.mu.Unlock()
	s.emit(ev)
	return v, nil
}

// ToggleScenario expands a scenario, or collapses it when already expanded.
// Unknown ids are ignored.
func (s *Store) ToggleScenario(id int) View {
	s.mu.Lock()
	known := false
	for _, sc := range s.scenarios {
		if sc.ID == id {
			known = true
			break
		}
	}
	if known {
		if s.hasExp && s.expanded == id {
			s.hasExp = false
		} else {
			s.expanded, s.hasExp = id, true
		}
	}
	v, ev := s.afterLocked("scenario_toggle", fmt.Sprint(id))
	s.mu.Unlock()
	s.emit(ev)
	return v
}

// SelectMetric switches the chart header dropdown. Unknown labels are ignored.
func (s *Store) SelectMetric(label string) View {
	s.mu.Lock()
	for _, m := range MetricOptions {
		if m == label {
			s.metric = label
		}
	}
	v, ev := s.afterLocked("metric_select", "")
	s.mu.Unlock()
	s.emit(ev)
	return v
}

// Search filters the catalog by name or description.
func (s *Store) Search(term string) map[catalog.Tier][]catalog.Variable {
	return s.cat.Search(term)
}

// Info returns the long-form explanation of a variable.
func (s *Store) Info(id string) string {
	return s.cat.InfoFor(id)
}

// Retry re-runs a failed load.
func (s *Store) Retry() error {
	if s.loader == nil {
		return ErrNoLoader
	}
	s.count("load_retry")
	return s.loader.Retry()
}

// Refresh reloads from ready.
func (s *Store) Refresh() error {
	if s.loader == nil {
		return ErrNoLoader
	}
	s.count("load_refresh")
	return s.loader.Refresh()
}

// View returns the derived view model.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Store) dispatch(action, variable string, fn func(*selection.State)) View {
	s.mu.Lock()
	fn(s.sel)
	v, ev := s.afterLocked(action, variable)
	s.mu.Unlock()
	s.emit(ev)
	return v
}

func (s *Store) dispatchDraft(action, variable string, fn func(*selection.State)) (View, error) {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return View{}, ErrEditorClosed
	}
	fn(s.draft)
	v, ev := s.afterLocked(action, variable)
	s.mu.Unlock()
	s.emit(ev)
	return v, nil
}

func (s *Store) afterLocked(action, variable string) (View, events.Event) {
	primary, _ := s.sel.Primary()
	active := s.sel.ActiveIDs()
	s.log.Info("dashboard_action",
		slog.String("action", action),
		slog.String("variable", variable),
		slog.String("primary", primary),
		slog.Int("active", len(active)),
	)
	return s.viewLocked(), events.Event{Type: action, Variable: variable, Primary: primary, Active: active}
}

func (s *Store) emit(ev events.Event) {
	s.count(ev.Type)
	if err := s.sink.Publish(context.Background(), ev); err != nil {
		s.log.Warn("dashboard_event_publish_err", slog.String("action", ev.Type), slog.Any("err", err))
	}
}

func (s *Store) count(action string) {
	if s.rec != nil {
		s.rec.Action(action)
	}
}

func (s *Store) viewLocked() View {
	v := View{
		KPIs:      view.ComputeKPIs(s.cat, s.sel),
		Chart:     view.ComputeChartSeries(s.series, s.sel),
		Selection: s.sel.Entries(),
		Metric:    s.metric,
		Version:   s.series.Version(),
		Editor:    EditorView{Open: s.sel.EditorOpen()},
	}
	v.Primary, _ = s.sel.Primary()
	if v.KPIs == nil {
		v.KPIs = []view.KPI{}
	}
	switch {
	case v.Primary == "":
		v.Empty = &EmptyState{Title: "No variables selected", Hint: "Select variables to view chart data"}
	case v.Chart == nil:
		v.Empty = &EmptyState{Title: "No data available", Hint: fmt.Sprintf("No series is stored for %s", v.Primary)}
	}
	if s.draft != nil {
		v.Editor.Draft = s.draft.Entries()
	}
	v.Scenarios = make([]ScenarioView, len(s.scenarios))
	for i, sc := range s.scenarios {
		v.Scenarios[i] = ScenarioView{ID: sc.ID, Title: sc.Title, Expanded: s.hasExp && s.expanded == sc.ID}
	}
	if s.loader != nil {
		v.Load = s.loader.Status()
	} else {
		v.Load = load.Status{Phase: load.PhaseReady}
	}
	return v
}
