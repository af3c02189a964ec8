// v0
// internal/dashboard/view.go
package dashboard

import (
	"nrgchamp/dashboard/internal/load"
	"nrgchamp/dashboard/internal/selection"
	"nrgchamp/dashboard/internal/tooltip"
	"nrgchamp/dashboard/internal/view"
)

// View is everything a client needs to render the dashboard.
type View struct {
	KPIs      []view.KPI        `json:"kpis"`
	Chart     *view.ChartSeries `json:"chart"`
	Empty     *EmptyState       `json:"empty,omitempty"`
	Primary   string            `json:"primary"`
	Selection []selection.Entry `json:"selection"`
	Metric    string            `json:"metric"`
	Scenarios []ScenarioView    `json:"scenarios"`
	Editor    EditorView        `json:"editor"`
	Load      load.Status       `json:"load"`
	Version   uint64            `json:"version"`
}

// EmptyState replaces the chart when there is nothing to draw.
type EmptyState struct {
	Title string `json:"title"`
	Hint  string `json:"hint"`
}

// ScenarioView is one row of the scenarios accordion.
type ScenarioView struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Expanded bool   `json:"expanded"`
}

// EditorView reports whether the editor is open and its draft order.
type EditorView struct {
	Open  bool              `json:"open"`
	Draft []selection.Entry `json:"draft,omitempty"`
}

// TooltipView is the hovered point with its animation state.
type TooltipView struct {
	SeriesID string           `json:"seriesId,omitempty"`
	State    tooltip.Snapshot `json:"state"`
	Details  *tooltip.Details `json:"details,omitempty"`
}
