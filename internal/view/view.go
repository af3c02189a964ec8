// v0
// internal/view/view.go
package view

import (
	"nrgchamp/dashboard/internal/catalog"
	"nrgchamp/dashboard/internal/selection"
	"nrgchamp/dashboard/internal/series"
)

// KPI is one summary card.
type KPI struct {
	VariableID string            `json:"variableId"`
	Title      string            `json:"title"`
	Subtitle   string            `json:"subtitle"`
	Value      catalog.Snapshot  `json:"value"`
	Type       catalog.ValueType `json:"type"`
	IsPrimary  bool              `json:"isPrimary"`
}

// ChartSeries is the render-ready primary chart.
type ChartSeries struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Color string         `json:"color"`
	Data  []series.Point `json:"data"`
}

// Presentation is the chart styling of one variable.
type Presentation struct {
	Color string `json:"color"`
	Name  string `json:"name"`
}

// UnknownPresentation styles ids missing from the presentation table.
var UnknownPresentation = Presentation{Color: "#808080", Name: "Unknown"}

var presentations = map[string]Presentation{
	"infrastructureUnits": {Color: "#9acd32", Name: "Infrastructure Units"},
	"chargingGrowth":      {Color: "#ff6b6b", Name: "Charging Growth"},
	"localizationChange":  {Color: "#4ecdc4", Name: "Localization Change"},
	"fleetGrowth":         {Color: "#ffd93d", Name: "Fleet Growth"},
	"chargingStations":    {Color: "#ff9f43", Name: "Charging Stations"},
	"energyConsumption":   {Color: "#a55eea", Name: "Energy Consumption"},
}

// PresentationFor returns the chart styling of id.
func PresentationFor(id string) Presentation {
	if p, ok := presentations[id]; ok {
		return p
	}
	return UnknownPresentation
}

// Source is the read side of the series store.
type Source interface {
	Get(id string) ([]series.Point, bool)
}

// ComputeKPIs returns one card per active variable in selection order.
// Active ids missing from the catalog are skipped.
func ComputeKPIs(c *catalog.Catalog, sel *selection.State) []KPI {
	primary, _ := sel.Primary()
	active := sel.ActiveIDs()
	out := make([]KPI, 0, len(active))
	for _, id := range active {
		v, ok := c.Lookup(id)
		if !ok {
			continue
		}
		out = append(out, KPI{
			VariableID: v.ID,
			Title:      v.Name,
			Subtitle:   v.Description,
			Value:      v.Value,
			Type:       v.Type,
			IsPrimary:  v.ID == primary,
		})
	}
	return out
}

// ComputeChartSeries returns the chart of the primary variable, nil when
// there is no primary or no series stored for it.
func ComputeChartSeries(src Source, sel *selection.State) *ChartSeries {
	primary, ok := sel.Primary()
	if !ok {
		return nil
	}
	data, ok := src.Get(primary)
	if !ok || len(data) == 0 {
		return nil
	}
	p := PresentationFor(primary)
	return &ChartSeries{ID: primary, Name: p.Name, Color: p.Color, Data: data}
}
