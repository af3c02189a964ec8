// v0
// internal/dataset/builtin.go
package dataset

import (
	"nrgchamp/dashboard/internal/catalog"
	"nrgchamp/dashboard/internal/series"
)

// Months is the shared label axis of the built-in series.
var Months = []string{"Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct"}

var builtinVariables = []catalog.Variable{
	{
		ID: "infrastructureUnits", Name: "Infrastructure Units", Tier: catalog.TierCore,
		Description: "Total infrastructure investment units across all charging stations",
		Value:       catalog.Text("€421.07"), Type: catalog.TypeCurrency,
		Info: "Measures the total investment in charging infrastructure including hardware, installation, and maintenance costs. This directly affects the baseline capacity and operational efficiency of the charging network.",
	},
	{
		ID: "chargingGrowth", Name: "Charging Growth", Tier: catalog.TierCore,
		Description: "Monthly charging station growth rate and expansion metrics",
		Value:       catalog.Text("33.07%"), Type: catalog.TypePercentage,
		Info: "Tracks the month-over-month growth rate in charging sessions and station utilization. Higher growth rates indicate successful market adoption and may require additional infrastructure planning.",
	},
	{
		ID: "chargingStations", Name: "Charging Stations", Tier: catalog.TierCore,
		Description: "Total number of active charging stations in the network",
		Value:       catalog.Text("48 units"), Type: catalog.TypeCount,
		Info: "Total count of operational charging stations across all service areas. This metric affects network density calculations and coverage analysis.",
	},
	{
		ID: "localizationChange", Name: "Localization Change", Tier: catalog.TierExtended,
		Description: "Geographic distribution changes and regional deployment shifts",
		Value:       catalog.Text("21.9%"), Type: catalog.TypePercentage,
		Info: "Analyzes geographic distribution shifts in charging demand. This helps identify emerging markets and optimize station placement for maximum coverage and efficiency.",
	},
	{
		ID: "fleetGrowth", Name: "Fleet Growth", Tier: catalog.TierExtended,
		Description: "Electric vehicle fleet expansion and adoption rates",
		Value:       catalog.Text("7.03%"), Type: catalog.TypePercentage,
		Info: "Monitors electric vehicle fleet expansion rates in the service area. Fleet growth directly correlates with future charging demand and infrastructure requirements.",
	},
	{
		ID: "energyConsumption", Name: "Energy Consumption", Tier: catalog.TierExtended,
		Description: "Total energy consumption metrics and efficiency tracking",
		Value:       catalog.Text("1,234 kWh"), Type: catalog.TypeEnergy,
		Info: "Measures total energy consumed across all charging sessions. This data is crucial for cost calculations, grid planning, and sustainability metrics.",
	},
}

type rawSeries struct {
	values  []float64
	display []string
}

var builtinSeries = map[string]rawSeries{
	"infrastructureUnits": {
		values:  []float64{20000, 45000, 40000, 90000, 60000, 30000, 55000},
		display: []string{"€320.45", "€421.07", "€385.23", "€567.89", "€445.12", "€298.76", "€434.55"},
	},
	"chargingGrowth": {
		values:  []float64{15000, 25000, 30000, 45000, 38000, 20000, 35000},
		display: []string{"25.5%", "33.07%", "42.1%", "55.8%", "48.3%", "28.9%", "44.2%"},
	},
	"localizationChange": {
		values:  []float64{8000, 15000, 22000, 35000, 28000, 15000, 25000},
		display: []string{"12.3%", "21.9%", "31.2%", "45.7%", "38.4%", "23.1%", "34.8%"},
	},
	"fleetGrowth": {
		values:  []float64{12000, 18000, 25000, 40000, 32000, 18000, 30000},
		display: []string{"5.2%", "7.03%", "9.8%", "15.2%", "12.7%", "7.9%", "11.4%"},
	},
	"chargingStations": {
		values:  []float64{35000, 42000, 38000, 52000, 48000, 40000, 50000},
		display: []string{"42 units", "48 units", "45 units", "58 units", "52 units", "46 units", "55 units"},
	},
	"energyConsumption": {
		values:  []float64{18000, 28000, 32000, 48000, 35000, 25000, 38000},
		display: []string{"980 kWh", "1,234 kWh", "1,456 kWh", "2,103 kWh", "1,678 kWh", "1,145 kWh", "1,789 kWh"},
	},
}

// operational figures per month: efficiency, utilization, incidents
type opsRow struct {
	efficiency  float64
	utilization float64
	incidents   int
}

var builtinOps = map[string][]opsRow{
	"infrastructureUnits": {
		{82, 64, 2}, {88, 78, 1}, {85, 74, 3}, {93, 97, 1}, {89, 86, 2}, {76, 61, 5}, {91, 83, 1},
	},
	"chargingStations": {
		{84, 70, 2}, {87, 76, 2}, {83, 72, 4}, {92, 96, 1}, {90, 91, 2}, {79, 68, 4}, {88, 85, 1},
	},
}

var builtinScenarios = []Scenario{
	{ID: 1, Title: "The best found configuration based on profit is characterized by 11 zones (max) with charging stations and 48 total number of poles."},
	{ID: 2, Title: "The best found configuration based on satisfied demand is characterized by 11 zones (max) with charging stations and 48 total number of poles."},
}

// Default returns the built-in dataset. Infrastructure units and charging
// growth start active with infrastructure units as primary.
func Default() *Dataset {
	cat, err := catalog.New(builtinVariables)
	if err != nil {
		panic("dataset: built-in catalog is invalid: " + err.Error())
	}
	data := make(map[string][]series.Point, len(builtinSeries))
	for id, raw := range builtinSeries {
		pts := make([]series.Point, len(Months))
		for i, label := range Months {
			pts[i] = series.Point{Label: label, Value: raw.values[i], Display: raw.display[i]}
		}
		if ops, ok := builtinOps[id]; ok {
			attachDetails(pts, ops)
		}
		data[id] = pts
	}
	scenarios := make([]Scenario, len(builtinScenarios))
	copy(scenarios, builtinScenarios)
	return &Dataset{
		Catalog:   cat,
		Series:    data,
		Defaults:  map[string]bool{"infrastructureUnits": true, "chargingGrowth": true},
		Primary:   "infrastructureUnits",
		Scenarios: scenarios,
	}
}

func attachDetails(pts []series.Point, ops []opsRow) {
	for i := range pts {
		if i >= len(ops) {
			return
		}
		row := ops[i]
		eff, util, inc := row.efficiency, row.utilization, row.incidents
		det := &series.PointDetails{Efficiency: &eff, Utilization: &util, Incidents: &inc, Trend: "stable"}
		if i > 0 {
			prev := pts[i-1].Value
			det.LastMonth = &prev
			switch {
			case pts[i].Value > prev:
				det.Trend = "increasing"
			case pts[i].Value < prev:
				det.Trend = "decreasing"
			}
		}
		pts[i].Details = det
	}
}
