// v0
// internal/view/view_test.go
package view

import (
	"math/rand"
	"testing"

	"nrgchamp/dashboard/internal/catalog"
	"nrgchamp/dashboard/internal/selection"
	"nrgchamp/dashboard/internal/series"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Variable{
		{ID: "infrastructureUnits", Name: "Infrastructure Units", Description: "investment", Value: catalog.Text("€421.07"), Type: catalog.TypeCurrency, Tier: catalog.TierCore},
		{ID: "chargingGrowth", Name: "Charging Growth", Description: "growth", Value: catalog.Text("33.07%"), Type: catalog.TypePercentage, Tier: catalog.TierCore},
		{ID: "fleetGrowth", Name: "Fleet Growth", Description: "fleet", Value: catalog.Text("7.03%"), Type: catalog.TypePercentage, Tier: catalog.TierExtended},
		{ID: "customMetric", Name: "Custom", Description: "custom", Value: catalog.Number(3), Type: catalog.TypeCount, Tier: catalog.TierExtended},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func testStore(t *testing.T) *series.Store {
	t.Helper()
	s := series.NewStore()
	for _, id := range []string{"infrastructureUnits", "chargingGrowth", "customMetric"} {
		if err := s.Put(id, []series.Point{{Label: "Apr", Value: 1}, {Label: "May", Value: 2}}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	return s
}

func TestComputeKPIsFollowsSelectionOrder(t *testing.T) {
	c := testCatalog(t)
	// ghost is active but absent from the catalog.
	sel := selection.New([]string{"fleetGrowth", "ghost", "infrastructureUnits"},
		map[string]bool{"fleetGrowth": true, "ghost": true, "infrastructureUnits": true}, "infrastructureUnits")

	kpis := ComputeKPIs(c, sel)
	if len(kpis) != 2 {
		t.Fatalf("expected 2 KPIs, got %+v", kpis)
	}
	if kpis[0].VariableID != "fleetGrowth" || kpis[1].VariableID != "infrastructureUnits" {
		t.Fatalf("unexpected order %+v", kpis)
	}
	if kpis[0].IsPrimary || !kpis[1].IsPrimary {
		t.Fatalf("unexpected primary flags %+v", kpis)
	}
	if kpis[1].Title != "Infrastructure Units" || kpis[1].Subtitle != "investment" || kpis[1].Value.String() != "€421.07" || kpis[1].Type != catalog.TypeCurrency {
		t.Fatalf("unexpected card %+v", kpis[1])
	}
}

func TestComputeKPIsEmptyWhenNothingActive(t *testing.T) {
	sel := selection.New(testCatalog(t).IDs(), nil, "")
	if kpis := ComputeKPIs(testCatalog(t), sel); len(kpis) != 0 {
		t.Fatalf("expected no KPIs, got %+v", kpis)
	}
}

func TestComputeKPIsProperties(t *testing.T) {
	c := testCatalog(t)
	ids := c.IDs()
	rng := rand.New(rand.NewSource(3))
	for run := 0; run < 200; run++ {
		sel := selection.New(ids, nil, "")
		for i := 0; i < rng.Intn(12); i++ {
			sel.Toggle(ids[rng.Intn(len(ids))])
		}
		kpis := ComputeKPIs(c, sel)
		if len(kpis) != len(sel.ActiveIDs()) {
			t.Fatalf("expected %d KPIs, got %d", len(sel.ActiveIDs()), len(kpis))
		}
		primaries := 0
		for _, k := range kpis {
			if k.IsPrimary {
				primaries++
			}
		}
		if primaries > 1 {
			t.Fatalf("more than one primary card: %+v", kpis)
		}
	}
}

func TestComputeChartSeries(t *testing.T) {
	store := testStore(t)
	ids := []string{"infrastructureUnits", "chargingGrowth", "fleetGrowth", "customMetric"}

	cases := []struct {
		name    string
		active  map[string]bool
		primary string
		wantNil bool
		color   string
		label   string
	}{
		{name: "no primary", active: nil, wantNil: true},
		{name: "missing series", active: map[string]bool{"fleetGrowth": true}, primary: "fleetGrowth", wantNil: true},
		{name: "known id", active: map[string]bool{"chargingGrowth": true}, primary: "chargingGrowth", color: "#ff6b6b", label: "Charging Growth"},
		{name: "unknown presentation", active: map[string]bool{"customMetric": true}, primary: "customMetric", color: UnknownPresentation.Color, label: "Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sel := selection.New(ids, tc.active, tc.primary)
			got := ComputeChartSeries(store, sel)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("expected nil chart, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected chart")
			}
			if got.ID != tc.primary || got.Color != tc.color || got.Name != tc.label {
				t.Fatalf("unexpected chart %+v", got)
			}
			want, _ := store.Get(tc.primary)
			if len(got.Data) != len(want) {
				t.Fatalf("data length mismatch")
			}
			for i := range want {
				if got.Data[i] != want[i] {
					t.Fatalf("data mismatch at %d: %+v vs %+v", i, got.Data[i], want[i])
				}
			}
		})
	}
}

func TestPresentationTableCoversDefaults(t *testing.T) {
	want := map[string]string{
		"infrastructureUnits": "#9acd32",
		"chargingGrowth":      "#ff6b6b",
		"localizationChange":  "#4ecdc4",
		"fleetGrowth":         "#ffd93d",
		"chargingStations":    "#ff9f43",
		"energyConsumption":   "#a55eea",
	}
	for id, color := range want {
		if got := PresentationFor(id).Color; got != color {
			t.Fatalf("%s: expected %s, got %s", id, color, got)
		}
	}
}
