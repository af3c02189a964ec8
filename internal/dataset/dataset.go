// v0
// internal/dataset/dataset.go
package dataset

import (
	"errors"
	"fmt"

	"nrgchamp/dashboard/internal/catalog"
	"nrgchamp/dashboard/internal/selection"
	"nrgchamp/dashboard/internal/series"
)

var (
	// ErrMissingSeries is returned when a catalog variable has no series.
	ErrMissingSeries = errors.New("catalog variable has no series")
	// ErrInvalidDataset covers every other structural problem.
	ErrInvalidDataset = errors.New("invalid dataset")
)

// Scenario is one best-found configuration listed in the scenarios panel.
type Scenario struct {
	ID    int    `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// Dataset bundles everything the dashboard needs at boot.
type Dataset struct {
	Catalog   *catalog.Catalog
	Series    map[string][]series.Point
	Defaults  map[string]bool
	Primary   string
	Scenarios []Scenario
}

// Validate checks that every catalog variable has a series, that no series
// is unknown to the catalog, that all series share one label axis and that
// defaults only name known variables.
func (d *Dataset) Validate() error {
	if d == nil || d.Catalog == nil {
		return fmt.Errorf("no catalog: %w", ErrInvalidDataset)
	}
	for _, id := range d.Catalog.IDs() {
		if _, ok := d.Series[id]; !ok {
			return fmt.Errorf("%s: %w", id, ErrMissingSeries)
		}
	}
	for id := range d.Series {
		if !d.Catalog.Has(id) {
			return fmt.Errorf("series %q is not in the catalog: %w", id, ErrInvalidDataset)
		}
	}
	if err := series.NewStore().ReplaceAll(d.Series); err != nil {
		return err
	}
	for id := range d.Defaults {
		if !d.Catalog.Has(id) {
			return fmt.Errorf("default %q is not in the catalog: %w", id, ErrInvalidDataset)
		}
	}
	if d.Primary != "" && !d.Defaults[d.Primary] {
		return fmt.Errorf("primary %q is not active by default: %w", d.Primary, ErrInvalidDataset)
	}
	seen := make(map[int]bool, len(d.Scenarios))
	for _, sc := range d.Scenarios {
		if seen[sc.ID] {
			return fmt.Errorf("scenario %d listed twice: %w", sc.ID, ErrInvalidDataset)
		}
		seen[sc.ID] = true
	}
	return nil
}

// NewSelection seeds a selection from the catalog order and the defaults.
func (d *Dataset) NewSelection() *selection.State {
	return selection.New(d.Catalog.IDs(), d.Defaults, d.Primary)
}

// Fill swaps the dataset series into store.
func (d *Dataset) Fill(store *series.Store) error {
	return store.ReplaceAll(d.Series)
}

// SeriesCopy returns a deep copy of the series map, suitable for load sources.
func (d *Dataset) SeriesCopy() map[string][]series.Point {
	out := make(map[string][]series.Point, len(d.Series))
	for id, pts := range d.Series {
		out[id] = series.ClonePoints(pts)
	}
	return out
}
