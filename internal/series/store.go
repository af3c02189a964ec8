// v0
// internal/series/store.go
package series

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrEmptySeries is returned when a series carries no points.
	ErrEmptySeries = errors.New("series must contain at least one point")
	// ErrLabelMismatch is returned when a series does not share the label
	// axis of the series already stored.
	ErrLabelMismatch = errors.New("series labels do not match the shared axis")
	// ErrUnknownLabel is returned by point upserts for labels outside the axis.
	ErrUnknownLabel = errors.New("unknown point label")
	// ErrUnknownSeries is returned by point upserts for ids never stored.
	ErrUnknownSeries = errors.New("unknown series")
	// ErrRejectedSeries is reported for live updates the caller filtered out.
	ErrRejectedSeries = errors.New("series rejected")
)

// PointDetails carries optional operational figures shown in the tooltip.
type PointDetails struct {
	Efficiency  *float64 `json:"efficiency,omitempty" yaml:"efficiency,omitempty"`
	Utilization *float64 `json:"utilization,omitempty" yaml:"utilization,omitempty"`
	Trend       string   `json:"trend,omitempty" yaml:"trend,omitempty"`
	LastMonth   *float64 `json:"lastMonth,omitempty" yaml:"lastMonth,omitempty"`
	Incidents   *int     `json:"incidents,omitempty" yaml:"incidents,omitempty"`
}

// Point is one chart sample.
type Point struct {
	Label   string        `json:"label" yaml:"label"`
	Value   float64       `json:"value" yaml:"value"`
	Display string        `json:"display" yaml:"display"`
	Details *PointDetails `json:"details,omitempty" yaml:"details,omitempty"`
}

// Store keeps one chronological series per variable id. All series share
// the same label axis. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	series  map[string][]Point
	order   []string
	version uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{series: make(map[string][]Point)}
}

// Put stores points under id, replacing any previous series. Points are
// kept in the given order.
func (s *Store) Put(id string, points []Point) error {
	if len(points) == 0 {
		return fmt.Errorf("%s: %w", id, ErrEmptySeries)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if axis := s.axisLocked(id); axis != nil && !sameLabels(axis, points) {
		return fmt.Errorf("%s: %w", id, ErrLabelMismatch)
	}
	if _, exists := s.series[id]; !exists {
		s.order = append(s.order, id)
	}
	s.series[id] = clonePoints(points)
	s.version++
	return nil
}

// ReplaceAll swaps in a whole dataset at once. Every series must be
// non-empty and all of them must share one label axis. Ids already stored
// keep their position, new ids follow in lexical order.
func (s *Store) ReplaceAll(data map[string][]Point) error {
	if len(data) == 0 {
		return ErrEmptySeries
	}
	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var axis []Point
	for _, id := range ids {
		pts := data[id]
		if len(pts) == 0 {
			return fmt.Errorf("%s: %w", id, ErrEmptySeries)
		}
		if axis == nil {
			axis = pts
		} else if !sameLabels(axis, pts) {
			return fmt.Errorf("%s: %w", id, ErrLabelMismatch)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	order := make([]string, 0, len(ids))
	for _, id := range s.order {
		if _, ok := data[id]; ok {
			order = append(order, id)
		}
	}
	for _, id := range ids {
		if _, ok := s.series[id]; !ok {
			order = append(order, id)
		}
	}
	next := make(map[string][]Point, len(data))
	for id, pts := range data {
		next[id] = clonePoints(pts)
	}
	s.series = next
	s.order = order
	s.version++
	return nil
}

// Upsert replaces the point with the same label in series id. Details on
// the stored point are kept when p has none.
func (s *Store) Upsert(id string, p Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.series[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownSeries)
	}
	for i := range buf {
		if buf[i].Label != p.Label {
			continue
		}
		if p.Details == nil {
			p.Details = buf[i].Details
		}
		next := clonePoints(buf)
		next[i] = clonePoint(p)
		s.series[id] = next
		s.version++
		return nil
	}
	return fmt.Errorf("%s/%s: %w", id, p.Label, ErrUnknownLabel)
}

// Get returns a copy of the series stored under id.
func (s *Store) Get(id string) ([]Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.series[id]
	if !ok {
		return nil, false
	}
	return clonePoints(buf), true
}

// IDs returns series ids in first-stored order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Labels returns the shared label axis, nil when the store is empty.
func (s *Store) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil
	}
	buf := s.series[s.order[0]]
	out := make([]string, len(buf))
	for i, p := range buf {
		out[i] = p.Label
	}
	return out
}

// Version increases on every successful write.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// axisLocked returns the labels of any stored series other than id.
func (s *Store) axisLocked(id string) []Point {
	for _, other := range s.order {
		if other != id {
			return s.series[other]
		}
	}
	return nil
}

func sameLabels(axis, points []Point) bool {
	if len(axis) != len(points) {
		return false
	}
	for i := range axis {
		if axis[i].Label != points[i].Label {
			return false
		}
	}
	return true
}

// ClonePoints returns a copy of in that shares no memory with it.
func ClonePoints(in []Point) []Point {
	return clonePoints(in)
}

func clonePoints(in []Point) []Point {
	out := make([]Point, len(in))
	for i, p := range in {
		out[i] = clonePoint(p)
	}
	return out
}

func clonePoint(p Point) Point {
	if p.Details == nil {
		return p
	}
	d := *p.Details
	d.Efficiency = cloneFloat(d.Efficiency)
	d.Utilization = cloneFloat(d.Utilization)
	d.LastMonth = cloneFloat(d.LastMonth)
	if d.Incidents != nil {
		n := *d.Incidents
		d.Incidents = &n
	}
	p.Details = &d
	return p
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
