// v0
// internal/series/store_test.go
package series

import (
	"errors"
	"testing"
)

func months(values ...float64) []Point {
	labels := []string{"Apr", "May", "Jun"}
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{Label: labels[i], Value: v}
	}
	return out
}

func TestStorePutAndGetCopies(t *testing.T) {
	s := NewStore()
	if err := s.Put("infrastructureUnits", months(1, 2, 3)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok := s.Get("infrastructureUnits")
	if !ok || len(got) != 3 || got[2].Value != 3 {
		t.Fatalf("unexpected series %+v", got)
	}
	got[0].Value = 99
	again, _ := s.Get("infrastructureUnits")
	if again[0].Value != 1 {
		t.Fatalf("Get must return a copy")
	}
	if _, ok := s.Get("fleetGrowth"); ok {
		t.Fatalf("expected missing series")
	}
}

func TestStoreRejectsEmptyAndMismatchedSeries(t *testing.T) {
	s := NewStore()
	if err := s.Put("a", nil); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
	if err := s.Put("a", months(1, 2, 3)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put("b", months(1, 2)); !errors.Is(err, ErrLabelMismatch) {
		t.Fatalf("expected ErrLabelMismatch, got %v", err)
	}
	// The only stored series may change its own axis.
	if err := s.Put("a", months(4, 5)); err != nil {
		t.Fatalf("replacing the sole series should pass: %v", err)
	}
	if got := s.Labels(); len(got) != 2 || got[1] != "May" {
		t.Fatalf("unexpected labels %v", got)
	}
}

func TestStoreUpsertByLabel(t *testing.T) {
	s := NewStore()
	eff := 92.0
	pts := months(1, 2, 3)
	pts[1].Details = &PointDetails{Efficiency: &eff}
	if err := s.Put("a", pts); err != nil {
		t.Fatalf("put: %v", err)
	}
	before := s.Version()

	if err := s.Upsert("a", Point{Label: "May", Value: 20, Display: "20"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ := s.Get("a")
	if got[1].Value != 20 || got[1].Display != "20" {
		t.Fatalf("point not replaced: %+v", got[1])
	}
	if got[1].Details == nil || *got[1].Details.Efficiency != 92 {
		t.Fatalf("details should be kept: %+v", got[1].Details)
	}
	if s.Version() != before+1 {
		t.Fatalf("expected version bump")
	}

	if err := s.Upsert("a", Point{Label: "Nov"}); !errors.Is(err, ErrUnknownLabel) {
		t.Fatalf("expected ErrUnknownLabel, got %v", err)
	}
	if err := s.Upsert("zzz", Point{Label: "Apr"}); !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("expected ErrUnknownSeries, got %v", err)
	}
}

func TestStoreIDsKeepInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"c", "a", "b", "a"} {
		if err := s.Put(id, months(1)); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	ids := s.IDs()
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestDecodeUpdate(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		kind    string
		wantErr bool
	}{
		{name: "replace", raw: `{"seriesId":"a","points":[{"label":"Apr","value":1,"display":"1"}]}`, kind: "replace"},
		{name: "point", raw: `{"seriesId":" a ","point":{"label":"Apr","value":2},"extra":true}`, kind: "point"},
		{name: "missing id", raw: `{"points":[{"label":"Apr"}]}`, wantErr: true},
		{name: "empty", raw: `{"seriesId":"a"}`, wantErr: true},
		{name: "both", raw: `{"seriesId":"a","point":{"label":"Apr"},"points":[{"label":"Apr"}]}`, wantErr: true},
		{name: "blank label", raw: `{"seriesId":"a","point":{"label":" "}}`, wantErr: true},
		{name: "garbage", raw: `not json`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := DecodeUpdate([]byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", u)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.SeriesID != "a" || u.Kind() != tc.kind {
				t.Fatalf("unexpected update %+v", u)
			}
		})
	}
}

func TestStoreReplaceAll(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"b", "a"} {
		if err := s.Put(id, months(1, 2, 3)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	err := s.ReplaceAll(map[string][]Point{"a": months(1, 2), "c": months(3, 4), "b": months(5, 6)})
	if err != nil {
		t.Fatalf("replace all: %v", err)
	}
	ids := s.IDs()
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "a" || ids[2] != "c" {
		t.Fatalf("unexpected order %v", ids)
	}
	if got := s.Labels(); len(got) != 2 {
		t.Fatalf("expected new axis, got %v", got)
	}

	err = s.ReplaceAll(map[string][]Point{"a": months(1, 2), "b": months(1)})
	if !errors.Is(err, ErrLabelMismatch) {
		t.Fatalf("expected ErrLabelMismatch, got %v", err)
	}
	if len(s.IDs()) != 3 {
		t.Fatalf("failed replace must not change the store")
	}
}
