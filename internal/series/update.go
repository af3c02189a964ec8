// v0
// internal/series/update.go
package series

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Update is a live change to one series: either a full replacement
// (Points) or a single point keyed by label (Point).
type Update struct {
	SeriesID string  `json:"seriesId"`
	Points   []Point `json:"points,omitempty"`
	Point    *Point  `json:"point,omitempty"`
}

// Kind names the update shape for logs and metrics.
func (u Update) Kind() string {
	if u.Point != nil {
		return "point"
	}
	return "replace"
}

// DecodeUpdate parses a live update payload. Unknown fields are ignored.
func DecodeUpdate(raw []byte) (Update, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var u Update
	if err := dec.Decode(&u); err != nil {
		return Update{}, fmt.Errorf("decode series update: %w", err)
	}
	u.SeriesID = strings.TrimSpace(u.SeriesID)
	if u.SeriesID == "" {
		return Update{}, errors.New("seriesId missing or empty")
	}
	switch {
	case u.Point != nil && len(u.Points) > 0:
		return Update{}, errors.New("update carries both point and points")
	case u.Point == nil && len(u.Points) == 0:
		return Update{}, fmt.Errorf("%s: %w", u.SeriesID, ErrEmptySeries)
	case u.Point != nil && strings.TrimSpace(u.Point.Label) == "":
		return Update{}, errors.New("point label missing")
	}
	return u, nil
}

// Apply writes u into the store.
func (s *Store) Apply(u Update) error {
	if u.Point != nil {
		return s.Upsert(u.SeriesID, *u.Point)
	}
	return s.Put(u.SeriesID, u.Points)
}
