// v0
// internal/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Tier groups variables in the catalog listing. It is unrelated to the
// primary variable of a selection.
type Tier string

const (
	// TierCore lists the headline variables shown first in the editor.
	TierCore Tier = "core"
	// TierExtended lists the supporting variables.
	TierExtended Tier = "extended"
)

// ValueType tags how a variable's snapshot should be read.
type ValueType string

const (
	TypeCurrency   ValueType = "currency"
	TypePercentage ValueType = "percentage"
	TypeCount      ValueType = "count"
	TypeEnergy     ValueType = "energy"
)

var (
	// ErrDuplicateVariable is returned when two variables share an id.
	ErrDuplicateVariable = errors.New("duplicate variable id")
	// ErrInvalidVariable is returned for variables missing required fields.
	ErrInvalidVariable = errors.New("invalid variable")
)

// Snapshot is the value shown on a KPI card. It is either a number or a
// pre-formatted string.
type Snapshot struct {
	Text    string
	Number  float64
	Numeric bool
}

// Text builds a pre-formatted snapshot.
func Text(s string) Snapshot { return Snapshot{Text: s} }

// Number builds a numeric snapshot.
func Number(v float64) Snapshot { return Snapshot{Number: v, Numeric: true} }

// String renders the snapshot for display.
func (s Snapshot) String() string {
	if s.Numeric {
		return strconv.FormatFloat(s.Number, 'f', -1, 64)
	}
	return s.Text
}

// MarshalJSON keeps numbers as JSON numbers and text as strings.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.Numeric {
		return json.Marshal(s.Number)
	}
	return json.Marshal(s.Text)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (s *Snapshot) UnmarshalJSON(raw []byte) error {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		*s = Number(n)
		return nil
	}
	var txt string
	if err := json.Unmarshal(raw, &txt); err != nil {
		return fmt.Errorf("snapshot must be a number or string: %w", err)
	}
	*s = Text(txt)
	return nil
}

// Variable is one selectable metric.
type Variable struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Value       Snapshot  `json:"value"`
	Type        ValueType `json:"type"`
	Tier        Tier      `json:"tier"`
	Info        string    `json:"info,omitempty"`
}

// DefaultInfo is shown for variables without a long-form explanation.
const DefaultInfo = "Information about this variable's impact on charging station operations and analysis."

// Catalog is the immutable registry of known variables. Iteration order is
// core tier first, then extended, each in declaration order.
type Catalog struct {
	vars  []Variable
	index map[string]int
}

// New validates the supplied variables and builds a catalog.
func New(vars []Variable) (*Catalog, error) {
	ordered := make([]Variable, 0, len(vars))
	for _, tier := range []Tier{TierCore, TierExtended} {
		for _, v := range vars {
			if v.Tier == tier {
				ordered = append(ordered, v)
			}
		}
	}
	if len(ordered) != len(vars) {
		for _, v := range vars {
			if v.Tier != TierCore && v.Tier != TierExtended {
				return nil, fmt.Errorf("variable %q has unknown tier %q: %w", v.ID, v.Tier, ErrInvalidVariable)
			}
		}
	}

	index := make(map[string]int, len(ordered))
	for i, v := range ordered {
		if strings.TrimSpace(v.ID) == "" {
			return nil, fmt.Errorf("variable at position %d has no id: %w", i, ErrInvalidVariable)
		}
		if strings.TrimSpace(v.Name) == "" {
			return nil, fmt.Errorf("variable %q has no name: %w", v.ID, ErrInvalidVariable)
		}
		if _, exists := index[v.ID]; exists {
			return nil, fmt.Errorf("%s: %w", v.ID, ErrDuplicateVariable)
		}
		index[v.ID] = i
	}
	return &Catalog{vars: ordered, index: index}, nil
}

// Lookup returns the variable registered under id.
func (c *Catalog) Lookup(id string) (Variable, bool) {
	if c == nil {
		return Variable{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Variable{}, false
	}
	return c.vars[i], true
}

// Has reports whether id is part of the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.Lookup(id)
	return ok
}

// All returns a copy of every variable in catalog order.
func (c *Catalog) All() []Variable {
	if c == nil {
		return nil
	}
	out := make([]Variable, len(c.vars))
	copy(out, c.vars)
	return out
}

// IDs returns variable ids in catalog order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.vars))
	for i, v := range c.vars {
		out[i] = v.ID
	}
	return out
}

// ByTier returns the variables of one tier in catalog order.
func (c *Catalog) ByTier(t Tier) []Variable {
	var out []Variable
	for _, v := range c.All() {
		if v.Tier == t {
			out = append(out, v)
		}
	}
	return out
}

// Search filters variables whose name or description contains term,
// case-insensitively. Tiers without matches are omitted.
func (c *Catalog) Search(term string) map[Tier][]Variable {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make(map[Tier][]Variable)
	for _, v := range c.All() {
		if needle != "" &&
			!strings.Contains(strings.ToLower(v.Name), needle) &&
			!strings.Contains(strings.ToLower(v.Description), needle) {
			continue
		}
		out[v.Tier] = append(out[v.Tier], v)
	}
	return out
}

// InfoFor returns the long-form explanation of a variable, falling back to
// DefaultInfo for unknown ids or variables without one.
func (c *Catalog) InfoFor(id string) string {
	v, ok := c.Lookup(id)
	if !ok || strings.TrimSpace(v.Info) == "" {
		return DefaultInfo
	}
	return v.Info
}
