// v0
// internal/dataset/file.go
package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nrgchamp/dashboard/internal/catalog"
	"nrgchamp/dashboard/internal/series"
)

type fileVariable struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Value       any               `yaml:"value"`
	Type        catalog.ValueType `yaml:"type"`
	Tier        catalog.Tier      `yaml:"tier"`
	Info        string            `yaml:"info"`
}

type fileDataset struct {
	Variables []fileVariable            `yaml:"variables"`
	Series    map[string][]series.Point `yaml:"series"`
	Defaults  []string                  `yaml:"defaults"`
	Primary   string                    `yaml:"primary"`
	Scenarios []Scenario                `yaml:"scenarios"`
}

// LoadFile reads and validates a YAML dataset.
//
//	variables:
//	  - {id: siteCount, name: Sites, tier: core, type: count, value: "12 sites"}
//	series:
//	  siteCount: [{label: Apr, value: 10, display: "10 sites"}]
//	defaults: [siteCount]
//	primary: siteCount
func LoadFile(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return d, nil
}

// Parse decodes and validates a YAML dataset.
func Parse(raw []byte) (*Dataset, error) {
	var f fileDataset
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode: %v: %w", err, ErrInvalidDataset)
	}
	vars := make([]catalog.Variable, 0, len(f.Variables))
	for _, fv := range f.Variables {
		val, err := snapshotOf(fv.Value)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", fv.ID, err)
		}
		vars = append(vars, catalog.Variable{
			ID: fv.ID, Name: fv.Name, Description: fv.Description,
			Value: val, Type: fv.Type, Tier: fv.Tier, Info: fv.Info,
		})
	}
	cat, err := catalog.New(vars)
	if err != nil {
		return nil, err
	}
	defaults := make(map[string]bool, len(f.Defaults))
	for _, id := range f.Defaults {
		defaults[id] = true
	}
	d := &Dataset{
		Catalog:   cat,
		Series:    f.Series,
		Defaults:  defaults,
		Primary:   f.Primary,
		Scenarios: f.Scenarios,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func snapshotOf(v any) (catalog.Snapshot, error) {
	switch x := v.(type) {
	case nil:
		return catalog.Text(""), nil
	case string:
		return catalog.Text(x), nil
	case int:
		return catalog.Number(float64(x)), nil
	case int64:
		return catalog.Number(float64(x)), nil
	case float64:
		return catalog.Number(x), nil
	default:
		return catalog.Snapshot{}, fmt.Errorf("value must be a number or string, got %T: %w", v, ErrInvalidDataset)
	}
}
