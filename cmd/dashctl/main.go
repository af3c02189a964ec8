// v0
// cmd/dashctl/main.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nrgchamp/dashboard/internal/dataset"
	"nrgchamp/dashboard/internal/export"
	"nrgchamp/dashboard/internal/selection"
	"nrgchamp/dashboard/internal/series"
	"nrgchamp/dashboard/internal/view"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// selectionFlags pick the dataset and the active variables of one command.
type selectionFlags struct {
	datasetPath string
	variables   []string
	primary     string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.datasetPath, "dataset", "d", "", "YAML dataset (default: built-in)")
	cmd.Flags().StringSliceVar(&f.variables, "variables", nil, "Active variable ids (default: dataset defaults)")
	cmd.Flags().StringVar(&f.primary, "primary", "", "Primary variable id")
}

func (f *selectionFlags) resolve() (*dataset.Dataset, *selection.State, error) {
	ds, err := loadDataset(f.datasetPath)
	if err != nil {
		return nil, nil, err
	}
	sel := ds.NewSelection()
	if len(f.variables) > 0 {
		patch := make(map[string]bool)
		for _, id := range ds.Catalog.IDs() {
			patch[id] = false
		}
		for _, id := range f.variables {
			id = strings.TrimSpace(id)
			if !ds.Catalog.Has(id) {
				return nil, nil, fmt.Errorf("unknown variable %q", id)
			}
			patch[id] = true
		}
		sel.SetMany(patch)
	}
	if f.primary != "" {
		if !sel.IsActive(f.primary) {
			return nil, nil, fmt.Errorf("primary %q is not an active variable", f.primary)
		}
		sel.SetPrimary(f.primary)
	}
	return ds, sel, nil
}

func loadDataset(path string) (*dataset.Dataset, error) {
	if path == "" {
		return dataset.Default(), nil
	}
	return dataset.LoadFile(path)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dashctl",
		Short:        "Inspect and export charging dashboard datasets",
		SilenceUsage: true,
	}
	root.AddCommand(newValidateCmd(), newViewCmd(), newExportCmd(), newChartCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dataset.yaml]",
		Short: "Check a dataset file and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d variables, %d series, %d scenarios, primary %s\n",
				len(ds.Catalog.IDs()), len(ds.Series), len(ds.Scenarios), ds.Primary)
			return nil
		},
	}
}

type viewOutput struct {
	KPIs  []view.KPI        `json:"kpis"`
	Chart *view.ChartSeries `json:"chart"`
}

func newViewCmd() *cobra.Command {
	var flags selectionFlags
	var pretty bool
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the KPI cards and chart series as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, sel, err := flags.resolve()
			if err != nil {
				return err
			}
			store, err := fill(ds)
			if err != nil {
				return err
			}
			out := viewOutput{KPIs: view.ComputeKPIs(ds.Catalog, sel), Chart: view.ComputeChartSeries(store, sel)}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(out)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	return cmd
}

func newExportCmd() *cobra.Command {
	var flags selectionFlags
	var outputPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write KPIs and series to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, sel, err := flags.resolve()
			if err != nil {
				return err
			}
			store, err := fill(ds)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputPath, func(w io.Writer) error {
				return export.WriteWorkbook(w, view.ComputeKPIs(ds.Catalog, sel), export.Tables(ds.Catalog, store))
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "dashboard.xlsx", "Output file path (- for stdout)")
	return cmd
}

func newChartCmd() *cobra.Command {
	var flags selectionFlags
	var outputPath string
	var width, height int
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the primary series as a PNG line chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, sel, err := flags.resolve()
			if err != nil {
				return err
			}
			store, err := fill(ds)
			if err != nil {
				return err
			}
			cs := view.ComputeChartSeries(store, sel)
			if cs == nil {
				return export.ErrNoChart
			}
			return writeOutput(cmd.OutOrStdout(), outputPath, func(w io.Writer) error {
				return export.RenderChart(w, cs, width, height)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "chart.png", "Output file path (- for stdout)")
	cmd.Flags().IntVar(&width, "width", export.DefaultWidth, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", export.DefaultHeight, "Image height in pixels")
	return cmd
}

func fill(ds *dataset.Dataset) (*series.Store, error) {
	store := series.NewStore()
	if err := ds.Fill(store); err != nil {
		return nil, err
	}
	return store, nil
}

// writeOutput streams to stdout for "-" and otherwise writes path, removing
// it again when rendering fails.
func writeOutput(stdout io.Writer, path string, render func(io.Writer) error) error {
	if path == "-" {
		return render(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	renderErr := render(f)
	closeErr := f.Close()
	if err := errors.Join(renderErr, closeErr); err != nil {
		_ = os.Remove(path)
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}
