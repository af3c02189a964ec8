// v0
// internal/export/workbook.go
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"nrgchamp/dashboard/internal/catalog"
	"nrgchamp/dashboard/internal/series"
	"nrgchamp/dashboard/internal/view"
)

const (
	SheetKPIs   = "KPIs"
	SheetSeries = "Series"
)

// Table is one named series laid out as a workbook column.
type Table struct {
	ID     string
	Name   string
	Points []series.Point
}

// SeriesReader is the read side of the series store.
type SeriesReader interface {
	Get(id string) ([]series.Point, bool)
}

// Tables collects the stored series in catalog order, skipping ids without data.
func Tables(cat *catalog.Catalog, src SeriesReader) []Table {
	var out []Table
	for _, v := range cat.All() {
		pts, ok := src.Get(v.ID)
		if !ok {
			continue
		}
		out = append(out, Table{ID: v.ID, Name: v.Name, Points: pts})
	}
	return out
}

// WriteWorkbook writes an xlsx file with the KPI cards on one sheet and the
// series, one column per variable, on another.
func WriteWorkbook(w io.Writer, kpis []view.KPI, tables []Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetKPIs); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSeries); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("style: %w", err)
	}

	kpiRows := [][]any{{"Variable", "Title", "Value", "Type", "Primary"}}
	for _, k := range kpis {
		kpiRows = append(kpiRows, []any{k.VariableID, k.Title, snapshotCell(k.Value), string(k.Type), k.IsPrimary})
	}
	if err := writeRows(f, SheetKPIs, kpiRows, bold); err != nil {
		return err
	}

	header := []any{"Month"}
	for _, t := range tables {
		header = append(header, t.Name)
	}
	rows := [][]any{header}
	if len(tables) > 0 {
		for i, p := range tables[0].Points {
			row := []any{p.Label}
			for _, t := range tables {
				if i < len(t.Points) {
					row = append(row, t.Points[i].Value)
				} else {
					row = append(row, nil)
				}
			}
			rows = append(rows, row)
		}
	}
	if err := writeRows(f, SheetSeries, rows, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("%s!%s: %w", sheet, cell, err)
			}
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

func snapshotCell(s catalog.Snapshot) any {
	if s.Numeric {
		return s.Number
	}
	return s.Text
}
