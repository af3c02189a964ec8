// v0
// internal/export/export_test.go
package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"nrgchamp/dashboard/internal/dataset"
	"nrgchamp/dashboard/internal/series"
	"nrgchamp/dashboard/internal/view"
)

func TestWriteWorkbook(t *testing.T) {
	ds := dataset.Default()
	store := series.NewStore()
	if err := ds.Fill(store); err != nil {
		t.Fatalf("fill: %v", err)
	}
	sel := ds.NewSelection()
	kpis := view.ComputeKPIs(ds.Catalog, sel)
	tables := Tables(ds.Catalog, store)
	if len(tables) != 6 || tables[0].ID != "infrastructureUnits" {
		t.Fatalf("unexpected tables %+v", tables)
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, kpis, tables); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetKPIs)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "infrastructureUnits" || rows[1][2] != "€421.07" {
		t.Fatalf("unexpected KPI rows %v", rows)
	}

	rows, err = f.GetRows(SheetSeries)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 8 {
		t.Fatalf("expected header plus 7 months, got %d rows", len(rows))
	}
	if rows[0][1] != "Infrastructure Units" || rows[4][0] != "Jul" || rows[4][1] != "90000" {
		t.Fatalf("unexpected series rows %v", rows)
	}
}

func TestWriteWorkbookEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, nil, nil); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected a workbook even without data")
	}
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRenderChart(t *testing.T) {
	ds := dataset.Default()
	cs := &view.ChartSeries{ID: "infrastructureUnits", Name: "Infrastructure Units", Color: "#9acd32", Data: ds.Series["infrastructureUnits"]}

	var buf bytes.Buffer
	if err := RenderChart(&buf, cs, 0, 0); err != nil {
		t.Fatalf("RenderChart: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Fatalf("expected PNG output")
	}

	buf.Reset()
	single := &view.ChartSeries{ID: "x", Name: "X", Color: "#808080", Data: []series.Point{{Label: "Apr", Value: 10}}}
	if err := RenderChart(&buf, single, 320, 200); err != nil {
		t.Fatalf("single point: %v", err)
	}

	if err := RenderChart(&buf, nil, 0, 0); !errors.Is(err, ErrNoChart) {
		t.Fatalf("expected ErrNoChart, got %v", err)
	}
}
