// v0
// internal/export/chart.go
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"nrgchamp/dashboard/internal/view"
)

// ErrNoChart is returned when there is no primary series to draw.
var ErrNoChart = errors.New("no chart to render")

const (
	DefaultWidth  = 960
	DefaultHeight = 400
)

// RenderChart draws the primary series as a PNG line chart.
func RenderChart(w io.Writer, cs *view.ChartSeries, width, height int) error {
	if cs == nil || len(cs.Data) == 0 {
		return ErrNoChart
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	xs := make([]float64, len(cs.Data))
	ys := make([]float64, len(cs.Data))
	ticks := make([]chart.Tick, len(cs.Data))
	for i, p := range cs.Data {
		xs[i] = float64(i)
		ys[i] = p.Value
		ticks[i] = chart.Tick{Value: float64(i), Label: p.Label}
	}
	// a single point has no x range; draw it as a flat segment
	if len(xs) == 1 {
		xs = append(xs, 1)
		ys = append(ys, ys[0])
		ticks = append(ticks, chart.Tick{Value: 1, Label: ""})
	}

	yAxis := chart.YAxis{Name: cs.Name}
	if lo, hi := bounds(ys); lo == hi {
		pad := math.Max(1, math.Abs(lo)*0.1)
		yAxis.Range = &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}

	color := drawing.ColorFromHex(strings.TrimPrefix(cs.Color, "#"))
	ch := chart.Chart{
		Title:      cs.Name,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Ticks: ticks},
		YAxis:      yAxis,
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    cs.Name,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: color,
					StrokeWidth: 3,
					DotColor:    color,
					DotWidth:    4,
				},
			},
		},
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", cs.ID, err)
	}
	return nil
}

func bounds(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
