// v0
// internal/tooltip/insights.go
package tooltip

import (
	"fmt"
	"math"

	"nrgchamp/dashboard/internal/series"
)

// InsightKind tags the tone of an insight line.
type InsightKind string

const (
	InsightPositive InsightKind = "positive"
	InsightWarning  InsightKind = "warning"
	InsightInfo     InsightKind = "info"
)

// Insight is one line of tooltip commentary.
type Insight struct {
	Kind InsightKind `json:"type"`
	Text string      `json:"text"`
}

// Details is the tooltip body for a hovered point.
type Details struct {
	Point           series.Point `json:"point"`
	Insights        []Insight    `json:"insights"`
	Recommendations []string     `json:"recommendations"`
}

// Describe builds insights and recommendations from the point details.
// Points without details get empty lists.
func Describe(p series.Point) Details {
	return Details{Point: p, Insights: Insights(p), Recommendations: Recommendations(p)}
}

// Insights derives the commentary lines for p.
func Insights(p series.Point) []Insight {
	out := []Insight{}
	d := p.Details
	if d == nil {
		return out
	}
	if d.Efficiency != nil {
		switch {
		case *d.Efficiency > 90:
			out = append(out, Insight{Kind: InsightPositive, Text: "Excellent operational efficiency"})
		case *d.Efficiency < 80:
			out = append(out, Insight{Kind: InsightWarning, Text: "Below optimal efficiency threshold"})
		}
	}
	if d.Utilization != nil && *d.Utilization > 95 {
		out = append(out, Insight{Kind: InsightInfo, Text: "Near capacity - consider expansion"})
	}
	switch d.Trend {
	case "increasing":
		out = append(out, Insight{Kind: InsightPositive, Text: "Positive growth trajectory"})
	case "decreasing":
		out = append(out, Insight{Kind: InsightWarning, Text: "Declining performance trend"})
	}
	// A zero previous value carries no comparison.
	if d.LastMonth != nil && *d.LastMonth != 0 {
		growth := (p.Value - *d.LastMonth) / *d.LastMonth * 100
		if math.Abs(growth) > 20 {
			kind, word := InsightPositive, "increase"
			if growth <= 0 {
				kind, word = InsightWarning, "decrease"
			}
			out = append(out, Insight{Kind: kind, Text: fmt.Sprintf("%.1f%% %s from last month", math.Abs(growth), word)})
		}
	}
	return out
}

// Recommendations derives the suggested actions for p.
func Recommendations(p series.Point) []string {
	out := []string{}
	d := p.Details
	if d == nil {
		return out
	}
	if d.Efficiency != nil && *d.Efficiency < 85 {
		out = append(out, "Optimize charging algorithms for better efficiency.")
	}
	if d.Utilization != nil && *d.Utilization > 90 {
		out = append(out, "Consider adding more charging stations in this area.")
	}
	if d.Incidents != nil && *d.Incidents > 3 {
		out = append(out, "Increase maintenance frequency to reduce incidents.")
	}
	if d.Trend == "decreasing" {
		out = append(out, "Investigate factors causing performance decline.")
	}
	return out
}
