// v0
// internal/tooltip/place.go
package tooltip

import (
	"math"
	"time"
)

// Point is a screen coordinate in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in CSS pixels.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

const (
	// SmoothingFactor is the fraction of the remaining distance covered per frame.
	SmoothingFactor = 0.15
	// SnapDistance ends the animation once both axis deltas fall below it.
	SnapDistance = 0.5
	// FrameInterval is the minimum spacing of applied frames (about 60/s).
	FrameInterval = 16 * time.Millisecond
)

// Layout is the fixed tooltip geometry.
type Layout struct {
	Box     Size    `json:"box"`
	Offset  float64 `json:"offset"`
	Padding float64 `json:"padding"`
}

// DefaultLayout is a 200x80 box, 15px from the pointer, 20px from the edges.
func DefaultLayout() Layout {
	return Layout{Box: Size{W: 200, H: 80}, Offset: 15, Padding: 20}
}

// Place returns the top-left corner of the tooltip box for a pointer
// position. The box sits below-right of the pointer, flips to the left when
// it would cross the right edge and above when it would cross the bottom,
// then is clamped inside the padding margin.
func Place(pointer Point, box, viewport Size, offset, padding float64) Point {
	x := pointer.X + offset
	if x+box.W > viewport.W-padding {
		x = pointer.X - box.W - offset
	}
	y := pointer.Y + offset
	if y+box.H > viewport.H-padding {
		y = pointer.Y - box.H - offset
	}
	return Point{
		X: clamp(x, padding, viewport.W-box.W-padding),
		Y: clamp(y, padding, viewport.H-box.H-padding),
	}
}

// clamp keeps v within [lo, hi]; lo wins when the range is empty.
func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// Step eases current toward target by one frame. Frames arriving less than
// FrameInterval after the previous applied frame leave current unchanged
// and report applied=false. Once both deltas are below SnapDistance the
// result snaps to target and settled is true.
func Step(current, target Point, elapsed time.Duration) (next Point, applied, settled bool) {
	if elapsed < FrameInterval {
		return current, false, false
	}
	dx := target.X - current.X
	dy := target.Y - current.Y
	if math.Abs(dx) < SnapDistance && math.Abs(dy) < SnapDistance {
		return target, true, true
	}
	return Point{X: current.X + dx*SmoothingFactor, Y: current.Y + dy*SmoothingFactor}, true, false
}
