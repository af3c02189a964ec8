// v0
// internal/tooltip/animator.go
package tooltip

import (
	"sync"
	"time"
)

// Phase is the tooltip animation phase.
type Phase string

const (
	PhaseHidden   Phase = "hidden"
	PhaseEntering Phase = "entering"
	PhaseVisible  Phase = "visible"
	PhaseExiting  Phase = "exiting"
)

// Snapshot is the animator state at one instant.
type Snapshot struct {
	Phase     Phase `json:"phase"`
	Pointer   Point `json:"pointer"`
	Target    Point `json:"target"`
	Position  Point `json:"position"`
	Animating bool  `json:"animating"`
}

// Animator eases the tooltip toward its placed target, one scheduled frame
// at a time. At most one frame callback is pending; hiding cancels it and
// callbacks from an older generation are ignored.
type Animator struct {
	sched  FrameScheduler
	layout Layout

	mu        sync.Mutex
	viewport  Size
	phase     Phase
	pointer   Point
	target    Point
	pos       Point
	token     FrameToken
	gen       uint64
	lastFrame time.Time
	frames    int
}

// NewAnimator returns a hidden animator.
func NewAnimator(sched FrameScheduler, layout Layout, viewport Size) *Animator {
	return &Animator{sched: sched, layout: layout, viewport: viewport, phase: PhaseHidden}
}

// SetViewport changes the viewport used for the next placement.
func (a *Animator) SetViewport(v Size) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.viewport = v
}

// Show moves the target to the placement for pointer and starts animating
// if no frame is pending.
func (a *Animator) Show(pointer Point) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseHidden || a.phase == PhaseExiting {
		a.phase = PhaseEntering
	}
	a.pointer = pointer
	a.target = Place(pointer, a.layout.Box, a.viewport, a.layout.Offset, a.layout.Padding)
	if a.token == 0 {
		a.scheduleLocked()
	}
}

// Hide cancels the pending frame, resets the smoothed position and enters
// the exiting phase.
func (a *Animator) Hide() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	if a.phase != PhaseHidden {
		a.phase = PhaseExiting
	}
}

// Clear is Hide followed by the hidden phase.
func (a *Animator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	a.phase = PhaseHidden
}

// Snapshot returns the current state.
func (a *Animator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Phase:     a.phase,
		Pointer:   a.pointer,
		Target:    a.target,
		Position:  a.pos,
		Animating: a.token != 0,
	}
}

// Frames returns how many frames moved the tooltip since the last Show
// from a hidden state.
func (a *Animator) Frames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames
}

func (a *Animator) stopLocked() {
	if a.token != 0 {
		a.sched.Cancel(a.token)
		a.token = 0
	}
	a.gen++
	a.pos = Point{}
	a.pointer = Point{}
	a.target = Point{}
	a.lastFrame = time.Time{}
	a.frames = 0
}

func (a *Animator) scheduleLocked() {
	a.gen++
	gen := a.gen
	a.token = a.sched.Schedule(func(now time.Time) { a.frame(gen, now) })
}

func (a *Animator) frame(gen uint64, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return
	}
	a.token = 0

	elapsed := FrameInterval
	if !a.lastFrame.IsZero() {
		elapsed = now.Sub(a.lastFrame)
	}
	next, applied, settled := Step(a.pos, a.target, elapsed)
	if applied {
		a.pos = next
		a.lastFrame = now
		a.frames++
	}
	if settled {
		if a.phase == PhaseEntering {
			a.phase = PhaseVisible
		}
		return
	}
	a.scheduleLocked()
}
