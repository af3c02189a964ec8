// v0
// internal/tooltip/scheduler.go
package tooltip

import (
	"sort"
	"sync"
	"time"
)

// FrameToken identifies one scheduled frame callback. The zero token is
// never issued.
type FrameToken uint64

// FrameScheduler runs one-shot frame callbacks.
type FrameScheduler interface {
	// Schedule arranges for fn to run once with the frame time.
	Schedule(fn func(now time.Time)) FrameToken
	// Cancel drops a callback that has not run yet. Unknown tokens are ignored.
	Cancel(FrameToken)
}

// TimerScheduler runs frames on time.AfterFunc at a fixed interval.
type TimerScheduler struct {
	interval time.Duration

	mu     sync.Mutex
	next   FrameToken
	timers map[FrameToken]*time.Timer
}

// NewTimerScheduler returns a scheduler firing interval after each Schedule.
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = FrameInterval
	}
	return &TimerScheduler{interval: interval, timers: make(map[FrameToken]*time.Timer)}
}

// Schedule implements FrameScheduler.
func (s *TimerScheduler) Schedule(fn func(now time.Time)) FrameToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	tok := s.next
	s.timers[tok] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		_, live := s.timers[tok]
		delete(s.timers, tok)
		s.mu.Unlock()
		if live {
			fn(time.Now())
		}
	})
	return tok
}

// Cancel implements FrameScheduler.
func (s *TimerScheduler) Cancel(tok FrameToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[tok]; ok {
		t.Stop()
		delete(s.timers, tok)
	}
}

// Pending returns the number of callbacks not yet run.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler runs frames only when the caller advances its clock.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	next    FrameToken
	pending map[FrameToken]func(time.Time)
}

// NewManualScheduler returns a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start, pending: make(map[FrameToken]func(time.Time))}
}

// Schedule implements FrameScheduler.
func (s *ManualScheduler) Schedule(fn func(now time.Time)) FrameToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = fn
	return s.next
}

// Cancel implements FrameScheduler.
func (s *ManualScheduler) Cancel(tok FrameToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, tok)
}

// Pending returns the number of callbacks not yet run.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Advance moves the clock by d and runs the callbacks pending before the
// call, oldest first. Callbacks scheduled while running wait for the next
// Advance. It returns how many callbacks ran.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now = s.now.Add(d)
	now := s.now
	toks := make([]FrameToken, 0, len(s.pending))
	for tok := range s.pending {
		toks = append(toks, tok)
	}
	s.mu.Unlock()
	sort.Slice(toks, func(i, j int) bool { return toks[i] < toks[j] })

	ran := 0
	for _, tok := range toks {
		s.mu.Lock()
		fn, ok := s.pending[tok]
		delete(s.pending, tok)
		s.mu.Unlock()
		if ok {
			fn(now)
			ran++
		}
	}
	return ran
}
