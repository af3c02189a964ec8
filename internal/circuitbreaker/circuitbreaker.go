// v1
// internal/circuitbreaker/circuitbreaker.go
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// String renders the state for logs and metrics labels.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// ProbeFunc checks that the protected dependency is reachable before a
// half-open trial call.
type ProbeFunc func(ctx context.Context) error

// Breaker guards calls to one upstream dependency.
type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger
	probe  ProbeFunc
	now    func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	listeners []func(name string, from, to State)
}

// New builds a closed breaker. A zero Config field falls back to the
// defaults of DefaultConfig.
func New(name string, cfg Config, probe ProbeFunc) *Breaker {
	cfg = cfg.withDefaults()
	b := &Breaker{
		name:   name,
		cfg:    cfg,
		logger: newLogger(cfg.LogFile).With(slog.String("breaker", name)),
		probe:  probe,
		now:    time.Now,
		state:  Closed,
	}
	b.logger.Info("breaker_created",
		slog.Int("max_failures", cfg.MaxFailures),
		slog.Int("successes_to_close", cfg.SuccessesToClose),
		slog.String("reset_timeout", cfg.ResetTimeout.String()),
	)
	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// OnStateChange registers a callback invoked after every transition.
// Callbacks run outside the breaker lock.
func (b *Breaker) OnStateChange(fn func(name string, from, to State)) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// Execute runs op unless the breaker is open. A failure that trips the
// breaker is reported as ErrOpen wrapping the cause.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.admit(ctx); err != nil {
		return err
	}
	err := op(ctx)
	return b.record(err)
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) admit(ctx context.Context) error {
	b.mu.Lock()
	if b.state != Open {
		b.mu.Unlock()
		return nil
	}
	since := b.now().Sub(b.openedAt)
	if since < b.cfg.ResetTimeout {
		b.mu.Unlock()
		b.logger.Warn("breaker_fast_fail", slog.String("since_open", since.String()))
		return ErrOpen
	}
	notify := b.transitionLocked(HalfOpen)
	b.mu.Unlock()
	notify()

	if b.probe == nil {
		return nil
	}
	if err := b.probe(ctx); err != nil {
		b.logger.Warn("breaker_probe_failed", slog.Any("err", err))
		b.mu.Lock()
		notify := b.transitionLocked(Open)
		b.mu.Unlock()
		notify()
		return ErrOpen
	}
	b.logger.Info("breaker_probe_ok")
	return nil
}

func (b *Breaker) record(err error) error {
	b.mu.Lock()
	notify := func() {}
	tripped := false
	if err == nil {
		switch b.state {
		case HalfOpen:
			b.successes++
			if b.successes >= b.cfg.SuccessesToClose {
				notify = b.transitionLocked(Closed)
			}
		default:
			b.failures = 0
		}
		b.mu.Unlock()
		notify()
		return nil
	}

	switch b.state {
	case HalfOpen:
		notify = b.transitionLocked(Open)
		tripped = true
	default:
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			notify = b.transitionLocked(Open)
			tripped = true
		}
	}
	failures := b.failures
	b.mu.Unlock()
	notify()

	b.logger.Warn("operation_failure", slog.Int("failures", failures), slog.Any("err", err))
	if tripped {
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	return err
}

// transitionLocked moves to next and returns the listener fan-out, which
// the caller must run after releasing the lock.
func (b *Breaker) transitionLocked(next State) func() {
	from := b.state
	b.state = next
	switch next {
	case Open:
		b.openedAt = b.now()
		b.successes = 0
	case HalfOpen:
		b.successes = 0
	case Closed:
		b.failures = 0
		b.successes = 0
	}
	listeners := append([]func(string, State, State){}, b.listeners...)
	logger := b.logger
	name := b.name
	return func() {
		logger.Info("breaker_state_changed", slog.String("from", from.String()), slog.String("to", next.String()))
		for _, fn := range listeners {
			fn(name, from, next)
		}
	}
}
