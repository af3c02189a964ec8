// v0
// internal/load/controller.go
package load

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nrgchamp/dashboard/internal/series"
)

// Status is a snapshot of the load machine.
type Status struct {
	Phase     Phase     `json:"phase"`
	Error     string    `json:"error,omitempty"`
	Attempt   int       `json:"attempt"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Loading reports whether a load is in flight.
func (s Status) Loading() bool { return s.Phase == PhaseLoading }

// Writer is the write side of the series store.
type Writer interface {
	ReplaceAll(data map[string][]series.Point) error
}

// Controller drives a Machine from real Source outcomes. Every transition
// happens under one mutex; loads run on their own goroutine.
type Controller struct {
	src     Source
	store   Writer
	accept  func(id string) bool
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	machine   *Machine
	updatedAt time.Time
	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	listeners []func(Status)
}

// Options tunes a Controller.
type Options struct {
	// Timeout bounds one load, zero means no bound beyond the source's own.
	Timeout time.Duration
	// Accept filters series ids before they reach the store.
	Accept func(id string) bool
}

// NewController wires src to store.
func NewController(src Source, store Writer, log *slog.Logger, opts Options) (*Controller, error) {
	if src == nil {
		return nil, errors.New("load source must not be nil")
	}
	if store == nil {
		return nil, errors.New("series store must not be nil")
	}
	if log == nil {
		return nil, errors.New("logger must not be nil")
	}
	return &Controller{
		src:     src,
		store:   store,
		accept:  opts.Accept,
		log:     log.With(slog.String("component", "load_controller"), slog.String("source", src.Name())),
		timeout: opts.Timeout,
		now:     time.Now,
		machine: NewMachine(),
	}, nil
}

// OnChange registers fn to run after every phase change. Callbacks run
// outside the controller lock, in transition order per goroutine.
func (c *Controller) OnChange(fn func(Status)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Start mounts the dashboard: idle -> loading, then runs the first load.
// Loads are cancelled when ctx ends.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.baseCtx != nil {
		c.mu.Unlock()
		return fmt.Errorf("mount twice: %w", ErrInvalidTransition)
	}
	c.baseCtx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()
	return c.begin("mount", (*Machine).Mount)
}

// Retry re-enters loading from error.
func (c *Controller) Retry() error {
	return c.begin("retry", (*Machine).Retry)
}

// Refresh re-enters loading from ready.
func (c *Controller) Refresh() error {
	return c.begin("refresh", (*Machine).Refresh)
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Wait blocks until no load is in flight.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Stop cancels any in-flight load and waits for it.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *Controller) begin(event string, step func(*Machine) error) error {
	c.mu.Lock()
	if c.baseCtx == nil {
		c.mu.Unlock()
		return errors.New("load controller not started")
	}
	if err := step(c.machine); err != nil {
		phase := c.machine.Phase()
		c.mu.Unlock()
		c.log.Warn("load_transition_rejected", slog.String("event", event), slog.String("phase", string(phase)))
		return err
	}
	c.updatedAt = c.now()
	st := c.statusLocked()
	listeners := c.snapshotListenersLocked()
	ctx := c.baseCtx
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Info("load_phase_changed", slog.String("event", event), slog.String("phase", string(st.Phase)), slog.Int("attempt", st.Attempt))
	notify(listeners, st)
	go c.run(ctx)
	return nil
}

func (c *Controller) run(ctx context.Context) {
	defer c.wg.Done()
	loadCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.timeout > 0 {
		loadCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	started := c.now()
	res, err := c.src.Load(loadCtx)
	cancel()
	if err == nil {
		err = c.store.ReplaceAll(c.filter(res.Series))
	}

	c.mu.Lock()
	if cerr := c.machine.Complete(err); cerr != nil {
		c.mu.Unlock()
		c.log.Error("load_complete_rejected", slog.Any("err", cerr))
		return
	}
	c.updatedAt = c.now()
	st := c.statusLocked()
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("load_phase_changed", slog.String("phase", string(st.Phase)), slog.Int("attempt", st.Attempt), slog.Any("err", err))
	} else {
		c.log.Info("load_phase_changed", slog.String("phase", string(st.Phase)), slog.Int("attempt", st.Attempt), slog.Duration("took", c.now().Sub(started)))
	}
	notify(listeners, st)
}

func (c *Controller) filter(in map[string][]series.Point) map[string][]series.Point {
	if c.accept == nil {
		return in
	}
	out := make(map[string][]series.Point, len(in))
	for id, pts := range in {
		if c.accept(id) {
			out[id] = pts
		}
	}
	return out
}

func (c *Controller) statusLocked() Status {
	return Status{
		Phase:     c.machine.Phase(),
		Error:     c.machine.Message(),
		Attempt:   c.machine.Attempt(),
		Source:    c.src.Name(),
		UpdatedAt: c.updatedAt,
	}
}

func (c *Controller) snapshotListenersLocked() []func(Status) {
	return append([]func(Status){}, c.listeners...)
}

func notify(listeners []func(Status), st Status) {
	for _, fn := range listeners {
		fn(st)
	}
}
