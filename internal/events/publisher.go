// v0
// internal/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"nrgchamp/dashboard/internal/circuitbreaker"
)

// Event describes one dispatched dashboard action and the selection it left.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Variable  string    `json:"variable,omitempty"`
	Primary   string    `json:"primary"`
	Active    []string  `json:"active"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives interaction events. Implementations must not block the caller.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Sink.
func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder counts publish outcomes.
type Recorder interface {
	Event(result string)
}

// Config controls the Kafka interaction event stream.
type Config struct {
	Enabled bool
	Topic   string
	Brokers []string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type writeCloser interface {
	Close() error
}

// Publisher asynchronously publishes interaction events to Kafka.
type Publisher struct {
	cfg       Config
	log       *slog.Logger
	writer    messageWriter
	closer    writeCloser
	rec       Recorder
	now       func() time.Time
	enabled   bool
	queue     chan kafka.Message
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
}

const (
	publisherQueueSize = 256
	eventsBreakerName  = "dashboard-events-writer"
)

var (
	errPublisherNilLogger = errors.New("publisher requires a logger")
	errPublisherNilWriter = errors.New("publisher requires a writer")
	// ErrNotStarted is returned by Publish before Start or after Stop.
	ErrNotStarted = errors.New("event publisher not started")
	// ErrQueueFull is returned when the publish queue is saturated.
	ErrQueueFull = errors.New("event queue full")
)

// NewPublisher constructs a Publisher backed by a Kafka writer guarded by the
// circuit breaker. A disabled config yields a publisher that drops events.
func NewPublisher(cfg Config, log *slog.Logger, rec Recorder) (*Publisher, error) {
	if log == nil {
		return nil, errPublisherNilLogger
	}
	if !cfg.Enabled {
		log.Info("event_publisher_disabled")
		return &Publisher{cfg: cfg, log: log, rec: rec, now: time.Now}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("events topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	baseWriter := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
		Balancer:               &kafka.Hash{},
	}
	breaker, err := circuitbreaker.NewKafkaBreakerFromEnv(eventsBreakerName, nil)
	if err != nil {
		log.Error("event_publisher_cb_init_err", slog.Any("err", err))
	} else if breaker.Enabled() {
		log.Info("event_publisher_cb_enabled", slog.String("name", eventsBreakerName))
	}
	wrapped := circuitbreaker.NewCBKafkaWriter(baseWriter, breaker)
	return newPublisherWithWriter(cfg, log, rec, wrapped, baseWriter)
}

// newPublisherWithWriter wires the provided writer into the publisher. It is used in tests.
func newPublisherWithWriter(cfg Config, log *slog.Logger, rec Recorder, writer messageWriter, closer writeCloser) (*Publisher, error) {
	if log == nil {
		return nil, errPublisherNilLogger
	}
	if writer == nil {
		return nil, errPublisherNilWriter
	}
	p := &Publisher{
		cfg:     cfg,
		log:     log.With(slog.String("component", "event_publisher")),
		writer:  writer,
		closer:  closer,
		rec:     rec,
		now:     time.Now,
		enabled: cfg.Enabled,
	}
	if p.enabled {
		p.queue = make(chan kafka.Message, publisherQueueSize)
	}
	return p, nil
}

// Start launches the background publishing loop.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	if ctx == nil {
		return errors.New("context must not be nil")
	}
	p.startOnce.Do(func() {
		p.runCtx, p.cancel = context.WithCancel(ctx)
		p.started.Store(true)
		p.wg.Add(1)
		go p.run()
		p.log.Info("event_publisher_started", slog.String("topic", p.cfg.Topic))
	})
	return nil
}

// Stop cancels the loop, drains queued events and closes the writer.
func (p *Publisher) Stop(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	var stopErr error
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = ctx.Err()
		}
		if p.closer != nil {
			if err := p.closer.Close(); err != nil {
				p.log.Error("event_publisher_close_err", slog.Any("err", err))
			}
		}
		p.log.Info("event_publisher_stopped")
	})
	return stopErr
}

// Publish queues ev without blocking. Missing ids and timestamps are filled.
func (p *Publisher) Publish(_ context.Context, ev Event) error {
	if !p.enabled {
		return nil
	}
	if !p.started.Load() {
		p.record("failed")
		return ErrNotStarted
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.now().UTC()
	}
	if ev.Active == nil {
		ev.Active = []string{}
	}
	value, err := json.Marshal(ev)
	if err != nil {
		p.record("failed")
		return err
	}
	msg := kafka.Message{Key: []byte(ev.Variable), Value: value}
	select {
	case p.queue <- msg:
		return nil
	default:
		p.record("dropped")
		p.log.Warn("event_publish_dropped", slog.String("type", ev.Type), slog.String("id", ev.ID))
		return ErrQueueFull
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.runCtx.Done():
			p.started.Store(false)
			p.drain()
			return
		case msg := <-p.queue:
			p.deliver(p.runCtx, msg)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, msg kafka.Message) {
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.record("failed")
		p.log.Error("event_publish_err", slog.Any("err", err))
		return
	}
	p.record("published")
}

func (p *Publisher) record(result string) {
	if p.rec != nil {
		p.rec.Event(result)
	}
}
