// v0
// internal/events/publisher_test.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingRecorder) Event(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[result]++
}

func (c *countingRecorder) get(result string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[result]
}

type recordingWriter struct {
	ch chan kafka.Message
}

func newRecordingWriter(buf int) *recordingWriter {
	return &recordingWriter{ch: make(chan kafka.Message, buf)}
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		r.ch <- msg
	}
	return nil
}

func (r *recordingWriter) Close() error { return nil }

func (r *recordingWriter) await(t *testing.T) kafka.Message {
	t.Helper()
	select {
	case msg := <-r.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for publish")
	}
	return kafka.Message{}
}

func TestPublisherPublishesEvent(t *testing.T) {
	writer := newRecordingWriter(1)
	rec := &countingRecorder{}
	cfg := Config{Enabled: true, Topic: "dashboard.events", Brokers: []string{"kafka:9092"}}
	pub, err := newPublisherWithWriter(cfg, discardLogger(), rec, writer, writer)
	if err != nil {
		t.Fatalf("newPublisherWithWriter error: %v", err)
	}
	fixed := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }
	if err := pub.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}

	ev := Event{Type: "toggle", Variable: "chargingGrowth", Primary: "infrastructureUnits", Active: []string{"infrastructureUnits"}}
	if err := pub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	msg := writer.await(t)
	if string(msg.Key) != "chargingGrowth" {
		t.Fatalf("expected key chargingGrowth, got %q", msg.Key)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.ID == "" || !decoded.Timestamp.Equal(fixed) {
		t.Fatalf("expected id and timestamp filled, got %+v", decoded)
	}
	if decoded.Type != "toggle" || decoded.Primary != "infrastructureUnits" || len(decoded.Active) != 1 {
		t.Fatalf("unexpected event %+v", decoded)
	}
	if err := pub.Stop(context.Background()); err != nil {
		t.Fatalf("stop error: %v", err)
	}
	if rec.get("published") != 1 {
		t.Fatalf("expected one published event, got %d", rec.get("published"))
	}
}

func TestPublisherRejectsBeforeStart(t *testing.T) {
	writer := newRecordingWriter(1)
	cfg := Config{Enabled: true, Topic: "dashboard.events", Brokers: []string{"kafka:9092"}}
	pub, err := newPublisherWithWriter(cfg, discardLogger(), nil, writer, writer)
	if err != nil {
		t.Fatalf("newPublisherWithWriter error: %v", err)
	}
	if err := pub.Publish(context.Background(), Event{Type: "toggle"}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

type blockingWriter struct {
	release chan struct{}
}

func (b *blockingWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestPublisherDropsWhenQueueFull(t *testing.T) {
	writer := &blockingWriter{release: make(chan struct{})}
	rec := &countingRecorder{}
	cfg := Config{Enabled: true, Topic: "dashboard.events", Brokers: []string{"kafka:9092"}}
	pub, err := newPublisherWithWriter(cfg, discardLogger(), rec, writer, nil)
	if err != nil {
		t.Fatalf("newPublisherWithWriter error: %v", err)
	}
	if err := pub.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}

	var dropped int
	for i := 0; i < publisherQueueSize+10; i++ {
		if err := pub.Publish(context.Background(), Event{Type: "toggle"}); errors.Is(err, ErrQueueFull) {
			dropped++
		}
	}
	if dropped == 0 {
		t.Fatalf("expected some events to be dropped")
	}
	if rec.get("dropped") != dropped {
		t.Fatalf("recorder saw %d drops, publisher returned %d", rec.get("dropped"), dropped)
	}
	close(writer.release)
	if err := pub.Stop(context.Background()); err != nil {
		t.Fatalf("stop error: %v", err)
	}
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	pub, err := NewPublisher(Config{}, discardLogger(), nil)
	if err != nil {
		t.Fatalf("NewPublisher error: %v", err)
	}
	if err := pub.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	if err := pub.Publish(context.Background(), Event{Type: "toggle"}); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	if err := pub.Stop(context.Background()); err != nil {
		t.Fatalf("stop error: %v", err)
	}
	var _ Sink = pub
	var _ Sink = Nop{}
}

func TestNewPublisherValidates(t *testing.T) {
	if _, err := NewPublisher(Config{Enabled: true, Brokers: []string{"k:9092"}}, discardLogger(), nil); err == nil {
		t.Fatalf("expected topic error")
	}
	if _, err := NewPublisher(Config{Enabled: true, Topic: "t"}, discardLogger(), nil); err == nil {
		t.Fatalf("expected broker error")
	}
	if _, err := NewPublisher(Config{}, nil, nil); err == nil {
		t.Fatalf("expected logger error")
	}
}
