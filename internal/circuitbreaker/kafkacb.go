// v2
// internal/circuitbreaker/kafkacb.go
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of kafka.Writer the wrappers need.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageFetcher is the subset of kafka.Reader the wrappers need.
type MessageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
}

// KafkaBreaker carries the retry policy shared by the Kafka wrappers.
type KafkaBreaker struct {
	enabled     bool
	maxAttempts int
	timeout     time.Duration
	backoff     time.Duration
	breaker     *Breaker
}

// Enabled reports whether breaker protections are active.
func (k *KafkaBreaker) Enabled() bool {
	return k != nil && k.enabled && k.breaker != nil
}

// Breaker exposes the underlying breaker, nil when disabled.
func (k *KafkaBreaker) Breaker() *Breaker {
	if k == nil {
		return nil
	}
	return k.breaker
}

// NewKafkaBreakerFromEnv reads the shared breaker variables:
//   - CB_ENABLED (default: false)
//   - CB_KAFKA_FAILURE_THRESHOLD (default: 5)
//   - CB_KAFKA_SUCCESS_THRESHOLD (default: 2)
//   - CB_KAFKA_OPEN_SECONDS (default: 30)
//   - CB_KAFKA_TIMEOUT_MS (default: 3000)
//   - CB_KAFKA_BACKOFF_MS (default: 200)
func NewKafkaBreakerFromEnv(name string, probe ProbeFunc) (*KafkaBreaker, error) {
	failureThreshold, err := envInt("CB_KAFKA_FAILURE_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}
	successThreshold, err := envInt("CB_KAFKA_SUCCESS_THRESHOLD", 2)
	if err != nil {
		return nil, err
	}
	openSeconds, err := envFloat("CB_KAFKA_OPEN_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	timeoutMS, err := envInt("CB_KAFKA_TIMEOUT_MS", 3000)
	if err != nil {
		return nil, err
	}
	backoffMS, err := envInt("CB_KAFKA_BACKOFF_MS", 200)
	if err != nil {
		return nil, err
	}

	switch {
	case failureThreshold < 1:
		return nil, errors.New("CB_KAFKA_FAILURE_THRESHOLD must be >= 1")
	case successThreshold < 1:
		return nil, errors.New("CB_KAFKA_SUCCESS_THRESHOLD must be >= 1")
	case openSeconds <= 0:
		return nil, errors.New("CB_KAFKA_OPEN_SECONDS must be > 0")
	case timeoutMS < 0:
		return nil, errors.New("CB_KAFKA_TIMEOUT_MS must be >= 0")
	case backoffMS < 0:
		return nil, errors.New("CB_KAFKA_BACKOFF_MS must be >= 0")
	}

	kb := &KafkaBreaker{
		enabled:     envBool("CB_ENABLED"),
		maxAttempts: failureThreshold,
		timeout:     time.Duration(timeoutMS) * time.Millisecond,
		backoff:     time.Duration(backoffMS) * time.Millisecond,
	}
	if kb.enabled {
		kb.breaker = New(name, Config{
			MaxFailures:      failureThreshold,
			ResetTimeout:     time.Duration(openSeconds * float64(time.Second)),
			SuccessesToClose: successThreshold,
		}, probe)
	}
	return kb, nil
}

// CBKafkaWriter guards a Kafka writer.
type CBKafkaWriter struct {
	breaker *KafkaBreaker
	writer  MessageWriter
}

// NewCBKafkaWriter wraps writer. A nil or disabled breaker passes calls
// straight through.
func NewCBKafkaWriter(writer MessageWriter, breaker *KafkaBreaker) *CBKafkaWriter {
	return &CBKafkaWriter{writer: writer, breaker: breaker}
}

// WriteMessages publishes msgs, retrying per the breaker policy.
func (w *CBKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w == nil || w.writer == nil {
		return errors.New("nil kafka writer")
	}
	return w.breaker.run(ctx, func(ctx context.Context) error {
		return w.writer.WriteMessages(ctx, msgs...)
	})
}

// CBKafkaReader guards a Kafka reader.
type CBKafkaReader struct {
	breaker *KafkaBreaker
	reader  MessageFetcher
}

// NewCBKafkaReader wraps reader. A nil or disabled breaker passes calls
// straight through.
func NewCBKafkaReader(reader MessageFetcher, breaker *KafkaBreaker) *CBKafkaReader {
	return &CBKafkaReader{reader: reader, breaker: breaker}
}

// FetchMessage reads the next message, retrying per the breaker policy.
func (r *CBKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r == nil || r.reader == nil {
		return kafka.Message{}, errors.New("nil kafka reader")
	}
	var msg kafka.Message
	err := r.breaker.run(ctx, func(ctx context.Context) error {
		var err error
		msg, err = r.reader.FetchMessage(ctx)
		return err
	})
	return msg, err
}

func (k *KafkaBreaker) run(ctx context.Context, op func(ctx context.Context) error) error {
	if !k.Enabled() {
		return op(ctx)
	}
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if k.timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, k.timeout)
		}
		err := k.breaker.Execute(attemptCtx, op)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// An open breaker keeps the caller waiting until a trial is allowed.
		if !errors.Is(err, ErrOpen) && attempt >= k.maxAttempts {
			return err
		}
		if err := k.sleep(ctx); err != nil {
			return err
		}
	}
}

func (k *KafkaBreaker) sleep(ctx context.Context) error {
	if k.backoff <= 0 {
		return nil
	}
	timer := time.NewTimer(k.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
