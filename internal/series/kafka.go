// v1
// internal/series/kafka.go
package series

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"nrgchamp/dashboard/internal/circuitbreaker"
)

// ConsumerConfig captures the Kafka settings of the live update stream.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// Accepts filters updates before they reach the store; the dashboard uses
// it to drop series that are not in the catalog.
type Accepts func(seriesID string) bool

// AppliedFunc is called after an update has been written.
type AppliedFunc func(source string, u Update, err error)

type messageCommitter interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer streams live series updates from Kafka into a Store.
type Consumer struct {
	cfg       ConsumerConfig
	reader    *kafka.Reader
	fetcher   circuitbreaker.MessageFetcher
	committer messageCommitter
	store     *Store
	accepts   Accepts
	onApplied AppliedFunc
	log       *slog.Logger
	poll      time.Duration
}

const consumerBreakerName = "dashboard-series-consumer"

// NewConsumer builds a Kafka reader wrapped by the circuit breaker.
func NewConsumer(cfg ConsumerConfig, store *Store, accepts Accepts, onApplied AppliedFunc, log *slog.Logger) (*Consumer, error) {
	if log == nil {
		return nil, errors.New("logger must not be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("series topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("consumer group must not be empty")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1e6,
	})

	breaker, err := circuitbreaker.NewKafkaBreakerFromEnv(consumerBreakerName, nil)
	if err != nil {
		log.Error("series_consumer_cb_init_failed", slog.Any("err", err))
	} else if breaker.Enabled() {
		log.Info("series_consumer_cb_enabled", slog.String("name", consumerBreakerName))
	} else {
		log.Info("series_consumer_cb_disabled", slog.String("name", consumerBreakerName))
	}
	c, err := newConsumer(cfg, store, accepts, onApplied, log, circuitbreaker.NewCBKafkaReader(reader, breaker), reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}
	c.reader = reader
	return c, nil
}

func newConsumer(cfg ConsumerConfig, store *Store, accepts Accepts, onApplied AppliedFunc, log *slog.Logger, fetcher circuitbreaker.MessageFetcher, committer messageCommitter) (*Consumer, error) {
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher must not be nil")
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &Consumer{
		cfg:       cfg,
		fetcher:   fetcher,
		committer: committer,
		store:     store,
		accepts:   accepts,
		onApplied: onApplied,
		log:       log,
		poll:      poll,
	}, nil
}

// Close shuts down the underlying reader.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run consumes updates until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context must not be nil")
	}
	c.log.Info("series_consumer_started",
		slog.String("topic", c.cfg.Topic),
		slog.String("group", c.cfg.GroupID),
		slog.String("brokers", strings.Join(c.cfg.Brokers, ",")),
		slog.Duration("pollTimeout", c.poll),
	)
	defer c.log.Info("series_consumer_stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fetchCtx, cancel := context.WithTimeout(ctx, c.poll)
		msg, err := c.fetcher.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafka.ErrGroupClosed):
				return nil
			}
			c.log.Error("series_consumer_fetch_error", slog.Any("err", err))
			continue
		}

		c.handle(msg.Value, slog.Int64("offset", msg.Offset))

		if c.committer != nil {
			commitCtx, commitCancel := context.WithTimeout(ctx, c.poll)
			if err := c.committer.CommitMessages(commitCtx, msg); err != nil {
				if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
					c.log.Error("series_consumer_commit_error", slog.Any("err", err))
				}
			}
			commitCancel()
		}
	}
}

func (c *Consumer) handle(raw []byte, attrs ...any) {
	applyUpdate("kafka", raw, c.store, c.accepts, c.onApplied, c.log, attrs...)
}

// applyUpdate is shared by every live transport.
func applyUpdate(source string, raw []byte, store *Store, accepts Accepts, onApplied AppliedFunc, log *slog.Logger, attrs ...any) {
	u, err := DecodeUpdate(raw)
	if err != nil {
		log.Warn("series_update_decode_error", append([]any{slog.String("source", source), slog.Any("err", err)}, attrs...)...)
		if onApplied != nil {
			onApplied(source, Update{}, err)
		}
		return
	}
	if accepts != nil && !accepts(u.SeriesID) {
		err := fmt.Errorf("%s: %w", u.SeriesID, ErrRejectedSeries)
		log.Warn("series_update_rejected", append([]any{slog.String("source", source), slog.String("seriesId", u.SeriesID)}, attrs...)...)
		if onApplied != nil {
			onApplied(source, u, err)
		}
		return
	}
	err = store.Apply(u)
	if err != nil {
		log.Warn("series_update_apply_error", append([]any{slog.String("source", source), slog.String("seriesId", u.SeriesID), slog.Any("err", err)}, attrs...)...)
	} else {
		log.Info("series_update_applied", append([]any{slog.String("source", source), slog.String("seriesId", u.SeriesID), slog.String("kind", u.Kind())}, attrs...)...)
	}
	if onApplied != nil {
		onApplied(source, u, err)
	}
}
