// Package consumer feeds listing.published events from Kafka into the dispatch pipeline.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/listing-alerts/internal/config"
	"github.com/ogulcanaydogan/listing-alerts/pkg/alerting"
	"github.com/ogulcanaydogan/listing-alerts/pkg/dispatch"
	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
	"github.com/segmentio/kafka-go"
)

const (
	maxPollWait     = 500 * time.Millisecond
	fetchBackoff    = time.Second
	retryBackoff    = time.Second
	maxRetryBackoff = 30 * time.Second
)

// Reader is the subset of *kafka.Reader used by the consumer.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Dispatcher handles one published listing.
type Dispatcher interface {
	Dispatch(ctx context.Context, listing model.Listing) (*dispatch.Response, error)
}

// Consumer reads listing events and dispatches them one at a time.
type Consumer struct {
	reader       Reader
	dispatcher   Dispatcher
	logger       *slog.Logger
	retryBackoff time.Duration
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithRetryBackoff sets the initial wait before a failed dispatch is retried.
// The wait doubles on each attempt up to 30s.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.retryBackoff = d
		}
	}
}

// New creates a consumer group reader for cfg.
func New(cfg config.KafkaConfig, d Dispatcher, logger *slog.Logger, opts ...Option) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("brokers cannot be empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic cannot be empty")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("group id cannot be empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     maxPollWait,
		StartOffset: kafka.FirstOffset,
	})

	logger.Info("kafka consumer configured", "brokers", cfg.Brokers, "topic", cfg.Topic, "group_id", cfg.GroupID)
	return NewWithReader(reader, d, logger, opts...), nil
}

// NewWithReader creates a consumer over an existing reader.
func NewWithReader(r Reader, d Dispatcher, logger *slog.Logger, opts ...Option) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consumer{reader: r, dispatcher: d, logger: logger, retryBackoff: retryBackoff}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is canceled. Offsets are committed after a message is
// handled; malformed or invalid events are committed and dropped. A failed
// dispatch is retried on the same message until it succeeds or ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("fetch listing event", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchBackoff):
			}
			continue
		}

		if !c.handleWithRetry(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit listing event", "offset", msg.Offset, "error", err)
		}
	}
}

// handleWithRetry handles msg until it may be committed. It returns false when
// ctx is canceled first; the offset then stays uncommitted for redelivery.
func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) bool {
	wait := c.retryBackoff
	for attempt := 1; ; attempt++ {
		if c.handle(ctx, msg) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		c.logger.Warn("retry listing event", "offset", msg.Offset, "attempt", attempt, "backoff", wait)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		wait = min(wait*2, maxRetryBackoff)
	}
}

// handle processes one message and reports whether its offset may be committed.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	listing, err := decode(msg.Value)
	if err != nil {
		c.logger.Warn("drop malformed listing event", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return true
	}

	resp, err := c.dispatcher.Dispatch(ctx, listing)
	if err != nil {
		var verr *alerting.ValidationError
		if errors.As(err, &verr) {
			c.logger.Warn("drop invalid listing event", "listing_id", listing.ID, "error", err)
			return true
		}
		c.logger.Error("dispatch listing event", "listing_id", listing.ID, "offset", msg.Offset, "error", err)
		return false
	}

	c.logger.Debug("listing event dispatched",
		"listing_id", listing.ID,
		"matching_alerts", resp.MatchingAlerts,
		"notified", resp.Notified,
	)
	return true
}

func decode(value []byte) (model.Listing, error) {
	var l model.Listing
	if err := json.Unmarshal(value, &l); err != nil {
		return l, fmt.Errorf("unmarshal listing event: %w", err)
	}
	return l, nil
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
