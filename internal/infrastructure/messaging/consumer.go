package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"bakehouse/internal/domain/events"
	"bakehouse/pkg/logger"
)

// Sink receives decoded events.
type Sink interface {
	Broadcast(env events.Envelope)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the inventory topic and forwards each event to a sink.
type Consumer struct {
	reader  messageReader
	sink    Sink
	backoff time.Duration
}

// NewConsumer joins cfg.ConsumerGroup(). Every replica needs its own group to
// see every event; a new group starts at the latest offset, so the stream
// shows live changes, not history.
func NewConsumer(cfg Config, sink Sink) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.topic(),
		GroupID:     cfg.ConsumerGroup(),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		Dialer:      newDialer(cfg),
	})
	return &Consumer{reader: reader, sink: sink, backoff: time.Second}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	log := logger.FromContext(ctx).WithComponent("kafka_consumer")
	log.Info("kafka consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info("kafka consumer stopped")
				return
			}
			log.Warnw("kafka fetch failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Warnw("kafka commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var env events.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		logger.Warn(ctx, "skipping undecodable event", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return
	}
	c.sink.Broadcast(env)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
