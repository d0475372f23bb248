package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"bakehouse/internal/infrastructure/storage/postgres"
)

// Header names set on every produced message.
const (
	HeaderEventType     = "event-type"
	HeaderAggregateType = "aggregate-type"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes outbox messages to Kafka. It is the OutboxHandler of the worker relay.
type Producer struct {
	writer messageWriter
	topic  string
}

var _ postgres.OutboxHandler = (*Producer)(nil)

// NewProducer creates a synchronous writer keyed by aggregate id, so events of
// one item stay ordered within a partition.
func NewProducer(cfg Config) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.topic(),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Transport:              newTransport(cfg),
	}
	return &Producer{writer: w, topic: cfg.topic()}
}

// Handle writes one message. An error leaves the outbox row for retry.
func (p *Producer) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	value, err := json.Marshal(msg.Envelope())
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", msg.ID, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.AggregateID.String()),
		Value: value,
		Time:  msg.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(msg.EventType)},
			{Key: HeaderAggregateType, Value: []byte(msg.AggregateType)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
