package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// PublishBatchTimeout bounds how long a publish waits for more messages to batch with.
// Publishing happens on the request path.
const PublishBatchTimeout = 5 * time.Millisecond

// KafkaPublisher writes events to a Kafka topic keyed by user ID, so all events
// for one user land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a synchronous producer for topic
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: PublishBatchTimeout,
			Async:        false,
		},
	}
}

// Publish sends a single event
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := event.Encode()
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
