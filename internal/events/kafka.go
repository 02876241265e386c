package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const defaultPublishTimeout = 5 * time.Second

// KafkaPublisher writes events to a topic, keyed by user id so one account's
// events stay ordered within a partition.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) *KafkaPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           timeout,
		},
		timeout: timeout,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := encode(e)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID),
		Value: data,
		Time:  e.OccurredAt,
	}); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
