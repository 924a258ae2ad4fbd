package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces spot lines to Kafka topics chosen per message.
// It implements notify.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer. The writer has no fixed topic;
// every message names its own.
func NewPublisher(brokers []string, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, clock: clock, logger: logger}
}

// Publish writes one message. Keying by activator keeps a station's spots
// in order on a single partition.
func (p *Publisher) Publish(ctx context.Context, topic, key, text string) error {
	msg := buildMessage(topic, key, text, p.clock.Now())
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.logger.Debug("published", "topic", topic, "key", key)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func buildMessage(topic, key, text string, now time.Time) kafkago.Message {
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: []byte(text),
		Headers: []kafkago.Header{
			{Key: "content_type", Value: []byte("text/plain; charset=utf-8")},
			{Key: "published_at", Value: []byte(now.UTC().Format(time.RFC3339))},
		},
	}
}
