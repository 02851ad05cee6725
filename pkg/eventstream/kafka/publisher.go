// Package kafka publishes turn events to a Kafka topic. Events for the same
// conversation share a partition key, so one conversation's turns stay
// ordered.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rwahub/chatlink/pkg/eventstream"
)

// DefaultTopic is the topic turn events land on when none is configured.
const DefaultTopic = "chatlink.turns"

const defaultWriteTimeout = 10 * time.Second

// Publisher writes turn events to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
}

// Option configures a Publisher created with NewPublisher.
type Option func(*Publisher)

// WithWriteTimeout bounds each publish.
func WithWriteTimeout(d time.Duration) Option {
	return func(p *Publisher) { p.writer.WriteTimeout = d }
}

// NewPublisher creates a Publisher writing to topic on the given brokers. An
// empty topic selects DefaultTopic.
func NewPublisher(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if topic == "" {
		topic = DefaultTopic
	}

	p := &Publisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			WriteTimeout: defaultWriteTimeout,
			RequiredAcks: kafkago.RequireOne,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// PublishTurn writes one turn event, keyed by conversation id so the topic
// preserves per-conversation ordering. Events without a conversation id fall
// back to the event id as key.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling turn event: %w", err)
	}

	key := event.TurnMeta.ConversationID
	if key == "" {
		key = event.EventID
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("publishing turn event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
