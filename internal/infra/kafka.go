package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// EventPublisher writes domain events as JSON to a single Kafka topic.
// A nil *EventPublisher is valid and drops every event, so the rest of the
// system does not need to know whether brokers are configured.
type EventPublisher struct {
	writer *kafka.Writer
}

// NewEventPublisher returns nil when brokers is empty.
func NewEventPublisher(brokers, topic string) *EventPublisher {
	if strings.TrimSpace(brokers) == "" {
		log.Info().Msg("kafka disabled (KAFKA_BROKERS empty)")
		return nil
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	log.Info().Str("brokers", brokers).Str("topic", topic).Msg("kafka producer configured")
	return &EventPublisher{writer: w}
}

// Publish keys the message so every event of one entity lands on the same
// partition and keeps its order.
func (p *EventPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value})
}

func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
