package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of *kafka.Producer used for publishing.
type KafkaWriter interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// KafkaPublisher publishes envelopes keyed by order id, so all events of one
// order land on the same partition.
type KafkaPublisher struct {
	w KafkaWriter
}

func NewKafkaPublisher(w KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return p.w.Publish(ctx, []byte(env.CorrelationID), body,
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}
