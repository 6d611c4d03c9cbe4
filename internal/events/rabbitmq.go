package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// RabbitClient is the subset of *rabbitmq.Client used for publishing.
type RabbitClient interface {
	Publish(eventType string, body []byte) error
}

// RabbitPublisher publishes envelopes onto the RabbitMQ event queue.
type RabbitPublisher struct {
	client RabbitClient
}

func NewRabbitPublisher(client RabbitClient) *RabbitPublisher {
	return &RabbitPublisher{client: client}
}

func (p *RabbitPublisher) Publish(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return p.client.Publish(env.EventType, body)
}
