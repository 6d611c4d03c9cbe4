package services

import (
	"context"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/events"

	"go.uber.org/zap"
)

// emitter publishes events after a successful commit. Publishing failures are
// logged and never undo the committed change.
type emitter struct {
	publisher events.Publisher
	producer  string
	logger    *zap.Logger
}

func (e emitter) emit(ctx context.Context, eventType, orderID string, payload interface{}) {
	if e.publisher == nil {
		return
	}
	env, err := events.New(eventType, e.producer, orderID, payload)
	if err != nil {
		e.logger.Warn("failed to build event", zap.String("event_type", eventType), zap.String("order_id", orderID), zap.Error(err))
		return
	}
	if err := e.publisher.Publish(ctx, env); err != nil {
		e.logger.Warn("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("order_id", orderID),
			zap.Error(err))
		return
	}
	e.logger.Debug("published event", zap.String("event_type", eventType), zap.String("event_id", env.EventID))
}
