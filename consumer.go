package main

import (
	"encoding/json"
	"fmt"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/events"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// orderEventHandler decodes order events from the queue and logs the seller
// notification each one stands for. Undecodable messages are reported so the
// client can nack them.
func orderEventHandler(logger *zap.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var env events.Envelope
		if err := json.Unmarshal(msg.Body, &env); err != nil {
			return fmt.Errorf("decode envelope: %w", err)
		}
		return notifySeller(logger, env)
	}
}

func notifySeller(logger *zap.Logger, env events.Envelope) error {
	switch env.EventType {
	case events.TypeOrderCreated:
		p, err := events.Decode[events.OrderCreatedPayload](env)
		if err != nil {
			return err
		}
		logger.Info("notify seller: new order",
			zap.String("event_id", env.EventID),
			zap.String("seller_id", p.SellerID),
			zap.String("order_id", p.OrderID),
			zap.Int("items", len(p.Items)),
			zap.String("total", p.TotalAmount.StringFixed(2)))
	case events.TypeOrderStatusChanged:
		p, err := events.Decode[events.OrderStatusChangedPayload](env)
		if err != nil {
			return err
		}
		logger.Info("notify customer: order status changed",
			zap.String("event_id", env.EventID),
			zap.String("customer_id", p.CustomerID),
			zap.String("order_id", p.OrderID),
			zap.String("status", string(p.Status)),
			zap.String("tracking_number", p.TrackingNumber))
	case events.TypeOrderPaid:
		p, err := events.Decode[events.OrderPaidPayload](env)
		if err != nil {
			return err
		}
		logger.Info("notify seller: order paid",
			zap.String("event_id", env.EventID),
			zap.String("seller_id", p.SellerID),
			zap.String("order_id", p.OrderID),
			zap.String("payment_id", p.PaymentID))
	default:
		logger.Debug("ignoring unknown event", zap.String("event_type", env.EventType))
	}
	return nil
}
