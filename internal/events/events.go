// Package events defines the order lifecycle events the service emits and
// the publishers that carry them to a broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderPaid          = "order.paid"
)

// Envelope wraps every event payload.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID          string             `json:"order_id"`
	CustomerID       string             `json:"customer_id"`
	SellerID         string             `json:"seller_id"`
	Items            []models.OrderItem `json:"items"`
	TotalAmount      decimal.Decimal    `json:"total_amount"`
	CommissionAmount decimal.Decimal    `json:"commission_amount"`
}

type OrderStatusChangedPayload struct {
	OrderID        string             `json:"order_id"`
	SellerID       string             `json:"seller_id"`
	CustomerID     string             `json:"customer_id"`
	Status         models.OrderStatus `json:"status"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
}

type OrderPaidPayload struct {
	OrderID   string `json:"order_id"`
	SellerID  string `json:"seller_id"`
	PaymentID string `json:"payment_id"`
}

// New builds a version 1 envelope around payload.
func New(eventType, producer, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Decode unmarshals an envelope's payload into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// Publisher delivers envelopes to a broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Envelope) error { return nil }
