package repositories

import (
	"context"
	"time"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
)

// OrderFilter narrows List. Empty fields match everything.
type OrderFilter struct {
	CustomerID     string
	SellerID       string
	GatewayOrderID string
	PaymentID      string
}

// OrderUpdate lists the mutable fields of an order; nil pointers are left
// untouched. UpdatedAt is always written.
type OrderUpdate struct {
	Status         *models.OrderStatus
	TrackingNumber *string
	PaymentStatus  *models.PaymentStatus
	PaymentID      *string
	UpdatedAt      time.Time

	// IfPaymentStatus makes the write conditional on the stored payment
	// status; a mismatch yields ErrStaleWrite.
	IfPaymentStatus *models.PaymentStatus
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	UpdateFields(ctx context.Context, id string, update OrderUpdate) error
}
