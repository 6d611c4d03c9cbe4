package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validOrderStatuses = map[OrderStatus]bool{
	OrderStatusPending: true, OrderStatusConfirmed: true, OrderStatusProcessing: true,
	OrderStatusShipped: true, OrderStatusDelivered: true, OrderStatusCancelled: true,
}

// ValidOrderStatus reports whether s is a known status. Any known status may
// follow any other.
func ValidOrderStatus(s OrderStatus) bool {
	return validOrderStatuses[s]
}

// PaymentStatus tracks the gateway side of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Accepted payment methods.
const (
	PaymentMethodCard       = "card"
	PaymentMethodUPI        = "upi"
	PaymentMethodNetbanking = "netbanking"
	PaymentMethodWallet     = "wallet"
	PaymentMethodCOD        = "cod"
)

// OrderItem represents a single item within an order.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // unit price at the time of order
}

// Subtotal is Price * Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingAddress is stored with the order as a JSON document.
type ShippingAddress struct {
	FullName   string `json:"full_name" validate:"required,max=120"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,max=30"`
}

// Order is one seller's share of a checkout. An order never spans sellers.
type Order struct {
	ID               string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CustomerID       string          `json:"customer_id" gorm:"index;type:varchar(36)"`
	SellerID         string          `json:"seller_id" gorm:"index;type:varchar(36)"`
	Products         []OrderItem     `json:"products" gorm:"serializer:json"`
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:numeric(20,6)"`
	CommissionRate   decimal.Decimal `json:"commission_rate" gorm:"type:numeric(5,4)"`
	CommissionAmount decimal.Decimal `json:"commission_amount" gorm:"type:numeric(20,6)"`
	Status           OrderStatus     `json:"status" gorm:"type:varchar(20);index"`
	PaymentStatus    PaymentStatus   `json:"payment_status" gorm:"type:varchar(20)"`
	ShippingAddress  ShippingAddress `json:"shipping_address" gorm:"serializer:json"`
	PaymentMethod    string          `json:"payment_method" gorm:"type:varchar(20)"`
	GatewayOrderID   string          `json:"gateway_order_id" gorm:"type:varchar(100);index"` // shared by every order of one checkout
	PaymentID        string          `json:"payment_id,omitempty" gorm:"type:varchar(100);index"`
	TrackingNumber   string          `json:"tracking_number,omitempty" gorm:"type:varchar(100)"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
