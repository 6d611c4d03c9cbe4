package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/events"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/metrics"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"

	"go.uber.org/zap"
)

// SignPayment returns the hex HMAC-SHA256 of "orderID|paymentID" keyed by secret.
func SignPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature reports whether signature is the gateway signature
// of (orderID, paymentID). The comparison runs in constant time.
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	expected := SignPayment(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PaymentVerification is the gateway callback forwarded by the client.
type PaymentVerification struct {
	GatewayOrderID string   `json:"gateway_order_id" validate:"required"`
	PaymentID      string   `json:"payment_id" validate:"required"`
	Signature      string   `json:"signature" validate:"required,hexadecimal"`
	OrderIDs       []string `json:"order_ids" validate:"required,min=1,unique,dive,required"`
}

// PaymentService verifies gateway callbacks and marks orders paid.
type PaymentService struct {
	store   repositories.Store
	secret  string
	metrics *metrics.Metrics
	logger  *zap.Logger
	events  emitter
	now     func() time.Time
}

// NewPaymentService creates a new PaymentService. It shares the optional
// collaborators of OrderService.
func NewPaymentService(store repositories.Store, secret string, cfg OrderServiceConfig) *PaymentService {
	s := &PaymentService{
		store:   store,
		secret:  secret,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	s.events = emitter{publisher: publisher, producer: cfg.Producer, logger: s.logger}
	return s
}

// Sign signs with the configured secret.
func (s *PaymentService) Sign(orderID, paymentID string) string {
	return SignPayment(s.secret, orderID, paymentID)
}

// VerifySignature checks a signature against the configured secret.
func (s *PaymentService) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(s.secret, orderID, paymentID, signature)
}

// ConfirmPayment verifies the gateway signature, then marks every listed order
// paid and moves pending orders to confirmed. Either all orders are updated or
// none are.
//
// The signature only covers the gateway order and payment ids, so each listed
// order must have been placed under that gateway order, must not be paid yet,
// and the payment id must not already settle any order.
func (s *PaymentService) ConfirmPayment(ctx context.Context, caller models.Identity, req PaymentVerification) ([]models.Order, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if s.secret == "" {
		return nil, apperr.New(apperr.Internal, "payment verification is not configured")
	}
	if !s.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature) {
		s.logger.Warn("payment signature mismatch",
			zap.String("gateway_order_id", req.GatewayOrderID),
			zap.String("payment_id", req.PaymentID),
			zap.String("by", caller.UserID))
		return nil, apperr.New(apperr.InvalidInput, "invalid payment signature")
	}

	paid := models.PaymentStatusPaid
	confirmed := models.OrderStatusConfirmed
	now := s.now().UTC()

	var orders []models.Order
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		orders = orders[:0]
		settled, err := tx.Orders().List(ctx, repositories.OrderFilter{PaymentID: req.PaymentID})
		if err != nil {
			return storeError(err, "failed to look up payment %s", req.PaymentID)
		}
		if len(settled) > 0 {
			return apperr.New(apperr.Conflict, "payment %s was already recorded", req.PaymentID)
		}

		for _, id := range req.OrderIDs {
			order, err := tx.Orders().GetByID(ctx, id)
			if err != nil {
				return storeError(err, "order %s not found", id)
			}
			if caller.Role != models.RoleAdmin && order.CustomerID != caller.UserID {
				return apperr.New(apperr.Forbidden, "order %s belongs to another customer", id)
			}
			if order.GatewayOrderID != req.GatewayOrderID {
				return apperr.New(apperr.InvalidInput, "order %s was not placed under gateway order %s", id, req.GatewayOrderID)
			}
			if order.PaymentStatus == paid {
				return apperr.New(apperr.Conflict, "order %s is already paid", id)
			}

			update := repositories.OrderUpdate{
				PaymentStatus:   &paid,
				PaymentID:       &req.PaymentID,
				UpdatedAt:       now,
				IfPaymentStatus: &order.PaymentStatus,
			}
			if order.Status == models.OrderStatusPending {
				update.Status = &confirmed
			}
			if err := tx.Orders().UpdateFields(ctx, id, update); err != nil {
				return storeError(err, "failed to update order %s", id)
			}

			order.PaymentStatus = paid
			order.PaymentID = req.PaymentID
			if update.Status != nil {
				order.Status = confirmed
			}
			order.UpdatedAt = now
			orders = append(orders, *order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, o := range orders {
		if o.Status == confirmed {
			s.metrics.StatusUpdated(o.Status)
		}
		s.events.emit(ctx, events.TypeOrderPaid, o.ID, events.OrderPaidPayload{
			OrderID:   o.ID,
			SellerID:  o.SellerID,
			PaymentID: o.PaymentID,
		})
	}
	s.logger.Info("payment confirmed",
		zap.String("payment_id", req.PaymentID),
		zap.Int("orders", len(orders)),
		zap.String("by", caller.UserID))
	return orders, nil
}
