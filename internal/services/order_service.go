package services

import (
	"context"
	"errors"
	"time"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/events"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/idempotency"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/metrics"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultCommissionRate applies when a seller has no rate of its own.
var DefaultCommissionRate = decimal.New(1, -1)

// LineItem is one (product, quantity) pair of a cart.
type LineItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CheckoutRequest is a cart submitted for purchase.
type CheckoutRequest struct {
	Items           []LineItem              `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *models.ShippingAddress `json:"shipping_address" validate:"required"`
	PaymentMethod   string                  `json:"payment_method" validate:"required,oneof=card upi netbanking wallet cod"`

	// GatewayOrderID is the payment gateway's order reference for this
	// checkout. Every created order records it and only a payment signed for
	// it can settle them. Left empty, one is generated.
	GatewayOrderID string `json:"gateway_order_id" validate:"omitempty,max=100"`

	// IdempotencyKey deduplicates repeated submissions of the same cart.
	IdempotencyKey string `json:"-"`
}

// StatusUpdate changes the fulfilment fields of an order. Nil fields are left
// as they are.
type StatusUpdate struct {
	Status         *models.OrderStatus `json:"status,omitempty"`
	TrackingNumber *string             `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
}

// OrderServiceConfig holds the optional collaborators of OrderService.
type OrderServiceConfig struct {
	DefaultCommissionRate *decimal.Decimal
	Publisher             events.Publisher
	Guard                 idempotency.Guard
	Metrics               *metrics.Metrics
	Logger                *zap.Logger
	Producer              string
	Now                   func() time.Time
}

// OrderService handles checkout and the order lifecycle.
type OrderService struct {
	store       repositories.Store
	defaultRate decimal.Decimal
	guard       idempotency.Guard
	metrics     *metrics.Metrics
	logger      *zap.Logger
	events      emitter
	now         func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(store repositories.Store, cfg OrderServiceConfig) *OrderService {
	s := &OrderService{
		store:       store,
		defaultRate: DefaultCommissionRate,
		guard:       cfg.Guard,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if cfg.DefaultCommissionRate != nil {
		s.defaultRate = *cfg.DefaultCommissionRate
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

// validatedLine is a line item whose product was read during validation.
// product.Price is the price snapshot used for the order.
type validatedLine struct {
	product  models.Product
	quantity int
}

// sellerGroup holds the lines of one seller in cart order.
type sellerGroup struct {
	sellerID string
	lines    []validatedLine
}

// CreateOrders turns a cart into one order per seller.
//
// Every line item is validated before anything is written. The orders and
// stock decrements of all seller groups then commit in one transaction; stock
// is only ever decremented with a guarded update, so concurrent checkouts
// cannot oversell. Orders are returned in the order their sellers first
// appear in the cart.
func (s *OrderService) CreateOrders(ctx context.Context, caller models.Identity, req CheckoutRequest) (orders []models.Order, err error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required to place an order")
	}
	defer func() {
		if err != nil {
			s.metrics.CheckoutFailed(apperr.KindOf(err).String())
		}
	}()

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	items := mergeLineItems(req.Items)
	if req.GatewayOrderID == "" {
		req.GatewayOrderID = "gw_" + uuid.NewString()
	}

	if s.guard != nil && req.IdempotencyKey != "" {
		key := idempotency.CheckoutKey(caller.UserID, req.IdempotencyKey)
		claimed, gerr := s.guard.Acquire(ctx, key)
		switch {
		case gerr != nil:
			// Redis being down must not block checkout.
			s.logger.Warn("idempotency guard unavailable", zap.Error(gerr))
		case !claimed:
			return nil, apperr.New(apperr.Conflict, "checkout %s was already submitted", req.IdempotencyKey)
		default:
			defer func() {
				if err != nil {
					if rerr := s.guard.Release(context.WithoutCancel(ctx), key); rerr != nil {
						s.logger.Warn("failed to release idempotency key", zap.Error(rerr))
					}
				}
			}()
		}
	}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		lines, err := s.validateLines(ctx, tx, items)
		if err != nil {
			return err
		}
		orders, err = s.commitGroups(ctx, tx, caller.UserID, groupBySeller(lines), req)
		return err
	})
	if err != nil {
		s.logger.Info("checkout rejected",
			zap.String("customer_id", caller.UserID),
			zap.String("kind", apperr.KindOf(err).String()),
			zap.Error(err))
		return nil, err
	}

	for _, o := range orders {
		s.metrics.OrderCreated(o)
		s.events.emit(ctx, events.TypeOrderCreated, o.ID, events.OrderCreatedPayload{
			OrderID:          o.ID,
			CustomerID:       o.CustomerID,
			SellerID:         o.SellerID,
			Items:            o.Products,
			TotalAmount:      o.TotalAmount,
			CommissionAmount: o.CommissionAmount,
		})
	}
	s.logger.Info("checkout completed",
		zap.String("customer_id", caller.UserID),
		zap.Int("orders", len(orders)),
		zap.Int("line_items", len(items)))
	return orders, nil
}

// validateLines is the read-only pre-pass: every product must exist and hold
// enough stock before any order is written.
func (s *OrderService) validateLines(ctx context.Context, tx repositories.Store, items []LineItem) ([]validatedLine, error) {
	lines := make([]validatedLine, 0, len(items))
	for _, item := range items {
		product, err := tx.Products().GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, storeError(err, "product %s not found", item.ProductID)
		}
		if product.Stock < item.Quantity {
			return nil, apperr.New(apperr.InsufficientStock,
				"insufficient stock for product %s (requested: %d, available: %d)",
				product.ID, item.Quantity, product.Stock)
		}
		lines = append(lines, validatedLine{product: *product, quantity: item.Quantity})
	}
	return lines, nil
}

func (s *OrderService) commitGroups(ctx context.Context, tx repositories.Store, customerID string, groups []sellerGroup, req CheckoutRequest) ([]models.Order, error) {
	taken, err := tx.Orders().List(ctx, repositories.OrderFilter{GatewayOrderID: req.GatewayOrderID})
	if err != nil {
		return nil, storeError(err, "failed to look up gateway order %s", req.GatewayOrderID)
	}
	if len(taken) > 0 {
		return nil, apperr.New(apperr.Conflict, "gateway order %s belongs to another checkout", req.GatewayOrderID)
	}

	now := s.now().UTC()
	orders := make([]models.Order, 0, len(groups))
	for _, g := range groups {
		rate, err := s.commissionRate(ctx, tx, g.sellerID)
		if err != nil {
			return nil, err
		}

		order := buildOrder(customerID, g, rate, req, now)
		if err := tx.Orders().Create(ctx, &order); err != nil {
			return nil, storeError(err, "failed to create order for seller %s", g.sellerID)
		}

		for _, l := range g.lines {
			if err := tx.Products().DecrementStock(ctx, l.product.ID, l.quantity); err != nil {
				return nil, storeError(err, "insufficient stock for product %s", l.product.ID)
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// commissionRate reads the seller's rate at order time, falling back to the
// platform default when the seller or its rate is absent.
func (s *OrderService) commissionRate(ctx context.Context, tx repositories.Store, sellerID string) (decimal.Decimal, error) {
	seller, err := tx.Sellers().GetByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return s.defaultRate, nil
		}
		return decimal.Decimal{}, storeError(err, "failed to load seller %s", sellerID)
	}
	return seller.EffectiveCommissionRate(s.defaultRate), nil
}

// buildOrder computes totals from the validated price snapshot.
func buildOrder(customerID string, g sellerGroup, rate decimal.Decimal, req CheckoutRequest, now time.Time) models.Order {
	items := make([]models.OrderItem, 0, len(g.lines))
	total := decimal.Zero
	for _, l := range g.lines {
		item := models.OrderItem{
			ProductID: l.product.ID,
			Name:      l.product.Name,
			Quantity:  l.quantity,
			Price:     l.product.Price,
		}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}
	return models.Order{
		ID:               uuid.New().String(),
		CustomerID:       customerID,
		SellerID:         g.sellerID,
		Products:         items,
		TotalAmount:      total,
		CommissionRate:   rate,
		CommissionAmount: total.Mul(rate),
		Status:           models.OrderStatusPending,
		PaymentStatus:    models.PaymentStatusPending,
		ShippingAddress:  *req.ShippingAddress,
		PaymentMethod:    req.PaymentMethod,
		GatewayOrderID:   req.GatewayOrderID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// groupBySeller partitions lines by owning seller. Groups appear in the order
// their seller is first seen and keep the cart order of their lines.
func groupBySeller(lines []validatedLine) []sellerGroup {
	index := make(map[string]int)
	var groups []sellerGroup
	for _, l := range lines {
		i, ok := index[l.product.SellerID]
		if !ok {
			i = len(groups)
			index[l.product.SellerID] = i
			groups = append(groups, sellerGroup{sellerID: l.product.SellerID})
		}
		groups[i].lines = append(groups[i].lines, l)
	}
	return groups
}

// mergeLineItems folds repeated products into their first occurrence so the
// stock check sees the full requested quantity.
func mergeLineItems(items []LineItem) []LineItem {
	index := make(map[string]int, len(items))
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

// UpdateOrderStatus applies a status and/or tracking number change. Callers
// must be an admin or the seller owning the order. Any known status may
// follow any other; updatedAt is refreshed on every call.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, caller models.Identity, orderID string, req StatusUpdate) (*models.Order, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if caller.Role != models.RoleSeller && caller.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "only sellers and admins can update orders")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Status != nil && !models.ValidOrderStatus(*req.Status) {
		return nil, apperr.Invalid(map[string]string{"Status": "unknown order status '" + string(*req.Status) + "'"})
	}

	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "order %s not found", orderID)
	}
	if caller.Role == models.RoleSeller {
		if err := s.requireSellerOwns(ctx, caller, order); err != nil {
			return nil, err
		}
	}

	update := repositories.OrderUpdate{
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
		UpdatedAt:      s.now().UTC(),
	}
	if err := s.store.Orders().UpdateFields(ctx, orderID, update); err != nil {
		return nil, storeError(err, "failed to update order %s", orderID)
	}

	if req.Status != nil {
		order.Status = *req.Status
		s.metrics.StatusUpdated(order.Status)
	}
	if req.TrackingNumber != nil {
		order.TrackingNumber = *req.TrackingNumber
	}
	order.UpdatedAt = update.UpdatedAt

	s.events.emit(ctx, events.TypeOrderStatusChanged, order.ID, events.OrderStatusChangedPayload{
		OrderID:        order.ID,
		SellerID:       order.SellerID,
		CustomerID:     order.CustomerID,
		Status:         order.Status,
		TrackingNumber: order.TrackingNumber,
	})
	s.logger.Info("order updated",
		zap.String("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.String("by", caller.UserID))
	return order, nil
}

func (s *OrderService) requireSellerOwns(ctx context.Context, caller models.Identity, order *models.Order) error {
	seller, err := s.store.Sellers().GetByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.Wrap(apperr.Forbidden, err, "caller has no seller profile")
		}
		return storeError(err, "failed to load seller profile")
	}
	if order.SellerID != seller.ID {
		return apperr.New(apperr.Forbidden, "order %s belongs to another seller", order.ID)
	}
	return nil
}

// GetOrder returns an order visible to the caller: its customer, its seller,
// or an admin.
func (s *OrderService) GetOrder(ctx context.Context, caller models.Identity, orderID string) (*models.Order, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "order %s not found", orderID)
	}
	switch {
	case caller.Role == models.RoleAdmin, order.CustomerID == caller.UserID:
		return order, nil
	case caller.Role == models.RoleSeller:
		if err := s.requireSellerOwns(ctx, caller, order); err != nil {
			return nil, err
		}
		return order, nil
	default:
		return nil, apperr.New(apperr.Forbidden, "order %s belongs to another customer", orderID)
	}
}

// ListCustomerOrders returns the caller's own purchases, newest first.
func (s *OrderService) ListCustomerOrders(ctx context.Context, caller models.Identity) ([]models.Order, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	orders, err := s.store.Orders().List(ctx, repositories.OrderFilter{CustomerID: caller.UserID})
	if err != nil {
		return nil, storeError(err, "failed to list orders")
	}
	return orders, nil
}

// ListSellerOrders returns the orders placed with the caller's store.
func (s *OrderService) ListSellerOrders(ctx context.Context, caller models.Identity) ([]models.Order, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if caller.Role != models.RoleSeller {
		return nil, apperr.New(apperr.Forbidden, "seller role required")
	}
	seller, err := s.store.Sellers().GetByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Wrap(apperr.Forbidden, err, "caller has no seller profile")
		}
		return nil, storeError(err, "failed to load seller profile")
	}
	orders, err := s.store.Orders().List(ctx, repositories.OrderFilter{SellerID: seller.ID})
	if err != nil {
		return nil, storeError(err, "failed to list orders")
	}
	return orders, nil
}

// ListAllOrders returns every order. Admin only.
func (s *OrderService) ListAllOrders(ctx context.Context, caller models.Identity) ([]models.Order, error) {
	if caller.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "admin role required")
	}
	orders, err := s.store.Orders().List(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, storeError(err, "failed to list orders")
	}
	return orders, nil
}
