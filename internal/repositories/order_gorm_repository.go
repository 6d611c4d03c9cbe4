package repositories

import (
	"context"
	"fmt"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// List returns matching orders, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.SellerID != "" {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	if filter.GatewayOrderID != "" {
		q = q.Where("gateway_order_id = ?", filter.GatewayOrderID)
	}
	if filter.PaymentID != "" {
		q = q.Where("payment_id = ?", filter.PaymentID)
	}
	var orders []models.Order
	if err := q.Order("created_at DESC, id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves an order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("order with ID %s: %w", id, translate(err))
	}
	return &order, nil
}

// Create inserts a new order.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", translate(err))
	}
	return nil
}

// UpdateFields writes the non-nil fields of update plus updated_at.
func (r *GORMOrderRepository) UpdateFields(ctx context.Context, id string, update OrderUpdate) error {
	values := map[string]interface{}{"updated_at": update.UpdatedAt}
	if update.Status != nil {
		values["status"] = *update.Status
	}
	if update.TrackingNumber != nil {
		values["tracking_number"] = *update.TrackingNumber
	}
	if update.PaymentStatus != nil {
		values["payment_status"] = *update.PaymentStatus
	}
	if update.PaymentID != nil {
		values["payment_id"] = *update.PaymentID
	}
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id)
	if update.IfPaymentStatus != nil {
		q = q.Where("payment_status = ?", *update.IfPaymentStatus)
	}
	res := q.Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up order %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("order with ID %s not found for update: %w", id, ErrNotFound)
	}
	return fmt.Errorf("payment status of order %s: %w", id, ErrStaleWrite)
}
