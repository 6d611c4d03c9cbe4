package repositories

import (
	"context"
	"fmt"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products from the database.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// ListBySeller retrieves the products listed by one seller.
func (r *GORMProductRepository) ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).Order("created_at, id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products of seller %s: %w", sellerID, err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("product with ID %s: %w", id, translate(err))
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

// Update updates the editable fields of an existing product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product, expectedStock *int) error {
	columns := []string{"name", "description", "price"}
	q := r.db.WithContext(ctx).Model(&models.Product{ID: product.ID})
	if expectedStock != nil {
		columns = append(columns, "stock")
		q = q.Where("stock = ?", *expectedStock)
	}
	res := q.Select(columns).Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", product.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up product %s: %w", product.ID, err)
	}
	if count == 0 {
		return fmt.Errorf("product with ID %s not found for update: %w", product.ID, ErrNotFound)
	}
	return fmt.Errorf("stock of product %s: %w", product.ID, ErrStaleWrite)
}

// Delete soft-deletes a product by its ID.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// DecrementStock implements ProductRepository with a single guarded UPDATE.
func (r *GORMProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock of product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	// Nothing matched: tell a missing product apart from an exhausted one.
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up product %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("product with ID %s: %w", id, ErrInsufficientStock)
}
