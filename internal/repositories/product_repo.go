package repositories

import (
	"context"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// Update writes name, description and price. Stock is written only when
	// expectedStock is set, and only while the stored stock still equals it;
	// otherwise ErrStaleWrite.
	Update(ctx context.Context, product *models.Product, expectedStock *int) error
	Delete(ctx context.Context, id string) error

	// DecrementStock subtracts qty from the product's stock only if at least
	// qty units remain. It never reads and writes in two steps.
	DecrementStock(ctx context.Context, id string, qty int) error
}
