package repositories

import (
	"context"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
)

// SellerRepository defines the interface for seller data access.
type SellerRepository interface {
	GetAll(ctx context.Context) ([]models.Seller, error)
	GetByID(ctx context.Context, id string) (*models.Seller, error)
	GetByUserID(ctx context.Context, userID string) (*models.Seller, error)
	Create(ctx context.Context, seller *models.Seller) error
	Update(ctx context.Context, seller *models.Seller) error
}
