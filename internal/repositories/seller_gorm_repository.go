package repositories

import (
	"context"
	"fmt"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMSellerRepository is a GORM implementation of SellerRepository.
type GORMSellerRepository struct {
	db *gorm.DB
}

// NewGORMSellerRepository creates a new instance of GORMSellerRepository.
func NewGORMSellerRepository(db *gorm.DB) *GORMSellerRepository {
	return &GORMSellerRepository{db: db}
}

// GetAll retrieves every seller profile.
func (r *GORMSellerRepository) GetAll(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&sellers).Error; err != nil {
		return nil, fmt.Errorf("failed to get all sellers: %w", err)
	}
	return sellers, nil
}

// GetByID retrieves a seller by its ID.
func (r *GORMSellerRepository) GetByID(ctx context.Context, id string) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).First(&seller, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("seller with ID %s: %w", id, translate(err))
	}
	return &seller, nil
}

// GetByUserID retrieves the seller profile owned by a user.
func (r *GORMSellerRepository) GetByUserID(ctx context.Context, userID string) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).First(&seller, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("seller of user %s: %w", userID, translate(err))
	}
	return &seller, nil
}

// Create creates a new seller profile.
func (r *GORMSellerRepository) Create(ctx context.Context, seller *models.Seller) error {
	if seller.ID == "" {
		seller.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(seller).Error; err != nil {
		return fmt.Errorf("failed to create seller: %w", translate(err))
	}
	return nil
}

// Update writes the reviewable fields of a seller profile.
func (r *GORMSellerRepository) Update(ctx context.Context, seller *models.Seller) error {
	res := r.db.WithContext(ctx).Model(&models.Seller{ID: seller.ID}).
		Select("store_name", "description", "commission_rate", "is_approved").
		Updates(seller)
	if res.Error != nil {
		return fmt.Errorf("failed to update seller: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("seller with ID %s not found for update: %w", seller.ID, ErrNotFound)
	}
	return nil
}
