package services

import (
	"context"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SellerRegistration is the body of a new store profile.
type SellerRegistration struct {
	StoreName   string `json:"store_name" validate:"required,min=3,max=120"`
	Description string `json:"description" validate:"omitempty,max=1000"`
}

// SellerReview is an admin decision on a seller profile.
type SellerReview struct {
	Approved       bool             `json:"approved"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
}

// SellerService manages store profiles.
type SellerService struct {
	repo   repositories.SellerRepository
	logger *zap.Logger
}

// NewSellerService creates a new SellerService.
func NewSellerService(repo repositories.SellerRepository, logger *zap.Logger) *SellerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SellerService{repo: repo, logger: logger}
}

// Register creates the caller's store profile. New profiles await approval.
func (s *SellerService) Register(ctx context.Context, caller models.Identity, req SellerRegistration) (*models.Seller, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if caller.Role != models.RoleSeller {
		return nil, apperr.New(apperr.Forbidden, "only seller accounts can open a store")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	seller := &models.Seller{
		UserID:      caller.UserID,
		StoreName:   req.StoreName,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, seller); err != nil {
		return nil, storeError(err, "failed to register seller")
	}
	s.logger.Info("seller registered", zap.String("seller_id", seller.ID), zap.String("user_id", caller.UserID))
	return seller, nil
}

// Get returns a seller profile by ID.
func (s *SellerService) Get(ctx context.Context, id string) (*models.Seller, error) {
	seller, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "seller %s not found", id)
	}
	return seller, nil
}

// GetByUser returns the profile owned by the caller.
func (s *SellerService) GetByUser(ctx context.Context, caller models.Identity) (*models.Seller, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	seller, err := s.repo.GetByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, storeError(err, "no seller profile for user %s", caller.UserID)
	}
	return seller, nil
}

// List returns every seller profile. Admin only.
func (s *SellerService) List(ctx context.Context, caller models.Identity) ([]models.Seller, error) {
	if caller.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "admin role required")
	}
	sellers, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list sellers")
	}
	return sellers, nil
}

// Review approves or suspends a seller and optionally sets its commission
// rate. Admin only.
func (s *SellerService) Review(ctx context.Context, caller models.Identity, sellerID string, req SellerReview) (*models.Seller, error) {
	if caller.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "admin role required")
	}
	if r := req.CommissionRate; r != nil && (r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1))) {
		return nil, apperr.Invalid(map[string]string{"CommissionRate": "commission rate must be within [0,1]"})
	}

	seller, err := s.repo.GetByID(ctx, sellerID)
	if err != nil {
		return nil, storeError(err, "seller %s not found", sellerID)
	}
	seller.IsApproved = req.Approved
	if req.CommissionRate != nil {
		rate := *req.CommissionRate
		seller.CommissionRate = &rate
	}
	if err := s.repo.Update(ctx, seller); err != nil {
		return nil, storeError(err, "failed to update seller %s", sellerID)
	}
	s.logger.Info("seller reviewed",
		zap.String("seller_id", seller.ID),
		zap.Bool("approved", seller.IsApproved),
		zap.String("reviewer", caller.UserID))
	return seller, nil
}
