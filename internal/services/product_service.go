package services

import (
	"context"
	"errors"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"

	"github.com/shopspring/decimal"
)

// priceScale is the number of decimal places a price may carry.
const priceScale = 2

// ProductInput describes a new product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=3,max=100"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

// ProductUpdate edits a product. Stock is optional: when set, ExpectedStock
// must carry the stock the caller last read, and the edit fails with Conflict
// if sales moved it since.
type ProductUpdate struct {
	Name          string          `json:"name" validate:"required,min=3,max=100"`
	Description   string          `json:"description" validate:"omitempty,max=500"`
	Price         decimal.Decimal `json:"price"`
	Stock         *int            `json:"stock,omitempty" validate:"omitempty,gte=0"`
	ExpectedStock *int            `json:"expected_stock,omitempty" validate:"omitempty,gte=0"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo    repositories.ProductRepository
	sellers repositories.SellerRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, sellers repositories.SellerRepository) *ProductService {
	return &ProductService{
		repo:    repo,
		sellers: sellers,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list products")
	}
	return products, nil
}

// GetProductsBySeller retrieves the listings of one seller.
func (s *ProductService) GetProductsBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	products, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, storeError(err, "failed to list products of seller %s", sellerID)
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "product %s not found", id)
	}
	return product, nil
}

// CreateProduct lists a new product under the caller's approved store.
func (s *ProductService) CreateProduct(ctx context.Context, caller models.Identity, in ProductInput) (*models.Product, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	seller, err := s.callerSeller(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !seller.IsApproved {
		return nil, apperr.New(apperr.Forbidden, "seller %s is not approved yet", seller.ID)
	}

	product := &models.Product{
		SellerID:    seller.ID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, storeError(err, "failed to create product")
	}
	return product, nil
}

// UpdateProduct edits a product owned by the caller. Admins may edit any product.
func (s *ProductService) UpdateProduct(ctx context.Context, caller models.Identity, id string, in ProductUpdate) (*models.Product, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	if in.Stock != nil && in.ExpectedStock == nil {
		return nil, apperr.Invalid(map[string]string{"ExpectedStock": "Field 'ExpectedStock' is required when 'Stock' is set"})
	}
	product, err := s.authorizedProduct(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	var expected *int
	if in.Stock != nil {
		expected = in.ExpectedStock
		product.Stock = *in.Stock
	}
	if err := s.repo.Update(ctx, product, expected); err != nil {
		return nil, storeError(err, "failed to update product %s", id)
	}
	return product, nil
}

// DeleteProduct removes a product owned by the caller. Admins may remove any product.
func (s *ProductService) DeleteProduct(ctx context.Context, caller models.Identity, id string) error {
	if _, err := s.authorizedProduct(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "failed to delete product %s", id)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return apperr.Invalid(map[string]string{"Price": "Field 'Price' failed on the 'gt' tag"})
	}
	if !price.Equal(price.Truncate(priceScale)) {
		return apperr.Invalid(map[string]string{"Price": "Field 'Price' allows at most 2 decimal places"})
	}
	return nil
}

func (s *ProductService) callerSeller(ctx context.Context, caller models.Identity) (*models.Seller, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if caller.Role != models.RoleSeller {
		return nil, apperr.New(apperr.Forbidden, "only sellers can manage products")
	}
	seller, err := s.sellers.GetByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Wrap(apperr.Forbidden, err, "caller has no seller profile")
		}
		return nil, storeError(err, "failed to load seller profile")
	}
	return seller, nil
}

func (s *ProductService) authorizedProduct(ctx context.Context, caller models.Identity, id string) (*models.Product, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if caller.Role != models.RoleAdmin && caller.Role != models.RoleSeller {
		return nil, apperr.New(apperr.Forbidden, "only sellers can manage products")
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "product %s not found", id)
	}
	if caller.Role == models.RoleAdmin {
		return product, nil
	}
	seller, err := s.callerSeller(ctx, caller)
	if err != nil {
		return nil, err
	}
	if product.SellerID != seller.ID {
		return nil, apperr.New(apperr.Forbidden, "product %s belongs to another seller", id)
	}
	return product, nil
}
