package handlers

import (
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/middleware"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service *services.ProductService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{service: service, logger: logger}
}

// RegisterRoutes registers the product routes. Reads are public; writes need
// auth and a seller or admin role.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)

	manage := middleware.RequireRoles(models.RoleSeller, models.RoleAdmin)
	productRoutes.Post("/", auth, manage, h.HandleCreateProduct)
	productRoutes.Put("/:id", auth, manage, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", auth, manage, h.HandleDeleteProduct)
}

// HandleGetProducts lists the catalog, optionally filtered by ?seller_id=.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	var (
		products []models.Product
		err      error
	)
	if sellerID := c.Query("seller_id"); sellerID != "" {
		products, err = h.service.GetProductsBySeller(c.UserContext(), sellerID)
	} else {
		products, err = h.service.GetAllProducts(c.UserContext())
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct lists a new product under the caller's store.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, h.logger, err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), middleware.CurrentIdentity(c), in)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces the editable fields of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var in services.ProductUpdate
	if err := parseBody(c, &in); err != nil {
		return respondError(c, h.logger, err)
	}
	product, err := h.service.UpdateProduct(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
