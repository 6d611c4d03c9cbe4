package handlers

import (
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/middleware"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SellerHandler handles HTTP requests for store profiles.
type SellerHandler struct {
	service *services.SellerService
	logger  *zap.Logger
}

// NewSellerHandler creates a new SellerHandler.
func NewSellerHandler(service *services.SellerService, logger *zap.Logger) *SellerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SellerHandler{service: service, logger: logger}
}

// RegisterRoutes registers the seller routes.
func (h *SellerHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	sellerRoutes := router.Group("/sellers")
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	sellerRoutes.Post("/", auth, middleware.RequireRoles(models.RoleSeller), h.HandleRegister)
	sellerRoutes.Get("/", auth, adminOnly, h.HandleList)
	sellerRoutes.Get("/me", auth, h.HandleMe)
	sellerRoutes.Get("/:id", h.HandleGet)
	sellerRoutes.Patch("/:id/review", auth, adminOnly, h.HandleReview)
}

// HandleRegister opens a store for the calling seller.
func (h *SellerHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.SellerRegistration
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	seller, err := h.service.Register(c.UserContext(), middleware.CurrentIdentity(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(seller)
}

func (h *SellerHandler) HandleList(c *fiber.Ctx) error {
	sellers, err := h.service.List(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(sellers)
}

func (h *SellerHandler) HandleMe(c *fiber.Ctx) error {
	seller, err := h.service.GetByUser(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(seller)
}

func (h *SellerHandler) HandleGet(c *fiber.Ctx) error {
	seller, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(seller)
}

// HandleReview records an admin's approval decision and commission rate.
func (h *SellerHandler) HandleReview(c *fiber.Ctx) error {
	var req services.SellerReview
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	seller, err := h.service.Review(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(seller)
}
