package handlers

import (
	"fmt"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/middleware"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// IdempotencyHeader carries the client chosen key of a checkout.
const IdempotencyHeader = "Idempotency-Key"

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	logger  *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the order routes. Every route needs auth.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Patch("/:id/status", middleware.RequireRoles(models.RoleSeller, models.RoleAdmin), h.HandleUpdateOrderStatus)
}

// HandleGetOrders lists orders. ?scope=seller lists the caller's store
// orders, ?scope=all every order (admin); the default is the caller's own
// purchases.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	caller := middleware.CurrentIdentity(c)
	var (
		orders []models.Order
		err    error
	)
	switch scope := c.Query("scope", "customer"); scope {
	case "customer":
		orders, err = h.service.ListCustomerOrders(c.UserContext(), caller)
	case "seller":
		orders, err = h.service.ListSellerOrders(c.UserContext(), caller)
	case "all":
		orders, err = h.service.ListAllOrders(c.UserContext(), caller)
	default:
		err = apperr.Invalid(map[string]string{"scope": fmt.Sprintf("unknown scope '%s'", scope)})
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(order)
}

// HandleCreateOrder checks out a cart and answers with one order per seller.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	req.IdempotencyKey = c.Get(IdempotencyHeader)

	orders, err := h.service.CreateOrders(c.UserContext(), middleware.CurrentIdentity(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("%d order(s) created", len(orders)),
		"orders":  orders,
	})
}

// HandleUpdateOrderStatus changes the status and/or tracking number of an order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req services.StatusUpdate
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	order, err := h.service.UpdateOrderStatus(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %s updated", order.ID),
		"order":   order,
	})
}
