package handlers

import (
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/middleware"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PaymentHandler receives payment gateway confirmations.
type PaymentHandler struct {
	service *services.PaymentService
	logger  *zap.Logger
}

func NewPaymentHandler(service *services.PaymentService, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{service: service, logger: logger}
}

func (h *PaymentHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/payments/verify", auth, h.HandleVerify)
}

// HandleVerify checks the gateway signature and marks the listed orders paid.
func (h *PaymentHandler) HandleVerify(c *fiber.Ctx) error {
	var req services.PaymentVerification
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	orders, err := h.service.ConfirmPayment(c.UserContext(), middleware.CurrentIdentity(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "Payment verified",
		"orders":  orders,
	})
}
