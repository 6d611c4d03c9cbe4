package handlers

import (
	"errors"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError writes err as a JSON error body with the status of its kind.
// Internal errors are logged and their detail is not echoed to the client.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	var appErr *apperr.Error
	message := "Internal server error"
	if errors.As(err, &appErr) && kind != apperr.Internal {
		message = appErr.Message
	}

	body := fiber.Map{
		"message": message,
		"kind":    kind.String(),
	}
	if kind == apperr.Internal {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals("requestid")),
			zap.Error(err))
	} else {
		body["error"] = err.Error()
	}
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		body["errors"] = fields
	}
	return c.Status(status).JSON(body)
}

// parseBody decodes the JSON request body into out.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Wrap(apperr.InvalidInput, err, "Invalid request body")
	}
	return nil
}
