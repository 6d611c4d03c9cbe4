package middleware

import (
	"context"
	"strings"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const identityKey = "identity"

// TokenValidator resolves a session token to a caller identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (models.Identity, error)
}

// AuthRequired is a Fiber middleware that resolves the caller from the
// session cookie or an "Authorization: Bearer" header and stores the
// identity for subsequent handlers.
func AuthRequired(validator TokenValidator, cookieName string, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		tokenString, err := SessionToken(c, cookieName)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": err.Error(),
				"kind":    apperr.Unauthenticated.String(),
			})
		}

		identity, err := validator.ValidateToken(c.UserContext(), tokenString)
		if err != nil {
			logger.Debug("session token rejected", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
				"kind":    apperr.Unauthenticated.String(),
			})
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// SessionToken returns the token from the session cookie, or else from the
// Bearer header.
func SessionToken(c *fiber.Ctx, cookieName string) (string, error) {
	if cookieName != "" {
		if token := c.Cookies(cookieName); token != "" {
			return token, nil
		}
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", apperr.New(apperr.Unauthenticated, "Authentication required")
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || parts[1] == "" {
		return "", apperr.New(apperr.Unauthenticated, "Authorization header format must be 'Bearer <token>'")
	}
	return parts[1], nil
}

// CurrentIdentity returns the caller stored by AuthRequired, or the zero
// Identity on routes without it.
func CurrentIdentity(c *fiber.Ctx) models.Identity {
	identity, _ := c.Locals(identityKey).(models.Identity)
	return identity
}

// RequireRoles rejects callers whose role is not listed. It must run after
// AuthRequired.
func RequireRoles(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		identity := CurrentIdentity(c)
		if identity.IsZero() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
				"kind":    apperr.Unauthenticated.String(),
			})
		}
		if !allowed[identity.Role] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Insufficient permissions",
				"kind":    apperr.Forbidden.String(),
			})
		}
		return c.Next()
	}
}
