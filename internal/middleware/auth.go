// Package middleware provides request logging, tracing and authentication middleware.
package middleware

import (
	"context"
	"strings"

	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenResolver turns a bearer token into the id of the verified viewer.
type TokenResolver interface {
	Verify(ctx context.Context, token string) (uint, error)
}

// AuthRequired rejects requests without a valid bearer token before any
// handler runs, and stores the viewer id in the "userID" local.
func AuthRequired(resolver TokenResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return models.RespondWithError(c, models.NewUnauthorizedError("Authorization header required"))
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return models.RespondWithError(c, models.NewUnauthorizedError("Invalid authorization header format"))
		}

		viewerID, err := resolver.Verify(c.UserContext(), strings.TrimSpace(token))
		if err != nil {
			Logger.DebugContext(c.UserContext(), "bearer token rejected", "error", err)
			return models.RespondWithError(c, models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals("userID", viewerID)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, viewerID))
		return c.Next()
	}
}
