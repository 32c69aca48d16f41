package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/adikrnwn171/project-ticket-be/internal/services"
)

const principalContextKey = "principal"

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(token string) (*services.Claims, error)
}

// AuthMiddleware validates the bearer token and stores the caller's principal in context.
func AuthMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := services.ParseAuthorizationHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			return err
		}

		c.Locals(principalContextKey, claims.Principal())
		return c.Next()
	}
}

// CurrentPrincipal returns the authenticated caller set by AuthMiddleware.
func CurrentPrincipal(c *fiber.Ctx) (services.Principal, bool) {
	principal, ok := c.Locals(principalContextKey).(services.Principal)
	return principal, ok && principal.ID != 0
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uint, bool) {
	principal, ok := CurrentPrincipal(c)
	return principal.ID, ok
}
