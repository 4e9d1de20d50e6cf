// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"webar-publish-system/models"
)

// TokenVerifier resolves a bearer token to its user. Implemented by
// services.AuthService for both token strategies.
type TokenVerifier interface {
	VerifyToken(token string) (*models.User, error)
}

// AuthRequired guards admin routes with a bearer token. On success the
// user is attached to ctx Locals as "user".
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing Authorization header",
			})
		}

		// Parse "Bearer <token>"; fall back to the raw value if the
		// prefix is absent.
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			token = authHeader
		}

		user, err := verifier.VerifyToken(token)
		if err != nil || user == nil {
			log.Printf("🚫 [AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// UserOrJobSecret admits either an authenticated user or a machine
// caller holding the job secret. Used on the upload sign/complete
// routes, which the generation job also needs.
func UserOrJobSecret(verifier TokenVerifier, jobSecret string) fiber.Handler {
	authed := AuthRequired(verifier)
	return func(c *fiber.Ctx) error {
		if IsJobSecretValid(c, jobSecret) {
			return c.Next()
		}
		return authed(c)
	}
}
