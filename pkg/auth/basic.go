package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/router"
)

func validSecret(keys Keys, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(secret), []byte(keys.AdminSecret)) == 1
}

// AdminAuth validates the X-Admin-Secret header for admin endpoints
func AdminAuth(keys Keys) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !keys.Enabled() {
			return router.ResponseServiceUnavailable(c, "Admin secret key not configured")
		}

		adminSecret := c.Get("X-Admin-Secret")
		if adminSecret == "" {
			return router.ResponseUnauthorized(c, "Missing X-Admin-Secret header")
		}
		if !validSecret(keys, adminSecret) {
			return router.ResponseUnauthorized(c, "Invalid admin secret")
		}

		c.Locals("operator", "admin")
		return c.Next()
	}
}

// OperatorAuth accepts either the admin secret or a Bearer operator token.
// Without an admin secret configured the routes stay open.
func OperatorAuth(keys Keys) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !keys.Enabled() {
			return c.Next()
		}

		if adminSecret := c.Get("X-Admin-Secret"); adminSecret != "" {
			if !validSecret(keys, adminSecret) {
				return router.ResponseUnauthorized(c, "Invalid admin secret")
			}
			c.Locals("operator", "admin")
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return router.ResponseUnauthorized(c, "Missing X-Admin-Secret or Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return router.ResponseUnauthorized(c, "Invalid Authorization header format. Use: Bearer <token>")
		}

		claims, err := ValidateOperatorToken(keys, parts[1])
		if err != nil {
			return router.ResponseUnauthorized(c, "Invalid or expired token")
		}

		c.Locals("operator", claims.Subject)
		return c.Next()
	}
}
