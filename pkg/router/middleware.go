package router

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func HttpRealIP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if xForwardedFor := c.Get(http.CanonicalHeaderKey("X-Forwarded-For")); xForwardedFor != "" {
			first, _, _ := strings.Cut(xForwardedFor, ",")
			c.Locals("remote_ip", strings.TrimSpace(first))
		} else if xRealIP := c.Get(http.CanonicalHeaderKey("X-Real-IP")); xRealIP != "" {
			c.Locals("remote_ip", strings.TrimSpace(xRealIP))
		}
		return c.Next()
	}
}

// HttpRequestID reuses an inbound X-Request-ID or mints a new one.
func HttpRequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set(fiber.HeaderXRequestID, id)
		return c.Next()
	}
}
