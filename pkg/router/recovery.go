package router

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
)

// RecoveryMiddleware converts panics into structured JSON responses.
// It must be registered before application routes.
func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				message := fmt.Sprintf("%v", rec)
				log.Print(c).Error("panic recovered: " + message)
				err = c.Status(fiber.StatusInternalServerError).JSON(Response{
					Status:  false,
					Code:    fiber.StatusInternalServerError,
					Message: "Internal Server Error",
					Error:   message,
				})
			}
		}()
		return c.Next()
	}
}
