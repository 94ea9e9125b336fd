// Package index serves the liveness routes.
package index

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/router"
)

// Counter reports how many sessions are open.
type Counter interface {
	Count() int
}

type Handler struct {
	botName  string
	sessions Counter
}

func New(botName string, sessions Counter) *Handler {
	return &Handler{botName: botName, sessions: sessions}
}

// Index reports that the server is up
func (h *Handler) Index(c *fiber.Ctx) error {
	return router.ResponseSuccess(c, h.botName+" is running")
}

// Ping reports liveness and the active session count
func (h *Handler) Ping(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, h.botName+" is running", fiber.Map{
		"status":        "active",
		"message":       h.botName + " is running",
		"activesession": h.sessions.Count(),
	})
}
