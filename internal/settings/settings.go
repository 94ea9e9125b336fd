// Package settings serves the OTP gated per-number config routes.
package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/otp"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/webhook"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/router"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/validation"
)

type Gate interface {
	Issue(ctx context.Context, number string, cfg config.Overrides) (string, error)
	Verify(ctx context.Context, number string, code string) error
}

type Connections interface {
	Get(number string) (session.Conn, bool)
}

type Events interface {
	Dispatch(number string, eventType webhook.EventType, data map[string]interface{})
}

type Handler struct {
	gate   Gate
	conns  Connections
	events Events
}

func New(gate Gate, conns Connections, events Events) *Handler {
	return &Handler{gate: gate, conns: conns, events: events}
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

// UpdateConfig validates the requested settings and sends an OTP to the
// number's own chat. Nothing is applied until VerifyOTP.
func (h *Handler) UpdateConfig(c *fiber.Ctx) error {
	number := validation.SanitizeNumber(c.Query("number"))
	raw := strings.TrimSpace(c.Query("config"))
	if number == "" || raw == "" {
		return router.ResponseBadRequest(c, "Number and config are required")
	}

	overrides, err := config.ParseOverrides(raw)
	if err != nil {
		return router.ResponseBadRequest(c, "Invalid config format: "+err.Error())
	}

	if _, ok := h.conns.Get(number); !ok {
		return router.ResponseNotFound(c, "No active session found for this number")
	}

	if _, err := h.gate.Issue(userContext(c), number, overrides); err != nil {
		log.Print(c).WithField("number", log.Mask(number)).WithError(err).Error("Failed to send OTP")
		return router.ResponseInternalError(c, "Failed to send OTP")
	}
	return router.ResponseSuccessWithData(c, "OTP sent to your number", fiber.Map{"status": "otp_sent"})
}

// VerifyOTP applies the pending settings when the code matches
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	number := validation.SanitizeNumber(c.Query("number"))
	code := strings.TrimSpace(c.Query("otp"))
	if number == "" || code == "" {
		return router.ResponseBadRequest(c, "Number and OTP are required")
	}

	err := h.gate.Verify(userContext(c), number, code)
	switch {
	case err == nil:
	case errors.Is(err, otp.ErrNoPending):
		return router.ResponseBadRequest(c, "No OTP request found for this number")
	case errors.Is(err, otp.ErrExpired):
		return router.ResponseBadRequest(c, "OTP has expired")
	case errors.Is(err, otp.ErrMismatch):
		return router.ResponseBadRequest(c, "Invalid OTP")
	default:
		log.Print(c).WithField("number", log.Mask(number)).WithError(err).Error("Failed to apply config")
		return router.ResponseInternalError(c, "Failed to update config")
	}

	h.events.Dispatch(number, webhook.EventConfigUpdated, nil)
	return router.ResponseSuccessWithData(c, "Config updated successfully", fiber.Map{"status": "success"})
}
