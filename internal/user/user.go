// Package user serves profile lookups through a bot number's connection.
package user

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/router"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/validation"
)

type Connections interface {
	Get(number string) (session.Conn, bool)
}

type Handler struct {
	conns Connections
}

func New(conns Connections) *Handler {
	return &Handler{conns: conns}
}

type ResponseAbout struct {
	Number     string     `json:"number"`
	About      string     `json:"about"`
	SetAt      *time.Time `json:"setAt"`
	IsBusiness bool       `json:"isBusiness"`
}

// normalizeTarget reduces a JID like "94700000001:74@s.whatsapp.net" or a
// formatted phone number to its digits.
func normalizeTarget(raw string) string {
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}
	if at := strings.Index(raw, "@"); at != -1 {
		raw = raw[:at]
	}
	if colon := strings.Index(raw, ":"); colon != -1 {
		raw = raw[:colon]
	}
	return validation.SanitizeNumber(raw)
}

// GetAbout returns the about text of target as seen by number
func (h *Handler) GetAbout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	number := validation.SanitizeNumber(c.Query("number"))
	target := normalizeTarget(c.Query("target"))
	if number == "" || target == "" {
		return router.ResponseBadRequest(c, "Number and target are required")
	}

	conn, ok := h.conns.Get(number)
	if !ok {
		return router.ResponseNotFound(c, "No active session found for this number")
	}

	logger := log.Print(c).WithField("number", log.Mask(number)).WithField("target_user", log.Mask(target))
	info, err := conn.UserInfo(ctx, target)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotOnWhatsApp):
		return router.ResponseNotFound(c, "User not found on WhatsApp")
	case errors.Is(err, session.ErrNotConnected):
		return router.ResponseServiceUnavailable(c, "Connection is not open")
	default:
		logger.WithError(err).Error("Failed to get user info")
		return router.ResponseInternalError(c, "Failed to get about status")
	}

	res := ResponseAbout{Number: target, About: info.About, IsBusiness: info.IsBusiness}
	if !info.AboutSetAt.IsZero() {
		setAt := info.AboutSetAt
		res.SetAt = &setAt
	}
	logger.Info("User info retrieved successfully")
	return router.ResponseSuccessWithData(c, "Success get about status", res)
}
