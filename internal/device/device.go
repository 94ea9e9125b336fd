// Package device serves the pairing and session sweep routes.
package device

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/supervisor"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/router"
)

// Sessions is the part of the supervisor used by the device routes.
type Sessions interface {
	Connect(ctx context.Context, number string) (supervisor.Result, error)
	Active() []string
	ConnectKnown(ctx context.Context) ([]supervisor.SweepResult, error)
	Reconnect(ctx context.Context) ([]supervisor.SweepResult, error)
}

type Handler struct {
	sessions Sessions
}

func New(sessions Sessions) *Handler {
	return &Handler{sessions: sessions}
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

// Pair starts pairing for number or restores its stored session
func (h *Handler) Pair(c *fiber.Ctx) error {
	number := strings.TrimSpace(c.Query("number"))
	if number == "" {
		number = strings.TrimSpace(c.FormValue("number"))
	}
	if number == "" {
		return router.ResponseBadRequest(c, "Number parameter is required")
	}

	res, err := h.sessions.Connect(userContext(c), number)
	switch {
	case err == nil:
	case errors.Is(err, supervisor.ErrInvalidNumber):
		return router.ResponseBadRequest(c, "Invalid number")
	case errors.Is(err, supervisor.ErrAlreadyConnected):
		return router.ResponseConflict(c, "This number is already connected", fiber.Map{"status": "already_connected"})
	case errors.Is(err, supervisor.ErrConnectInProgress):
		return router.ResponseConflict(c, "A connection attempt for this number is in progress", fiber.Map{"status": "in_progress"})
	case errors.Is(err, supervisor.ErrPairingFailed):
		log.Print(c).WithError(err).Warn("Pairing failed")
		return router.ResponseServiceUnavailable(c, "Service Unavailable")
	case errors.Is(err, supervisor.ErrShuttingDown):
		return router.ResponseServiceUnavailable(c, "Server is shutting down")
	default:
		log.Print(c).WithError(err).Error("Connect failed")
		return router.ResponseInternalError(c, "Failed to connect")
	}

	if res.Restored {
		return router.ResponseSuccessWithData(c, "Session restored from stored credentials", fiber.Map{"status": "restored"})
	}
	return router.ResponseSuccessWithData(c, "Success generate pairing code", fiber.Map{"code": res.Code})
}

// Active lists the numbers with an open connection
func (h *Handler) Active(c *fiber.Ctx) error {
	numbers := h.sessions.Active()
	return router.ResponseSuccessWithData(c, "Success get active sessions", fiber.Map{
		"count":   len(numbers),
		"numbers": numbers,
	})
}

func sweepResponse(c *fiber.Ctx, results []supervisor.SweepResult, err error, empty string) error {
	if errors.Is(err, supervisor.ErrNothingToReconnect) {
		return router.ResponseNotFound(c, empty)
	}
	if err != nil {
		log.Print(c).WithError(err).Error("Sweep failed")
		return router.ResponseInternalError(c, "Failed to connect")
	}
	return router.ResponseSuccessWithData(c, "Success initiate connections", fiber.Map{"connections": results})
}

// ConnectAll connects every number in the known numbers list
func (h *Handler) ConnectAll(c *fiber.Ctx) error {
	results, err := h.sessions.ConnectKnown(userContext(c))
	return sweepResponse(c, results, err, "No numbers found to connect")
}

// Reconnect connects every session held in the store
func (h *Handler) Reconnect(c *fiber.Ctx) error {
	results, err := h.sessions.Reconnect(userContext(c))
	return sweepResponse(c, results, err, "No session records found")
}
