// Package admin serves the operator routes under /admin.
package admin

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/store"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/supervisor"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/auth"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/router"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/whatsapp"
)

type Sessions interface {
	Active() []string
	Delete(ctx context.Context, number string) error
}

type Records interface {
	List(ctx context.Context) ([]store.Record, error)
}

type KnownNumbers interface {
	Load() ([]string, error)
}

type Versions interface {
	Status() whatsapp.VersionStatus
	Refresh(ctx context.Context, force bool) (whatsapp.VersionStatus, bool, error)
}

type Options struct {
	Keys     auth.Keys
	Sessions Sessions
	Records  Records
	Numbers  KnownNumbers
	Versions Versions
	Started  time.Time
}

type Handler struct {
	opts Options
}

func New(opts Options) *Handler {
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	return &Handler{opts: opts}
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

type ResponseStats struct {
	ActiveSessions int    `json:"active_sessions"`
	StoredSessions int    `json:"stored_sessions"`
	KnownNumbers   int    `json:"known_numbers"`
	Uptime         string `json:"uptime"`
	Goroutines     int    `json:"goroutines"`
	HeapAllocMB    uint64 `json:"heap_alloc_mb"`
}

// GetStats summarizes the sessions held by this process
func (h *Handler) GetStats(c *fiber.Ctx) error {
	records, err := h.opts.Records.List(userContext(c))
	if err != nil {
		log.Print(c).WithError(err).Error("Failed to list session records")
		return router.ResponseInternalError(c, "Failed to list session records")
	}
	known, err := h.opts.Numbers.Load()
	if err != nil {
		log.Print(c).WithError(err).Warn("Failed to load known numbers")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return router.ResponseSuccessWithData(c, "Success get stats", ResponseStats{
		ActiveSessions: len(h.opts.Sessions.Active()),
		StoredSessions: len(records),
		KnownNumbers:   len(known),
		Uptime:         time.Since(h.opts.Started).Round(time.Second).String(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocMB:    mem.HeapAlloc / 1024 / 1024,
	})
}

// DeleteSession logs a number out and removes its stored session
func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	err := h.opts.Sessions.Delete(userContext(c), c.Params("number"))
	if errors.Is(err, supervisor.ErrInvalidNumber) {
		return router.ResponseBadRequest(c, "Invalid number")
	}
	if err != nil {
		log.Print(c).WithError(err).Error("Failed to delete session")
		return router.ResponseInternalError(c, "Failed to delete session")
	}
	return router.ResponseSuccess(c, "Session deleted")
}

// GetWhatsAppWebVersion reports the advertised WhatsApp Web version
func (h *Handler) GetWhatsAppWebVersion(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, "Success get WhatsApp Web version", h.opts.Versions.Status())
}

// RefreshWhatsAppWebVersion fetches the latest version; ?force=true skips the throttle
func (h *Handler) RefreshWhatsAppWebVersion(c *fiber.Ctx) error {
	force := strings.EqualFold(c.Query("force"), "true")
	status, attempted, err := h.opts.Versions.Refresh(userContext(c), force)
	if err != nil {
		log.Print(c).WithError(err).Error("WA Web version refresh failed")
		return router.ResponseBadGateway(c, "Failed to refresh WhatsApp Web version")
	}
	message := "WhatsApp Web version refreshed"
	if !attempted {
		message = "WhatsApp Web version refreshed recently, skipping"
	}
	return router.ResponseSuccessWithData(c, message, status)
}

// IssueToken signs an operator token usable as a Bearer credential
func (h *Handler) IssueToken(c *fiber.Ctx) error {
	subject := strings.TrimSpace(c.Query("subject"))
	if subject == "" {
		subject = "admin"
	}

	token, expires, err := auth.GenerateOperatorToken(h.opts.Keys, subject)
	if errors.Is(err, auth.ErrNoJWTSecret) {
		return router.ResponseServiceUnavailable(c, "JWT secret key not configured")
	}
	if err != nil {
		log.Print(c).WithError(err).Error("Failed to sign operator token")
		return router.ResponseInternalError(c, "Failed to generate token")
	}
	return router.ResponseSuccessWithData(c, "Success generate token", fiber.Map{
		"token":      token,
		"expires_at": expires,
	})
}
