// Package otp gates per-number config changes behind a one-time passcode
// delivered to the bot's own chat.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/format"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/retry"
)

var (
	ErrNoPending = errors.New("no otp request found for this number")
	ErrExpired   = errors.New("otp has expired")
	ErrMismatch  = errors.New("invalid otp")
)

const (
	codeMin   = 100000
	codeRange = 900000
)

// Notifier delivers a text to the number's own chat.
type Notifier interface {
	NotifySelf(ctx context.Context, number string, text string) error
}

// ConfigStore persists an accepted config change.
type ConfigStore interface {
	PutConfig(ctx context.Context, number string, cfg config.Overrides) error
}

type pending struct {
	code   string
	expiry time.Time
	config config.Overrides
}

// Gate holds at most one pending code per number.
type Gate struct {
	ttl      time.Duration
	notifier Notifier
	store    ConfigStore
	botName  string
	retry    retry.Policy

	mu      sync.Mutex
	entries map[string]pending
	locks   map[string]*sync.Mutex

	now  func() time.Time
	rand io.Reader
}

func New(ttl time.Duration, notifier Notifier, store ConfigStore, botName string) *Gate {
	return &Gate{
		ttl:      ttl,
		notifier: notifier,
		store:    store,
		botName:  botName,
		entries:  make(map[string]pending),
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
		rand:     rand.Reader,
	}
}

// WithRetry bounds redelivery of a code whose send failed.
func (g *Gate) WithRetry(p retry.Policy) *Gate {
	g.retry = p
	return g
}

func (g *Gate) lock(number string) func() {
	g.mu.Lock()
	l, ok := g.locks[number]
	if !ok {
		l = &sync.Mutex{}
		g.locks[number] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (g *Gate) get(number string) (pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.entries[number]
	return p, ok
}

func (g *Gate) set(number string, p pending) {
	g.mu.Lock()
	g.entries[number] = p
	g.mu.Unlock()
}

func (g *Gate) clear(number string) {
	g.mu.Lock()
	delete(g.entries, number)
	g.mu.Unlock()
}

func (g *Gate) generate() (string, error) {
	n, err := rand.Int(g.rand, big.NewInt(codeRange))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

func (g *Gate) expiresIn() string {
	if g.ttl < time.Minute {
		return fmt.Sprintf("%d seconds", int(g.ttl/time.Second))
	}
	return fmt.Sprintf("%d minutes", int(g.ttl/time.Minute))
}

// Issue replaces any pending code for number and sends the new one. If the
// code cannot be delivered the pending entry is discarded.
func (g *Gate) Issue(ctx context.Context, number string, cfg config.Overrides) (string, error) {
	unlock := g.lock(number)
	defer unlock()

	code, err := g.generate()
	if err != nil {
		return "", err
	}
	g.set(number, pending{code: code, expiry: g.now().Add(g.ttl), config: cfg})

	text := format.Message("🔐 OTP VERIFICATION",
		fmt.Sprintf("Your OTP for config update is: *%s*\nThis OTP will expire in %s.", code, g.expiresIn()),
		g.botName)
	err = retry.Do(ctx, g.retry, func(ctx context.Context) error {
		err := g.notifier.NotifySelf(ctx, number, text)
		if errors.Is(err, session.ErrNotConnected) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		g.clear(number)
		return "", fmt.Errorf("deliver otp: %w", err)
	}

	log.Session(number, "otp.issue").Info("otp sent")
	return code, nil
}

// Verify applies the pending config when code matches. A mismatch keeps the
// entry so the owner can retry until it expires.
func (g *Gate) Verify(ctx context.Context, number string, code string) error {
	unlock := g.lock(number)
	defer unlock()

	p, ok := g.get(number)
	if !ok {
		return ErrNoPending
	}
	if !g.now().Before(p.expiry) {
		g.clear(number)
		return ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(p.code), []byte(code)) != 1 {
		return ErrMismatch
	}

	if err := g.store.PutConfig(ctx, number, p.config); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	g.clear(number)

	text := format.Message("📌 CONFIG UPDATED", "Your configuration has been successfully updated!", g.botName)
	if err := g.notifier.NotifySelf(ctx, number, text); err != nil {
		log.Session(number, "otp.verify").WithError(err).Warn("config updated but confirmation not delivered")
	}
	return nil
}

// Pending reports whether number has an unexpired code.
func (g *Gate) Pending(number string) bool {
	p, ok := g.get(number)
	return ok && g.now().Before(p.expiry)
}

// Sweep drops expired entries and returns how many were removed.
func (g *Gate) Sweep() int {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for number, p := range g.entries {
		if !now.Before(p.expiry) {
			delete(g.entries, number)
			removed++
		}
	}
	return removed
}
