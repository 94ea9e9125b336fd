// Package supervisor drives every bot number through pairing, restore,
// reconnect and logout, keeping the registry, the credential store and the
// known numbers list consistent with the live connections.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/registry"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/store"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/webhook"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/format"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/retry"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/validation"
)

var (
	ErrInvalidNumber      = errors.New("invalid number")
	ErrAlreadyConnected   = errors.New("number is already connected")
	ErrConnectInProgress  = errors.New("a connection attempt for this number is already in progress")
	ErrPairingFailed      = errors.New("failed to obtain a pairing code")
	ErrShuttingDown       = errors.New("supervisor is shutting down")
	ErrNothingToReconnect = errors.New("no numbers to reconnect")
)

// CredentialStore is the durable session state used by the supervisor.
type CredentialStore interface {
	Get(ctx context.Context, number string) ([]byte, error)
	Put(ctx context.Context, number string, creds []byte) error
	Delete(ctx context.Context, number string) error
	List(ctx context.Context) ([]store.Record, error)
}

// KnownNumbers mirrors the numbers that have been connected at least once.
type KnownNumbers interface {
	Load() ([]string, error)
	Add(number string) (bool, error)
	Remove(number string) (bool, error)
}

// MessageHandler receives inbound messages of open connections.
type MessageHandler interface {
	HandleMessage(ctx context.Context, number string, conn session.Conn, msg *session.Inbound)
}

// Events receives session lifecycle events.
type Events interface {
	Dispatch(number string, eventType webhook.EventType, data map[string]interface{})
}

// Options are the collaborators and settings of a Supervisor.
type Options struct {
	Timings         config.Supervisor
	BotName         string
	GroupInviteCode string
	// Admins returns the numbers notified when a session connects.
	Admins func() []string

	Dialer   session.Dialer
	Store    CredentialStore
	Registry *registry.Registry
	Numbers  KnownNumbers
	Events   Events
}

type noEvents struct{}

func (noEvents) Dispatch(string, webhook.EventType, map[string]interface{}) {}

// Result describes a successful Connect.
type Result struct {
	Number   string `json:"number"`
	Code     string `json:"code,omitempty"`
	Restored bool   `json:"restored"`
}

// attempt is a connection that is dialed but not yet registered.
type attempt struct {
	conn    session.Conn
	timer   *time.Timer
	opening bool
}

type Supervisor struct {
	opts Options

	mu         sync.Mutex
	handler    MessageHandler
	pending    map[string]*attempt
	reconnects map[string]*time.Timer
	closed     bool

	sweepMu sync.Mutex
	sweep   limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts Options) *Supervisor {
	if opts.Admins == nil {
		opts.Admins = func() []string { return nil }
	}
	if opts.Events == nil {
		opts.Events = noEvents{}
	}
	if opts.Timings.MaxRetries < 1 {
		opts.Timings.MaxRetries = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		opts:       opts,
		pending:    make(map[string]*attempt),
		reconnects: make(map[string]*time.Timer),
		sweep:      newLimiter(opts.Timings.SweepDelay),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetHandler installs the inbound message handler.
func (s *Supervisor) SetHandler(h MessageHandler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Active returns the numbers with an open connection.
func (s *Supervisor) Active() []string {
	return s.opts.Registry.List()
}

// Connect restores the session of number or starts pairing it. For a new
// device the returned Result carries the pairing code.
func (s *Supervisor) Connect(ctx context.Context, number string) (Result, error) {
	number = validation.SanitizeNumber(number)
	if number == "" {
		return Result{}, ErrInvalidNumber
	}
	res := Result{Number: number}
	logger := log.Session(number, "supervisor.connect")

	if _, ok := s.opts.Registry.Get(number); ok {
		return res, ErrAlreadyConnected
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return res, ErrShuttingDown
	}
	if _, busy := s.pending[number]; busy {
		s.mu.Unlock()
		return res, ErrConnectInProgress
	}
	if _, ok := s.opts.Registry.Get(number); ok {
		s.mu.Unlock()
		return res, ErrAlreadyConnected
	}
	a := &attempt{}
	s.pending[number] = a
	s.mu.Unlock()

	creds, err := s.opts.Store.Get(ctx, number)
	if err != nil {
		logger.WithError(err).Warn("Failed to load credentials, pairing as a new device")
		creds = nil
	}

	conn, err := s.opts.Dialer.Dial(ctx, number, creds, s)
	if err != nil {
		s.forget(number, a)
		return res, fmt.Errorf("dial: %w", err)
	}
	s.mu.Lock()
	a.conn = conn
	s.mu.Unlock()

	if err := conn.Connect(ctx); err != nil {
		conn.Disconnect()
		s.forget(number, a)
		return res, fmt.Errorf("connect: %w", err)
	}

	if conn.Registered() {
		res.Restored = true
		s.armTimeout(number, a)
		logger.Info("Restoring session from stored credentials")
		return res, nil
	}

	policy := retry.Policy{
		Attempts: s.opts.Timings.MaxRetries,
		Base:     s.opts.Timings.PairingBackoff,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logger.WithError(err).Warnf("Pairing code request %d failed, retrying in %s", attempt, wait)
		},
	}
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		code, err := conn.PairCode(ctx, number)
		if err != nil {
			return err
		}
		res.Code = code
		return nil
	})
	if err != nil {
		conn.Disconnect()
		s.forget(number, a)
		return res, fmt.Errorf("%w: %v", ErrPairingFailed, err)
	}

	s.armTimeout(number, a)
	logger.Info("Pairing code issued")
	return res, nil
}

// forget drops the in-flight attempt if it is still the current one.
func (s *Supervisor) forget(number string, a *attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.pending[number]; ok && cur == a {
		if a.timer != nil {
			a.timer.Stop()
		}
		delete(s.pending, number)
	}
}

// armTimeout bounds how long an attempt may stay unopened.
func (s *Supervisor) armTimeout(number string, a *attempt) {
	if s.opts.Timings.PairingTimeout <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.pending[number]; !ok || cur != a || a.opening {
		return
	}
	a.timer = time.AfterFunc(s.opts.Timings.PairingTimeout, func() {
		s.mu.Lock()
		cur, ok := s.pending[number]
		if !ok || cur != a || a.opening {
			s.mu.Unlock()
			return
		}
		delete(s.pending, number)
		s.mu.Unlock()

		a.conn.Disconnect()
		log.Session(number, "supervisor.timeout").Info("Connection did not open in time, discarding it")
	})
}

// current reports whether conn is the pending or registered connection of
// number. Events from any other connection are stale.
func (s *Supervisor) current(number string, conn session.Conn) bool {
	s.mu.Lock()
	a, ok := s.pending[number]
	s.mu.Unlock()
	if ok && a.conn == conn {
		return true
	}
	live, ok := s.opts.Registry.Get(number)
	return ok && live == conn
}

func (s *Supervisor) OnCredentials(number string, conn session.Conn) {
	logger := log.Session(number, "supervisor.credentials")
	if !s.current(number, conn) {
		logger.Debug("Ignoring credentials from a stale connection")
		return
	}

	creds, err := conn.Credentials()
	if err != nil {
		logger.WithError(err).Warn("Failed to read credentials")
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	if err := s.opts.Store.Put(ctx, number, creds); err != nil {
		logger.WithError(err).Error("Failed to persist credentials")
		return
	}
	logger.Debug("Credentials saved")
}

func (s *Supervisor) OnOpen(number string, conn session.Conn) {
	s.mu.Lock()
	a, ok := s.pending[number]
	if !ok || a.conn != conn || a.opening {
		s.mu.Unlock()
		log.Session(number, "supervisor.open").Debug("Ignoring open event from a stale connection")
		return
	}
	a.opening = true
	if a.timer != nil {
		a.timer.Stop()
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.finishOpen(number, a)
	}()
}

func (s *Supervisor) finishOpen(number string, a *attempt) {
	logger := log.Session(number, "supervisor.open")
	conn := a.conn

	select {
	case <-time.After(s.opts.Timings.SettleDelay):
	case <-s.ctx.Done():
		return
	}
	if !s.current(number, conn) {
		logger.Debug("Connection closed while settling")
		return
	}

	groupStatus := s.joinGroup(number, conn)

	if _, err := s.opts.Numbers.Add(number); err != nil {
		logger.WithError(err).Warn("Failed to update known numbers")
	}

	s.mu.Lock()
	if cur, ok := s.pending[number]; !ok || cur != a || s.closed {
		s.mu.Unlock()
		logger.Debug("Connection closed before registration")
		return
	}
	delete(s.pending, number)
	s.opts.Registry.Set(number, conn)
	s.mu.Unlock()

	logger.Info("Session connected")

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	welcome := format.Message("👻 WELCOME TO "+s.opts.BotName+" 👻",
		"✅ Successfully connected!\n\n🔢 Number: "+number,
		s.opts.BotName)
	if err := conn.SendText(ctx, conn.SelfChat(), welcome); err != nil {
		logger.WithError(err).Warn("Failed to send welcome message")
	}

	notice := format.Message("👻 "+s.opts.BotName+" CONNECTED",
		"📞 Number: "+number+"\n🩵 Status: Connected\n📢 Group: "+groupStatus,
		s.opts.BotName)
	for _, admin := range s.opts.Admins() {
		if err := conn.SendText(ctx, admin+"@s.whatsapp.net", notice); err != nil {
			logger.WithError(err).WithField("admin", log.Mask(admin)).Warn("Failed to notify admin")
		}
	}

	s.opts.Events.Dispatch(number, webhook.EventSessionConnected, map[string]interface{}{"group": groupStatus})
}

// joinGroup is best effort; the returned text describes the outcome.
func (s *Supervisor) joinGroup(number string, conn session.Conn) string {
	if s.opts.GroupInviteCode == "" {
		return "Failed to join group: No group invite code configured"
	}

	var gid string
	policy := retry.Policy{
		Attempts: s.opts.Timings.MaxRetries,
		Base:     s.opts.Timings.PairingBackoff,
	}
	err := retry.Do(s.ctx, policy, func(ctx context.Context) error {
		var err error
		gid, err = conn.JoinGroup(ctx, s.opts.GroupInviteCode)
		return err
	})
	if err != nil {
		log.Session(number, "supervisor.join").WithError(err).Warn("Failed to join group")
		return "Failed to join group: " + err.Error()
	}
	return "Joined (ID: " + gid + ")"
}

func (s *Supervisor) OnClose(number string, conn session.Conn, reason session.CloseReason) {
	logger := log.Session(number, "supervisor.close").WithField("reason", reason)

	s.mu.Lock()
	wasPending := false
	if a, ok := s.pending[number]; ok && a.conn == conn {
		if a.timer != nil {
			a.timer.Stop()
		}
		delete(s.pending, number)
		wasPending = true
	}
	wasLive := s.opts.Registry.DeleteIf(number, conn)
	closed := s.closed
	s.mu.Unlock()

	if !wasPending && !wasLive {
		logger.Debug("Ignoring close event from a stale connection")
		return
	}

	if reason == session.CloseLoggedOut {
		s.purge(number, conn)
		return
	}

	conn.Disconnect()
	s.opts.Events.Dispatch(number, webhook.EventSessionDisconnected, nil)

	// An attempt that never paired has nothing to restore.
	if closed || (!wasLive && !conn.Registered()) {
		logger.Info("Connection closed")
		return
	}
	logger.Infof("Connection lost, reconnecting in %s", s.opts.Timings.ReconnectDelay)
	s.scheduleReconnect(number)
}

func (s *Supervisor) purge(number string, conn session.Conn) {
	logger := log.Session(number, "supervisor.logout")

	s.cancelReconnect(number)

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	if err := s.opts.Store.Delete(ctx, number); err != nil {
		logger.WithError(err).Error("Failed to delete session record")
	}
	if _, err := s.opts.Numbers.Remove(number); err != nil {
		logger.WithError(err).Warn("Failed to update known numbers")
	}
	if err := conn.Purge(ctx); err != nil {
		logger.WithError(err).Warn("Failed to purge device state")
	}

	logger.Info("Your session has been deleted due to logout.")
	s.opts.Events.Dispatch(number, webhook.EventSessionLoggedOut, nil)
}

// scheduleReconnect arranges a single Connect after the reconnect delay.
func (s *Supervisor) scheduleReconnect(number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.reconnects[number]; ok {
		return
	}

	s.reconnects[number] = time.AfterFunc(s.opts.Timings.ReconnectDelay, func() {
		s.mu.Lock()
		delete(s.reconnects, number)
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		if _, err := s.Connect(s.ctx, number); err != nil && !errors.Is(err, ErrAlreadyConnected) {
			log.Session(number, "supervisor.reconnect").WithError(err).Warn("Reconnect failed")
		}
	})
}

func (s *Supervisor) cancelReconnect(number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.reconnects[number]; ok {
		t.Stop()
		delete(s.reconnects, number)
	}
}

func (s *Supervisor) OnMessage(number string, conn session.Conn, msg *session.Inbound) {
	s.mu.Lock()
	h := s.handler
	closed := s.closed
	s.mu.Unlock()
	if h == nil || closed {
		return
	}
	if live, ok := s.opts.Registry.Get(number); !ok || live != conn {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		h.HandleMessage(s.ctx, number, conn, msg)
	}()
}

// Delete logs the number out and removes every trace of its session.
func (s *Supervisor) Delete(ctx context.Context, number string) error {
	number = validation.SanitizeNumber(number)
	if number == "" {
		return ErrInvalidNumber
	}
	logger := log.Session(number, "supervisor.delete")

	s.cancelReconnect(number)

	s.mu.Lock()
	var pendingConn session.Conn
	if a, ok := s.pending[number]; ok {
		if a.timer != nil {
			a.timer.Stop()
		}
		pendingConn = a.conn
		delete(s.pending, number)
	}
	live, isLive := s.opts.Registry.Get(number)
	s.opts.Registry.Delete(number)
	s.mu.Unlock()

	if isLive {
		if err := live.Logout(ctx); err != nil {
			logger.WithError(err).Warn("Remote logout failed, purging local state")
			live.Disconnect()
			if err := live.Purge(ctx); err != nil {
				logger.WithError(err).Warn("Failed to purge device state")
			}
		}
	}
	if pendingConn != nil {
		pendingConn.Disconnect()
	}

	if err := s.opts.Store.Delete(ctx, number); err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	if _, err := s.opts.Numbers.Remove(number); err != nil {
		logger.WithError(err).Warn("Failed to update known numbers")
	}

	logger.Info("Session deleted")
	s.opts.Events.Dispatch(number, webhook.EventSessionDeleted, nil)
	return nil
}

// NotifySelf sends text to the number's own chat.
func (s *Supervisor) NotifySelf(ctx context.Context, number string, text string) error {
	conn, ok := s.opts.Registry.Get(number)
	if !ok {
		return session.ErrNotConnected
	}
	return conn.SendText(ctx, conn.SelfChat(), text)
}

// Shutdown disconnects every connection and waits for background work.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for number, t := range s.reconnects {
		t.Stop()
		delete(s.reconnects, number)
	}
	var conns []session.Conn
	for number, a := range s.pending {
		if a.timer != nil {
			a.timer.Stop()
		}
		if a.conn != nil {
			conns = append(conns, a.conn)
		}
		delete(s.pending, number)
	}
	s.mu.Unlock()

	s.opts.Registry.Range(func(number string, conn session.Conn) bool {
		conns = append(conns, conn)
		return true
	})

	s.cancel()
	for _, conn := range conns {
		conn.Disconnect()
	}
	s.wg.Wait()
}
