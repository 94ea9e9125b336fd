// Package webhook posts session lifecycle events to the configured
// endpoints from a small worker pool.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/retry"
)

type Engine struct {
	urls       []string
	secret     string
	client     *resty.Client
	queue      chan Event
	workers    int
	retryLimit int
	backoff    time.Duration
	checkURL   func(string) error
	now        func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewEngine(cfg config.Webhook) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	retryLimit := cfg.RetryLimit
	if retryLimit <= 0 {
		retryLimit = 3
	}

	ctx, cancel := context.WithCancel(context.Background())

	engine := &Engine{
		urls:       cfg.URLs,
		secret:     cfg.Secret,
		client:     resty.New().SetTimeout(10 * time.Second),
		queue:      make(chan Event, 1000),
		workers:    workers,
		retryLimit: retryLimit,
		backoff:    2 * time.Second,
		checkURL:   validateURL,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}

	if engine.Enabled() {
		engine.start()
	}

	return engine
}

func (e *Engine) start() {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
}

// Enabled reports whether any endpoint is configured.
func (e *Engine) Enabled() bool {
	return len(e.urls) > 0
}

// Shutdown stops accepting events, drains the queue and waits for workers.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	e.wg.Wait()
	e.cancel()
}

// Dispatch queues an event without blocking. Events are dropped when the
// queue is full.
func (e *Engine) Dispatch(number string, eventType EventType, data map[string]interface{}) {
	if e == nil || !e.Enabled() {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	evt := Event{EventType: eventType, Number: number, Timestamp: e.now().UTC(), Data: data}
	select {
	case e.queue <- evt:
	default:
		log.Session(number, "webhook.dispatch").WithField("event", eventType).Warn("Webhook queue full, dropping event")
	}
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for evt := range e.queue {
		for _, target := range e.urls {
			e.deliver(target, evt)
		}
	}
}

func (e *Engine) deliver(target string, evt Event) {
	entry := log.Logger().WithFields(logrus.Fields{
		"op":    "webhook.deliver",
		"event": evt.EventType,
		"url":   target,
	})

	if err := e.checkURL(target); err != nil {
		entry.WithError(err).Warn("Rejected webhook URL")
		return
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		log.SysErr("webhook.marshal", err)
		return
	}
	signature := generateSignature(payload, e.secret)

	policy := retry.Policy{
		Attempts: e.retryLimit,
		Base:     e.backoff,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			entry.WithError(err).WithField("attempt", attempt).Debugf("Retrying webhook in %s", wait)
		},
	}

	attempts := 0
	err = retry.Do(e.ctx, policy, func(ctx context.Context) error {
		attempts++
		resp, err := e.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader("X-Webhook-Signature", signature).
			SetHeader("X-Webhook-Event", string(evt.EventType)).
			SetHeader("User-Agent", "WhatsApp-Session-Bot/1.0").
			SetBody(payload).
			Post(target)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
		}
		return nil
	})
	if err != nil {
		entry.WithError(err).WithField("attempts", attempts).Warn("Webhook delivery failed")
		return
	}
	entry.WithField("attempts", attempts).Debug("Webhook delivered")
}

func generateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	if u.Scheme != "https" {
		return fmt.Errorf("only HTTPS URLs are allowed")
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" || strings.HasPrefix(host, "192.168.") || strings.HasPrefix(host, "10.") || strings.HasPrefix(host, "172.") {
		return fmt.Errorf("private/local network URLs are not allowed")
	}

	return nil
}
