// Package command routes prefixed chat messages to bot commands and runs the
// passive hooks (status viewing, newsletter reactions, revoke notices) that
// apply to every inbound message.
package command

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/registry"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/supervisor"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/webhook"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/content"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/format"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/retry"
)

const genericError = "An error occurred while processing your command. Please try again."

// Sessions is the slice of the supervisor used by commands.
type Sessions interface {
	Active() []string
	Connect(ctx context.Context, number string) (supervisor.Result, error)
	Delete(ctx context.Context, number string) error
}

type ConfigSource interface {
	GetConfig(ctx context.Context, number string) (config.Overrides, error)
}

type KnownNumbers interface {
	Load() ([]string, error)
}

// ContentSource is implemented by *content.Client.
type ContentSource interface {
	News(ctx context.Context, feed string) (content.Article, error)
	Cricket(ctx context.Context) (content.Score, error)
	APOD(ctx context.Context) (content.APOD, error)
	TikTok(ctx context.Context, link string) (content.TikTokVideo, error)
	Facebook(ctx context.Context, link string) (string, error)
	OGImage(ctx context.Context, page string) (string, error)
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

// Generator is implemented by *ai.Client.
type Generator interface {
	Text(ctx context.Context, prompt string) (string, error)
	Image(ctx context.Context, prompt string) ([]byte, error)
}

type Events interface {
	Dispatch(number string, eventType webhook.EventType, data map[string]interface{})
}

type Options struct {
	BotName  string
	Defaults config.Settings
	// Admins returns the owner and admin numbers.
	Admins          func() []string
	NewsletterJIDs  []string
	NewsletterEmoji []string
	// Retry bounds the status and newsletter hook calls.
	Retry retry.Policy

	Configs  ConfigSource
	Sessions Sessions
	Registry *registry.Registry
	Numbers  KnownNumbers
	Content  ContentSource
	AI       Generator
	Events   Events
}

// Handler runs one command.
type Handler func(ctx context.Context, req *Request) error

// Request is a parsed command invocation.
type Request struct {
	// Number is the bot number that received the message.
	Number   string
	Conn     session.Conn
	Msg      *session.Inbound
	Settings config.Settings
	Name     string
	Args     []string
	// Query is everything after the command name, trimmed.
	Query string
}

func (r *Request) Reply(ctx context.Context, text string) error {
	return r.Conn.SendReply(ctx, r.Msg, text)
}

func (r *Request) ReplyImage(ctx context.Context, image []byte, caption string) error {
	return r.Conn.SendImage(ctx, r.Msg.Chat, image, caption)
}

func (r *Request) ReplyVideo(ctx context.Context, video []byte, caption string) error {
	return r.Conn.SendVideo(ctx, r.Msg.Chat, video, caption)
}

type Dispatcher struct {
	opts     Options
	commands map[string]Handler
	now      func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

func New(opts Options) *Dispatcher {
	if opts.Admins == nil {
		opts.Admins = func() []string { return nil }
	}
	if len(opts.NewsletterEmoji) == 0 {
		opts.NewsletterEmoji = []string{"❤️", "🔥", "😀", "👍", "🎉"}
	}

	d := &Dispatcher{
		opts: opts,
		now:  time.Now,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	d.commands = map[string]Handler{
		"alive":    d.alive,
		"menu":     d.menu,
		"allmenu":  d.allMenu,
		"ping":     d.ping,
		"active":   d.active,
		"deleteme": d.deleteMe,
		"pair":     d.pair,
		"fc":       d.follow,
		"fancy":    d.fancy,
		"ai":       d.askAI,
		"aiimg":    d.imageAI,
		"news":     d.news(content.FeedNews, "📰 NEWS 📰"),
		"gossip":   d.news(content.FeedGossip, "📰 GOSSIP 📰"),
		"cricket":  d.cricket,
		"nasa":     d.nasa,
		"tiktok":   d.tiktok,
		"fb":       d.facebook,
		"winfo":    d.whoIs,
		"qr":       d.qr,
	}
	return d
}

// Commands lists the registered command names in order.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleMessage runs the hooks for msg and then at most one command.
func (d *Dispatcher) HandleMessage(ctx context.Context, number string, conn session.Conn, msg *session.Inbound) {
	logger := log.Session(number, "command.dispatch")
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic while handling message %s: %v", msg.ID, r)
		}
	}()

	settings := d.settings(ctx, number)
	d.runHooks(ctx, number, conn, msg, settings)

	if msg.Kind == session.ChatStatus || msg.Kind == session.ChatNewsletter {
		return
	}

	name, query, ok := parse(msg, settings.Prefix)
	if !ok {
		return
	}
	handler, ok := d.commands[name]
	if !ok {
		return
	}

	req := &Request{
		Number:   number,
		Conn:     conn,
		Msg:      msg,
		Settings: settings,
		Name:     name,
		Args:     strings.Fields(query),
		Query:    query,
	}
	logger.WithField("command", name).Debug("running command")
	if err := invoke(ctx, handler, req); err != nil {
		logger.WithField("command", name).WithError(err).Error("command failed")
		if err := req.Reply(ctx, format.Message("❌ ERROR", genericError, d.opts.BotName)); err != nil {
			logger.WithError(err).Warn("failed to send error reply")
		}
	}
}

func (d *Dispatcher) settings(ctx context.Context, number string) config.Settings {
	if d.opts.Configs == nil {
		return d.opts.Defaults.Apply(config.Overrides{})
	}
	overrides, err := d.opts.Configs.GetConfig(ctx, number)
	if err != nil {
		log.Session(number, "command.settings").WithError(err).Warn("using default settings")
		return d.opts.Defaults.Apply(config.Overrides{})
	}
	return d.opts.Defaults.Apply(overrides)
}

func invoke(ctx context.Context, h Handler, req *Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, req)
}

// parse returns the lower-cased command name and the trimmed remainder.
func parse(msg *session.Inbound, prefix string) (string, string, bool) {
	text, ok := msg.ExtractText()
	if !ok || prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(text[len(prefix):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", "", false
	}
	name := fields[0]
	return strings.ToLower(name), strings.TrimSpace(rest[len(name):]), true
}

func (d *Dispatcher) pick(items []string) string {
	d.randMu.Lock()
	defer d.randMu.Unlock()
	return items[d.rand.Intn(len(items))]
}

func (d *Dispatcher) isAdmin(number string) bool {
	for _, admin := range d.opts.Admins() {
		if admin == number {
			return true
		}
	}
	return false
}
