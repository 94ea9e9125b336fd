package command

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/supervisor"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/format"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/validation"
)

var menuSections = []struct {
	title    string
	commands []string
}{
	{"🤖 GENERAL", []string{"alive", "menu", "allmenu", "ping", "active", "pair <number>", "deleteme"}},
	{"🧠 AI", []string{"ai <question>", "aiimg <prompt>"}},
	{"📰 NEWS", []string{"news", "gossip", "cricket", "nasa"}},
	{"📥 DOWNLOAD", []string{"tiktok <link>", "fb <link>"}},
	{"🛠️ TOOLS", []string{"fancy <text>", "qr <text>", "winfo <number>", "fc <newsletter jid>"}},
}

func (d *Dispatcher) uptime(number string) string {
	if d.opts.Registry == nil {
		return format.Uptime(0)
	}
	up, _ := d.opts.Registry.Uptime(number)
	return format.Uptime(up)
}

func (d *Dispatcher) activeCount() int {
	if d.opts.Registry == nil {
		return 0
	}
	return d.opts.Registry.Count()
}

func (d *Dispatcher) alive(ctx context.Context, req *Request) error {
	body := fmt.Sprintf("⏰ Bot Uptime: %s\n🟢 Active Bots: %d\n🔢 Your Number: %s",
		d.uptime(req.Number), d.activeCount(), req.Number)
	return req.Reply(ctx, format.Message(d.opts.BotName+" IS ALIVE", body, d.opts.BotName))
}

func (d *Dispatcher) menuText(prefix string) string {
	var b strings.Builder
	for i, section := range menuSections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "*%s*", section.title)
		for _, cmd := range section.commands {
			fmt.Fprintf(&b, "\n│ %s%s", prefix, cmd)
		}
	}
	return b.String()
}

func (d *Dispatcher) menu(ctx context.Context, req *Request) error {
	return req.Reply(ctx, format.Message("📜 "+d.opts.BotName+" MENU", d.menuText(req.Settings.Prefix), d.opts.BotName))
}

func (d *Dispatcher) allMenu(ctx context.Context, req *Request) error {
	userType := "guest"
	if req.Msg.FromMe || d.isAdmin(req.Msg.SenderNumber()) {
		userType = "admin"
	}

	known := 0
	if d.opts.Numbers != nil {
		if numbers, err := d.opts.Numbers.Load(); err == nil {
			known = len(numbers)
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	owner := "-"
	if admins := d.opts.Admins(); len(admins) > 0 {
		owner = admins[0]
	}

	info := fmt.Sprintf("👤 User: %s\n🔰 Type: %s\n⚙️ Prefix: %s\n⏰ Uptime: %s\n💾 Memory: %.1f MB\n👥 Users: %d\n👑 Owner: %s",
		req.Msg.PushName, userType, req.Settings.Prefix, d.uptime(req.Number),
		float64(mem.HeapAlloc)/1024/1024, known, owner)
	return req.Reply(ctx, format.Message("📜 "+d.opts.BotName+" ALL MENU", info+"\n\n"+d.menuText(req.Settings.Prefix), d.opts.BotName))
}

func (d *Dispatcher) ping(ctx context.Context, req *Request) error {
	var latency int64
	if !req.Msg.Timestamp.IsZero() {
		latency = d.now().Sub(req.Msg.Timestamp).Milliseconds()
		if latency < 0 {
			latency = 0
		}
	}
	body := fmt.Sprintf("🏓 Pong!\n⚡ Latency: %dms\n🟢 Active sessions: %d", latency, d.activeCount())
	return req.Reply(ctx, format.Message("📍 PING", body, d.opts.BotName))
}

func (d *Dispatcher) active(ctx context.Context, req *Request) error {
	numbers := d.opts.Sessions.Active()
	body := fmt.Sprintf("👥 Active Members: *%d*\n\nNumbers:\n%s", len(numbers), strings.Join(numbers, "\n"))
	return req.Reply(ctx, format.Message("🟢 ACTIVE SESSIONS", body, d.opts.BotName))
}

func (d *Dispatcher) deleteMe(ctx context.Context, req *Request) error {
	if !req.Msg.FromMe && !d.isAdmin(req.Msg.SenderNumber()) {
		return req.Reply(ctx, "❌ Only the bot owner can delete this session.")
	}

	text := format.Message("🗑️ SESSION DELETED", "✅ Your session has been successfully deleted.", d.opts.BotName)
	if err := req.Reply(ctx, text); err != nil {
		log.Session(req.Number, "command.deleteme").WithError(err).Warn("failed to confirm deletion")
	}
	return d.opts.Sessions.Delete(ctx, req.Number)
}

func (d *Dispatcher) pair(ctx context.Context, req *Request) error {
	usage := fmt.Sprintf("*📌 Usage:* %spair 9470604XXXX", req.Settings.Prefix)
	if req.Query == "" {
		return req.Reply(ctx, usage)
	}

	res, err := d.opts.Sessions.Connect(ctx, req.Query)
	switch {
	case errors.Is(err, supervisor.ErrInvalidNumber):
		return req.Reply(ctx, usage)
	case errors.Is(err, supervisor.ErrAlreadyConnected):
		return req.Reply(ctx, "✅ This number is already connected.")
	case errors.Is(err, supervisor.ErrConnectInProgress):
		return req.Reply(ctx, "⏳ A pairing request for this number is already in progress.")
	case errors.Is(err, supervisor.ErrPairingFailed):
		return req.Reply(ctx, "❌ Failed to retrieve pairing code. Please try again.")
	case err != nil:
		return err
	}

	if res.Restored {
		return req.Reply(ctx, "♻️ Session restored for "+res.Number+".")
	}
	if err := req.Reply(ctx, "> *BOT PAIR COMPLETE* ✅\n\n*🔑 Your pairing code is:* "+res.Code); err != nil {
		return err
	}
	return req.Reply(ctx, res.Code)
}

func (d *Dispatcher) follow(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return req.Reply(ctx, fmt.Sprintf("❗ Please provide a channel JID.\n\nExample:\n%sfc 120363396379901844@newsletter", req.Settings.Prefix))
	}
	jid := req.Args[0]
	if err := validation.ValidateNewsletterJID(jid); err != nil {
		return req.Reply(ctx, "❗ Invalid JID. Please provide a JID ending with `@newsletter`")
	}

	if err := req.Conn.FollowNewsletter(ctx, jid); err != nil {
		log.Session(req.Number, "command.fc").WithError(err).Warnf("failed to follow %s", jid)
		return req.Reply(ctx, "❌ Error: "+err.Error())
	}
	return req.Reply(ctx, "✅ Successfully followed the channel: "+jid)
}
