package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/format"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/validation"
)

const qrSize = 512

func (d *Dispatcher) whoIs(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return req.Reply(ctx, format.Message("❌ ERROR",
			fmt.Sprintf("Please provide a phone number! Usage: %swinfo 9470xxxxxxxx", req.Settings.Prefix), d.opts.BotName))
	}
	number := validation.SanitizeNumber(req.Args[0])
	if len(number) < 10 {
		return req.Reply(ctx, format.Message("❌ ERROR", "Invalid phone number! Please include the country code.", d.opts.BotName))
	}

	info, err := req.Conn.UserInfo(ctx, number)
	if errors.Is(err, session.ErrNotOnWhatsApp) {
		return req.Reply(ctx, format.Message("❌ ERROR", "User not found on WhatsApp", d.opts.BotName))
	}
	if err != nil {
		return err
	}

	about := "❌ No bio available"
	if info.About != "" {
		about = info.About
		if !info.AboutSetAt.IsZero() {
			about += "\n└─ 📌 Updated: " + format.Timestamp(info.AboutSetAt)
		}
	}
	account := "👤 Personal"
	if info.IsBusiness {
		account = "💼 Business"
	}

	body := fmt.Sprintf("╭─📌 *Number:* %s\n├─💼 *Account Type:* %s\n├─📱 *Linked Devices:* %d\n╰─📝 *About:*\n%s",
		number, account, info.Devices, about)
	return req.Reply(ctx, format.Message("🔍 PROFILE INFO", body, d.opts.BotName))
}

func (d *Dispatcher) qr(ctx context.Context, req *Request) error {
	if req.Query == "" {
		return req.Reply(ctx, fmt.Sprintf("📌 Usage: %sqr <text or link>", req.Settings.Prefix))
	}
	png, err := qrcode.Encode(req.Query, qrcode.Medium, qrSize)
	if err != nil {
		log.Session(req.Number, "command.qr").WithError(err).Warn("qr encode failed")
		return req.Reply(ctx, "❌ The text is too long for a QR code.")
	}
	return req.ReplyImage(ctx, png, "📷 *QR CODE*\n\n> "+d.opts.BotName)
}

func (d *Dispatcher) fancy(ctx context.Context, req *Request) error {
	if req.Query == "" {
		return req.Reply(ctx, fmt.Sprintf("❎ *Please provide text to convert into fancy fonts.*\n\n📌 *Example:* `%sfancy Hello`", req.Settings.Prefix))
	}

	var b strings.Builder
	for i, f := range fonts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "*%s:*\n%s", f.name, f.convert(req.Query))
	}
	return req.Reply(ctx, format.Message("🎨 FANCY FONTS", b.String(), d.opts.BotName))
}
