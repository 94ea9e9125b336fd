package command

import (
	"context"
	"fmt"
	"slices"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/webhook"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/format"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/retry"
)

func (d *Dispatcher) runHooks(ctx context.Context, number string, conn session.Conn, msg *session.Inbound, settings config.Settings) {
	switch msg.Kind {
	case session.ChatStatus:
		d.statusHook(ctx, number, conn, msg, settings)
	case session.ChatNewsletter:
		d.newsletterHook(ctx, number, conn, msg)
	default:
		if settings.AutoRecording && !msg.FromMe {
			if err := conn.SendRecording(ctx, msg.Chat); err != nil {
				log.Session(number, "command.recording").WithError(err).Debug("presence update failed")
			}
		}
	}

	if revoke, ok := msg.Body.(session.RevokeBody); ok && msg.Kind != session.ChatStatus && !msg.FromMe {
		d.revokeHook(ctx, number, conn, msg, revoke)
	}
}

func (d *Dispatcher) statusHook(ctx context.Context, number string, conn session.Conn, msg *session.Inbound, settings config.Settings) {
	if msg.FromMe {
		return
	}
	logger := log.Session(number, "command.status")

	if settings.AutoRecording {
		if err := conn.SendRecording(ctx, msg.Chat); err != nil {
			logger.WithError(err).Debug("presence update failed")
		}
	}
	if settings.AutoViewStatus {
		err := retry.Do(ctx, d.opts.Retry, func(ctx context.Context) error {
			return conn.MarkRead(ctx, msg)
		})
		if err != nil {
			logger.WithError(err).Warn("failed to view status")
		}
	}
	if settings.AutoLikeStatus && len(settings.AutoLikeEmoji) > 0 {
		emoji := d.pick(settings.AutoLikeEmoji)
		err := retry.Do(ctx, d.opts.Retry, func(ctx context.Context) error {
			return conn.React(ctx, msg, emoji)
		})
		if err != nil {
			logger.WithError(err).Warn("failed to react to status")
		}
	}
}

func (d *Dispatcher) newsletterHook(ctx context.Context, number string, conn session.Conn, msg *session.Inbound) {
	if msg.ServerID == 0 || !slices.Contains(d.opts.NewsletterJIDs, msg.Chat) {
		return
	}
	emoji := d.pick(d.opts.NewsletterEmoji)
	err := retry.Do(ctx, d.opts.Retry, func(ctx context.Context) error {
		return conn.React(ctx, msg, emoji)
	})
	if err != nil {
		log.Session(number, "command.newsletter").WithError(err).Warnf("failed to react to %s", msg.Chat)
	}
}

func (d *Dispatcher) revokeHook(ctx context.Context, number string, conn session.Conn, msg *session.Inbound, revoke session.RevokeBody) {
	text := format.Message("🗑️ MESSAGE DELETED",
		fmt.Sprintf("A message was deleted from your chat.\n📋 From: %s\n🍁 Deletion Time: %s", msg.Chat, format.Timestamp(d.now())),
		d.opts.BotName)
	if err := conn.SendText(ctx, conn.SelfChat(), text); err != nil {
		log.Session(number, "command.revoke").WithError(err).Warn("failed to send deletion notice")
	}

	if d.opts.Events != nil {
		d.opts.Events.Dispatch(number, webhook.EventMessageRevoked, map[string]interface{}{
			"chat":       msg.Chat,
			"sender":     msg.Sender,
			"message_id": revoke.TargetID,
		})
	}
}
