package whatsapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
	"github.com/sunshineplan/imgconv"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
)

const thumbnailWidth = 72

var ErrInvalidEmoji = errors.New("reaction must be exactly one emoji")

func parseChat(chat string) (types.JID, error) {
	jid, err := types.ParseJID(chat)
	if err != nil || jid.IsEmpty() {
		return types.EmptyJID, fmt.Errorf("invalid chat address %q", chat)
	}
	return jid, nil
}

func (c *Conn) send(ctx context.Context, chat string, msg *waE2E.Message) error {
	if err := c.ready(); err != nil {
		return err
	}
	jid, err := parseChat(chat)
	if err != nil {
		return err
	}
	_, err = c.client.SendMessage(ctx, jid, msg, whatsmeow.SendRequestExtra{ID: c.client.GenerateMessageID()})
	return err
}

func (c *Conn) SendText(ctx context.Context, chat string, text string) error {
	return c.send(ctx, chat, &waE2E.Message{Conversation: proto.String(text)})
}

// SendReply quotes msg in the reply.
func (c *Conn) SendReply(ctx context.Context, msg *session.Inbound, text string) error {
	quoted, _ := msg.ExtractText()
	return c.send(ctx, msg.Chat, &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(msg.ID),
				Participant:   proto.String(msg.Sender),
				QuotedMessage: &waE2E.Message{Conversation: proto.String(quoted)},
			},
		},
	})
}

func thumbnail(image []byte) ([]byte, error) {
	decoded, err := imgconv.Decode(bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	err = imgconv.Write(&buf,
		imgconv.Resize(decoded, &imgconv.ResizeOption{Width: thumbnailWidth}),
		&imgconv.FormatOption{Format: imgconv.JPEG})
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Conn) SendImage(ctx context.Context, chat string, image []byte, caption string) error {
	if err := c.ready(); err != nil {
		return err
	}
	thumb, err := thumbnail(image)
	if err != nil {
		return err
	}

	uploaded, err := c.client.Upload(ctx, image, whatsmeow.MediaImage)
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	thumbUploaded, err := c.client.Upload(ctx, thumb, whatsmeow.MediaLinkThumbnail)
	if err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}

	return c.send(ctx, chat, &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			URL:                 proto.String(uploaded.URL),
			DirectPath:          proto.String(uploaded.DirectPath),
			Mimetype:            proto.String(http.DetectContentType(image)),
			Caption:             proto.String(caption),
			FileLength:          proto.Uint64(uploaded.FileLength),
			FileSHA256:          uploaded.FileSHA256,
			FileEncSHA256:       uploaded.FileEncSHA256,
			MediaKey:            uploaded.MediaKey,
			JPEGThumbnail:       thumb,
			ThumbnailDirectPath: proto.String(thumbUploaded.DirectPath),
			ThumbnailSHA256:     thumbUploaded.FileSHA256,
			ThumbnailEncSHA256:  thumbUploaded.FileEncSHA256,
		},
	})
}

func (c *Conn) SendVideo(ctx context.Context, chat string, video []byte, caption string) error {
	if err := c.ready(); err != nil {
		return err
	}
	uploaded, err := c.client.Upload(ctx, video, whatsmeow.MediaVideo)
	if err != nil {
		return fmt.Errorf("upload video: %w", err)
	}

	mimetype := http.DetectContentType(video)
	if mimetype == "application/octet-stream" {
		mimetype = "video/mp4"
	}
	return c.send(ctx, chat, &waE2E.Message{
		VideoMessage: &waE2E.VideoMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			Mimetype:      proto.String(mimetype),
			Caption:       proto.String(caption),
			FileLength:    proto.Uint64(uploaded.FileLength),
			FileSHA256:    uploaded.FileSHA256,
			FileEncSHA256: uploaded.FileEncSHA256,
			MediaKey:      uploaded.MediaKey,
		},
	})
}

func validEmoji(emoji string) bool {
	return gomoji.ContainsEmoji(emoji) && uniseg.GraphemeClusterCount(emoji) == 1
}

// React reacts to msg. Newsletter posts are addressed by server ID.
func (c *Conn) React(ctx context.Context, msg *session.Inbound, emoji string) error {
	if !validEmoji(emoji) {
		return ErrInvalidEmoji
	}
	if err := c.ready(); err != nil {
		return err
	}
	chat, err := parseChat(msg.Chat)
	if err != nil {
		return err
	}

	if msg.Kind == session.ChatNewsletter {
		return c.client.NewsletterSendReaction(ctx, chat, types.MessageServerID(msg.ServerID), emoji, c.client.GenerateMessageID())
	}

	sender, err := parseChat(msg.Sender)
	if err != nil {
		return err
	}
	reaction := c.client.BuildReaction(chat, sender, msg.ID, emoji)
	_, err = c.client.SendMessage(ctx, chat, reaction)
	return err
}

func (c *Conn) MarkRead(ctx context.Context, msg *session.Inbound) error {
	if err := c.ready(); err != nil {
		return err
	}
	chat, err := parseChat(msg.Chat)
	if err != nil {
		return err
	}
	sender, err := parseChat(msg.Sender)
	if err != nil {
		return err
	}
	return c.client.MarkRead(ctx, []types.MessageID{msg.ID}, time.Now(), chat, sender)
}

// SendRecording shows the "recording audio" indicator in chat.
func (c *Conn) SendRecording(ctx context.Context, chat string) error {
	if err := c.ready(); err != nil {
		return err
	}
	jid, err := parseChat(chat)
	if err != nil {
		return err
	}
	return c.client.SendChatPresence(ctx, jid, types.ChatPresenceComposing, types.ChatPresenceMediaAudio)
}
