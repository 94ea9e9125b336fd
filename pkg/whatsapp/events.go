package whatsapp

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
)

func (c *Conn) handleEvent(evt interface{}) {
	logger := log.Session(c.number, "whatsapp.event")

	switch e := evt.(type) {
	case *events.PairSuccess:
		logger.Infof("Paired as %s (%s)", e.ID.User, e.Platform)
		c.listener.OnCredentials(c.number, c)
	case *events.Connected:
		logger.Info("Client connected")
		if c.Registered() {
			c.listener.OnCredentials(c.number, c)
		}
		c.listener.OnOpen(c.number, c)
	case *events.PushNameSetting:
		c.listener.OnCredentials(c.number, c)
	case *events.LoggedOut:
		logger.Warnf("Client logged out, reason=%s", e.Reason)
		c.listener.OnClose(c.number, c, session.CloseLoggedOut)
	case *events.StreamReplaced:
		logger.Warn("Stream replaced by another client")
		c.listener.OnClose(c.number, c, session.CloseTransient)
	case *events.Disconnected:
		logger.Warn("Client disconnected")
		c.listener.OnClose(c.number, c, session.CloseTransient)
	case *events.ConnectFailure:
		logger.Errorf("Client connection failure, reason=%s, message=%s", e.Reason, e.Message)
		// Logged-out failures are followed by a LoggedOut event.
		if !e.Reason.IsLoggedOut() {
			c.listener.OnClose(c.number, c, session.CloseTransient)
		}
	case *events.TemporaryBan:
		logger.Errorf("Client temporarily banned, reason=%s, expires=%s", e.Code, e.Expire)
		c.listener.OnClose(c.number, c, session.CloseTransient)
	case *events.KeepAliveTimeout:
		logger.Warnf("Client keepalive timeout, errors=%d", e.ErrorCount)
	case *events.Message:
		c.listener.OnMessage(c.number, c, toInbound(e))
	}
}

func chatKind(chat types.JID) session.ChatKind {
	switch {
	case chat.Server == types.BroadcastServer && chat.User == types.StatusBroadcastJID.User:
		return session.ChatStatus
	case chat.Server == types.NewsletterServer:
		return session.ChatNewsletter
	case chat.Server == types.GroupServer:
		return session.ChatGroup
	default:
		return session.ChatDirect
	}
}

func toInbound(evt *events.Message) *session.Inbound {
	info := evt.Info
	msg := &session.Inbound{
		ID:        info.ID,
		Chat:      info.Chat.String(),
		Sender:    info.Sender.ToNonAD().String(),
		PushName:  info.PushName,
		FromMe:    info.IsFromMe,
		Kind:      chatKind(info.Chat),
		Timestamp: info.Timestamp,
		Body:      toBody(evt.Message),
	}
	if msg.Kind == session.ChatNewsletter {
		msg.ServerID = int(info.ServerID)
	}
	if evt.IsViewOnce || evt.IsViewOnceV2 {
		msg.Body = session.ViewOnceBody{Inner: msg.Body}
	}
	return msg
}

func toBody(m *waE2E.Message) session.Body {
	if m == nil {
		return session.UnknownBody{}
	}

	switch {
	case m.Conversation != nil:
		return session.TextBody{Text: m.GetConversation()}
	case m.ExtendedTextMessage != nil:
		ext := m.GetExtendedTextMessage()
		return session.ExtendedTextBody{
			Text:        ext.GetText(),
			QuotedID:    ext.GetContextInfo().GetStanzaID(),
			QuotedChat:  ext.GetContextInfo().GetRemoteJID(),
			MatchedLink: ext.GetMatchedText(),
		}
	case m.ImageMessage != nil:
		return session.ImageBody{Caption: m.GetImageMessage().GetCaption(), Mimetype: m.GetImageMessage().GetMimetype()}
	case m.VideoMessage != nil:
		return session.VideoBody{Caption: m.GetVideoMessage().GetCaption(), Mimetype: m.GetVideoMessage().GetMimetype()}
	case m.DocumentMessage != nil:
		return session.DocumentBody{Caption: m.GetDocumentMessage().GetCaption(), FileName: m.GetDocumentMessage().GetFileName()}
	case m.ButtonsResponseMessage != nil:
		return session.ButtonReplyBody{SelectedID: m.GetButtonsResponseMessage().GetSelectedButtonID()}
	case m.ListResponseMessage != nil:
		return session.ListReplyBody{SelectedRowID: m.GetListResponseMessage().GetSingleSelectReply().GetSelectedRowID()}
	case m.TemplateButtonReplyMessage != nil:
		return session.TemplateReplyBody{SelectedID: m.GetTemplateButtonReplyMessage().GetSelectedID()}
	case m.ViewOnceMessage != nil:
		return session.ViewOnceBody{Inner: toBody(m.GetViewOnceMessage().GetMessage())}
	case m.ViewOnceMessageV2 != nil:
		return session.ViewOnceBody{Inner: toBody(m.GetViewOnceMessageV2().GetMessage())}
	case m.EphemeralMessage != nil:
		return toBody(m.GetEphemeralMessage().GetMessage())
	case m.ReactionMessage != nil:
		return session.ReactionBody{Emoji: m.GetReactionMessage().GetText(), TargetID: m.GetReactionMessage().GetKey().GetID()}
	case m.ProtocolMessage != nil && m.GetProtocolMessage().GetType() == waE2E.ProtocolMessage_REVOKE:
		return session.RevokeBody{TargetID: m.GetProtocolMessage().GetKey().GetID()}
	}
	return session.UnknownBody{}
}
