package whatsapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
)

func TestCredentialsRoundTrip(t *testing.T) {
	jid := types.NewADJID("94700000001", 0, 12)
	blob, err := encodeCredentials(&store.Device{ID: &jid, PushName: "Bot"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jid":"94700000001:12@s.whatsapp.net","pushName":"Bot"}`, string(blob))

	decoded, err := decodeCredentials(blob)
	require.NoError(t, err)
	assert.Equal(t, jid.String(), decoded.String())
}

func TestCredentials_Unpaired(t *testing.T) {
	_, err := encodeCredentials(&store.Device{})
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = decodeCredentials([]byte(`{}`))
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = decodeCredentials([]byte(`not json`))
	assert.Error(t, err)
}

func TestSqlstoreDialect(t *testing.T) {
	assert.Equal(t, "postgres", sqlstoreDialect("pgx"))
	assert.Equal(t, "sqlite3", sqlstoreDialect("sqlite"))
}

func TestChatKind(t *testing.T) {
	assert.Equal(t, session.ChatStatus, chatKind(types.StatusBroadcastJID))
	assert.Equal(t, session.ChatNewsletter, chatKind(types.NewJID("120363396379901844", types.NewsletterServer)))
	assert.Equal(t, session.ChatGroup, chatKind(types.NewJID("120363000000000000", types.GroupServer)))
	assert.Equal(t, session.ChatDirect, chatKind(types.NewJID("94700000001", types.DefaultUserServer)))
}

func TestToBody(t *testing.T) {
	cases := []struct {
		name string
		msg  *waE2E.Message
		want session.Body
	}{
		{"nil", nil, session.UnknownBody{}},
		{"conversation", &waE2E.Message{Conversation: proto.String(".menu")}, session.TextBody{Text: ".menu"}},
		{"extended", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(".news https://x.test"),
			MatchedText: proto.String("https://x.test"),
			ContextInfo: &waE2E.ContextInfo{StanzaID: proto.String("Q1")},
		}}, session.ExtendedTextBody{Text: ".news https://x.test", QuotedID: "Q1", MatchedLink: "https://x.test"}},
		{"image", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String(".qr"), Mimetype: proto.String("image/jpeg")}},
			session.ImageBody{Caption: ".qr", Mimetype: "image/jpeg"}},
		{"buttons", &waE2E.Message{ButtonsResponseMessage: &waE2E.ButtonsResponseMessage{
			SelectedButtonID: proto.String(".menu"),
		}}, session.ButtonReplyBody{SelectedID: ".menu"}},
		{"list", &waE2E.Message{ListResponseMessage: &waE2E.ListResponseMessage{
			SingleSelectReply: &waE2E.ListResponseMessage_SingleSelectReply{SelectedRowID: proto.String(".alive")},
		}}, session.ListReplyBody{SelectedRowID: ".alive"}},
		{"ephemeral", &waE2E.Message{EphemeralMessage: &waE2E.FutureProofMessage{
			Message: &waE2E.Message{Conversation: proto.String("hi")},
		}}, session.TextBody{Text: "hi"}},
		{"view once", &waE2E.Message{ViewOnceMessage: &waE2E.FutureProofMessage{
			Message: &waE2E.Message{VideoMessage: &waE2E.VideoMessage{Caption: proto.String("secret")}},
		}}, session.ViewOnceBody{Inner: session.VideoBody{Caption: "secret"}}},
		{"reaction", &waE2E.Message{ReactionMessage: &waE2E.ReactionMessage{
			Text: proto.String("🔥"),
			Key:  &waCommon.MessageKey{ID: proto.String("M1")},
		}}, session.ReactionBody{Emoji: "🔥", TargetID: "M1"}},
		{"revoke", &waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{
			Type: waE2E.ProtocolMessage_REVOKE.Enum(),
			Key:  &waCommon.MessageKey{ID: proto.String("M2")},
		}}, session.RevokeBody{TargetID: "M2"}},
		{"other protocol", &waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{
			Type: waE2E.ProtocolMessage_EPHEMERAL_SETTING.Enum(),
		}}, session.UnknownBody{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, toBody(tc.msg))
		})
	}
}

func TestToInbound(t *testing.T) {
	now := time.Now()
	evt := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:     types.NewJID("120363396379901844", types.NewsletterServer),
				Sender:   types.NewADJID("94700000002", 0, 3),
				IsFromMe: false,
			},
			ID:        "ABC",
			ServerID:  77,
			PushName:  "Nimal",
			Timestamp: now,
		},
		Message:    &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("look")}},
		IsViewOnce: true,
	}

	msg := toInbound(evt)
	assert.Equal(t, "ABC", msg.ID)
	assert.Equal(t, "120363396379901844@newsletter", msg.Chat)
	assert.Equal(t, "94700000002@s.whatsapp.net", msg.Sender)
	assert.Equal(t, "94700000002", msg.SenderNumber())
	assert.Equal(t, session.ChatNewsletter, msg.Kind)
	assert.Equal(t, 77, msg.ServerID)
	assert.Equal(t, session.ViewOnceBody{Inner: session.ImageBody{Caption: "look"}}, msg.Body)

	text, ok := msg.ExtractText()
	assert.True(t, ok)
	assert.Equal(t, "look", text)
}

func TestValidEmoji(t *testing.T) {
	assert.True(t, validEmoji("🔥"))
	assert.False(t, validEmoji("🔥🔥"))
	assert.False(t, validEmoji("a"))
	assert.False(t, validEmoji(""))
}

func newTestRefresher(fetch func(ctx context.Context) (*store.WAVersionContainer, error)) (*VersionRefresher, *[]store.WAVersionContainer) {
	var applied []store.WAVersionContainer
	current := store.WAVersionContainer{2, 3000, 1}
	r := NewVersionRefresher(time.Hour)
	r.fetch = fetch
	r.apply = func(v store.WAVersionContainer) {
		applied = append(applied, v)
		current = v
	}
	r.current = func() store.WAVersionContainer { return current }
	return r, &applied
}

func TestVersionRefresher_Throttles(t *testing.T) {
	calls := 0
	r, applied := newTestRefresher(func(ctx context.Context) (*store.WAVersionContainer, error) {
		calls++
		return &store.WAVersionContainer{2, 3000, 1020000000}, nil
	})

	status, attempted, err := r.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, attempted)
	assert.Equal(t, store.WAVersionContainer{2, 3000, 1020000000}, status.CurrentVersion)
	assert.NotNil(t, status.LastRefreshed)

	_, attempted, err = r.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, attempted)

	_, attempted, _ = r.Refresh(context.Background(), true)
	assert.True(t, attempted)
	assert.Equal(t, 2, calls)
	assert.Len(t, *applied, 2)
}

func TestVersionRefresher_RecordsFailure(t *testing.T) {
	r, applied := newTestRefresher(func(ctx context.Context) (*store.WAVersionContainer, error) {
		return nil, errors.New("unreachable")
	})

	status, attempted, err := r.Refresh(context.Background(), false)
	require.Error(t, err)
	assert.True(t, attempted)
	assert.Equal(t, "unreachable", status.LastError)
	assert.Equal(t, store.WAVersionContainer{2, 3000, 1}, status.CurrentVersion)
	assert.Empty(t, *applied)
}
