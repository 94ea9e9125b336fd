package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/registry"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/session/sessiontest"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/supervisor"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/webhook"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/ai"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/content"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/retry"
)

const botNumber = "94700000001"

type fakeSessions struct {
	mu        sync.Mutex
	active    []string
	result    supervisor.Result
	err       error
	connected []string
	deleted   []string
}

func (f *fakeSessions) Active() []string { return f.active }

func (f *fakeSessions) Connect(ctx context.Context, number string) (supervisor.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = append(f.connected, number)
	return f.result, f.err
}

func (f *fakeSessions) Delete(ctx context.Context, number string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, number)
	return nil
}

type fakeConfigs map[string]config.Overrides

func (f fakeConfigs) GetConfig(ctx context.Context, number string) (config.Overrides, error) {
	return f[number], nil
}

type fakeContent struct {
	article content.Article
	newsErr error
	ogImage string
	files   map[string][]byte
}

func (f *fakeContent) News(ctx context.Context, feed string) (content.Article, error) {
	return f.article, f.newsErr
}

func (f *fakeContent) Cricket(ctx context.Context) (content.Score, error) {
	return content.Score{}, content.ErrInvalidResponse
}

func (f *fakeContent) APOD(ctx context.Context) (content.APOD, error) {
	return content.APOD{}, content.ErrInvalidResponse
}

func (f *fakeContent) TikTok(ctx context.Context, link string) (content.TikTokVideo, error) {
	return content.TikTokVideo{}, content.ErrNoMedia
}

func (f *fakeContent) Facebook(ctx context.Context, link string) (string, error) {
	return "", content.ErrNoMedia
}

func (f *fakeContent) OGImage(ctx context.Context, page string) (string, error) {
	return f.ogImage, nil
}

func (f *fakeContent) Download(ctx context.Context, rawURL string) ([]byte, error) {
	if data, ok := f.files[rawURL]; ok {
		return data, nil
	}
	return nil, content.ErrNoMedia
}

type fakeAI struct{ err error }

func (f fakeAI) Text(ctx context.Context, prompt string) (string, error) {
	return "answer to " + prompt, f.err
}

func (f fakeAI) Image(ctx context.Context, prompt string) ([]byte, error) {
	return []byte("png"), f.err
}

type recordedEvents struct {
	mu     sync.Mutex
	events []webhook.EventType
	data   []map[string]interface{}
}

func (r *recordedEvents) Dispatch(number string, eventType webhook.EventType, data map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	r.data = append(r.data, data)
}

type harness struct {
	d        *Dispatcher
	conn     *sessiontest.Conn
	sessions *fakeSessions
	configs  fakeConfigs
	content  *fakeContent
	events   *recordedEvents
}

func newHarness(t *testing.T, tweak func(*Options)) *harness {
	t.Helper()
	h := &harness{
		conn:     sessiontest.NewConn(botNumber, true),
		sessions: &fakeSessions{},
		configs:  fakeConfigs{},
		content:  &fakeContent{files: map[string][]byte{}},
		events:   &recordedEvents{},
	}
	opts := Options{
		BotName: "TEST-BOT",
		Defaults: config.Settings{
			Prefix:        ".",
			AutoLikeEmoji: []string{"💚"},
		},
		Admins:         func() []string { return []string{"94711111111"} },
		NewsletterJIDs: []string{"120363396379901844@newsletter"},
		Retry:          retry.Policy{Attempts: 1},
		Configs:        h.configs,
		Sessions:       h.sessions,
		Registry:       registry.New(),
		Content:        h.content,
		AI:             fakeAI{},
		Events:         h.events,
	}
	if tweak != nil {
		tweak(&opts)
	}
	h.d = New(opts)
	return h
}

func (h *harness) send(text string, tweak ...func(*session.Inbound)) *session.Inbound {
	msg := &session.Inbound{
		ID:        "MSG1",
		Chat:      "94722222222@s.whatsapp.net",
		Sender:    "94722222222@s.whatsapp.net",
		PushName:  "Kasun",
		Kind:      session.ChatDirect,
		Timestamp: time.Now(),
		Body:      session.TextBody{Text: text},
	}
	for _, fn := range tweak {
		fn(msg)
	}
	h.d.HandleMessage(context.Background(), botNumber, h.conn, msg)
	return msg
}

func replies(c *sessiontest.Conn) []string {
	var out []string
	for _, s := range c.Sent() {
		if s.Kind == "reply" {
			out = append(out, s.Text)
		}
	}
	return out
}

func TestParse(t *testing.T) {
	cases := []struct {
		text, prefix, name, query string
		ok                        bool
	}{
		{".alive", ".", "alive", "", true},
		{". PAIR  9470 ", ".", "pair", "9470", true},
		{"!ai what is go", "!", "ai", "what is go", true},
		{"alive", ".", "", "", false},
		{".", ".", "", "", false},
		{".alive", "", "", "", false},
	}
	for _, tc := range cases {
		name, query, ok := parse(&session.Inbound{Body: session.TextBody{Text: tc.text}}, tc.prefix)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.name, name, tc.text)
		assert.Equal(t, tc.query, query, tc.text)
	}
}

func TestHandleMessage_DispatchesCaseInsensitive(t *testing.T) {
	h := newHarness(t, nil)
	h.send(".ALIVE")

	got := replies(h.conn)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "TEST-BOT IS ALIVE")
	assert.Contains(t, got[0], botNumber)
}

func TestHandleMessage_IgnoresUnknownAndUnprefixed(t *testing.T) {
	h := newHarness(t, nil)
	h.send(".nosuchcommand")
	h.send("alive")
	h.send("", func(m *session.Inbound) { m.Body = session.UnknownBody{} })

	assert.Empty(t, h.conn.Sent())
}

func TestHandleMessage_UsesConfiguredPrefix(t *testing.T) {
	h := newHarness(t, nil)
	prefix := "!"
	h.configs[botNumber] = config.Overrides{Prefix: &prefix}

	h.send(".ping")
	assert.Empty(t, h.conn.Sent())

	h.send("!ping")
	got := replies(h.conn)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "Pong")
}

func TestHandleMessage_ExtractsTextFromEveryCarrier(t *testing.T) {
	h := newHarness(t, nil)
	h.send("", func(m *session.Inbound) { m.Body = session.ImageBody{Caption: ".ping"} })
	h.send("", func(m *session.Inbound) { m.Body = session.ButtonReplyBody{SelectedID: ".ping"} })
	h.send("", func(m *session.Inbound) {
		m.Body = session.ViewOnceBody{Inner: session.VideoBody{Caption: ".ping"}}
	})

	assert.Len(t, replies(h.conn), 3)
}

func TestHandleMessage_ErrorsAndPanicsBecomeGenericReply(t *testing.T) {
	h := newHarness(t, nil)
	h.d.commands["fail"] = func(ctx context.Context, req *Request) error { return errors.New("boom") }
	h.d.commands["panic"] = func(ctx context.Context, req *Request) error { panic("boom") }

	h.send(".fail")
	h.send(".panic")

	got := replies(h.conn)
	require.Len(t, got, 2)
	for _, reply := range got {
		assert.Contains(t, reply, genericError)
	}
}

func TestStatusHook_ViewsAndLikes(t *testing.T) {
	h := newHarness(t, nil)
	view, like := true, true
	h.configs[botNumber] = config.Overrides{AutoViewStatus: &view, AutoLikeStatus: &like}

	h.send(".alive", func(m *session.Inbound) {
		m.Chat = "status@broadcast"
		m.Kind = session.ChatStatus
	})

	assert.Equal(t, 1, h.conn.Reads())
	assert.Equal(t, []string{"💚"}, h.conn.Reactions())
	assert.Empty(t, replies(h.conn), "status posts never run commands")
}

func TestStatusHook_DisabledByDefault(t *testing.T) {
	h := newHarness(t, nil)
	h.send("hello", func(m *session.Inbound) { m.Kind = session.ChatStatus })

	assert.Zero(t, h.conn.Reads())
	assert.Empty(t, h.conn.Reactions())
}

func TestNewsletterHook(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.NewsletterEmoji = []string{"🔥"} })

	h.send("post", func(m *session.Inbound) {
		m.Chat = "120363396379901844@newsletter"
		m.Kind = session.ChatNewsletter
		m.ServerID = 42
	})
	h.send("post", func(m *session.Inbound) {
		m.Chat = "120363000000000001@newsletter"
		m.Kind = session.ChatNewsletter
		m.ServerID = 43
	})
	h.send("post", func(m *session.Inbound) {
		m.Chat = "120363396379901844@newsletter"
		m.Kind = session.ChatNewsletter
	})

	assert.Equal(t, []string{"🔥"}, h.conn.Reactions())
}

func TestRevokeHook_NotifiesSelf(t *testing.T) {
	h := newHarness(t, nil)
	h.send("", func(m *session.Inbound) { m.Body = session.RevokeBody{TargetID: "OLD1"} })

	sent := h.conn.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "text", sent[0].Kind)
	assert.Equal(t, h.conn.SelfChat(), sent[0].Chat)
	assert.Contains(t, sent[0].Text, "MESSAGE DELETED")

	require.Equal(t, []webhook.EventType{webhook.EventMessageRevoked}, h.events.events)
	assert.Equal(t, "OLD1", h.events.data[0]["message_id"])
}

func TestRecordingHook(t *testing.T) {
	h := newHarness(t, nil)
	recording := true
	h.configs[botNumber] = config.Overrides{AutoRecording: &recording}

	h.send("hi")
	h.send("hi", func(m *session.Inbound) { m.FromMe = true })

	assert.Equal(t, 1, h.conn.Recordings())
}

func TestPair(t *testing.T) {
	h := newHarness(t, nil)
	h.sessions.result = supervisor.Result{Number: "94733333333", Code: "ABCD-1234"}

	h.send(".pair +94 733 333 333")

	assert.Equal(t, []string{"+94 733 333 333"}, h.sessions.connected)
	got := replies(h.conn)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "ABCD-1234")
	assert.Equal(t, "ABCD-1234", got[1])
}

func TestPair_Errors(t *testing.T) {
	h := newHarness(t, nil)
	h.send(".pair")

	h.sessions.err = supervisor.ErrAlreadyConnected
	h.send(".pair 94733333333")

	h.sessions.err = supervisor.ErrPairingFailed
	h.send(".pair 94733333333")

	got := replies(h.conn)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "Usage")
	assert.Contains(t, got[1], "already connected")
	assert.Contains(t, got[2], "Failed to retrieve pairing code")
}

func TestDeleteMe_RestrictedToOwner(t *testing.T) {
	h := newHarness(t, nil)

	h.send(".deleteme")
	assert.Empty(t, h.sessions.deleted)

	h.send(".deleteme", func(m *session.Inbound) { m.FromMe = true })
	h.send(".deleteme", func(m *session.Inbound) { m.Sender = "94711111111@s.whatsapp.net" })
	assert.Equal(t, []string{botNumber, botNumber}, h.sessions.deleted)
}

func TestActive(t *testing.T) {
	h := newHarness(t, nil)
	h.sessions.active = []string{"94700000001", "94700000002"}

	h.send(".active")
	got := replies(h.conn)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "Active Members: *2*")
	assert.Contains(t, got[0], "94700000002")
}

func TestFollow(t *testing.T) {
	h := newHarness(t, nil)
	h.send(".fc not-a-jid")
	h.send(".fc 120363396379901844@newsletter")

	assert.Equal(t, []string{"120363396379901844@newsletter"}, h.conn.Followed())
	got := replies(h.conn)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "Invalid JID")
}

func TestNews_SendsPageImage(t *testing.T) {
	h := newHarness(t, nil)
	h.content.article = content.Article{Title: "Title", Desc: "Desc", Date: "today", Link: "https://news.test/a"}
	h.content.ogImage = "https://news.test/a.jpg"
	h.content.files["https://news.test/a.jpg"] = []byte("jpeg")

	h.send(".news")

	sent := h.conn.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "image", sent[0].Kind)
	assert.Equal(t, []byte("jpeg"), sent[0].Payload)
	assert.Contains(t, sent[0].Text, "Title")
}

func TestNews_FallsBackToText(t *testing.T) {
	h := newHarness(t, nil)
	h.content.article = content.Article{Title: "Title", Desc: "Desc", Date: "today", Link: "https://news.test/a"}

	h.send(".gossip")
	got := replies(h.conn)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "GOSSIP")

	h.content.newsErr = content.ErrInvalidResponse
	h.send(".news")
	got = replies(h.conn)
	require.Len(t, got, 2)
	assert.Equal(t, "⚠️ news fetch failed.", got[1])
}

func TestAI(t *testing.T) {
	h := newHarness(t, nil)
	h.send(".ai what is go")
	got := replies(h.conn)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "answer to what is go")

	h = newHarness(t, func(o *Options) { o.AI = fakeAI{err: ai.ErrDisabled} })
	h.send(".aiimg a cat")
	got = replies(h.conn)
	require.Len(t, got, 2)
	assert.Contains(t, got[1], "not configured")
}

func TestWhoIs(t *testing.T) {
	h := newHarness(t, nil)
	h.conn.Info = session.UserInfo{About: "busy", IsBusiness: true, Devices: 2}

	h.send(".winfo 123")
	h.send(".winfo +94 744 444 444")

	got := replies(h.conn)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "Invalid phone number")
	assert.Contains(t, got[1], "94744444444")
	assert.Contains(t, got[1], "Business")
	assert.Contains(t, got[1], "busy")

	h.conn.InfoErr = session.ErrNotOnWhatsApp
	h.send(".winfo 94744444444")
	assert.Contains(t, replies(h.conn)[2], "not found")
}

func TestQR(t *testing.T) {
	h := newHarness(t, nil)
	h.send(".qr https://example.com")

	sent := h.conn.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "image", sent[0].Kind)
	assert.Equal(t, []byte("\x89PNG"), sent[0].Payload[:4])
}

func TestFancy(t *testing.T) {
	bold := fonts[0]
	assert.Equal(t, string([]rune{0x1D406, 0x1D428, 0x1D7CF}), bold.convert("Go1"))

	double := fonts[6]
	assert.Equal(t, string([]rune{0x2124, 0x1D552}), double.convert("Za"))

	smallCapsFont := fonts[len(fonts)-1]
	assert.Equal(t, "ɢᴏ!", smallCapsFont.convert("Go!"))

	h := newHarness(t, nil)
	h.send(".fancy Go")
	got := replies(h.conn)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "*Monospace:*")
}

func TestCommands(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, []string{
		"active", "ai", "aiimg", "alive", "allmenu", "cricket", "deleteme", "fancy", "fb",
		"fc", "gossip", "menu", "nasa", "news", "pair", "ping", "qr", "tiktok", "winfo",
	}, h.d.Commands())
}
