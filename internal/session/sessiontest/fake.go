// Package sessiontest provides in-memory fakes of the session contracts.
package sessiontest

import (
	"context"
	"errors"
	"sync"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
)

// Sent is one outbound message recorded by a Conn.
type Sent struct {
	Kind    string
	Chat    string
	Text    string
	Payload []byte
}

// Conn is a scriptable session.Conn.
type Conn struct {
	Number string

	mu         sync.Mutex
	registered bool
	creds      []byte
	connected  bool

	// PairErrs are returned by successive PairCode calls before succeeding.
	PairErrs    []error
	Code        string
	ConnectErr  error
	JoinErr     error
	SendErr     error
	Info        session.UserInfo
	InfoErr     error
	pairCalls   int
	joinCalls   int
	logouts     int
	purges      int
	sent        []Sent
	reactions   []string
	reads       int
	followed    []string
	recordings  int
	disconnects int
}

func NewConn(number string, registered bool) *Conn {
	return &Conn{Number: number, registered: registered, Code: "ABCD-EFGH"}
}

func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ConnectErr != nil {
		return c.ConnectErr
	}
	c.connected = true
	return nil
}

func (c *Conn) Registered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registered
}

func (c *Conn) PairCode(ctx context.Context, number string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairCalls++
	if c.pairCalls <= len(c.PairErrs) {
		return "", c.PairErrs[c.pairCalls-1]
	}
	return c.Code, nil
}

// Pair marks the device as registered with the given credentials.
func (c *Conn) Pair(creds []byte) {
	c.mu.Lock()
	c.registered = true
	c.creds = creds
	c.mu.Unlock()
}

func (c *Conn) Credentials() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.creds == nil {
		return nil, errors.New("no credentials")
	}
	return c.creds, nil
}

func (c *Conn) SelfChat() string { return c.Number + "@s.whatsapp.net" }

func (c *Conn) JoinGroup(ctx context.Context, inviteCode string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinCalls++
	if c.JoinErr != nil {
		return "", c.JoinErr
	}
	return "120363000000000000@g.us", nil
}

func (c *Conn) FollowNewsletter(ctx context.Context, jid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.followed = append(c.followed, jid)
	return nil
}

func (c *Conn) UserInfo(ctx context.Context, number string) (session.UserInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.InfoErr != nil {
		return session.UserInfo{}, c.InfoErr
	}
	info := c.Info
	info.Number = number
	return info, nil
}

func (c *Conn) record(s Sent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.sent = append(c.sent, s)
	return nil
}

func (c *Conn) SendText(ctx context.Context, chat string, text string) error {
	return c.record(Sent{Kind: "text", Chat: chat, Text: text})
}

func (c *Conn) SendReply(ctx context.Context, msg *session.Inbound, text string) error {
	return c.record(Sent{Kind: "reply", Chat: msg.Chat, Text: text})
}

func (c *Conn) SendImage(ctx context.Context, chat string, image []byte, caption string) error {
	return c.record(Sent{Kind: "image", Chat: chat, Text: caption, Payload: image})
}

func (c *Conn) SendVideo(ctx context.Context, chat string, video []byte, caption string) error {
	return c.record(Sent{Kind: "video", Chat: chat, Text: caption, Payload: video})
}

func (c *Conn) React(ctx context.Context, msg *session.Inbound, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reactions = append(c.reactions, emoji)
	return nil
}

func (c *Conn) MarkRead(ctx context.Context, msg *session.Inbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return nil
}

func (c *Conn) SendRecording(ctx context.Context, chat string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordings++
	return nil
}

func (c *Conn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
}

func (c *Conn) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logouts++
	c.connected = false
	c.registered = false
	return nil
}

func (c *Conn) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purges++
	c.registered = false
	return nil
}

func (c *Conn) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

func (c *Conn) Reactions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.reactions...)
}

func (c *Conn) Followed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.followed...)
}

func (c *Conn) PairCalls() int   { c.mu.Lock(); defer c.mu.Unlock(); return c.pairCalls }
func (c *Conn) JoinCalls() int   { c.mu.Lock(); defer c.mu.Unlock(); return c.joinCalls }
func (c *Conn) Logouts() int     { c.mu.Lock(); defer c.mu.Unlock(); return c.logouts }
func (c *Conn) Purges() int      { c.mu.Lock(); defer c.mu.Unlock(); return c.purges }
func (c *Conn) Reads() int       { c.mu.Lock(); defer c.mu.Unlock(); return c.reads }
func (c *Conn) Recordings() int  { c.mu.Lock(); defer c.mu.Unlock(); return c.recordings }
func (c *Conn) Disconnects() int { c.mu.Lock(); defer c.mu.Unlock(); return c.disconnects }

func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Dialer hands out fake connections and remembers the credentials of each dial.
type Dialer struct {
	mu sync.Mutex

	// Prepare, when set, configures every new connection.
	Prepare func(c *Conn)
	DialErr error

	conns []*Conn
	creds [][]byte
}

func (d *Dialer) Dial(ctx context.Context, number string, credentials []byte, listener session.Listener) (session.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	c := NewConn(number, len(credentials) > 0)
	if len(credentials) > 0 {
		c.creds = credentials
	}
	if d.Prepare != nil {
		d.Prepare(c)
	}
	d.conns = append(d.conns, c)
	d.creds = append(d.creds, credentials)
	return c, nil
}

// Last returns the most recently dialed connection.
func (d *Dialer) Last() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// DialedWith returns the credentials passed to the i-th Dial call.
func (d *Dialer) DialedWith(i int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.creds[i]
}
