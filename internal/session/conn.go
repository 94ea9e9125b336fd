// Package session defines the contracts between the connection supervisor
// and the messaging protocol adapter.
package session

import (
	"context"
	"errors"
	"time"
)

// CloseReason classifies why a connection closed.
type CloseReason int

const (
	// CloseTransient is any disconnect that warrants a reconnect.
	CloseTransient CloseReason = iota
	// CloseLoggedOut means the remote side revoked the session.
	CloseLoggedOut
)

func (r CloseReason) String() string {
	if r == CloseLoggedOut {
		return "logged_out"
	}
	return "transient"
}

var (
	ErrNotConnected  = errors.New("connection is not open")
	ErrNotOnWhatsApp = errors.New("user is not on whatsapp")
)

// UserInfo is the public profile data of a remote account.
type UserInfo struct {
	Number     string
	About      string
	AboutSetAt time.Time
	IsBusiness bool
	Devices    int
}

// Conn is one live protocol connection for a bot number.
type Conn interface {
	// Connect opens the underlying transport.
	Connect(ctx context.Context) error
	// Registered reports whether the device already holds paired credentials.
	Registered() bool
	// PairCode requests a phone pairing code for number.
	PairCode(ctx context.Context, number string) (string, error)
	// Credentials returns the opaque blob persisted by the Credential Store.
	Credentials() ([]byte, error)
	// SelfChat is the chat address of the connected account itself.
	SelfChat() string

	// JoinGroup accepts an invite and returns the joined group address.
	JoinGroup(ctx context.Context, inviteCode string) (string, error)
	FollowNewsletter(ctx context.Context, jid string) error
	UserInfo(ctx context.Context, number string) (UserInfo, error)

	SendText(ctx context.Context, chat string, text string) error
	SendReply(ctx context.Context, msg *Inbound, text string) error
	SendImage(ctx context.Context, chat string, image []byte, caption string) error
	SendVideo(ctx context.Context, chat string, video []byte, caption string) error
	React(ctx context.Context, msg *Inbound, emoji string) error
	MarkRead(ctx context.Context, msg *Inbound) error
	SendRecording(ctx context.Context, chat string) error

	// Disconnect closes the transport without revoking the session.
	Disconnect()
	// Logout revokes the session remotely and deletes local device state.
	Logout(ctx context.Context) error
	// Purge deletes local device state after a remote logout.
	Purge(ctx context.Context) error
}

// Listener receives lifecycle and content events for a connection. Events
// for one connection are delivered in order.
type Listener interface {
	OnCredentials(number string, conn Conn)
	OnOpen(number string, conn Conn)
	OnClose(number string, conn Conn, reason CloseReason)
	OnMessage(number string, conn Conn, msg *Inbound)
}

// Dialer creates connections. The listener is attached before the returned
// connection can emit any event.
type Dialer interface {
	Dial(ctx context.Context, number string, credentials []byte, listener Listener) (Conn, error)
}
