package session

import (
	"strings"
	"time"
)

// Body is the content of an inbound message. Each variant knows where its
// human-readable text lives.
type Body interface {
	ExtractText() (string, bool)
}

type TextBody struct{ Text string }

type ExtendedTextBody struct {
	Text        string
	QuotedID    string
	QuotedChat  string
	MatchedLink string
}

type ImageBody struct {
	Caption  string
	Mimetype string
}

type VideoBody struct {
	Caption  string
	Mimetype string
}

type DocumentBody struct {
	Caption  string
	FileName string
}

// ButtonReplyBody is a tap on a quick-reply button.
type ButtonReplyBody struct{ SelectedID string }

type ListReplyBody struct{ SelectedRowID string }

type TemplateReplyBody struct{ SelectedID string }

// ViewOnceBody wraps media that can be opened only once.
type ViewOnceBody struct{ Inner Body }

type ReactionBody struct {
	Emoji    string
	TargetID string
}

// RevokeBody is a "delete for everyone" notice.
type RevokeBody struct{ TargetID string }

type UnknownBody struct{}

func (b TextBody) ExtractText() (string, bool)          { return nonEmpty(b.Text) }
func (b ExtendedTextBody) ExtractText() (string, bool)  { return nonEmpty(b.Text) }
func (b ImageBody) ExtractText() (string, bool)         { return nonEmpty(b.Caption) }
func (b VideoBody) ExtractText() (string, bool)         { return nonEmpty(b.Caption) }
func (b DocumentBody) ExtractText() (string, bool)      { return nonEmpty(b.Caption) }
func (b ButtonReplyBody) ExtractText() (string, bool)   { return nonEmpty(b.SelectedID) }
func (b ListReplyBody) ExtractText() (string, bool)     { return nonEmpty(b.SelectedRowID) }
func (b TemplateReplyBody) ExtractText() (string, bool) { return nonEmpty(b.SelectedID) }
func (b ReactionBody) ExtractText() (string, bool)      { return "", false }
func (b RevokeBody) ExtractText() (string, bool)        { return "", false }
func (b UnknownBody) ExtractText() (string, bool)       { return "", false }

func (b ViewOnceBody) ExtractText() (string, bool) {
	if b.Inner == nil {
		return "", false
	}
	return b.Inner.ExtractText()
}

func nonEmpty(s string) (string, bool) {
	return s, strings.TrimSpace(s) != ""
}

// ChatKind tells where a message was posted.
type ChatKind int

const (
	ChatDirect ChatKind = iota
	ChatGroup
	ChatStatus
	ChatNewsletter
)

// Inbound is a received chat message.
type Inbound struct {
	ID        string
	Chat      string
	Sender    string
	PushName  string
	FromMe    bool
	Kind      ChatKind
	Timestamp time.Time
	// ServerID identifies newsletter posts for reactions.
	ServerID int
	Body     Body
}

// ExtractText returns the message text, if the body carries any.
func (m *Inbound) ExtractText() (string, bool) {
	if m == nil || m.Body == nil {
		return "", false
	}
	return m.Body.ExtractText()
}

// SenderNumber is the digits-only part of the sender address.
func (m *Inbound) SenderNumber() string {
	user, _, _ := strings.Cut(m.Sender, "@")
	user, _, _ = strings.Cut(user, ":")
	return user
}
