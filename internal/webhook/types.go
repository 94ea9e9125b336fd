package webhook

import (
	"time"
)

type EventType string

const (
	EventSessionConnected    EventType = "session.connected"
	EventSessionDisconnected EventType = "session.disconnected"
	EventSessionLoggedOut    EventType = "session.logged_out"
	EventSessionDeleted      EventType = "session.deleted"
	EventConfigUpdated       EventType = "config.updated"
	EventMessageRevoked      EventType = "message.revoked"
)

type Event struct {
	EventType EventType              `json:"event_type"`
	Number    string                 `json:"number"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
