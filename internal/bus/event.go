package bus

import "time"

// Event kinds published by the client engine. Subscribers filter by prefix,
// e.g. "chats." or "" for everything.
const (
	ChatsUpdated     = "chats.updated"
	MessagesUpdated  = "messages.updated"
	SelectionChanged = "selection.changed"
	SearchUpdated    = "search.updated"
	OutboxSent       = "outbox.sent"
	OutboxFailed     = "outbox.failed"
	SyncFailed       = "sync.failed"
	StatusChanged    = "client.status_changed"
	SessionEnded     = "client.session_ended"
)

// Event represents a state change published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
