package chat

import "time"

// Presence is a user's online state as reported by the remote service.
type Presence string

const (
	Online  Presence = "online"
	Offline Presence = "offline"
)

// Identity is a user of the remote service.
type Identity struct {
	ID          string
	DisplayName string
	AvatarRef   string
	Presence    Presence
}

// Conversation is a two-party thread as listed by the remote service.
type Conversation struct {
	ID                 string
	Counterpart        Identity
	LastMessagePreview string
	LastMessageAt      time.Time
	UnreadCount        int
}

// Equal reports whether two conversations carry the same data.
func (c Conversation) Equal(o Conversation) bool {
	return c.ID == o.ID &&
		c.Counterpart == o.Counterpart &&
		c.LastMessagePreview == o.LastMessagePreview &&
		c.LastMessageAt.Equal(o.LastMessageAt) &&
		c.UnreadCount == o.UnreadCount
}

// Delivery tags a message as server-confirmed or as a local pending entry.
type Delivery int

const (
	// Confirmed messages come from the remote service.
	Confirmed Delivery = iota
	// Sending messages were composed locally and the send call has not returned.
	Sending
	// Sent messages were acknowledged by the send call but not yet seen in a fetch.
	Sent
	// Failed messages were not delivered. They stay until retried or discarded.
	Failed
)

func (d Delivery) String() string {
	switch d {
	case Confirmed:
		return "confirmed"
	case Sending:
		return "sending"
	case Sent:
		return "sent"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Message is a single entry of a conversation's history.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	CreatedAt      time.Time
	Read           bool
	Delivery       Delivery

	// TempID identifies a pending message locally. Empty for confirmed messages.
	TempID string
}

// Pending reports whether the message has not been confirmed by a fetch yet.
func (m Message) Pending() bool {
	return m.Delivery != Confirmed
}

// Receipt is the remote service's acknowledgment of a sent message.
// Both fields may be zero when the service does not report them.
type Receipt struct {
	MessageID string
	CreatedAt time.Time
}

// SearchStatus is the lifecycle of a user search.
type SearchStatus string

const (
	SearchIdle       SearchStatus = "idle"
	SearchDebouncing SearchStatus = "debouncing"
	SearchLoading    SearchStatus = "loading"
	SearchDone       SearchStatus = "done"
	SearchFailed     SearchStatus = "failed"
)

// SearchState is the current query and its results.
type SearchState struct {
	Query   string
	Results []Identity
	Status  SearchStatus
	Err     error
}
