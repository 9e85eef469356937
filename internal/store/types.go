package store

import "errors"

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned when registering a username that exists.
	ErrUsernameTaken = errors.New("username already exists")
)

// Presence values stored in users.status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User is a registered account. Timestamps are Unix milliseconds.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	AvatarURL    string
	Status       string
	LastSeen     int64
	CreatedAt    int64
}

// ChatSummary is one row of a user's conversation list.
type ChatSummary struct {
	ChatID        int64
	OtherUserID   int64
	OtherUsername string
	OtherAvatar   string
	OtherStatus   string
	LastMessage   string // empty when the chat has no messages
	LastMessageAt int64  // 0 when the chat has no messages
	UnreadCount   int
}

// Message is a stored chat message.
type Message struct {
	ID             int64
	ChatID         int64
	SenderID       int64
	SenderUsername string
	Text           string
	IsRead         bool
	CreatedAt      int64
}
