package devserver

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/matheus3301/msgr/internal/store"
)

// flexID accepts an id sent either as a JSON number or as a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n)
	return nil
}

func stamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type authRequest struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type userJSON struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	Status    string  `json:"status"`
	LastSeen  string  `json:"last_seen,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

func toUser(u *store.User) userJSON {
	return userJSON{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: optional(u.AvatarURL),
		Status:    u.Status,
		CreatedAt: stamp(u.CreatedAt),
	}
}

type authResponse struct {
	User  userJSON `json:"user"`
	Token string   `json:"token"`
}

type chatJSON struct {
	ChatID          int64   `json:"chat_id"`
	OtherUserID     int64   `json:"other_user_id"`
	OtherUsername   string  `json:"other_username"`
	OtherAvatar     *string `json:"other_avatar"`
	OtherStatus     string  `json:"other_status"`
	LastMessage     *string `json:"last_message"`
	LastMessageTime *string `json:"last_message_time"`
	UnreadCount     int     `json:"unread_count"`
}

func toChat(c store.ChatSummary) chatJSON {
	out := chatJSON{
		ChatID:        c.ChatID,
		OtherUserID:   c.OtherUserID,
		OtherUsername: c.OtherUsername,
		OtherAvatar:   optional(c.OtherAvatar),
		OtherStatus:   c.OtherStatus,
		UnreadCount:   c.UnreadCount,
	}
	if c.LastMessageAt != 0 {
		text, at := c.LastMessage, stamp(c.LastMessageAt)
		out.LastMessage = &text
		out.LastMessageTime = &at
	}
	return out
}

type messageJSON struct {
	ID             int64  `json:"id"`
	Text           string `json:"text"`
	SenderID       int64  `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	IsRead         bool   `json:"is_read"`
	CreatedAt      string `json:"created_at"`
}

func toMessage(m store.Message) messageJSON {
	return messageJSON{
		ID:             m.ID,
		Text:           m.Text,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		IsRead:         m.IsRead,
		CreatedAt:      stamp(m.CreatedAt),
	}
}

type chatAction struct {
	Action      string `json:"action"`
	ChatID      flexID `json:"chat_id"`
	OtherUserID flexID `json:"other_user_id"`
	Text        string `json:"text"`
}
