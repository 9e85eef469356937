package remote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/msgr/internal/chat"
)

// newChatPreview is shown for conversations without messages.
const newChatPreview = "New chat"

// id accepts both JSON numbers and strings; the service uses integer ids but
// the client treats them as opaque.
type id string

func (i *id) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*i = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*i = id(str)
		return nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return fmt.Errorf("id %s: %w", s, err)
	}
	*i = id(s)
	return nil
}

// timestamp parses the formats the service emits: RFC 3339 with or without
// fractional seconds, and "2006-01-02 15:04:05" as produced by str(datetime).
type timestamp time.Time

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*t = timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, *s); err == nil {
			*t = timestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", *s)
}

type wireUser struct {
	ID       id     `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar_url"`
	Status   string `json:"status"`
}

func (u wireUser) identity() chat.Identity {
	return chat.Identity{
		ID:          string(u.ID),
		DisplayName: u.Username,
		AvatarRef:   u.Avatar,
		Presence:    presence(u.Status),
	}
}

type wireChat struct {
	ChatID          id        `json:"chat_id"`
	OtherUserID     id        `json:"other_user_id"`
	OtherUsername   string    `json:"other_username"`
	OtherAvatar     *string   `json:"other_avatar"`
	OtherStatus     string    `json:"other_status"`
	LastMessage     *string   `json:"last_message"`
	LastMessageTime timestamp `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

func (c wireChat) conversation() chat.Conversation {
	conv := chat.Conversation{
		ID: string(c.ChatID),
		Counterpart: chat.Identity{
			ID:          string(c.OtherUserID),
			DisplayName: c.OtherUsername,
			Presence:    presence(c.OtherStatus),
		},
		LastMessagePreview: newChatPreview,
		LastMessageAt:      time.Time(c.LastMessageTime),
		UnreadCount:        max(c.UnreadCount, 0),
	}
	if c.OtherAvatar != nil {
		conv.Counterpart.AvatarRef = *c.OtherAvatar
	}
	if c.LastMessage != nil && *c.LastMessage != "" {
		conv.LastMessagePreview = *c.LastMessage
	}
	return conv
}

type wireMessage struct {
	ID        id        `json:"id"`
	Text      string    `json:"text"`
	SenderID  id        `json:"sender_id"`
	IsRead    bool      `json:"is_read"`
	CreatedAt timestamp `json:"created_at"`
}

func (m wireMessage) message(conversationID string) chat.Message {
	return chat.Message{
		ID:             string(m.ID),
		ConversationID: conversationID,
		SenderID:       string(m.SenderID),
		Body:           m.Text,
		CreatedAt:      time.Time(m.CreatedAt),
		Read:           m.IsRead,
		Delivery:       chat.Confirmed,
	}
}

func presence(s string) chat.Presence {
	if s == string(chat.Online) {
		return chat.Online
	}
	return chat.Offline
}

type authRequest struct {
	Action   AuthMode `json:"action"`
	Username string   `json:"username"`
	Password string   `json:"password"`
}

type authResponse struct {
	User  *wireUser `json:"user"`
	Token string    `json:"token"`
}

type chatsResponse struct {
	Chats []wireChat `json:"chats"`
}

type messagesResponse struct {
	Messages []wireMessage `json:"messages"`
}

type chatAction struct {
	Action      string `json:"action"`
	ChatID      string `json:"chat_id,omitempty"`
	OtherUserID string `json:"other_user_id,omitempty"`
	Text        string `json:"text,omitempty"`
}

type sendResponse struct {
	MessageID id        `json:"message_id"`
	CreatedAt timestamp `json:"created_at"`
}

type createResponse struct {
	ChatID id `json:"chat_id"`
}

type usersResponse struct {
	Users []wireUser `json:"users"`
}

type errorResponse struct {
	Error string `json:"error"`
}
