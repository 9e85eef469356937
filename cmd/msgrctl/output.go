package main

import (
	"time"

	"github.com/matheus3301/msgr/internal/chat"
)

type userOut struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

type conversationOut struct {
	ID            string     `json:"id"`
	With          userOut    `json:"with"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Unread        int        `json:"unread"`
}

type messageOut struct {
	ID        string    `json:"id,omitempty"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
	Delivery  string    `json:"delivery"`
}

func toUser(u chat.Identity) userOut {
	return userOut{ID: u.ID, Username: u.DisplayName, Status: string(u.Presence)}
}

func toConversation(c chat.Conversation) conversationOut {
	out := conversationOut{
		ID:          c.ID,
		With:        toUser(c.Counterpart),
		LastMessage: c.LastMessagePreview,
		Unread:      c.UnreadCount,
	}
	if !c.LastMessageAt.IsZero() {
		t := c.LastMessageAt
		out.LastMessageAt = &t
	}
	return out
}

func toMessage(m chat.Message) messageOut {
	return messageOut{
		ID:        m.ID,
		ChatID:    m.ConversationID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		Read:      m.Read,
		Delivery:  m.Delivery.String(),
	}
}
