package main

import (
	"testing"
	"time"

	"github.com/matheus3301/msgr/internal/chat"
)

func TestToConversationOmitsEmptyTime(t *testing.T) {
	out := toConversation(chat.Conversation{ID: "1", Counterpart: chat.Identity{ID: "2", DisplayName: "bob"}})
	if out.LastMessageAt != nil {
		t.Fatalf("expected no last message time, got %v", out.LastMessageAt)
	}
	if out.With.Username != "bob" {
		t.Fatalf("expected bob, got %q", out.With.Username)
	}

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	out = toConversation(chat.Conversation{ID: "1", LastMessageAt: at})
	if out.LastMessageAt == nil || !out.LastMessageAt.Equal(at) {
		t.Fatalf("expected %v, got %v", at, out.LastMessageAt)
	}
}

func TestToMessageDelivery(t *testing.T) {
	if got := toMessage(chat.Message{Delivery: chat.Failed}).Delivery; got != "failed" {
		t.Fatalf("expected failed, got %q", got)
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\n  b"); got != "a b" {
		t.Fatalf("got %q", got)
	}
	long := oneLine("0123456789012345678901234567890123456789XYZ")
	if len([]rune(long)) != 40 {
		t.Fatalf("expected 40 runes, got %d", len([]rune(long)))
	}
}
