package model

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/matheus3301/msgr/internal/bus"
	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/client"
	"github.com/matheus3301/msgr/internal/config"
	"github.com/matheus3301/msgr/internal/remote/remotetest"
	"github.com/matheus3301/msgr/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var me = chat.Identity{ID: "1", DisplayName: "me"}

func newViewModel(t *testing.T) (*ViewModel, *client.Client, *remotetest.Fake) {
	t.Helper()
	cfg := config.Default()
	cfg.Sync.ChatListInterval = config.Duration{Duration: time.Hour}
	cfg.Sync.MessageInterval = config.Duration{Duration: time.Hour}

	fake := remotetest.New(me)
	fake.SetConversations(
		chat.Conversation{ID: "c1", Counterpart: chat.Identity{ID: "2", DisplayName: "bob"}, UnreadCount: 2},
		chat.Conversation{ID: "c2", Counterpart: chat.Identity{ID: "3"}, UnreadCount: 1},
	)
	c := client.New(fake, session.NewStore(filepath.Join(t.TempDir(), "session.toml")), cfg, bus.New(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	vm := NewViewModel(c)
	vm.Start(ctx)
	t.Cleanup(func() {
		cancel()
		vm.Wait()
		c.Close()
	})
	return vm, c, fake
}

// waitFor drains until all bits of want have been seen.
func waitFor(t *testing.T, vm *ViewModel, want Dirty) []Notice {
	t.Helper()
	var (
		seen    Dirty
		notices []Notice
	)
	deadline := time.After(2 * time.Second)
	for !seen.Has(want) {
		select {
		case <-vm.RefreshCh():
			d, n := vm.Drain()
			seen |= d
			notices = append(notices, n...)
		case <-deadline:
			t.Fatalf("timed out: saw %b, want %b", seen, want)
		}
	}
	return notices
}

func TestSignalsChatsAndStatus(t *testing.T) {
	vm, c, _ := newViewModel(t)
	ctx := context.Background()

	if _, err := c.Login(ctx, "me", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := c.RefreshChats(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, vm, DirtyChats|DirtyStatus|DirtyMessages)

	if got := vm.ActiveID(); got != "c1" {
		t.Fatalf("active = %q, want c1", got)
	}
	if got := vm.Unread(); got != 3 {
		t.Fatalf("unread = %d, want 3", got)
	}
	conv, ok := vm.ActiveConversation()
	if !ok || DisplayName(conv) != "bob" {
		t.Fatalf("active conversation = %+v", conv)
	}
}

func TestSignalsSessionEnd(t *testing.T) {
	vm, c, fake := newViewModel(t)
	ctx := context.Background()

	if _, err := c.Login(ctx, "me", "pw"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, vm, DirtyStatus)

	fake.Fail(remotetest.OpListConversations, &chat.AuthError{Op: "list conversations", Expired: true})
	_ = c.RefreshChats(ctx)

	notices := waitFor(t, vm, DirtySession)
	found := false
	for _, n := range notices {
		if n.Text == "Session expired, sign in again" {
			found = true
		}
	}
	if !found {
		t.Fatalf("notices = %+v, want an expiry notice", notices)
	}
	if _, ok := vm.Identity(); ok {
		t.Fatal("identity still present after expiry")
	}
}

func TestOutboxFailureNotice(t *testing.T) {
	vm, c, fake := newViewModel(t)
	ctx := context.Background()

	if _, err := c.Login(ctx, "me", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := c.RefreshChats(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, vm, DirtyChats)

	fake.Fail(remotetest.OpSendMessage, &chat.TransportError{Op: "send message", Err: errors.New("boom")})
	if _, err := c.Send(ctx, "c1", "hi"); err == nil {
		t.Fatal("expected send error")
	}

	var notices []Notice
	deadline := time.After(2 * time.Second)
	for len(notices) == 0 {
		select {
		case <-vm.RefreshCh():
			_, n := vm.Drain()
			notices = append(notices, n...)
		case <-deadline:
			t.Fatal("no notice")
		}
	}
	if !notices[0].Warn {
		t.Fatalf("notice = %+v, want warning", notices[0])
	}
	msgs := vm.ActiveMessages()
	if len(msgs) != 1 || msgs[0].Delivery != chat.Failed {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestDisplayNameFallsBackToID(t *testing.T) {
	got := DisplayName(chat.Conversation{Counterpart: chat.Identity{ID: "9"}})
	if got != "user 9" {
		t.Fatalf("got %q", got)
	}
}
