package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("chats.", 10)
	defer unsub()

	b.Emit(ChatsUpdated, 3)

	select {
	case evt := <-ch:
		if evt.Kind != ChatsUpdated {
			t.Errorf("got kind %q, want %s", evt.Kind, ChatsUpdated)
		}
		if evt.Payload != 3 {
			t.Errorf("payload = %v, want 3", evt.Payload)
		}
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("messages.", 10)
	defer unsub()

	b.Emit(SelectionChanged, nil)
	b.Emit(MessagesUpdated, "c1")

	select {
	case evt := <-ch:
		if evt.Kind != MessagesUpdated {
			t.Errorf("got kind %q, want %s", evt.Kind, MessagesUpdated)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// The selection event must not have been delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmptyNamespaceReceivesEverything(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.Emit(SearchUpdated, nil)
	b.Emit(StatusChanged, nil)

	for _, want := range []string{SearchUpdated, StatusChanged} {
		evt := <-ch
		if evt.Kind != want {
			t.Errorf("got kind %q, want %q", evt.Kind, want)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("client.", 10)
	unsub()
	unsub() // second call is a no-op

	b.Emit(SessionEnded, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("outbox.", 1)
	defer unsub()

	b.Emit(OutboxSent, "one")
	// Buffer is full, this one is dropped.
	b.Emit(OutboxFailed, "two")

	evt := <-ch
	if evt.Kind != OutboxSent {
		t.Errorf("got %q, want %s", evt.Kind, OutboxSent)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	default:
	}
}

func TestNilBusIsSilent(t *testing.T) {
	var b *Bus
	b.Emit(ChatsUpdated, nil) // must not panic
}
