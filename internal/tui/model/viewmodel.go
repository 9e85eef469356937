// Package model turns client events into redraw signals for the views.
package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matheus3301/msgr/internal/bus"
	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/client"
	"github.com/matheus3301/msgr/internal/outbox"
	"github.com/matheus3301/msgr/internal/status"
)

// Dirty flags the parts of the screen that need a redraw.
type Dirty uint8

const (
	DirtyChats Dirty = 1 << iota
	DirtyMessages
	DirtySearch
	DirtyStatus
	DirtySession
)

// Has reports whether all bits of f are set.
func (d Dirty) Has(f Dirty) bool { return d&f == f }

// Notice is a one-off message for the flash bar.
type Notice struct {
	Text string
	Warn bool
}

// ViewModel follows the client's event bus and coalesces events into a
// single pending redraw. Snapshots are read straight from the client.
type ViewModel struct {
	client *client.Client

	mu      sync.Mutex
	dirty   Dirty
	notices []Notice

	refreshCh chan struct{}
	wg        sync.WaitGroup
}

// NewViewModel creates a view model for c.
func NewViewModel(c *client.Client) *ViewModel {
	return &ViewModel{
		client:    c,
		refreshCh: make(chan struct{}, 1),
	}
}

// Start subscribes to the bus until ctx is cancelled.
func (vm *ViewModel) Start(ctx context.Context) {
	events, unsubscribe := vm.client.Bus().Subscribe("", 256)
	vm.wg.Add(1)
	go func() {
		defer vm.wg.Done()
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-events:
				vm.handle(evt)
			}
		}
	}()
}

// Wait blocks until the subscription loop has exited.
func (vm *ViewModel) Wait() {
	vm.wg.Wait()
}

// RefreshCh is signalled whenever Drain has something to return.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

// Drain returns and clears the accumulated dirty flags and notices.
func (vm *ViewModel) Drain() (Dirty, []Notice) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	d, n := vm.dirty, vm.notices
	vm.dirty, vm.notices = 0, nil
	return d, n
}

func (vm *ViewModel) handle(evt bus.Event) {
	var (
		d      Dirty
		notice *Notice
	)
	switch evt.Kind {
	case bus.ChatsUpdated:
		d = DirtyChats
	case bus.MessagesUpdated:
		if id, _ := evt.Payload.(string); id == "" || id == vm.ActiveID() {
			d = DirtyMessages
		}
	case bus.SelectionChanged:
		d = DirtyChats | DirtyMessages
	case bus.SearchUpdated:
		d = DirtySearch
	case bus.StatusChanged:
		d = DirtyStatus
	case bus.SessionEnded:
		d = DirtySession | DirtyStatus
		if reason, _ := evt.Payload.(client.EndReason); reason == client.EndExpired {
			notice = &Notice{Text: "Session expired, sign in again", Warn: true}
		}
	case bus.OutboxFailed:
		if res, ok := evt.Payload.(outbox.Result); ok {
			notice = &Notice{Text: "Send failed: " + errText(res.Err), Warn: true}
		}
	case bus.SyncFailed:
		if err, ok := evt.Payload.(error); ok && !errors.Is(err, chat.ErrSessionExpired) {
			notice = &Notice{Text: "Sync failed: " + err.Error(), Warn: true}
		}
	default:
		return
	}
	if d == 0 && notice == nil {
		return
	}

	vm.mu.Lock()
	vm.dirty |= d
	if notice != nil {
		vm.notices = append(vm.notices, *notice)
	}
	vm.mu.Unlock()

	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// Identity returns the signed-in user.
func (vm *ViewModel) Identity() (chat.Identity, bool) {
	return vm.client.Identity()
}

// Status returns the client lifecycle state.
func (vm *ViewModel) Status() status.State {
	return vm.client.Status()
}

// Chats returns the conversation list.
func (vm *ViewModel) Chats() []chat.Conversation {
	return vm.client.Store().Conversations()
}

// ActiveID returns the selected conversation, or "".
func (vm *ViewModel) ActiveID() string {
	return vm.client.Store().Selection().Active()
}

// ActiveConversation returns the selected conversation.
func (vm *ViewModel) ActiveConversation() (chat.Conversation, bool) {
	id := vm.ActiveID()
	if id == "" {
		return chat.Conversation{}, false
	}
	return vm.client.Store().Conversation(id)
}

// ActiveMessages returns the history of the selected conversation.
func (vm *ViewModel) ActiveMessages() []chat.Message {
	id := vm.ActiveID()
	if id == "" {
		return nil
	}
	return vm.client.Store().Messages(id)
}

// Search returns the current search state.
func (vm *ViewModel) Search() chat.SearchState {
	return vm.client.Store().Search()
}

// Unread sums the unread counts of all conversations.
func (vm *ViewModel) Unread() int {
	n := 0
	for _, c := range vm.Chats() {
		n += c.UnreadCount
	}
	return n
}

// DisplayName returns a conversation's title.
func DisplayName(c chat.Conversation) string {
	if c.Counterpart.DisplayName != "" {
		return c.Counterpart.DisplayName
	}
	return fmt.Sprintf("user %s", c.Counterpart.ID)
}
