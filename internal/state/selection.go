package state

import (
	"sync"

	"github.com/matheus3301/msgr/internal/bus"
	"github.com/matheus3301/msgr/internal/chat"
)

// Change is a move of the active conversation. An empty id means Unselected.
type Change struct {
	From string
	To   string
}

// Moved reports whether the active conversation actually changed.
func (c Change) Moved() bool { return c.From != c.To }

// Selection is the only writer of the active conversation id. Moves are
// serialised: listeners hear about every move, in order, after the store lock
// is released and before the next move can happen. Listeners must not call
// back into Selection.
type Selection struct {
	store *Store

	mu        sync.Mutex // held across a move and its notification
	listeners []func(Change)
}

// Active returns the active conversation id, or "" when Unselected.
func (sel *Selection) Active() string {
	sel.store.mu.RLock()
	defer sel.store.mu.RUnlock()
	return sel.store.active
}

// Select makes id the active conversation. An empty id clears the selection.
// Selecting requires a session; when signed out the call is ignored.
func (sel *Selection) Select(id string) {
	sel.mu.Lock()
	defer sel.mu.Unlock()

	s := sel.store
	s.mu.Lock()
	if s.identity == nil && id != "" {
		s.mu.Unlock()
		return
	}
	change := Change{From: s.active, To: id}
	s.active = id
	s.mu.Unlock()

	if change.Moved() {
		sel.fireLocked(change)
	}
}

// Clear moves the selection to Unselected.
func (sel *Selection) Clear() {
	sel.Select("")
}

// OnChange registers fn to be called after every move of the selection.
func (sel *Selection) OnChange(fn func(Change)) {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	sel.listeners = append(sel.listeners, fn)
}

// reconcileLocked keeps the active id if list still contains it, clears it if
// not, and with pick set chooses the first entry when nothing was selected.
// Callers hold s.mu.
func (sel *Selection) reconcileLocked(list []chat.Conversation, pick bool) Change {
	s := sel.store
	change := Change{From: s.active, To: s.active}
	switch {
	case s.active != "":
		if !containsConversation(list, s.active) {
			change.To = ""
		}
	case pick && len(list) > 0:
		change.To = list[0].ID
	}
	s.active = change.To
	return change
}

// fireLocked runs the listeners. Callers hold sel.mu.
func (sel *Selection) fireLocked(change Change) {
	for _, fn := range sel.listeners {
		fn(change)
	}
	sel.store.bus.Emit(bus.SelectionChanged, change)
}

func containsConversation(list []chat.Conversation, id string) bool {
	for _, c := range list {
		if c.ID == id {
			return true
		}
	}
	return false
}
