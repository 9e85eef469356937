package state

import (
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/msgr/internal/bus"
	"github.com/matheus3301/msgr/internal/chat"
)

// Store is the process-scoped container for everything the client knows:
// identity, conversations, per-conversation messages, the active conversation
// and the user search. The remote service owns the durable copies; Store is a
// cache that is only authoritative for pending messages.
//
// Every response-driven mutation takes the epoch observed when the request was
// issued. Init and Teardown advance the epoch, so a response that was in flight
// across a login or logout is dropped.
type Store struct {
	mu  sync.RWMutex
	bus *bus.Bus

	epoch         uint64
	identity      *chat.Identity
	conversations []chat.Conversation
	messages      map[string][]chat.Message
	active        string
	search        chat.SearchState

	selection *Selection
}

// New creates an empty store in the signed-out state.
func New(b *bus.Bus) *Store {
	s := &Store{
		bus:      b,
		messages: make(map[string][]chat.Message),
		search:   chat.SearchState{Status: chat.SearchIdle},
	}
	s.selection = &Selection{store: s}
	return s
}

// Selection returns the single writer of the active conversation.
func (s *Store) Selection() *Selection {
	return s.selection
}

// Epoch returns the current lifecycle generation.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Init starts a new session for identity, discarding any previous state.
func (s *Store) Init(identity chat.Identity) {
	s.reset(&identity)
}

// Teardown discards all state and leaves the store signed out.
func (s *Store) Teardown() {
	s.reset(nil)
}

func (s *Store) reset(identity *chat.Identity) {
	s.selection.mu.Lock()
	defer s.selection.mu.Unlock()

	s.mu.Lock()
	s.epoch++
	s.identity = identity
	s.conversations = nil
	s.messages = make(map[string][]chat.Message)
	s.search = chat.SearchState{Status: chat.SearchIdle}
	change := Change{From: s.active}
	s.active = ""
	s.mu.Unlock()

	if change.Moved() {
		s.selection.fireLocked(change)
	}
	s.bus.Emit(bus.ChatsUpdated, 0)
	s.bus.Emit(bus.SearchUpdated, nil)
}

// Identity returns the signed-in user, if any.
func (s *Store) Identity() (chat.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return chat.Identity{}, false
	}
	return *s.identity, true
}

// Conversations returns a copy of the conversation list in server order.
func (s *Store) Conversations() []chat.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.conversations)
}

// Conversation looks up a conversation of the current list by id.
func (s *Store) Conversation(id string) (chat.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return chat.Conversation{}, false
}

// ListResult describes what ReplaceConversations did.
type ListResult struct {
	Applied   bool   // false when the response belonged to an older epoch
	Changed   bool   // the list differs from the previous one
	Selection Change // zero when the active conversation did not move
}

// ReplaceConversations installs a freshly fetched list and reconciles the
// selection against it in the same critical section: an active id missing from
// the list is cleared, and when nothing was selected before, the first entry
// becomes active.
func (s *Store) ReplaceConversations(epoch uint64, list []chat.Conversation) ListResult {
	return s.replace(epoch, list, true)
}

// ReplaceConversationsKeepUnselected is ReplaceConversations without picking
// the first entry when nothing is selected.
func (s *Store) ReplaceConversationsKeepUnselected(epoch uint64, list []chat.Conversation) ListResult {
	return s.replace(epoch, list, false)
}

func (s *Store) replace(epoch uint64, list []chat.Conversation, pick bool) ListResult {
	s.selection.mu.Lock()
	defer s.selection.mu.Unlock()

	s.mu.Lock()
	if epoch != s.epoch || s.identity == nil {
		s.mu.Unlock()
		return ListResult{}
	}
	res := ListResult{
		Applied: true,
		Changed: !slices.EqualFunc(s.conversations, list, chat.Conversation.Equal),
	}
	s.conversations = slices.Clone(list)
	res.Selection = s.selection.reconcileLocked(list, pick)
	s.mu.Unlock()

	if res.Changed {
		s.bus.Emit(bus.ChatsUpdated, len(list))
	}
	if res.Selection.Moved() {
		s.selection.fireLocked(res.Selection)
	}
	return res
}

// Messages returns a copy of the local sequence for a conversation, confirmed
// entries first, then unresolved pending entries.
func (s *Store) Messages(conversationID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages[conversationID])
}

// ApplyMessages replaces a conversation's history with a fetched one if the
// conversation is still active and the response belongs to the current epoch.
// Unmatched pending entries are carried over; see MergePolicy.
func (s *Store) ApplyMessages(epoch uint64, conversationID string, fetched []chat.Message, now time.Time, p MergePolicy) bool {
	s.mu.Lock()
	if epoch != s.epoch || s.active != conversationID {
		s.mu.Unlock()
		return false
	}
	prev := s.messages[conversationID]
	next := mergeMessages(fetched, prev, now, p)
	changed := !slices.Equal(prev, next)
	s.messages[conversationID] = next
	s.mu.Unlock()

	if changed {
		s.bus.Emit(bus.MessagesUpdated, conversationID)
	}
	return true
}

// AppendPending adds a locally composed message to the end of a conversation.
func (s *Store) AppendPending(epoch uint64, m chat.Message) bool {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return false
	}
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)
	s.mu.Unlock()

	s.bus.Emit(bus.MessagesUpdated, m.ConversationID)
	return true
}

// UpdatePending applies fn to the pending entry with tempID. It reports false
// when the entry no longer exists, e.g. because a refresh already confirmed it.
func (s *Store) UpdatePending(epoch uint64, conversationID, tempID string, fn func(*chat.Message)) bool {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return false
	}
	msgs := s.messages[conversationID]
	i := slices.IndexFunc(msgs, func(m chat.Message) bool { return m.Pending() && m.TempID == tempID })
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	fn(&msgs[i])
	s.mu.Unlock()

	s.bus.Emit(bus.MessagesUpdated, conversationID)
	return true
}

// RemovePending deletes a pending entry and returns it.
func (s *Store) RemovePending(conversationID, tempID string) (chat.Message, bool) {
	s.mu.Lock()
	msgs := s.messages[conversationID]
	i := slices.IndexFunc(msgs, func(m chat.Message) bool { return m.Pending() && m.TempID == tempID })
	if i < 0 {
		s.mu.Unlock()
		return chat.Message{}, false
	}
	m := msgs[i]
	s.messages[conversationID] = slices.Delete(msgs, i, i+1)
	s.mu.Unlock()

	s.bus.Emit(bus.MessagesUpdated, conversationID)
	return m, true
}

// RemoveConversation forgets a conversation that was deleted remotely: it
// leaves the list, its history is dropped, and if it was active the selection
// becomes Unselected. Nothing else is auto-selected. It reports false when the
// epoch moved on.
func (s *Store) RemoveConversation(epoch uint64, conversationID string) bool {
	s.selection.mu.Lock()
	defer s.selection.mu.Unlock()

	s.mu.Lock()
	if epoch != s.epoch || s.identity == nil {
		s.mu.Unlock()
		return false
	}
	n := len(s.conversations)
	s.conversations = slices.DeleteFunc(s.conversations, func(c chat.Conversation) bool { return c.ID == conversationID })
	removed := len(s.conversations) != n
	_, hadMessages := s.messages[conversationID]
	delete(s.messages, conversationID)
	change := s.selection.reconcileLocked(s.conversations, false)
	remaining := len(s.conversations)
	s.mu.Unlock()

	if removed {
		s.bus.Emit(bus.ChatsUpdated, remaining)
	}
	if hadMessages {
		s.bus.Emit(bus.MessagesUpdated, conversationID)
	}
	if change.Moved() {
		s.selection.fireLocked(change)
	}
	return true
}

// Search returns the current search state.
func (s *Store) Search() chat.SearchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.search
	st.Results = slices.Clone(st.Results)
	return st
}

// SetSearch replaces the search state unless the epoch moved on.
func (s *Store) SetSearch(epoch uint64, st chat.SearchState) bool {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return false
	}
	s.search = st
	s.mu.Unlock()

	s.bus.Emit(bus.SearchUpdated, st.Status)
	return true
}
