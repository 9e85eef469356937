// Package remotetest provides an in-memory remote.Service for tests.
package remotetest

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/remote"
)

// Operation names used to count calls, inject errors and hold responses.
const (
	OpAuthenticate       = "authenticate"
	OpListConversations  = "list_conversations"
	OpGetMessages        = "get_messages"
	OpSendMessage        = "send_message"
	OpCreateConversation = "create_conversation"
	OpDeleteConversation = "delete_conversation"
	OpSearchUsers        = "search_users"
)

// Gate holds one call of an operation until released. The response is computed
// when the call enters, so a held call returns the data as it was then.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Entered is closed once the held call has reached the fake.
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Release lets the held call return.
func (g *Gate) Release() { g.once.Do(func() { close(g.release) }) }

// Fake is a thread-safe in-memory remote service.
type Fake struct {
	mu sync.Mutex

	self          chat.Identity
	token         string
	conversations []chat.Conversation
	messages      map[string][]chat.Message
	users         []chat.Identity
	nextID        int
	now           func() time.Time

	calls map[string][]string
	errs  map[string]error
	gates map[string][]*Gate
}

var _ remote.Service = (*Fake)(nil)

// New creates a fake that authenticates everyone as self.
func New(self chat.Identity) *Fake {
	return &Fake{
		self:     self,
		token:    "token-" + self.ID,
		messages: make(map[string][]chat.Message),
		nextID:   1000,
		now:      time.Now,
		calls:    make(map[string][]string),
		errs:     make(map[string]error),
		gates:    make(map[string][]*Gate),
	}
}

// SetConversations replaces the conversation list returned by ListConversations.
func (f *Fake) SetConversations(list ...chat.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations = slices.Clone(list)
}

// SetMessages replaces the history of a conversation.
func (f *Fake) SetMessages(conversationID string, msgs ...chat.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[conversationID] = slices.Clone(msgs)
}

// SetUsers replaces the user directory used by SearchUsers and CreateConversation.
func (f *Fake) SetUsers(users ...chat.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = slices.Clone(users)
}

// Fail makes every following call of op return err. A nil err clears it.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Hold makes the next call of op block until the returned gate is released.
func (f *Fake) Hold(op string) *Gate {
	g := &Gate{entered: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.gates[op] = append(f.gates[op], g)
	f.mu.Unlock()
	return g
}

// Calls returns the argument of every call of op so far (conversation id,
// query or username; empty for ListConversations).
func (f *Fake) Calls(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls[op])
}

// CallCount returns how many times op was called.
func (f *Fake) CallCount(op string) int {
	return len(f.Calls(op))
}

// Messages returns the server-side history of a conversation.
func (f *Fake) Messages(conversationID string) []chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.messages[conversationID])
}

// enter records a call and, under f.mu, runs snap to compute the response.
// It then waits on a gate if one is queued for op.
func (f *Fake) enter(ctx context.Context, op, arg string, snap func()) error {
	f.mu.Lock()
	f.calls[op] = append(f.calls[op], arg)
	err := f.errs[op]
	var g *Gate
	if q := f.gates[op]; len(q) > 0 {
		g = q[0]
		f.gates[op] = q[1:]
	}
	if err == nil && snap != nil {
		snap()
	}
	f.mu.Unlock()

	if g != nil {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *Fake) Authenticate(ctx context.Context, _ remote.AuthMode, username, _ string) (chat.Identity, string, error) {
	var ident chat.Identity
	var token string
	err := f.enter(ctx, OpAuthenticate, username, func() {
		ident, token = f.self, f.token
		ident.Presence = chat.Online
	})
	return ident, token, err
}

func (f *Fake) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	var out []chat.Conversation
	err := f.enter(ctx, OpListConversations, "", func() {
		out = slices.Clone(f.conversations)
	})
	return out, err
}

func (f *Fake) GetMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var out []chat.Message
	err := f.enter(ctx, OpGetMessages, conversationID, func() {
		out = slices.Clone(f.messages[conversationID])
	})
	return out, err
}

func (f *Fake) SendMessage(ctx context.Context, conversationID, body string) (chat.Receipt, error) {
	var rcpt chat.Receipt
	err := f.enter(ctx, OpSendMessage, conversationID, func() {
		f.nextID++
		m := chat.Message{
			ID:             strconv.Itoa(f.nextID),
			ConversationID: conversationID,
			SenderID:       f.self.ID,
			Body:           body,
			CreatedAt:      f.now(),
		}
		f.messages[conversationID] = append(f.messages[conversationID], m)
		for i := range f.conversations {
			if f.conversations[i].ID == conversationID {
				f.conversations[i].LastMessagePreview = body
				f.conversations[i].LastMessageAt = m.CreatedAt
			}
		}
		rcpt = chat.Receipt{MessageID: m.ID, CreatedAt: m.CreatedAt}
	})
	return rcpt, err
}

func (f *Fake) CreateConversation(ctx context.Context, otherUserID string) (string, error) {
	var id string
	err := f.enter(ctx, OpCreateConversation, otherUserID, func() {
		for _, c := range f.conversations {
			if c.Counterpart.ID == otherUserID {
				id = c.ID
				return
			}
		}
		f.nextID++
		id = strconv.Itoa(f.nextID)
		other := chat.Identity{ID: otherUserID}
		for _, u := range f.users {
			if u.ID == otherUserID {
				other = u
			}
		}
		f.conversations = append([]chat.Conversation{{ID: id, Counterpart: other, LastMessagePreview: "New chat"}}, f.conversations...)
	})
	return id, err
}

func (f *Fake) DeleteConversation(ctx context.Context, conversationID string) error {
	return f.enter(ctx, OpDeleteConversation, conversationID, func() {
		f.conversations = slices.DeleteFunc(f.conversations, func(c chat.Conversation) bool { return c.ID == conversationID })
		delete(f.messages, conversationID)
	})
}

func (f *Fake) SearchUsers(ctx context.Context, query string) ([]chat.Identity, error) {
	var out []chat.Identity
	err := f.enter(ctx, OpSearchUsers, query, func() {
		q := strings.ToLower(query)
		for _, u := range f.users {
			if u.ID != f.self.ID && strings.Contains(strings.ToLower(u.DisplayName), q) {
				out = append(out, u)
			}
		}
	})
	return out, err
}
