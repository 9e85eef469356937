// Package client wires the synchronization engine together and owns the
// session lifecycle: restore, sign in, sign out and credential expiry.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	stdsync "sync"

	"go.uber.org/zap"

	"github.com/matheus3301/msgr/internal/bus"
	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/config"
	"github.com/matheus3301/msgr/internal/outbox"
	"github.com/matheus3301/msgr/internal/remote"
	"github.com/matheus3301/msgr/internal/search"
	"github.com/matheus3301/msgr/internal/session"
	"github.com/matheus3301/msgr/internal/state"
	"github.com/matheus3301/msgr/internal/status"
	chatsync "github.com/matheus3301/msgr/internal/sync"
)

// EndReason says why a session ended.
type EndReason string

const (
	EndLogout  EndReason = "logout"
	EndExpired EndReason = "expired"
)

// Client is the facade the front ends drive.
type Client struct {
	logger   *zap.Logger
	bus      *bus.Bus
	machine  *status.Machine
	sessions *session.Store
	store    *state.Store
	svc      remote.Service

	chats  *chatsync.ChatList
	msgs   *chatsync.Messages
	outbox *outbox.Coordinator
	search *search.Controller

	mu      stdsync.Mutex
	syncCtx context.Context
	cancel  context.CancelFunc
}

// New creates a signed-out client. svc must attach the credential held by
// sessions to its requests.
func New(svc remote.Service, sessions *session.Store, cfg *config.Config, b *bus.Bus, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		logger:   logger,
		bus:      b,
		machine:  status.NewMachine(b),
		sessions: sessions,
		store:    state.New(b),
	}
	c.svc = &guarded{inner: svc, epoch: c.store.Epoch, observe: c.observe}

	policy := state.MergePolicy{Grace: cfg.Sync.PendingGrace.Duration, Skew: cfg.Sync.ClockSkew.Duration}
	c.chats = chatsync.NewChatList(c.svc, c.store, b, cfg.Sync.ChatListInterval.Duration, logger.Named("chat_list"))
	c.msgs = chatsync.NewMessages(c.svc, c.store, b, cfg.Sync.MessageInterval.Duration, policy, logger.Named("messages"))
	c.outbox = outbox.NewCoordinator(c.svc, c.store, b, c.chats, c.msgs, logger.Named("outbox"))
	c.search = search.NewController(c.svc, c.store, cfg.Search.Debounce.Duration, cfg.Search.MinQueryLength, logger.Named("search"))
	return c
}

// Store exposes the state container for rendering.
func (c *Client) Store() *state.Store { return c.store }

// Bus returns the event bus the client publishes on.
func (c *Client) Bus() *bus.Bus { return c.bus }

// Status returns the lifecycle state.
func (c *Client) Status() status.State { return c.machine.Current() }

// Identity returns the signed-in user.
func (c *Client) Identity() (chat.Identity, bool) { return c.store.Identity() }

// Restore resumes the persisted session, if there is one.
func (c *Client) Restore() (bool, error) {
	sess, ok, err := c.sessions.Load()
	if err != nil {
		_ = c.machine.Ensure(status.AuthRequired)
		return false, err
	}
	if !ok {
		_ = c.machine.Ensure(status.AuthRequired)
		return false, nil
	}
	c.begin(sess.Identity)
	c.logger.Info("session restored", zap.String("user_id", sess.Identity.ID))
	return true, nil
}

// Login signs in with an existing account.
func (c *Client) Login(ctx context.Context, username, password string) (chat.Identity, error) {
	return c.authenticate(ctx, remote.Login, username, password)
}

// Register creates an account and signs in with it.
func (c *Client) Register(ctx context.Context, username, password string) (chat.Identity, error) {
	return c.authenticate(ctx, remote.Register, username, password)
}

func (c *Client) authenticate(ctx context.Context, mode remote.AuthMode, username, password string) (chat.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return chat.Identity{}, &chat.ValidationError{Field: "username", Reason: "empty"}
	}
	if password == "" {
		return chat.Identity{}, &chat.ValidationError{Field: "password", Reason: "empty"}
	}
	if _, ok := c.store.Identity(); ok {
		c.end(EndLogout)
	}
	_ = c.machine.Ensure(status.AuthRequired)
	if err := c.machine.Transition(status.Authenticating); err != nil {
		return chat.Identity{}, err
	}

	ident, credential, err := c.svc.Authenticate(ctx, mode, username, password)
	if err != nil {
		_ = c.machine.Transition(status.AuthRequired)
		return chat.Identity{}, fmt.Errorf("%s: %w", mode, err)
	}
	if err := c.sessions.Save(ident, credential); err != nil {
		_ = c.machine.Transition(status.AuthRequired)
		return chat.Identity{}, err
	}
	c.begin(ident)
	c.logger.Info("signed in", zap.String("mode", string(mode)), zap.String("user_id", ident.ID))
	return ident, nil
}

func (c *Client) begin(ident chat.Identity) {
	c.store.Init(ident)
	_ = c.machine.Transition(status.Syncing)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncCtx != nil {
		c.msgs.Start(c.syncCtx)
		c.chats.Start(c.syncCtx)
	}
}

// Logout ends the session and forgets everything it held.
func (c *Client) Logout() error {
	if _, ok := c.store.Identity(); !ok {
		return chat.ErrNotAuthenticated
	}
	return c.end(EndLogout)
}

func (c *Client) end(reason EndReason) error {
	c.chats.Stop()
	c.msgs.Stop()
	c.search.Reset()
	c.store.Teardown()
	err := c.sessions.Clear()
	_ = c.machine.Ensure(status.AuthRequired)
	c.bus.Emit(bus.SessionEnded, reason)
	return err
}

// observe maps the outcome of an authenticated call onto the lifecycle.
// Outcomes of calls issued under an earlier session are ignored.
func (c *Client) observe(epoch uint64, err error) {
	if epoch != c.store.Epoch() {
		return
	}
	switch {
	case err == nil:
		switch c.machine.Current() {
		case status.Syncing, status.Degraded:
			_ = c.machine.Transition(status.Ready)
		}
	case errors.Is(err, chat.ErrSessionExpired):
		if _, ok := c.store.Identity(); !ok {
			return
		}
		c.logger.Warn("session expired, signing out", zap.Error(err))
		if err := c.end(EndExpired); err != nil {
			c.logger.Error("failed to clear session", zap.Error(err))
		}
	case chat.IsTransient(err):
		switch c.machine.Current() {
		case status.Syncing, status.Ready:
			_ = c.machine.Transition(status.Degraded)
		}
	}
}

// StartSync enables background polling until StopSync or ctx is done.
// Front ends that only issue one-shot commands never call it.
func (c *Client) StartSync(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncCtx != nil {
		return
	}
	c.syncCtx, c.cancel = context.WithCancel(ctx)
	if _, ok := c.store.Identity(); ok {
		c.msgs.Start(c.syncCtx)
		c.chats.Start(c.syncCtx)
	}
}

// StopSync stops background polling.
func (c *Client) StopSync() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.syncCtx, c.cancel = nil, nil
	c.mu.Unlock()
	c.chats.Stop()
	c.msgs.Stop()
}

// Close stops all background work and waits for it.
func (c *Client) Close() {
	c.StopSync()
	c.search.Close()
	c.chats.Wait()
	c.msgs.Wait()
}

// SetChatsVisible turns conversation list polling on while the list is shown.
func (c *Client) SetChatsVisible(visible bool) { c.chats.SetVisible(visible) }

// Select makes id the active conversation.
func (c *Client) Select(id string) { c.store.Selection().Select(id) }

// RefreshChats fetches the conversation list now.
func (c *Client) RefreshChats(ctx context.Context) error { return c.chats.Refresh(ctx) }

// RefreshMessages fetches the active conversation's history now.
func (c *Client) RefreshMessages(ctx context.Context, conversationID string) error {
	return c.msgs.Refresh(ctx, conversationID)
}

// StartConversation opens a conversation with a user and selects it.
func (c *Client) StartConversation(ctx context.Context, otherUserID string) (string, error) {
	return c.chats.StartConversation(ctx, otherUserID)
}

// DeleteConversation deletes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.chats.DeleteConversation(ctx, id)
}

// Send posts a message to a conversation.
func (c *Client) Send(ctx context.Context, conversationID, body string) (chat.Message, error) {
	return c.outbox.Send(ctx, conversationID, body)
}

// Retry re-sends a failed message.
func (c *Client) Retry(ctx context.Context, conversationID, tempID string) (chat.Message, error) {
	return c.outbox.Retry(ctx, conversationID, tempID)
}

// Discard drops a failed message.
func (c *Client) Discard(conversationID, tempID string) error {
	return c.outbox.Discard(conversationID, tempID)
}

// Search records a keystroke in the user search box.
func (c *Client) Search(text string) { c.search.Type(text) }

// ResetSearch clears the user search.
func (c *Client) ResetSearch() { c.search.Reset() }

// SearchNow looks users up immediately, bypassing the debounce. Used by
// one-shot commands.
func (c *Client) SearchNow(ctx context.Context, query string) ([]chat.Identity, error) {
	if _, ok := c.store.Identity(); !ok {
		return nil, chat.ErrNotAuthenticated
	}
	return c.svc.SearchUsers(ctx, strings.TrimSpace(query))
}
