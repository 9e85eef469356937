package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/msgr/internal/bus"
	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/remote"
	"github.com/matheus3301/msgr/internal/state"
)

// ChatList keeps the local conversation list in step with the remote service.
//
// Responses are applied in the order their requests were issued: a response to
// a request issued before one that was already applied is discarded, as is any
// response to a request issued before the last Invalidate.
type ChatList struct {
	svc    remote.Service
	store  *state.Store
	bus    *bus.Bus
	logger *zap.Logger
	poller *Poller

	mu      stdsync.Mutex
	issued  uint64
	applied uint64
	floor   uint64
	base    context.Context
	visible bool
}

// NewChatList creates a chat list synchronizer that polls every interval once
// started and visible.
func NewChatList(svc remote.Service, st *state.Store, b *bus.Bus, interval time.Duration, logger *zap.Logger) *ChatList {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ChatList{
		svc:     svc,
		store:   st,
		bus:     b,
		logger:  logger,
		visible: true,
	}
	c.poller = NewPoller("chat_list", interval, c.Refresh, logger)
	return c
}

// Start enables periodic refreshes for the current session.
func (c *ChatList) Start(ctx context.Context) {
	c.mu.Lock()
	c.base = ctx
	visible := c.visible
	c.mu.Unlock()
	if visible {
		c.poller.Start(ctx)
	}
}

// Stop cancels periodic refreshes and any refresh the poller has in flight.
func (c *ChatList) Stop() {
	c.mu.Lock()
	c.base = nil
	c.mu.Unlock()
	c.poller.Stop()
}

// Wait blocks until the polling loop has exited after Stop.
func (c *ChatList) Wait() {
	c.poller.Wait()
}

// SetVisible turns polling on while the conversation list is on screen and off
// otherwise. Becoming visible refreshes immediately.
func (c *ChatList) SetVisible(visible bool) {
	c.mu.Lock()
	c.visible = visible
	base := c.base
	c.mu.Unlock()

	switch {
	case !visible:
		c.poller.Stop()
	case base != nil:
		c.poller.Start(base)
	}
}

// Polling reports whether the periodic refresh is running.
func (c *ChatList) Polling() bool {
	return c.poller.Running()
}

// Trigger asks the poller for an immediate refresh. It does nothing while the
// poller is stopped.
func (c *ChatList) Trigger() {
	c.poller.Trigger()
}

// Invalidate discards the results of every request issued so far.
func (c *ChatList) Invalidate() {
	c.mu.Lock()
	c.floor = c.issued
	c.mu.Unlock()
}

// Refresh fetches the conversation list and reconciles it into the store,
// together with the active conversation.
func (c *ChatList) Refresh(ctx context.Context) error {
	return c.refresh(ctx, true)
}

// refresh with pick unset leaves an empty selection alone.
func (c *ChatList) refresh(ctx context.Context, pick bool) error {
	if _, ok := c.store.Identity(); !ok {
		return chat.ErrNotAuthenticated
	}
	epoch := c.store.Epoch()

	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	list, err := c.svc.ListConversations(ctx)
	if err != nil {
		c.failed(err)
		return fmt.Errorf("refresh conversations: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq <= c.applied || seq <= c.floor {
		c.logger.Debug("discarding stale conversation list", zap.Uint64("seq", seq))
		return nil
	}
	var res state.ListResult
	if pick {
		res = c.store.ReplaceConversations(epoch, list)
	} else {
		res = c.store.ReplaceConversationsKeepUnselected(epoch, list)
	}
	if !res.Applied {
		c.logger.Debug("discarding conversation list from previous session")
		return nil
	}
	c.applied = seq
	if res.Selection.Moved() {
		c.logger.Debug("selection reconciled",
			zap.String("from", res.Selection.From),
			zap.String("to", res.Selection.To))
	}
	return nil
}

// StartConversation opens (or reuses) the conversation with otherUserID and
// makes it active. The new id is selected before the list refresh, so the
// refresh never auto-selects some other conversation on the way.
func (c *ChatList) StartConversation(ctx context.Context, otherUserID string) (string, error) {
	if _, ok := c.store.Identity(); !ok {
		return "", chat.ErrNotAuthenticated
	}
	id, err := c.svc.CreateConversation(ctx, otherUserID)
	if err != nil {
		return "", fmt.Errorf("start conversation: %w", err)
	}
	c.Invalidate()
	c.store.Selection().Select(id)
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("refresh after start failed", zap.Error(err))
	}
	c.logger.Info("conversation started", zap.String("conversation_id", id))
	return id, nil
}

// DeleteConversation deletes a conversation remotely. Once the server agrees it
// is removed locally right away, clearing the selection if it was active. The
// follow-up refresh is best effort and does not pick a replacement.
func (c *ChatList) DeleteConversation(ctx context.Context, id string) error {
	if _, ok := c.store.Identity(); !ok {
		return chat.ErrNotAuthenticated
	}
	epoch := c.store.Epoch()
	if err := c.svc.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	c.Invalidate()
	if !c.store.RemoveConversation(epoch, id) {
		return nil
	}
	c.logger.Info("conversation deleted", zap.String("conversation_id", id))
	if err := c.refresh(ctx, false); err != nil {
		c.logger.Warn("refresh after delete failed", zap.Error(err))
	}
	return nil
}

func (c *ChatList) failed(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.bus.Emit(bus.SyncFailed, err)
}
