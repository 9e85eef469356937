package outbox

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matheus3301/msgr/internal/bus"
	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/remote"
	"github.com/matheus3301/msgr/internal/state"
)

var (
	// ErrNotFailed is returned by Retry when the message is not a failed send.
	ErrNotFailed = errors.New("message is not a failed send")
	// ErrUnknownMessage is returned by Discard when no pending message has the temp id.
	ErrUnknownMessage = errors.New("no such pending message")
)

// ChatListRefresher refreshes the conversation list.
type ChatListRefresher interface {
	Refresh(ctx context.Context) error
}

// MessageRefresher refreshes the history of one conversation.
type MessageRefresher interface {
	Refresh(ctx context.Context, conversationID string) error
}

// Result is the payload of outbox.sent and outbox.failed events.
type Result struct {
	ConversationID string
	TempID         string
	MessageID      string
	Err            error
}

// Coordinator sends composed messages. A message appears in the conversation
// as Sending before the network call, becomes Sent when the service
// acknowledges it and is superseded by the confirmed copy on the next refresh.
// A failed send stays in the conversation as Failed until retried or discarded.
type Coordinator struct {
	svc    remote.Service
	store  *state.Store
	bus    *bus.Bus
	chats  ChatListRefresher
	msgs   MessageRefresher
	logger *zap.Logger
	now    func() time.Time
}

// NewCoordinator creates an outbox coordinator.
func NewCoordinator(svc remote.Service, st *state.Store, b *bus.Bus, chats ChatListRefresher, msgs MessageRefresher, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		svc:    svc,
		store:  st,
		bus:    b,
		chats:  chats,
		msgs:   msgs,
		logger: logger,
		now:    time.Now,
	}
}

// Send posts body to a conversation. Blank bodies are rejected with
// chat.ErrEmptyBody before anything is shown or sent.
func (c *Coordinator) Send(ctx context.Context, conversationID, body string) (chat.Message, error) {
	if strings.TrimSpace(body) == "" {
		return chat.Message{}, chat.ErrEmptyBody
	}
	ident, ok := c.store.Identity()
	if !ok {
		return chat.Message{}, chat.ErrNotAuthenticated
	}
	epoch := c.store.Epoch()

	m := chat.Message{
		ConversationID: conversationID,
		SenderID:       ident.ID,
		Body:           body,
		CreatedAt:      c.now(),
		Delivery:       chat.Sending,
		TempID:         uuid.NewString(),
	}
	// Optimistic insert: the message is visible before the round trip.
	if !c.store.AppendPending(epoch, m) {
		return chat.Message{}, chat.ErrNotAuthenticated
	}
	return c.deliver(ctx, epoch, m)
}

// Retry re-sends a failed message on user request.
func (c *Coordinator) Retry(ctx context.Context, conversationID, tempID string) (chat.Message, error) {
	if _, ok := c.store.Identity(); !ok {
		return chat.Message{}, chat.ErrNotAuthenticated
	}
	epoch := c.store.Epoch()

	i := slices.IndexFunc(c.store.Messages(conversationID), func(m chat.Message) bool {
		return m.TempID == tempID && m.Delivery == chat.Failed
	})
	if i < 0 {
		return chat.Message{}, ErrNotFailed
	}

	var m chat.Message
	if !c.store.UpdatePending(epoch, conversationID, tempID, func(pm *chat.Message) {
		pm.Delivery = chat.Sending
		pm.CreatedAt = c.now()
		m = *pm
	}) {
		return chat.Message{}, ErrNotFailed
	}
	c.logger.Info("retrying message", zap.String("conversation_id", conversationID), zap.String("temp_id", tempID))
	return c.deliver(ctx, epoch, m)
}

// Discard removes a pending message from the conversation.
func (c *Coordinator) Discard(conversationID, tempID string) error {
	if _, ok := c.store.RemovePending(conversationID, tempID); !ok {
		return fmt.Errorf("discard %s: %w", tempID, ErrUnknownMessage)
	}
	return nil
}

func (c *Coordinator) deliver(ctx context.Context, epoch uint64, m chat.Message) (chat.Message, error) {
	log := c.logger.With(zap.String("conversation_id", m.ConversationID), zap.String("temp_id", m.TempID))

	rcpt, err := c.svc.SendMessage(ctx, m.ConversationID, m.Body)
	if err != nil {
		log.Warn("send failed", zap.Error(err))
		c.store.UpdatePending(epoch, m.ConversationID, m.TempID, func(pm *chat.Message) {
			pm.Delivery = chat.Failed
		})
		m.Delivery = chat.Failed
		c.bus.Emit(bus.OutboxFailed, Result{ConversationID: m.ConversationID, TempID: m.TempID, Err: err})
		return m, fmt.Errorf("send message: %w", err)
	}

	c.store.UpdatePending(epoch, m.ConversationID, m.TempID, func(pm *chat.Message) {
		pm.Delivery = chat.Sent
		pm.ID = rcpt.MessageID
	})
	m.Delivery = chat.Sent
	m.ID = rcpt.MessageID
	log.Info("message sent", zap.String("message_id", rcpt.MessageID))
	c.bus.Emit(bus.OutboxSent, Result{ConversationID: m.ConversationID, TempID: m.TempID, MessageID: rcpt.MessageID})

	// Both refreshes start only once the send has returned.
	var g errgroup.Group
	g.Go(func() error { return c.chats.Refresh(ctx) })
	g.Go(func() error { return c.msgs.Refresh(ctx, m.ConversationID) })
	if err := g.Wait(); err != nil {
		log.Warn("refresh after send failed", zap.Error(err))
	}
	return m, nil
}
