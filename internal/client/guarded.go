package client

import (
	"context"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/remote"
)

// guarded reports the outcome of every remote call to the client so that an
// expired credential signs the user out and transport failures show up in the
// lifecycle state.
type guarded struct {
	inner   remote.Service
	epoch   func() uint64
	observe func(epoch uint64, err error)
}

var _ remote.Service = (*guarded)(nil)

func (g *guarded) Authenticate(ctx context.Context, mode remote.AuthMode, username, password string) (chat.Identity, string, error) {
	return g.inner.Authenticate(ctx, mode, username, password)
}

func (g *guarded) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	e := g.epoch()
	list, err := g.inner.ListConversations(ctx)
	g.observe(e, err)
	return list, err
}

func (g *guarded) GetMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	e := g.epoch()
	msgs, err := g.inner.GetMessages(ctx, conversationID)
	g.observe(e, err)
	return msgs, err
}

func (g *guarded) SendMessage(ctx context.Context, conversationID, body string) (chat.Receipt, error) {
	e := g.epoch()
	rcpt, err := g.inner.SendMessage(ctx, conversationID, body)
	g.observe(e, err)
	return rcpt, err
}

func (g *guarded) CreateConversation(ctx context.Context, otherUserID string) (string, error) {
	e := g.epoch()
	id, err := g.inner.CreateConversation(ctx, otherUserID)
	g.observe(e, err)
	return id, err
}

func (g *guarded) DeleteConversation(ctx context.Context, conversationID string) error {
	e := g.epoch()
	err := g.inner.DeleteConversation(ctx, conversationID)
	g.observe(e, err)
	return err
}

func (g *guarded) SearchUsers(ctx context.Context, query string) ([]chat.Identity, error) {
	e := g.epoch()
	users, err := g.inner.SearchUsers(ctx, query)
	g.observe(e, err)
	return users, err
}
