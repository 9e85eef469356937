package remote

import (
	"context"

	"github.com/matheus3301/msgr/internal/chat"
)

// AuthMode selects between signing in and creating an account.
type AuthMode string

const (
	Login    AuthMode = "login"
	Register AuthMode = "register"
)

// Service is the remote chat service as seen by the client. Every method except
// Authenticate and SearchUsers needs a credential; implementations attach it
// themselves. Errors are *chat.AuthError or *chat.TransportError.
type Service interface {
	Authenticate(ctx context.Context, mode AuthMode, username, password string) (chat.Identity, string, error)
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	GetMessages(ctx context.Context, conversationID string) ([]chat.Message, error)
	SendMessage(ctx context.Context, conversationID, body string) (chat.Receipt, error)
	CreateConversation(ctx context.Context, otherUserID string) (string, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	SearchUsers(ctx context.Context, query string) ([]chat.Identity, error)
}

// CredentialSource yields the credential to attach to a request. An empty
// string means there is no session.
type CredentialSource interface {
	Credential() string
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func() string

func (f CredentialFunc) Credential() string { return f() }
