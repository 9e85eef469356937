package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/msgr/internal/chat"
)

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(srv.URL, 2*time.Second, CredentialFunc(func() string { return token }), nil)
	require.NoError(t, err)
	return c
}

func TestNewHTTPClientRejectsBadScheme(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com", time.Second, nil, nil)
	require.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth", r.URL.Path)
		assert.Empty(t, r.Header.Get(CredentialHeader))
		var req authRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, Register, req.Action)
		assert.Equal(t, "alice", req.Username)
		_, _ = w.Write([]byte(`{"user":{"id":7,"username":"alice","avatar_url":null,"status":"online"},"token":"tok"}`))
	}, "")

	ident, token, err := c.Authenticate(context.Background(), Register, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, chat.Identity{ID: "7", DisplayName: "alice", Presence: chat.Online}, ident)
}

func TestAuthenticateRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusConflict, http.StatusBadRequest} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}, "")

		_, _, err := c.Authenticate(context.Background(), Login, "alice", "pw")
		var ae *chat.AuthError
		require.ErrorAs(t, err, &ae, "status %d", status)
		assert.Equal(t, "nope", ae.Message)
		assert.False(t, ae.Expired)
		assert.NotErrorIs(t, err, chat.ErrSessionExpired)
	}
}

func TestListConversations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(CredentialHeader))
		assert.Empty(t, r.URL.Query().Get("chat_id"))
		_, _ = w.Write([]byte(`{"chats":[
			{"chat_id":1,"other_user_id":2,"other_username":"bob","other_avatar":null,"other_status":"online",
			 "last_message":"hey","last_message_time":"2024-05-01T10:00:00Z","unread_count":3},
			{"chat_id":4,"other_user_id":5,"other_username":"carol","other_avatar":"c.png","other_status":"offline",
			 "last_message":null,"last_message_time":null,"unread_count":0}]}`))
	}, "secret")

	convs, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "1", convs[0].ID)
	assert.Equal(t, "hey", convs[0].LastMessagePreview)
	assert.Equal(t, 3, convs[0].UnreadCount)
	assert.Equal(t, chat.Online, convs[0].Counterpart.Presence)
	assert.True(t, convs[0].LastMessageAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "New chat", convs[1].LastMessagePreview)
	assert.Equal(t, "c.png", convs[1].Counterpart.AvatarRef)
	assert.True(t, convs[1].LastMessageAt.IsZero())
}

func TestGetMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "9", r.URL.Query().Get("chat_id"))
		_, _ = w.Write([]byte(`{"messages":[
			{"id":1,"text":"hi","sender_id":2,"is_read":true,"created_at":"2024-05-01 10:00:00","sender_username":"bob"},
			{"id":"2","text":"yo","sender_id":"3","is_read":false,"created_at":"2024-05-01T10:00:01.5Z"}]}`))
	}, "secret")

	msgs, err := c.GetMessages(context.Background(), "9")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.Message{
		ID: "1", ConversationID: "9", SenderID: "2", Body: "hi",
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), Read: true,
	}, msgs[0])
	assert.Equal(t, "2", msgs[1].ID)
	assert.Equal(t, chat.Confirmed, msgs[1].Delivery)
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatAction
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, chatAction{Action: "send_message", ChatID: "9", Text: "hello"}, req)
		_, _ = w.Write([]byte(`{"message_id":42,"created_at":"2024-05-01T10:00:00Z"}`))
	}, "secret")

	rcpt, err := c.SendMessage(context.Background(), "9", "hello")
	require.NoError(t, err)
	assert.Equal(t, "42", rcpt.MessageID)
}

func TestCreateAndDeleteConversation(t *testing.T) {
	var actions []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatAction
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		actions = append(actions, req.Action)
		switch req.Action {
		case "create_chat":
			assert.Equal(t, "5", req.OtherUserID)
			_, _ = w.Write([]byte(`{"chat_id":12}`))
		case "delete_chat":
			assert.Equal(t, "12", req.ChatID)
			_, _ = w.Write([]byte(`{"success":true}`))
		}
	}, "secret")

	id, err := c.CreateConversation(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "12", id)
	require.NoError(t, c.DeleteConversation(context.Background(), id))
	assert.Equal(t, []string{"create_chat", "delete_chat"}, actions)
}

func TestSearchUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "al", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"users":[{"id":3,"username":"alice","status":"offline"}]}`))
	}, "")

	users, err := c.SearchUsers(context.Background(), "al")
	require.NoError(t, err)
	assert.Equal(t, []chat.Identity{{ID: "3", DisplayName: "alice", Presence: chat.Offline}}, users)
}

func TestExpiredCredential(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid token"}`))
	}, "stale")

	_, err := c.ListConversations(context.Background())
	require.ErrorIs(t, err, chat.ErrSessionExpired)
}

func TestNoCredentialMakesNoCall(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true }, "")

	_, err := c.GetMessages(context.Background(), "1")
	require.ErrorIs(t, err, chat.ErrNotAuthenticated)
	assert.False(t, called)
}

func TestTransportErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, "secret")
		_, err := c.ListConversations(context.Background())
		var te *chat.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusInternalServerError, te.Status)
		assert.True(t, chat.IsTransient(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"chats":`))
		}, "secret")
		_, err := c.ListConversations(context.Background())
		assert.True(t, chat.IsTransient(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c, err := NewHTTPClient(srv.URL, time.Second, CredentialFunc(func() string { return "x" }), nil)
		require.NoError(t, err)
		_, err = c.ListConversations(context.Background())
		assert.True(t, chat.IsTransient(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, "secret")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.ListConversations(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
