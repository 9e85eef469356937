package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matheus3301/msgr/internal/chat"
	"go.uber.org/zap"
)

// CredentialHeader carries the session credential on every authenticated request.
const CredentialHeader = "X-Auth-Token"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// HTTPClient talks to the chat service over its JSON API.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	creds   CredentialSource
	logger  *zap.Logger
}

// NewHTTPClient creates a client for the service rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, creds CredentialSource, logger *zap.Logger) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		logger:  logger,
	}, nil
}

var _ Service = (*HTTPClient)(nil)

func (c *HTTPClient) Authenticate(ctx context.Context, mode AuthMode, username, password string) (chat.Identity, string, error) {
	const op = "authenticate"
	var resp authResponse
	err := c.do(ctx, op, http.MethodPost, "/auth", nil, authRequest{Action: mode, Username: username, Password: password}, &resp, false)
	if err != nil {
		return chat.Identity{}, "", err
	}
	if resp.User == nil || resp.Token == "" {
		return chat.Identity{}, "", &chat.TransportError{Op: op, Err: errors.New("response without user or token")}
	}
	return resp.User.identity(), resp.Token, nil
}

func (c *HTTPClient) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	var resp chatsResponse
	if err := c.do(ctx, "list conversations", http.MethodGet, "/chats", nil, nil, &resp, true); err != nil {
		return nil, err
	}
	convs := make([]chat.Conversation, 0, len(resp.Chats))
	for _, wc := range resp.Chats {
		convs = append(convs, wc.conversation())
	}
	return convs, nil
}

func (c *HTTPClient) GetMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var resp messagesResponse
	q := url.Values{"chat_id": {conversationID}}
	if err := c.do(ctx, "get messages", http.MethodGet, "/chats", q, nil, &resp, true); err != nil {
		return nil, err
	}
	msgs := make([]chat.Message, 0, len(resp.Messages))
	for _, wm := range resp.Messages {
		msgs = append(msgs, wm.message(conversationID))
	}
	return msgs, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, conversationID, body string) (chat.Receipt, error) {
	var resp sendResponse
	req := chatAction{Action: "send_message", ChatID: conversationID, Text: body}
	if err := c.do(ctx, "send message", http.MethodPost, "/chats", nil, req, &resp, true); err != nil {
		return chat.Receipt{}, err
	}
	return chat.Receipt{MessageID: string(resp.MessageID), CreatedAt: time.Time(resp.CreatedAt)}, nil
}

func (c *HTTPClient) CreateConversation(ctx context.Context, otherUserID string) (string, error) {
	const op = "create conversation"
	var resp createResponse
	req := chatAction{Action: "create_chat", OtherUserID: otherUserID}
	if err := c.do(ctx, op, http.MethodPost, "/chats", nil, req, &resp, true); err != nil {
		return "", err
	}
	if resp.ChatID == "" {
		return "", &chat.TransportError{Op: op, Err: errors.New("response without chat_id")}
	}
	return string(resp.ChatID), nil
}

func (c *HTTPClient) DeleteConversation(ctx context.Context, conversationID string) error {
	req := chatAction{Action: "delete_chat", ChatID: conversationID}
	return c.do(ctx, "delete conversation", http.MethodPost, "/chats", nil, req, nil, true)
}

func (c *HTTPClient) SearchUsers(ctx context.Context, query string) ([]chat.Identity, error) {
	var resp usersResponse
	q := url.Values{"query": {query}}
	if err := c.do(ctx, "search users", http.MethodGet, "/search", q, nil, &resp, false); err != nil {
		return nil, err
	}
	users := make([]chat.Identity, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, u.identity())
	}
	return users, nil
}

// do performs one request. When authed is set the credential is required and
// attached; a 401 then means the session is no longer valid.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, in, out any, authed bool) error {
	var credential string
	if c.creds != nil {
		credential = c.creds.Credential()
	}
	if authed && credential == "" {
		return chat.ErrNotAuthenticated
	}

	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set(CredentialHeader, credential)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &chat.TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &chat.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	c.logger.Debug("remote call",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode >= 300 {
		return c.statusError(op, resp.StatusCode, raw, authed)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &chat.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *HTTPClient) statusError(op string, status int, raw []byte, authed bool) error {
	var er errorResponse
	_ = json.Unmarshal(raw, &er)
	msg := er.Error
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized && authed:
		return &chat.AuthError{Op: op, Message: msg, Expired: true}
	case op == "authenticate" && status < 500:
		// Bad credentials, duplicate username, rejected username.
		return &chat.AuthError{Op: op, Message: msg}
	default:
		return &chat.TransportError{Op: op, Status: status, Err: errors.New(msg)}
	}
}
