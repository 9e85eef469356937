package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheus3301/msgr/internal/store"
)

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "msgrd.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	metrics := NewMetrics()
	api := NewAPI(db, NewTokens("test-secret", time.Hour), metrics, logger)
	srv := httptest.NewServer(NewRouter(api, metrics, logger))
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

func (s *testServer) do(method, path, token string, body any, out any) int {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, r)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type authOut struct {
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Status   string `json:"status"`
	} `json:"user"`
	Token string `json:"token"`
	Error string `json:"error"`
}

func (s *testServer) register(name string) authOut {
	s.t.Helper()
	var out authOut
	code := s.do("POST", "/auth", "", authRequest{Action: "register", Username: name, Password: "secret"}, &out)
	require.Equal(s.t, http.StatusCreated, code, out.Error)
	return out
}

type errorOut struct {
	Error string `json:"error"`
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	alice := s.register("alice")
	assert.Equal(t, "alice", alice.User.Username)
	assert.Equal(t, "online", alice.User.Status)
	assert.NotEmpty(t, alice.Token)

	var e errorOut
	code := s.do("POST", "/auth", "", authRequest{Action: "register", Username: "ALICE", Password: "x"}, &e)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Username already exists", e.Error)

	code = s.do("POST", "/auth", "", authRequest{Action: "register", Username: "al", Password: "x"}, &e)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Username must be 3-50 characters", e.Error)

	code = s.do("POST", "/auth", "", authRequest{Action: "login", Username: "alice", Password: "wrong"}, &e)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid username or password", e.Error)

	code = s.do("POST", "/auth", "", authRequest{Action: "login", Username: "nobody", Password: "secret"}, &e)
	assert.Equal(t, http.StatusUnauthorized, code)

	code = s.do("POST", "/auth", "", authRequest{Action: "login", Username: "", Password: "secret"}, &e)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Username and password required", e.Error)

	code = s.do("POST", "/auth", "", authRequest{Action: "reset", Username: "alice", Password: "secret"}, &e)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid action", e.Error)

	var in authOut
	code = s.do("POST", "/auth", "", authRequest{Action: "login", Username: "alice", Password: "secret"}, &in)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, alice.User.ID, in.User.ID)
	assert.NotEmpty(t, in.Token)
}

func TestChatsRequireToken(t *testing.T) {
	s := newTestServer(t)

	var e errorOut
	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/chats", "", nil, &e))
	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/chats", "not-a-token", nil, &e))

	other := NewTokens("other-secret", time.Hour)
	forged, err := other.Issue(1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/chats", forged, nil, &e))
}

type chatsOut struct {
	Chats []struct {
		ChatID          int64   `json:"chat_id"`
		OtherUserID     int64   `json:"other_user_id"`
		OtherUsername   string  `json:"other_username"`
		LastMessage     *string `json:"last_message"`
		LastMessageTime *string `json:"last_message_time"`
		UnreadCount     int     `json:"unread_count"`
	} `json:"chats"`
}

type messagesOut struct {
	Messages []struct {
		ID        int64  `json:"id"`
		Text      string `json:"text"`
		SenderID  int64  `json:"sender_id"`
		IsRead    bool   `json:"is_read"`
		CreatedAt string `json:"created_at"`
	} `json:"messages"`
}

func TestConversationFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	carol := s.register("carol")

	var created struct {
		ChatID int64 `json:"chat_id"`
	}
	code := s.do("POST", "/chats", alice.Token, map[string]any{"action": "create_chat", "other_user_id": bob.User.ID}, &created)
	require.Equal(t, http.StatusCreated, code)

	// ids sent as strings are accepted and the pair maps to the same chat.
	var again struct {
		ChatID int64 `json:"chat_id"`
	}
	code = s.do("POST", "/chats", bob.Token, map[string]any{"action": "create_chat", "other_user_id": strconv.FormatInt(alice.User.ID, 10)}, &again)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.ChatID, again.ChatID)

	var empty chatsOut
	require.Equal(t, http.StatusOK, s.do("GET", "/chats", bob.Token, nil, &empty))
	require.Len(t, empty.Chats, 1)
	assert.Nil(t, empty.Chats[0].LastMessage)
	assert.Nil(t, empty.Chats[0].LastMessageTime)

	var sent struct {
		MessageID int64  `json:"message_id"`
		CreatedAt string `json:"created_at"`
	}
	code = s.do("POST", "/chats", alice.Token, map[string]any{
		"action": "send_message", "chat_id": strconv.FormatInt(created.ChatID, 10), "text": "hello bob",
	}, &sent)
	require.Equal(t, http.StatusCreated, code)
	assert.NotZero(t, sent.MessageID)
	_, err := time.Parse(time.RFC3339Nano, sent.CreatedAt)
	require.NoError(t, err)

	var e errorOut
	code = s.do("POST", "/chats", alice.Token, map[string]any{"action": "send_message", "chat_id": created.ChatID, "text": "   "}, &e)
	assert.Equal(t, http.StatusBadRequest, code)

	var list chatsOut
	require.Equal(t, http.StatusOK, s.do("GET", "/chats", bob.Token, nil, &list))
	require.Len(t, list.Chats, 1)
	assert.Equal(t, "alice", list.Chats[0].OtherUsername)
	require.NotNil(t, list.Chats[0].LastMessage)
	assert.Equal(t, "hello bob", *list.Chats[0].LastMessage)
	assert.Equal(t, 1, list.Chats[0].UnreadCount)

	var msgs messagesOut
	path := "/chats?chat_id=" + strconv.FormatInt(created.ChatID, 10)
	require.Equal(t, http.StatusOK, s.do("GET", path, bob.Token, nil, &msgs))
	require.Len(t, msgs.Messages, 1)
	assert.Equal(t, sent.MessageID, msgs.Messages[0].ID)
	assert.Equal(t, alice.User.ID, msgs.Messages[0].SenderID)
	assert.True(t, msgs.Messages[0].IsRead)

	require.Equal(t, http.StatusOK, s.do("GET", "/chats", bob.Token, nil, &list))
	assert.Equal(t, 0, list.Chats[0].UnreadCount)

	assert.Equal(t, http.StatusNotFound, s.do("GET", path, carol.Token, nil, &e))
	assert.Equal(t, http.StatusNotFound, s.do("POST", "/chats", carol.Token,
		map[string]any{"action": "send_message", "chat_id": created.ChatID, "text": "hi"}, &e))
	assert.Equal(t, http.StatusNotFound, s.do("POST", "/chats", carol.Token,
		map[string]any{"action": "delete_chat", "chat_id": created.ChatID}, &e))

	var deleted struct {
		Success bool `json:"success"`
	}
	require.Equal(t, http.StatusOK, s.do("POST", "/chats", bob.Token,
		map[string]any{"action": "delete_chat", "chat_id": created.ChatID}, &deleted))
	assert.True(t, deleted.Success)

	require.Equal(t, http.StatusOK, s.do("GET", "/chats", alice.Token, nil, &list))
	assert.Empty(t, list.Chats)
}

func TestCreateChatRejects(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	var e errorOut
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/chats", alice.Token,
		map[string]any{"action": "create_chat", "other_user_id": alice.User.ID}, &e))
	assert.Equal(t, http.StatusNotFound, s.do("POST", "/chats", alice.Token,
		map[string]any{"action": "create_chat", "other_user_id": 9999}, &e))
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/chats", alice.Token,
		map[string]any{"action": "archive_chat"}, &e))
}

type searchOut struct {
	Users []struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"users"`
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	s.register("alex")
	s.register("bob")

	var e errorOut
	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/search?query=a", "", nil, &e))
	assert.Equal(t, "Query must be at least 2 characters", e.Error)

	var anon searchOut
	require.Equal(t, http.StatusOK, s.do("GET", "/search?query=AL", "", nil, &anon))
	assert.Len(t, anon.Users, 2)

	var mine searchOut
	require.Equal(t, http.StatusOK, s.do("GET", "/search?query=al", alice.Token, nil, &mine))
	require.Len(t, mine.Users, 1)
	assert.Equal(t, "alex", mine.Users[0].Username)
}

func TestMetricsAndHealth(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	var created struct {
		ChatID int64 `json:"chat_id"`
	}
	require.Equal(t, http.StatusCreated, s.do("POST", "/chats", alice.Token,
		map[string]any{"action": "create_chat", "other_user_id": bob.User.ID}, &created))
	require.Equal(t, http.StatusCreated, s.do("POST", "/chats", alice.Token,
		map[string]any{"action": "send_message", "chat_id": created.ChatID, "text": "hi"}, nil))

	var health struct {
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusOK, s.do("GET", "/healthz", "", nil, &health))
	assert.Equal(t, "ok", health.Status)

	resp, err := http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "msgrd_messages_sent_total 1")
	assert.Contains(t, text, "msgrd_chats_created_total 1")
	assert.Contains(t, text, `msgrd_auth_attempts_total{action="register",result="ok"} 2`)
	assert.Contains(t, text, `route="/chats"`)
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, _ := http.NewRequest("GET", s.srv.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "abc", resp.Header.Get(RequestIDHeader))
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	tok, err := tokens.Issue(42)
	require.NoError(t, err)

	uid, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)

	tokens.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = tokens.Verify(tok)
	assert.Error(t, err)
}

func TestFlexID(t *testing.T) {
	for in, want := range map[string]flexID{`7`: 7, `"12"`: 12, `null`: 0, `""`: 0} {
		var f flexID
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.Equal(t, want, f, in)
	}
	var f flexID
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "msgrd.env")
	require.NoError(t, os.WriteFile(env, []byte("MSGRD_ADDR=127.0.0.1:9999\nMSGRD_TOKEN_TTL=2h\n"), 0600))
	t.Setenv("MSGR_HOME", dir)
	// godotenv never overrides variables that exist, even empty ones.
	for _, key := range []string{"MSGRD_ADDR", "MSGRD_TOKEN_TTL", "MSGRD_JWT_SECRET", "MSGRD_DB", "MSGRD_DEBUG"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := LoadConfig(env)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, filepath.Join(dir, "server", "msgrd.db"), cfg.DBPath)
	assert.True(t, cfg.SecretGenerated)
	assert.NotEmpty(t, cfg.JWTSecret)
}
