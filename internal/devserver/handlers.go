package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/matheus3301/msgr/internal/store"
)

const searchLimit = 20

// API implements the HTTP handlers on top of the store.
type API struct {
	db      *store.DB
	tokens  *Tokens
	metrics *Metrics
	logger  *zap.Logger
}

// NewAPI creates the handler set.
func NewAPI(db *store.DB, tokens *Tokens, metrics *Metrics, logger *zap.Logger) *API {
	return &API{db: db, tokens: tokens, metrics: metrics, logger: logger}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func (a *API) internal(c *gin.Context, op string, err error) {
	a.logger.Error(op, zap.Error(err), zap.String("request_id", c.GetString(ctxRequestID)))
	fail(c, http.StatusInternalServerError, "Internal server error")
}

func (a *API) auth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, "Username and password required")
		return
	}

	switch req.Action {
	case "register":
		a.register(c, req)
	case "login":
		a.login(c, req)
	default:
		fail(c, http.StatusBadRequest, "Invalid action")
	}
}

func (a *API) register(c *gin.Context, req authRequest) {
	if n := utf8.RuneCountInString(req.Username); n < 3 || n > 50 {
		a.metrics.authAttempts.WithLabelValues("register", "invalid").Inc()
		fail(c, http.StatusBadRequest, "Username must be 3-50 characters")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt refuses passwords over 72 bytes.
		fail(c, http.StatusBadRequest, "Password too long")
		return
	}
	user, err := a.db.CreateUser(req.Username, string(hash))
	if errors.Is(err, store.ErrUsernameTaken) {
		a.metrics.authAttempts.WithLabelValues("register", "conflict").Inc()
		fail(c, http.StatusConflict, "Username already exists")
		return
	}
	if err != nil {
		a.internal(c, "create user", err)
		return
	}
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		a.internal(c, "issue token", err)
		return
	}
	a.metrics.authAttempts.WithLabelValues("register", "ok").Inc()
	a.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	c.JSON(http.StatusCreated, authResponse{User: toUser(user), Token: token})
}

func (a *API) login(c *gin.Context, req authRequest) {
	user, err := a.db.UserByUsername(req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		a.internal(c, "lookup user", err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		a.metrics.authAttempts.WithLabelValues("login", "rejected").Inc()
		fail(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err := a.db.SetStatus(user.ID, store.StatusOnline); err != nil {
		a.internal(c, "set status", err)
		return
	}
	user.Status = store.StatusOnline
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		a.internal(c, "issue token", err)
		return
	}
	a.metrics.authAttempts.WithLabelValues("login", "ok").Inc()
	c.JSON(http.StatusOK, authResponse{User: toUser(user), Token: token})
}

func (a *API) getChats(c *gin.Context) {
	uid := c.GetInt64(ctxUserID)

	if raw := c.Query("chat_id"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid chat_id")
			return
		}
		if !a.member(c, chatID, uid) {
			return
		}
		if _, err := a.db.MarkRead(chatID, uid); err != nil {
			a.internal(c, "mark read", err)
			return
		}
		msgs, err := a.db.ListMessages(chatID)
		if err != nil {
			a.internal(c, "list messages", err)
			return
		}
		out := make([]messageJSON, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, toMessage(m))
		}
		c.JSON(http.StatusOK, gin.H{"messages": out})
		return
	}

	chats, err := a.db.ListChats(uid)
	if err != nil {
		a.internal(c, "list chats", err)
		return
	}
	out := make([]chatJSON, 0, len(chats))
	for _, ch := range chats {
		out = append(out, toChat(ch))
	}
	c.JSON(http.StatusOK, gin.H{"chats": out})
}

// member writes a 404 and returns false when uid is not part of chatID.
func (a *API) member(c *gin.Context, chatID, uid int64) bool {
	ok, err := a.db.IsMember(chatID, uid)
	if err != nil {
		a.internal(c, "check membership", err)
		return false
	}
	if !ok {
		fail(c, http.StatusNotFound, "Chat not found")
		return false
	}
	return true
}

func (a *API) postChats(c *gin.Context) {
	var req chatAction
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	uid := c.GetInt64(ctxUserID)

	switch req.Action {
	case "create_chat":
		a.createChat(c, uid, int64(req.OtherUserID))
	case "send_message":
		a.sendMessage(c, uid, int64(req.ChatID), req.Text)
	case "delete_chat":
		a.deleteChat(c, uid, int64(req.ChatID))
	default:
		fail(c, http.StatusBadRequest, "Invalid action")
	}
}

func (a *API) createChat(c *gin.Context, uid, other int64) {
	if other == 0 {
		fail(c, http.StatusBadRequest, "other_user_id required")
		return
	}
	if other == uid {
		fail(c, http.StatusBadRequest, "Cannot start a chat with yourself")
		return
	}
	if _, err := a.db.UserByID(other); errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "User not found")
		return
	} else if err != nil {
		a.internal(c, "lookup user", err)
		return
	}
	id, created, err := a.db.CreateChat(uid, other)
	if err != nil {
		a.internal(c, "create chat", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		a.metrics.chatsCreated.Inc()
	}
	c.JSON(status, gin.H{"chat_id": id})
}

func (a *API) sendMessage(c *gin.Context, uid, chatID int64, text string) {
	if chatID == 0 || strings.TrimSpace(text) == "" {
		fail(c, http.StatusBadRequest, "chat_id and text required")
		return
	}
	if !a.member(c, chatID, uid) {
		return
	}
	msg, err := a.db.AddMessage(chatID, uid, text)
	if err != nil {
		a.internal(c, "add message", err)
		return
	}
	a.metrics.messagesSent.Inc()
	c.JSON(http.StatusCreated, gin.H{"message_id": msg.ID, "created_at": stamp(msg.CreatedAt)})
}

func (a *API) deleteChat(c *gin.Context, uid, chatID int64) {
	if chatID == 0 {
		fail(c, http.StatusBadRequest, "chat_id required")
		return
	}
	if !a.member(c, chatID, uid) {
		return
	}
	if err := a.db.DeleteChat(chatID); errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "Chat not found")
		return
	} else if err != nil {
		a.internal(c, "delete chat", err)
		return
	}
	a.metrics.chatsDeleted.Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if utf8.RuneCountInString(query) < 2 {
		fail(c, http.StatusBadRequest, "Query must be at least 2 characters")
		return
	}
	users, err := a.db.SearchUsers(query, c.GetInt64(ctxUserID), searchLimit)
	if err != nil {
		a.internal(c, "search users", err)
		return
	}
	a.metrics.searchQueries.Inc()
	out := make([]userJSON, 0, len(users))
	for i := range users {
		u := users[i]
		out = append(out, userJSON{
			ID:        u.ID,
			Username:  u.Username,
			AvatarURL: optional(u.AvatarURL),
			Status:    u.Status,
			LastSeen:  stamp(u.LastSeen),
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

func (a *API) healthz(c *gin.Context) {
	if err := a.db.Ping(); err != nil {
		fail(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
