package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// TokenHeader carries the session token on authenticated requests.
	TokenHeader = "X-Auth-Token"
	// RequestIDHeader echoes the per-request id.
	RequestIDHeader = "X-Request-ID"

	ctxUserID    = "userID"
	ctxRequestID = "requestID"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", c.GetString(ctxRequestID)),
		}
		if uid, ok := c.Get(ctxUserID); ok {
			fields = append(fields, zap.Int64("user_id", uid.(int64)))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

func tokenFrom(c *gin.Context) string {
	if tok := c.GetHeader(TokenHeader); tok != "" {
		return tok
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// requireUser rejects requests without a valid token.
func requireUser(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := tokenFrom(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid, err := tokens.Verify(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(ctxUserID, uid)
		c.Next()
	}
}

// optionalUser records the caller when a valid token is present and lets
// anonymous requests through.
func optionalUser(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := tokenFrom(c); tok != "" {
			if uid, err := tokens.Verify(tok); err == nil {
				c.Set(ctxUserID, uid)
			}
		}
		c.Next()
	}
}
