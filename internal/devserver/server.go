package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the routes and middleware.
func NewRouter(api *API, metrics *Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(logger), metrics.middleware())

	r.GET("/healthz", api.healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/auth", api.auth)
	r.GET("/search", optionalUser(api.tokens), api.search)

	chats := r.Group("/chats", requireUser(api.tokens))
	chats.GET("", api.getChats)
	chats.POST("", api.postChats)

	return r
}

// Server owns the TCP listener and the HTTP server.
type Server struct {
	http     *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// NewServer binds cfg.Addr.
func NewServer(cfg Config, router *gin.Engine, logger *zap.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return &Server{
		http: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
		logger:   logger,
	}, nil
}

// Addr is the bound address, useful when cfg.Addr used port 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.Addr()))
	if err := s.http.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.http.Shutdown(ctx)
}
