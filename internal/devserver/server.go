// Package devserver is a self-contained development backend speaking the
// Grok Team wire protocol. It streams a scripted multi-agent exchange and
// persists conversations in sqlite, so the client can be exercised without
// the real orchestrator.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/grokteam/grokteam/internal/constants"
)

const shutdownTimeout = 5 * time.Second

// Config configures the development backend.
type Config struct {
	Listen string
	// TokenDelay paces answer tokens; zero streams them back to back.
	TokenDelay time.Duration
	// SSE frames events as `data: <json>` followed by a blank line.
	SSE    bool
	Agents []string
}

// Server is the development backend.
type Server struct {
	cfg    Config
	store  *Store
	logger zerolog.Logger
	engine *gin.Engine
}

// New creates a server backed by store.
func New(cfg Config, store *Store, logger zerolog.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = constants.DefaultServerListen
	}
	if len(cfg.Agents) == 0 {
		cfg.Agents = constants.DefaultAgents
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "devserver").Logger(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	api := engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/chat", s.handleChat)

	conversations := api.Group("/conversations")
	{
		conversations.GET("", s.handleListConversations)
		conversations.POST("", s.handleCreateConversation)
		conversations.GET("/:id", s.handleGetConversation)
		conversations.DELETE("/:id", s.handleDeleteConversation)
	}

	s.engine = engine
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Bool("sse", s.cfg.SSE).
		Dur("token_delay", s.cfg.TokenDelay).
		Msg("Development backend listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("Shutting down development backend")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Dur("elapsed", time.Since(start)).
			Msg("Request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
