package devserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/stream"
)

type chatRequest struct {
	Message        string             `json:"message"`
	Temperatures   map[string]float64 `json:"temperatures"`
	ConversationID *string            `json:"conversation_id"`
}

type createConversationRequest struct {
	Title string `json:"title"`
}

// handleChat streams one scripted exchange.
// POST /api/chat
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prompt := strings.TrimSpace(req.Message)
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	ctx := c.Request.Context()
	conv, err := s.conversationFor(ctx, req.ConversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	first := len(conv.Messages) == 0

	start := time.Now()
	if err := s.store.AddMessage(ctx, conv.ID, chat.Message{Role: chat.RoleUser, Content: prompt, CreatedAt: &start}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	contentType := "application/x-ndjson"
	if s.cfg.SSE {
		contentType = "text/event-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	logger := s.logger.With().Str("conversation", conv.ID).Logger()
	emit := func(ev stream.Event) bool {
		if err := s.writeFrame(c.Writer, ev); err != nil {
			logger.Debug().Err(err).Msg("Client went away")
			return false
		}
		return true
	}

	if !emit(stream.Event{Type: stream.TypeConversation, ConversationID: conv.ID}) {
		return
	}

	if first {
		if title := Title(prompt); title != "" {
			if err := s.store.UpdateTitle(ctx, conv.ID, title); err != nil {
				logger.Warn().Err(err).Msg("Failed to set conversation title")
			} else if !emit(stream.Event{Type: stream.TypeConversationTitle, Content: stream.Text(title)}) {
				return
			}
		}
	}

	script := Script{Prompt: prompt, Agents: s.cfg.Agents, Temperatures: req.Temperatures}
	var (
		trace  []chat.TraceEntry
		answer strings.Builder
	)
	for _, ev := range script.Events() {
		if ev.Type == stream.TypeToken && s.cfg.TokenDelay > 0 {
			if !sleep(ctx, s.cfg.TokenDelay) {
				logger.Info().Msg("Client disconnected, script stopped")
				return
			}
		}
		if ctx.Err() != nil {
			logger.Info().Msg("Client disconnected, script stopped")
			return
		}
		if !emit(ev) {
			return
		}

		switch {
		case ev.Type.IsTrace():
			trace = append(trace, chat.NewTraceEntry(ev))
		case ev.Type == stream.TypeToken:
			answer.WriteString(ev.ContentOr(""))
		}
	}

	now := time.Now()
	reply := chat.Message{
		Role:            chat.RoleAssistant,
		Content:         answer.String(),
		Trace:           trace,
		DurationSeconds: now.Sub(start).Seconds(),
		CreatedAt:       &now,
	}
	if err := s.store.AddMessage(ctx, conv.ID, reply); err != nil {
		logger.Warn().Err(err).Msg("Failed to store answer")
		if !emit(stream.Error("failed to store answer: " + err.Error())) {
			return
		}
	}

	emit(stream.Done())
}

// conversationFor loads the requested conversation, creating a new one
// when the ID is missing or unknown.
func (s *Server) conversationFor(ctx context.Context, id *string) (*chat.Conversation, error) {
	if id != nil && strings.TrimSpace(*id) != "" {
		conv, err := s.store.Get(ctx, strings.TrimSpace(*id))
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, ErrConversationNotFound) {
			return nil, err
		}
	}
	return s.store.Create(ctx, "")
}

func (s *Server) writeFrame(w gin.ResponseWriter, ev stream.Event) error {
	data, err := stream.Encode(ev)
	if err != nil {
		return err
	}
	if s.cfg.SSE {
		data = append(append([]byte("data: "), bytes.TrimRight(data, "\n")...), '\n', '\n')
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// handleListConversations lists conversations.
// GET /api/conversations?query=
func (s *Server) handleListConversations(c *gin.Context) {
	items, err := s.store.List(c.Request.Context(), c.Query("query"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// handleCreateConversation creates an empty conversation. The body is optional.
// POST /api/conversations
func (s *Server) handleCreateConversation(c *gin.Context) {
	var req createConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	conv, err := s.store.Create(c.Request.Context(), strings.TrimSpace(req.Title))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// handleGetConversation returns a conversation with its history.
// GET /api/conversations/:id
func (s *Server) handleGetConversation(c *gin.Context) {
	conv, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// handleDeleteConversation deletes a conversation.
// DELETE /api/conversations/:id
func (s *Server) handleDeleteConversation(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
