// Package generation drives one chat turn: it opens the backend stream,
// decodes frames and feeds them to the conversation store in arrival order.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/grokteam/grokteam/internal/api"
	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/constants"
	cerrors "github.com/grokteam/grokteam/internal/errors"
	"github.com/grokteam/grokteam/internal/stream"
)

var (
	// ErrEmptyPrompt is returned when Start is called with a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrGenerationActive is returned when Start is called while a session
	// is live.
	ErrGenerationActive = chat.ErrGenerationActive
)

// Streamer opens the chat stream. *api.Client implements it.
type Streamer interface {
	StreamChat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)
}

// EventHook observes every event applied to the store, synthetic ones
// included.
type EventHook func(ev stream.Event, out chat.Outcome)

// Controller runs at most one generation session at a time.
type Controller struct {
	store          *chat.Store
	streamer       Streamer
	logger         zerolog.Logger
	refreshTimeout time.Duration
	chunkSize      int
	hook           EventHook

	mu        sync.Mutex
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithRefreshTimeout bounds each conversation list refresh.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Controller) { c.refreshTimeout = d }
}

// WithChunkSize sets the body read size.
func WithChunkSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithEventHook registers a hook called after each applied event.
func WithEventHook(hook EventHook) Option {
	return func(c *Controller) { c.hook = hook }
}

// NewController creates a controller writing into store.
func NewController(store *chat.Store, streamer Streamer, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:          store,
		streamer:       streamer,
		logger:         logger.With().Str("component", "generation").Logger(),
		refreshTimeout: constants.DefaultRefreshTimeout,
		chunkSize:      constants.StreamReadChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start records the prompt, opens a session and streams the answer in the
// background. The returned channel is closed once the session is finalized
// and any follow-up list refresh has finished.
func (c *Controller) Start(ctx context.Context, prompt string) (<-chan struct{}, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		select {
		case <-c.done:
		default:
			return nil, ErrGenerationActive
		}
	}

	sess, err := c.store.BeginTurn(prompt)
	if err != nil {
		return nil, err
	}

	req := api.ChatRequest{
		Message:      prompt,
		Temperatures: c.store.Temperatures(),
	}
	if sess.ConversationID != "" {
		id := sess.ConversationID
		req.ConversationID = &id
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.sessionID = sess.ID
	c.cancel = cancel
	c.done = done

	c.logger.Info().
		Str("session", sess.ID).
		Str("conversation", sess.ConversationID).
		Msg("Generation started")

	go c.run(runCtx, cancel, sess.ID, req, done)
	return done, nil
}

// Cancel stops the live session. The reason becomes the status label. It
// is a no-op when nothing is running.
func (c *Controller) Cancel(reason string) {
	c.mu.Lock()
	id, cancel := c.sessionID, c.cancel
	c.mu.Unlock()

	if id == "" || cancel == nil {
		return
	}
	if c.store.MarkCancelled(id, reason) {
		c.logger.Info().Str("session", id).Str("reason", reason).Msg("Generation cancelled")
	}
	cancel()
}

// Active reports whether a session is live.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the current session, if any, has ended.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, sessionID string, req api.ChatRequest, done chan struct{}) {
	logger := c.logger.With().Str("session", sessionID).Logger()
	start := time.Now()

	defer func() {
		cancel()
		c.mu.Lock()
		if c.sessionID == sessionID {
			c.sessionID = ""
			c.cancel = nil
		}
		c.mu.Unlock()
		close(done)
	}()

	var pending sync.WaitGroup
	refresh := c.stream(ctx, logger, sessionID, req, &pending)

	logger.Info().Dur("elapsed", time.Since(start)).Msg("Generation finished")

	// The final refresh must not be overtaken by an earlier, slower one.
	pending.Wait()
	if refresh {
		c.refreshConversations(logger)
	}
}

// stream runs the read loop and always ends with a done event applied. A
// refresh requested mid-stream starts at once and is tracked by pending; the
// return value reports whether finalization asked for one more.
func (c *Controller) stream(ctx context.Context, logger zerolog.Logger, sessionID string, req api.ChatRequest, pending *sync.WaitGroup) bool {
	var refresh bool
	apply := func(ev stream.Event) chat.Outcome {
		out := c.store.Apply(sessionID, ev)
		switch {
		case out.RefreshConversations && out.Done:
			refresh = true
		case out.RefreshConversations:
			pending.Add(1)
			go func() {
				defer pending.Done()
				c.refreshConversations(logger)
			}()
		}
		if c.hook != nil {
			c.hook(ev, out)
		}
		return out
	}
	// A context cancelled by the caller rather than through Cancel still
	// ends as a stop, never as an error.
	stopped := func() bool {
		c.store.MarkCancelled(sessionID, chat.StatusStopped)
		apply(stream.Done())
		return refresh
	}

	body, err := c.streamer.StreamChat(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return stopped()
		}
		logger.Warn().Err(err).Msg("Chat request failed")
		apply(stream.Error(err.Error()))
		apply(stream.Done())
		return refresh
	}
	defer cerrors.DeferClose(logger, body, "Failed to close chat stream")

	dec := stream.NewDecoder()
	buf := make([]byte, c.chunkSize)

	handle := func(line string) bool {
		ev, err := stream.ParseEvent(line)
		if err != nil {
			logger.Debug().Err(err).Str("line", truncate(line, 200)).Msg("Dropping malformed frame")
			return false
		}
		apply(ev)
		return ev.Type == stream.TypeDone
	}

	for {
		if ctx.Err() != nil {
			return stopped()
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range dec.Feed(buf[:n]) {
				if handle(line) {
					return refresh
				}
			}
		}

		if readErr == nil {
			continue
		}

		if errors.Is(readErr, io.EOF) {
			if tail, ok := dec.Flush(); ok && handle(tail) {
				return refresh
			}
			apply(stream.Done())
			return refresh
		}

		if ctx.Err() != nil {
			return stopped()
		}
		logger.Warn().Err(readErr).Msg("Chat stream read failed")
		apply(stream.Error(fmt.Sprintf("stream interrupted: %v", readErr)))
		apply(stream.Done())
		return refresh
	}
}

func (c *Controller) refreshConversations(logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	if err := c.store.LoadConversations(ctx, ""); err != nil {
		logger.Warn().Err(err).Msg("Conversation list refresh failed")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
