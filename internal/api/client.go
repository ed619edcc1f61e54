// Package api is the HTTP client for the Grok Team backend: the streaming
// chat endpoint, conversation persistence and the health probe.
package api

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

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/constants"
	cerrors "github.com/grokteam/grokteam/internal/errors"
	"github.com/grokteam/grokteam/internal/retry"
	"github.com/grokteam/grokteam/pkg/version"
)

const (
	headerRequestID = "X-Request-ID"
	streamAccept    = "application/x-ndjson, text/event-stream"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message      string             `json:"message" jsonschema:"minLength=1,description=The user prompt"`
	Temperatures map[string]float64 `json:"temperatures" jsonschema:"description=Sampling temperature per agent name"`
	// ConversationID is null for a conversation the backend has not created.
	ConversationID *string `json:"conversation_id"`
}

// Client talks to the backend API rooted at a base URL such as
// http://localhost:8000/api.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         zerolog.Logger
	retry          retry.Config
	requestTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. It must not set a
// global Timeout, which would cut long chat streams.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger.With().Str("component", "api").Logger() }
}

// WithRetry sets the retry policy for idempotent requests.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithRequestTimeout bounds each non-streaming request attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient:     &http.Client{},
		logger:         zerolog.Nop(),
		retry:          retry.DefaultConfig(),
		requestTimeout: constants.DefaultRequestTimeout,
	}
	if c.baseURL == "" {
		c.baseURL = constants.DefaultAPIBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StreamChat posts a chat request and returns the open response body. The
// caller owns the body and must close it. Cancelling ctx aborts the stream.
// Non-2xx responses are returned as *StatusError.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	if req.Temperatures == nil {
		req.Temperatures = map[string]float64{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", streamAccept)
	httpReq.Header.Set("Cache-Control", "no-cache")

	c.logger.Debug().
		Str("request_id", httpReq.Header.Get(headerRequestID)).
		Bool("new_conversation", req.ConversationID == nil).
		Int("prompt_len", len(req.Message)).
		Msg("Starting chat stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := newStatusError(resp)
		cerrors.DrainClose(c.logger, resp.Body, "Failed to close chat response body")
		return nil, se
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		cerrors.DeferClose(c.logger, resp.Body, "Failed to close chat response body")
		return nil, ErrEmptyBody
	}
	return resp.Body, nil
}

type conversationList struct {
	Items []chat.ConversationSummary `json:"items"`
}

// ListConversations lists conversations, optionally filtered by query.
func (c *Client) ListConversations(ctx context.Context, query string) ([]chat.ConversationSummary, error) {
	path := "/conversations"
	if q := strings.TrimSpace(query); q != "" {
		path += "?" + url.Values{"query": {q}}.Encode()
	}

	var out conversationList
	if err := c.doIdempotent(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []chat.ConversationSummary{}
	}
	return out.Items, nil
}

// GetConversation fetches a conversation with its full history.
func (c *Client) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	var conv chat.Conversation
	if err := c.doIdempotent(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateConversation creates an empty conversation. It is not retried.
func (c *Client) CreateConversation(ctx context.Context, title string) (*chat.Conversation, error) {
	payload, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return nil, fmt.Errorf("failed to encode conversation: %w", err)
	}

	var conv chat.Conversation
	err = c.doOnce(ctx, http.MethodPost, "/conversations", payload, &conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation deletes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.doIdempotent(ctx, http.MethodDelete, "/conversations/"+url.PathEscape(id), nil)
}

// Health probes the backend once. Any 2xx answer means online.
func (c *Client) Health(ctx context.Context) error {
	return c.doOnce(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) doIdempotent(ctx context.Context, method, path string, out any) error {
	return retry.Do(ctx, c.retry, func() error {
		err := c.doOnce(ctx, method, path, nil, out)
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return retry.Permanent(err)
		}
		return err
	}, retry.IsRetryable)
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any) error {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer cerrors.DrainClose(c.logger, resp.Body, "Failed to close response body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := newStatusError(resp)
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", se.Code).
			Msg("Backend returned an error")
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("failed to decode %s %s response: %w", method, path, err))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(headerRequestID, uuid.NewString())
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}
