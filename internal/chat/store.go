package chat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/grokteam/grokteam/internal/constants"
	"github.com/grokteam/grokteam/internal/stream"
)

var (
	// ErrGenerationActive is returned when a turn starts while another
	// session is still live.
	ErrGenerationActive = errors.New("a generation is already in progress")
	// ErrInvalidTemperature is returned for an out-of-range temperature.
	ErrInvalidTemperature = errors.New("invalid temperature")
	// ErrEmptyAgent is returned when a temperature is set without an agent.
	ErrEmptyAgent = errors.New("agent name is required")
)

// DefaultConversationTitle is used when a conversation is created untitled.
const DefaultConversationTitle = "New conversation"

// Backend is the conversation persistence API the store reads through.
type Backend interface {
	ListConversations(ctx context.Context, query string) ([]ConversationSummary, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	CreateConversation(ctx context.Context, title string) (*Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
}

// Snapshot is a consistent, deep-copied view of the store.
type Snapshot struct {
	ActiveConversationID string
	Messages             []Message
	Conversations        []ConversationSummary
	Session              *Session
	Status               string
	LastError            string
	Temperatures         map[string]float64
	QueuedPrompt         string
	QueuedAutoSend       bool
}

// Generating reports whether a session is live.
func (s Snapshot) Generating() bool {
	return s.Session != nil && s.Session.Active
}

// Store is the single source of truth for conversation state. Every exported
// operation is one atomic transition under the store mutex; readers only
// ever see Snapshots.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string

	activeID      string
	messages      []Message
	conversations []ConversationSummary
	session       *Session
	status        string
	lastError     string
	temperatures  map[string]float64
	queued        string
	queuedAuto    bool

	// view counts resets and switches of the visible conversation;
	// sessionView is its value when the live session began.
	view        uint64
	sessionView uint64

	subscribers map[int]chan struct{}
	nextSubID   int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how session IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithTemperatures seeds per-agent temperatures. Invalid entries are skipped.
func WithTemperatures(temps map[string]float64) Option {
	return func(s *Store) {
		for agent, t := range temps {
			if validTemperature(t) && strings.TrimSpace(agent) != "" {
				s.temperatures[agent] = t
			}
		}
	}
}

// NewStore creates a store reading conversations through backend. The
// default agents start at the default temperature.
func NewStore(backend Backend, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		backend:      backend,
		logger:       logger.With().Str("component", "store").Logger(),
		now:          time.Now,
		newID:        uuid.NewString,
		status:       StatusReady,
		temperatures: make(map[string]float64, len(constants.DefaultAgents)),
		subscribers:  make(map[int]chan struct{}),
	}
	for _, agent := range constants.DefaultAgents {
		s.temperatures[agent] = constants.DefaultTemperature
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe returns a channel signalled after every state change, and a
// function that ends the subscription. Signals coalesce: a slow reader sees
// one pending signal, never a blocked writer.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ActiveConversationID: s.activeID,
		Messages:             cloneMessages(s.messages),
		Status:               s.status,
		LastError:            s.lastError,
		Temperatures:         s.temperaturesLocked(),
		QueuedPrompt:         s.queued,
		QueuedAutoSend:       s.queuedAuto,
	}
	if s.conversations != nil {
		snap.Conversations = append([]ConversationSummary(nil), s.conversations...)
	}
	if s.session != nil {
		sess := s.session.clone()
		snap.Session = &sess
	}
	return snap
}

// Generating reports whether a session is live.
func (s *Store) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// ActiveConversationID returns the conversation the user is viewing; empty
// means a new conversation the backend has not created yet.
func (s *Store) ActiveConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SetActiveConversation switches the active conversation ID.
func (s *Store) SetActiveConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
	s.notifyLocked()
}

// Temperatures returns a copy of the per-agent temperature map.
func (s *Store) Temperatures() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temperaturesLocked()
}

func (s *Store) temperaturesLocked() map[string]float64 {
	out := make(map[string]float64, len(s.temperatures))
	for k, v := range s.temperatures {
		out[k] = v
	}
	return out
}

// SetAgentTemperature sets one agent's sampling temperature.
func (s *Store) SetAgentTemperature(agent string, t float64) error {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return ErrEmptyAgent
	}
	if !validTemperature(t) {
		return fmt.Errorf("%w: %v for %s (must be between %.1f and %.1f)",
			ErrInvalidTemperature, t, agent, constants.MinTemperature, constants.MaxTemperature)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperatures[agent] = t
	s.notifyLocked()
	return nil
}

func validTemperature(t float64) bool {
	return !math.IsNaN(t) && t >= constants.MinTemperature && t <= constants.MaxTemperature
}

// AddUserMessage appends a user message and clears the last error.
func (s *Store) AddUserMessage(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserMessageLocked(content, s.now())
	s.notifyLocked()
}

func (s *Store) addUserMessageLocked(content string, now time.Time) {
	s.messages = append(s.messages, Message{Role: RoleUser, Content: content, CreatedAt: &now})
	s.lastError = ""
}

// BeginGeneration opens a session bound to the active conversation.
func (s *Store) BeginGeneration(now time.Time) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return Session{}, ErrGenerationActive
	}
	sess := s.beginLocked(now)
	s.notifyLocked()
	return sess, nil
}

func (s *Store) beginLocked(now time.Time) Session {
	sess := NewSession(s.newID(), s.activeID, now)
	s.session = &sess
	s.sessionView = s.view
	s.status = sess.Status
	s.lastError = ""
	return sess.clone()
}

// BeginTurn records the user's prompt and opens a session bound to the
// active conversation, in one transition. It fails without touching state
// when a session is already live.
func (s *Store) BeginTurn(prompt string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return Session{}, ErrGenerationActive
	}

	now := s.now()
	s.addUserMessageLocked(prompt, now)
	sess := s.beginLocked(now)
	s.notifyLocked()
	return sess, nil
}

// MarkCancelled flags the live session as stopped by the user. The reason
// becomes the status label; it is never recorded as an error.
func (s *Store) MarkCancelled(sessionID, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.ID != sessionID || s.session.Cancelled {
		return false
	}
	if strings.TrimSpace(reason) == "" {
		reason = StatusStopped
	}

	sess := s.session.clone()
	sess.Cancelled = true
	sess.Status = reason
	s.session = &sess
	s.status = reason
	s.notifyLocked()
	return true
}

// Apply feeds one event to the live session. Events addressed to any other
// session are ignored, so a late goroutine can never touch a newer session.
//
// A finalized message lands in the local history only while the user is
// still viewing the session's conversation; otherwise the backend copy is
// the only one.
func (s *Store) Apply(sessionID string, ev stream.Event) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.ID != sessionID {
		return Outcome{Ignored: true}
	}

	bound := s.session.ConversationID
	next, out := Reduce(*s.session, ev, s.now())
	if out.Ignored {
		return out
	}

	// A view the user left, even for another empty one, is never followed.
	sameView := s.view == s.sessionView
	if out.ConversationID != "" && sameView && s.activeID == bound {
		s.activeID = out.ConversationID
	}

	if out.Finalized != nil {
		if s.activeID == next.ConversationID && (next.ConversationID != "" || sameView) {
			s.messages = append(s.messages, *out.Finalized)
		} else {
			s.logger.Debug().
				Str("session", sessionID).
				Str("conversation", next.ConversationID).
				Str("active", s.activeID).
				Msg("finalized message belongs to another conversation, not appended")
		}
	}

	s.status = next.Status
	s.lastError = next.LastError
	if out.Done {
		s.session = nil
	} else {
		s.session = &next
	}

	s.notifyLocked()
	return out
}

// QueuePrompt stages text for the input to pick up, optionally sending it
// without further user action.
func (s *Store) QueuePrompt(prompt string, autoSend bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = prompt
	s.queuedAuto = autoSend
	s.notifyLocked()
}

// ConsumeQueuedPrompt returns and clears the staged prompt.
func (s *Store) ConsumeQueuedPrompt() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt, auto := s.queued, s.queuedAuto
	s.queued, s.queuedAuto = "", false
	if prompt != "" {
		s.notifyLocked()
	}
	return prompt, auto
}

// RetryLastAssistant drops the most recent assistant message and queues
// the user prompt that preceded it for automatic resend. The prompt itself
// stays in history. It reports false when there is nothing to retry or a
// session is live.
func (s *Store) RetryLastAssistant() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return false
	}

	last := -1
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleAssistant {
			last = i
			break
		}
	}
	if last < 0 {
		return false
	}

	prompt := ""
	for i := last - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleUser {
			prompt = s.messages[i].Content
			break
		}
	}
	if prompt == "" {
		return false
	}

	msgs := make([]Message, 0, len(s.messages)-1)
	msgs = append(msgs, s.messages[:last]...)
	msgs = append(msgs, s.messages[last+1:]...)
	s.messages = msgs
	s.queued = prompt
	s.queuedAuto = true
	s.lastError = ""
	s.notifyLocked()
	return true
}

// ClearMessages resets the view to an empty, not yet created conversation.
// A live session is left running; it stays bound to its own conversation.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetViewLocked(StatusCleared)
}

// NewConversation switches to an empty view. The backend creates the
// conversation when the first message is sent.
func (s *Store) NewConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetViewLocked(StatusNewConversation)
}

func (s *Store) resetViewLocked(status string) {
	s.view++
	s.messages = nil
	s.activeID = ""
	s.status = status
	s.lastError = ""
	s.queued, s.queuedAuto = "", false
	s.notifyLocked()
}

// LoadConversations refreshes the conversation list. On failure the
// previous list is kept and the error is returned for logging.
func (s *Store) LoadConversations(ctx context.Context, query string) error {
	items, err := s.backend.ListConversations(ctx, strings.TrimSpace(query))
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = items
	s.notifyLocked()
	return nil
}

// LoadConversation makes id the active conversation with its history.
func (s *Store) LoadConversation(ctx context.Context, id string) error {
	conv, err := s.backend.GetConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.showConversationLocked(conv, StatusHistoryLoaded)
	return nil
}

// CreateConversation creates a conversation, makes it active and refreshes
// the list. A list refresh failure is only logged.
func (s *Store) CreateConversation(ctx context.Context, title string) error {
	if strings.TrimSpace(title) == "" {
		title = DefaultConversationTitle
	}

	conv, err := s.backend.CreateConversation(ctx, title)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	s.mu.Lock()
	s.showConversationLocked(conv, StatusNewConversation)
	s.mu.Unlock()

	if err := s.LoadConversations(ctx, ""); err != nil {
		s.logger.Warn().Err(err).Msg("conversation list refresh failed")
	}
	return nil
}

// DeleteConversation deletes a conversation. Deleting the active one
// resets the view.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	if err := s.backend.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.conversations[:0:0]
	for _, c := range s.conversations {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.conversations = kept

	if s.activeID == id {
		s.view++
		s.activeID = ""
		s.messages = nil
	}
	s.notifyLocked()
	return nil
}

func (s *Store) showConversationLocked(conv *Conversation, status string) {
	s.view++
	s.activeID = conv.ID
	s.messages = cloneMessages(conv.Messages)
	s.status = status
	s.lastError = ""
	s.queued, s.queuedAuto = "", false
	s.notifyLocked()
}
