package chat

import (
	"strings"
	"time"

	"github.com/grokteam/grokteam/internal/stream"
)

// Status labels shown to the user.
const (
	StatusReady            = "Ready"
	StatusGenerating       = "Generating response…"
	StatusProcessing       = "Processing…"
	StatusGenerationError  = "Generation error"
	StatusResponseReceived = "Response received"
	StatusNoData           = "No data from model"
	StatusStopped          = "Generation stopped"
	StatusCleared          = "Conversation cleared"
	StatusHistoryLoaded    = "History loaded"
	StatusNewConversation  = "New conversation"

	// DefaultStreamError stands in for an error event without content.
	DefaultStreamError = "Unknown stream error"
)

// Session is the transient state of one in-flight generation. Values are
// treated as immutable: Reduce returns a new Session and never writes
// through the input's slices.
type Session struct {
	ID        string
	Active    bool
	Trace     []TraceEntry
	Text      string
	Status    string
	StartedAt time.Time
	LastError string

	// ConversationID is the conversation the session is bound to. It is
	// captured at start and only changes when the backend assigns an ID.
	ConversationID string

	// Cancelled sessions ignore everything but the terminal event, and keep
	// the cancel reason as their status.
	Cancelled bool
	Finished  bool
}

// NewSession starts a live session bound to conversationID.
func NewSession(id, conversationID string, now time.Time) Session {
	return Session{
		ID:             id,
		Active:         true,
		Status:         StatusGenerating,
		StartedAt:      now,
		ConversationID: conversationID,
	}
}

func (s Session) clone() Session {
	s.Trace = cloneTrace(s.Trace)
	return s
}

// Outcome reports the side effects of applying one event.
type Outcome struct {
	// Finalized is the assistant message produced by a terminal event, if
	// the session produced text or an error.
	Finalized *Message
	// Done is set once the session has finished.
	Done bool
	// RefreshConversations asks the caller to reload the conversation list.
	RefreshConversations bool
	// ConversationID is set when the backend assigned the session's
	// conversation.
	ConversationID string
	// Ignored is set when the event had no effect on the session.
	Ignored bool
}

// Reduce applies one stream event to a session. Events must be applied in
// arrival order; anything arriving after the terminal event is ignored.
func Reduce(s Session, ev stream.Event, now time.Time) (Session, Outcome) {
	if s.Finished || !ev.Type.Known() {
		return s, Outcome{Ignored: true}
	}
	if s.Cancelled && ev.Type != stream.TypeDone {
		return s, Outcome{Ignored: true}
	}

	var out Outcome
	switch {
	case ev.Type.IsTrace():
		// The full slice expression forces a copy so earlier Session values
		// never observe the append.
		s.Trace = append(s.Trace[:len(s.Trace):len(s.Trace)], NewTraceEntry(ev))

	case ev.Type == stream.TypeStatus:
		s.Status = ev.ContentOr(StatusProcessing)

	case ev.Type == stream.TypeToken:
		s.Text += ev.ContentOr("")

	case ev.Type == stream.TypeError:
		s.LastError = ev.ContentOr(DefaultStreamError)
		s.Status = StatusGenerationError

	case ev.Type == stream.TypeConversation:
		if ev.ConversationID == "" {
			return s, Outcome{Ignored: true}
		}
		s.ConversationID = ev.ConversationID
		out.ConversationID = ev.ConversationID

	case ev.Type == stream.TypeConversationTitle:
		out.RefreshConversations = true

	case ev.Type == stream.TypeDone:
		return finalize(s, now)
	}

	return s, out
}

// finalize moves the session's text and trace into an assistant message.
// A session with neither text nor error produces no message.
func finalize(s Session, now time.Time) (Session, Outcome) {
	out := Outcome{Done: true}

	var status string
	switch {
	case strings.TrimSpace(s.Text) != "":
		created := now
		out.Finalized = &Message{
			Role:            RoleAssistant,
			Content:         s.Text,
			Trace:           cloneTrace(s.Trace),
			DurationSeconds: elapsedSeconds(s.StartedAt, now),
			CreatedAt:       &created,
		}
		out.RefreshConversations = true
		status = StatusResponseReceived

	case s.LastError != "":
		created := now
		out.Finalized = &Message{
			Role:      RoleAssistant,
			Trace:     cloneTrace(s.Trace),
			Error:     s.LastError,
			CreatedAt: &created,
		}
		status = StatusGenerationError

	default:
		status = StatusNoData
	}

	if s.Cancelled {
		status = s.Status
	}

	s.Active = false
	s.Finished = true
	s.Trace = nil
	s.Text = ""
	s.Status = status
	return s, out
}

func elapsedSeconds(start, now time.Time) float64 {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	return now.Sub(start).Seconds()
}
