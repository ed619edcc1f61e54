// Package chat holds the conversation domain: messages and trace entries,
// the generation session reducer, and the Store that the UI and the
// generation controller share.
package chat

import (
	"strings"
	"time"

	"github.com/grokteam/grokteam/internal/constants"
	"github.com/grokteam/grokteam/internal/stream"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TraceKind classifies a trace entry.
type TraceKind string

const (
	TraceThought      TraceKind = "thought"
	TraceToolUse      TraceKind = "tool_use"
	TraceChatroomSend TraceKind = "chatroom_send"
	TraceWait         TraceKind = "wait"
	TraceStatus       TraceKind = "status"
	TraceGuardPrompt  TraceKind = "guard_prompt"
)

// TraceEntry is one step of an agent's visible reasoning.
type TraceEntry struct {
	Kind       TraceKind `json:"type"`
	Agent      string    `json:"agent,omitempty"`
	Content    string    `json:"content,omitempty"`
	Tool       string    `json:"tool,omitempty"`
	Query      string    `json:"query,omitempty"`
	To         string    `json:"to,omitempty"`
	NumResults *int      `json:"num_results,omitempty"`
	Scope      string    `json:"scope,omitempty"`
	Limit      *int      `json:"limit,omitempty"`
	// Intermediate is partial reasoning attached to a thought.
	Intermediate string `json:"intermediate,omitempty"`
}

// NewTraceEntry normalizes a trace event.
func NewTraceEntry(ev stream.Event) TraceEntry {
	return TraceEntry{
		Kind:       TraceKind(ev.Type),
		Agent:      ev.Agent,
		Content:    ev.ContentOr(""),
		Tool:       ev.Tool,
		Query:      ev.Query,
		To:         ev.To,
		NumResults: ev.NumResults,
		Scope:      ev.Scope,
		Limit:      ev.Limit,

		Intermediate: ev.Intermediate,
	}
}

// IsBroadcast reports whether a chatroom_send targets every agent.
func (e TraceEntry) IsBroadcast() bool {
	return strings.EqualFold(strings.TrimSpace(e.To), constants.BroadcastRecipient)
}

// Recipients splits To into individual agent names. A broadcast yields nil.
func (e TraceEntry) Recipients() []string {
	if e.IsBroadcast() {
		return nil
	}
	fields := strings.FieldsFunc(e.To, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var names []string
	for _, f := range fields {
		if name := strings.TrimSpace(f); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Message is one entry of a conversation's history.
type Message struct {
	Role            Role         `json:"role"`
	Content         string       `json:"content"`
	Trace           []TraceEntry `json:"thoughts,omitempty"`
	DurationSeconds float64      `json:"duration,omitempty"`
	Error           string       `json:"error,omitempty"`
	CreatedAt       *time.Time   `json:"created_at,omitempty"`
}

func (m Message) clone() Message {
	m.Trace = cloneTrace(m.Trace)
	if m.CreatedAt != nil {
		t := *m.CreatedAt
		m.CreatedAt = &t
	}
	return m
}

// ConversationSummary is the list view of a conversation.
type ConversationSummary struct {
	ID           string    `json:"id" header:"ID"`
	Title        string    `json:"title" header:"TITLE"`
	LastMessage  string    `json:"last_message" header:"LAST MESSAGE"`
	UpdatedAt    time.Time `json:"updated_at" header:"UPDATED"`
	MessageCount int       `json:"message_count" header:"MESSAGES"`
}

// Conversation is a conversation with its full history.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

func cloneTrace(trace []TraceEntry) []TraceEntry {
	if trace == nil {
		return nil
	}
	out := make([]TraceEntry, len(trace))
	copy(out, trace)
	return out
}

func cloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.clone()
	}
	return out
}
