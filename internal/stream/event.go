// Package stream implements the wire side of the chat stream: the event
// schema, the NDJSON frame decoder and frame parsing.
package stream

// Type is the dispatch key of a stream event.
type Type string

const (
	TypeStatus            Type = "status"
	TypeThought           Type = "thought"
	TypeToolUse           Type = "tool_use"
	TypeChatroomSend      Type = "chatroom_send"
	TypeWait              Type = "wait"
	TypeGuardPrompt       Type = "guard_prompt"
	TypeToken             Type = "token"
	TypeError             Type = "error"
	TypeConversation      Type = "conversation"
	TypeConversationTitle Type = "conversation_title"
	TypeDone              Type = "done"
)

var knownTypes = map[Type]struct{}{
	TypeStatus:            {},
	TypeThought:           {},
	TypeToolUse:           {},
	TypeChatroomSend:      {},
	TypeWait:              {},
	TypeGuardPrompt:       {},
	TypeToken:             {},
	TypeError:             {},
	TypeConversation:      {},
	TypeConversationTitle: {},
	TypeDone:              {},
}

// Known reports whether t is part of the current schema. Unknown types are
// valid frames that consumers must skip.
func (t Type) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// IsTrace reports whether events of this type belong on the reasoning
// timeline rather than in the final answer.
func (t Type) IsTrace() bool {
	switch t {
	case TypeThought, TypeToolUse, TypeChatroomSend, TypeWait, TypeGuardPrompt:
		return true
	}
	return false
}

// Event is one frame of the chat stream.
type Event struct {
	Type Type `json:"type" jsonschema:"required,enum=status,enum=thought,enum=tool_use,enum=chatroom_send,enum=wait,enum=guard_prompt,enum=token,enum=error,enum=conversation,enum=conversation_title,enum=done"`

	// Content is nil when the frame omits it (or sends null), which lets
	// consumers apply per-type defaults.
	Content *string `json:"content,omitempty"`

	// Agent names the originating sub-agent; empty means the system.
	Agent          string `json:"agent,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`

	// tool_use
	Tool       string `json:"tool,omitempty"`
	Query      string `json:"query,omitempty"`
	NumResults *int   `json:"num_results,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Limit      *int   `json:"limit,omitempty"`

	// chatroom_send: a name, a comma or semicolon separated list, or "all".
	To string `json:"to,omitempty"`

	Intermediate string `json:"intermediate,omitempty"`
}

// ContentOr returns the event content, or def when the frame carried none.
func (e Event) ContentOr(def string) string {
	if e.Content == nil {
		return def
	}
	return *e.Content
}

// Text builds a string pointer for Event.Content.
func Text(s string) *string {
	return &s
}

// Synthetic events injected by the client when the transport ends without a
// terminal frame or fails outright.
func Done() Event {
	return Event{Type: TypeDone}
}

func Error(msg string) Event {
	return Event{Type: TypeError, Content: Text(msg)}
}
