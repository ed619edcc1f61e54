package helpers

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/stream"
)

// EventPrinter writes a generation to line-oriented output as it streams:
// answer tokens to one writer, trace lines and errors to another. Its Hook
// plugs into generation.WithEventHook.
type EventPrinter struct {
	mu        sync.Mutex
	out       io.Writer
	trace     io.Writer
	showTrace bool
	agent     string
	wroteText bool
	endsInNL  bool
}

// NewEventPrinter creates a printer. A nil out discards answer tokens, for
// callers that render the final answer themselves.
func NewEventPrinter(out, trace io.Writer, showTrace bool) *EventPrinter {
	if out == nil {
		out = io.Discard
	}
	if trace == nil {
		trace = io.Discard
	}
	return &EventPrinter{out: out, trace: trace, showTrace: showTrace}
}

// SetTrace changes trace visibility and the agent filter. An empty agent
// or "all" shows every agent.
func (p *EventPrinter) SetTrace(show bool, agent string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.showTrace = show
	if strings.EqualFold(agent, "all") {
		agent = ""
	}
	p.agent = agent
}

// ShowTrace reports whether trace lines are printed.
func (p *EventPrinter) ShowTrace() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.showTrace
}

// Hook handles one applied event. Events the session ignored are skipped.
func (p *EventPrinter) Hook(ev stream.Event, out chat.Outcome) {
	if out.Ignored {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case ev.Type == stream.TypeToken:
		text := ev.ContentOr("")
		if text == "" {
			return
		}
		_, _ = io.WriteString(p.out, text)
		p.wroteText = true
		p.endsInNL = strings.HasSuffix(text, "\n")

	case ev.Type.IsTrace():
		if !p.showTrace {
			return
		}
		entry := chat.NewTraceEntry(ev)
		if p.agent != "" && !strings.EqualFold(entry.Agent, p.agent) {
			return
		}
		_, _ = fmt.Fprintln(p.trace, "· "+TraceLine(entry))

	case ev.Type == stream.TypeError:
		_, _ = fmt.Fprintln(p.trace, "✗ "+ev.ContentOr(chat.DefaultStreamError))
	}
}

// Finish terminates the answer line and resets the printer for the next
// generation.
func (p *EventPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wroteText && !p.endsInNL {
		_, _ = io.WriteString(p.out, "\n")
	}
	p.wroteText, p.endsInNL = false, false
}
