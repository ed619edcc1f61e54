package helpers

import (
	"fmt"
	"strings"

	"github.com/grokteam/grokteam/internal/chat"
)

// systemAgent labels trace entries that carry no agent, such as status
// updates.
const systemAgent = "team"

// DescribeTraceEntry renders one trace entry without its agent label.
func DescribeTraceEntry(e chat.TraceEntry) string {
	switch e.Kind {
	case chat.TraceToolUse:
		var b strings.Builder
		fmt.Fprintf(&b, "uses %s", e.Tool)
		if e.Query != "" {
			fmt.Fprintf(&b, " %q", e.Query)
		}
		var opts []string
		if e.NumResults != nil {
			opts = append(opts, fmt.Sprintf("%d results", *e.NumResults))
		}
		if e.Scope != "" {
			opts = append(opts, "scope "+e.Scope)
		}
		if e.Limit != nil {
			opts = append(opts, fmt.Sprintf("limit %d", *e.Limit))
		}
		if len(opts) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(opts, ", "))
		}
		return b.String()

	case chat.TraceChatroomSend:
		to := e.To
		if e.IsBroadcast() {
			to = "all"
		} else if names := e.Recipients(); len(names) > 0 {
			to = strings.Join(names, ", ")
		}
		return fmt.Sprintf("→ %s: %s", to, e.Content)

	case chat.TraceWait:
		if e.Content == "" {
			return "waiting…"
		}
		return "waiting: " + e.Content

	case chat.TraceGuardPrompt:
		return "guard: " + e.Content

	default:
		return e.Content
	}
}

// TraceLine renders one trace entry with its agent label, for flat
// line-oriented output.
func TraceLine(e chat.TraceEntry) string {
	return fmt.Sprintf("[%s] %s", agentOf(e), DescribeTraceEntry(e))
}

// RenderTraceTree renders a trace as a tree, grouping consecutive entries
// by agent.
func RenderTraceTree(trace []chat.TraceEntry) string {
	if len(trace) == 0 {
		return "No trace recorded.\n"
	}

	var buf strings.Builder
	for start := 0; start < len(trace); {
		agent := agentOf(trace[start])
		end := start + 1
		for end < len(trace) && agentOf(trace[end]) == agent {
			end++
		}

		buf.WriteString(agent + "\n")
		for i := start; i < end; i++ {
			connector := "├─"
			if i == end-1 {
				connector = "└─"
			}
			fmt.Fprintf(&buf, "%s %s\n", connector, DescribeTraceEntry(trace[i]))
		}
		start = end
	}
	return buf.String()
}

func agentOf(e chat.TraceEntry) string {
	if strings.TrimSpace(e.Agent) == "" {
		return systemAgent
	}
	return e.Agent
}
