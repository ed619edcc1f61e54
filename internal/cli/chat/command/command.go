// Package command parses and runs the slash commands shared by the
// full-screen chat and the plain REPL.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/cli/helpers"
)

// Prefix starts every command.
const Prefix = "/"

// ErrUnknown is returned for an unrecognized command.
var ErrUnknown = errors.New("unknown command")

// Help lists the commands.
const Help = `Commands:
  /help                 Show this help
  /new [title]          Start a new conversation
  /list [query]         List conversations, optionally filtered
  /open <n|id>          Open a conversation from the last list
  /delete <n|id>        Delete a conversation
  /temp [agent value]   Show or set an agent's temperature (0-2)
  /retry                Regenerate the last answer
  /edit                 Put the last prompt back into the input
  /stop                 Stop the running generation
  /trace [agent|all]    Toggle the reasoning trace or filter it by agent
  /clear                Clear the screen and start over
  /exit                 Quit`

// Result tells the caller what to do after a command ran.
type Result struct {
	// Output is text to show the user.
	Output string
	// Send is a prompt to submit right away.
	Send string
	// Edit is a prompt to place in the input for editing.
	Edit string
	// ToggleTrace flips trace visibility.
	ToggleTrace bool
	// TraceAgent restricts the trace to one agent; "all" clears the filter.
	TraceAgent string
	// Stop asks the caller to cancel the running generation.
	Stop bool
	// Quit ends the session.
	Quit bool
}

// Runner executes commands against a conversation store.
type Runner struct {
	store   *chat.Store
	timeout time.Duration
	now     func() time.Time
}

// NewRunner creates a runner. timeout bounds each backend call.
func NewRunner(store *chat.Store, timeout time.Duration) *Runner {
	return &Runner{store: store, timeout: timeout, now: time.Now}
}

// IsCommand reports whether line is a slash command.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), Prefix)
}

// Run executes one command line.
func (r *Runner) Run(ctx context.Context, line string) (Result, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], Prefix) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknown, line)
	}
	name, args := strings.ToLower(strings.TrimPrefix(fields[0], Prefix)), fields[1:]

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	switch name {
	case "help", "?":
		return Result{Output: Help}, nil

	case "new":
		return r.newConversation(ctx, strings.Join(args, " "))

	case "list", "ls":
		return r.list(ctx, strings.Join(args, " "))

	case "open":
		if len(args) != 1 {
			return Result{}, errors.New("usage: /open <n|id>")
		}
		id, err := r.resolve(args[0])
		if err != nil {
			return Result{}, err
		}
		if err := r.store.LoadConversation(ctx, id); err != nil {
			return Result{}, err
		}
		snap := r.store.Snapshot()
		return Result{Output: fmt.Sprintf("Opened %s (%d messages)", id, len(snap.Messages))}, nil

	case "delete", "rm":
		if len(args) != 1 {
			return Result{}, errors.New("usage: /delete <n|id>")
		}
		id, err := r.resolve(args[0])
		if err != nil {
			return Result{}, err
		}
		if err := r.store.DeleteConversation(ctx, id); err != nil {
			return Result{}, err
		}
		return Result{Output: "Deleted " + id}, nil

	case "temp", "temperature":
		return r.temperature(args)

	case "retry":
		if !r.store.RetryLastAssistant() {
			return Result{Output: "Nothing to retry"}, nil
		}
		prompt, _ := r.store.ConsumeQueuedPrompt()
		return Result{Send: prompt}, nil

	case "edit":
		prompt := lastUserPrompt(r.store.Snapshot().Messages)
		if prompt == "" {
			return Result{Output: "No prompt to edit"}, nil
		}
		return Result{Edit: prompt}, nil

	case "stop":
		return Result{Stop: true}, nil

	case "trace":
		if len(args) == 0 {
			return Result{ToggleTrace: true}, nil
		}
		return Result{TraceAgent: args[0]}, nil

	case "clear":
		r.store.ClearMessages()
		return Result{}, nil

	case "exit", "quit", "q":
		return Result{Quit: true}, nil

	default:
		return Result{}, fmt.Errorf("%w: /%s (try /help)", ErrUnknown, name)
	}
}

func (r *Runner) newConversation(ctx context.Context, title string) (Result, error) {
	if strings.TrimSpace(title) == "" {
		r.store.NewConversation()
		return Result{Output: "New conversation"}, nil
	}
	if err := r.store.CreateConversation(ctx, title); err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("Created %q", title)}, nil
}

func (r *Runner) list(ctx context.Context, query string) (Result, error) {
	if err := r.store.LoadConversations(ctx, query); err != nil {
		return Result{}, err
	}
	return Result{Output: FormatConversations(r.store.Snapshot(), r.now())}, nil
}

func (r *Runner) temperature(args []string) (Result, error) {
	switch len(args) {
	case 0:
		return Result{Output: FormatTemperatures(r.store.Temperatures())}, nil
	case 2:
		t, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return Result{}, fmt.Errorf("invalid temperature %q", args[1])
		}
		agent := r.matchAgent(args[0])
		if err := r.store.SetAgentTemperature(agent, t); err != nil {
			return Result{}, err
		}
		return Result{Output: fmt.Sprintf("%s temperature set to %.2f", agent, t)}, nil
	default:
		return Result{}, errors.New("usage: /temp [agent value]")
	}
}

// matchAgent maps a case-insensitive name onto a known agent.
func (r *Runner) matchAgent(name string) string {
	for agent := range r.store.Temperatures() {
		if strings.EqualFold(agent, name) {
			return agent
		}
	}
	return name
}

// resolve turns a 1-based index into the last listing, or an ID prefix,
// into a conversation ID.
func (r *Runner) resolve(ref string) (string, error) {
	convs := r.store.Snapshot().Conversations

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(convs) {
			return "", fmt.Errorf("no conversation #%d in the last list", n)
		}
		return convs[n-1].ID, nil
	}

	var match string
	for _, c := range convs {
		if c.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("conversation %q is ambiguous", ref)
			}
			match = c.ID
		}
	}
	if match != "" {
		return match, nil
	}
	return ref, nil
}

func lastUserPrompt(msgs []chat.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// FormatConversations renders the conversation list with 1-based indexes.
func FormatConversations(snap chat.Snapshot, now time.Time) string {
	if len(snap.Conversations) == 0 {
		return "No conversations"
	}

	var b strings.Builder
	for i, c := range snap.Conversations {
		marker := " "
		if c.ID == snap.ActiveConversationID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s%2d. %s  %s  (%d messages, %s)", marker, i+1, shortID(c.ID), c.Title,
			c.MessageCount, helpers.FormatAge(c.UpdatedAt, now))
		if i < len(snap.Conversations)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// FormatTemperatures renders temperatures sorted by agent.
func FormatTemperatures(temps map[string]float64) string {
	agents := make([]string, 0, len(temps))
	for agent := range temps {
		agents = append(agents, agent)
	}
	sort.Strings(agents)

	parts := make([]string, len(agents))
	for i, agent := range agents {
		parts[i] = fmt.Sprintf("%s %.2f", agent, temps[agent])
	}
	return strings.Join(parts, "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
