// Package ask provides the one-shot 'grokteam ask' command.
package ask

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/generation"
)

// ErrNoAnswer is returned when the team finished without producing text.
var ErrNoAnswer = errors.New("the team returned no answer")

// Options control one ask invocation.
type Options struct {
	JSON         bool
	Trace        bool
	Raw          bool
	Conversation string
	// Render formats the final answer as markdown instead of streaming
	// tokens. It is set when stdout is a terminal.
	Render bool
}

// Result is the --json output.
type Result struct {
	ConversationID  string            `json:"conversation_id,omitempty"`
	Prompt          string            `json:"prompt"`
	Answer          string            `json:"answer"`
	DurationSeconds float64           `json:"duration,omitempty"`
	Status          string            `json:"status"`
	Error           string            `json:"error,omitempty"`
	Trace           []chat.TraceEntry `json:"trace,omitempty"`
}

// NewAskCmd creates the ask command.
func NewAskCmd(globals *helpers.GlobalOptions) *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the agent team a single question",
		Long: `Send one prompt to the Grok Team and stream the answer.

On a terminal the final answer is rendered as markdown; when piped, answer
tokens are written as they arrive. The reasoning trace goes to stderr with
--trace so stdout stays clean.

Examples:
  grokteam ask "Summarize the latest Go release"
  grokteam ask --trace "Compare two sorting algorithms"
  grokteam ask --conversation 3f2a9c1e "And what about memory use?"
  grokteam ask --json "What is NDJSON?" | jq .answer`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rt, err := globals.Open()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			opts.Render = !opts.Raw && term.IsTerminal(int(os.Stdout.Fd()))
			return Run(ctx, rt, strings.Join(args, " "), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the answer and conversation ID as JSON")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "Stream raw answer text even on a terminal")
	cmd.Flags().StringVarP(&opts.Conversation, "conversation", "c", "", "Continue the conversation with this ID")
	helpers.AddTraceFlag(cmd, &opts.Trace)

	return cmd
}

// Run asks one question and writes the answer to out. Trace lines and
// stream errors go to errOut.
func Run(ctx context.Context, rt *helpers.Runtime, question string, opts Options, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store := rt.NewStore()
	if opts.Conversation != "" {
		if err := store.LoadConversation(ctx, opts.Conversation); err != nil {
			return fmt.Errorf("failed to load conversation %s: %w", opts.Conversation, err)
		}
	}

	var printer *helpers.EventPrinter
	switch {
	case opts.JSON:
		printer = helpers.NewEventPrinter(nil, nil, false)
	case opts.Render:
		printer = helpers.NewEventPrinter(nil, errOut, opts.Trace)
	default:
		printer = helpers.NewEventPrinter(out, errOut, opts.Trace)
	}

	ctrl := generation.NewController(store, rt.Client, rt.Logger, generation.WithEventHook(printer.Hook))
	done, err := ctrl.Start(ctx, question)
	if err != nil {
		return err
	}
	<-done
	printer.Finish()

	snap := store.Snapshot()
	res := Result{
		ConversationID: snap.ActiveConversationID,
		Prompt:         strings.TrimSpace(question),
		Status:         snap.Status,
		Error:          snap.LastError,
	}
	if n := len(snap.Messages); n > 0 && snap.Messages[n-1].Role == chat.RoleAssistant {
		last := snap.Messages[n-1]
		res.Answer = last.Content
		res.DurationSeconds = last.DurationSeconds
		res.Error = last.Error
		if opts.Trace {
			res.Trace = last.Trace
		}
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else if opts.Render && res.Answer != "" {
		md, err := helpers.NewMarkdown(rt.Config.UI.NoColor, rt.Config.UI.WordWrap)
		if err != nil {
			rt.Logger.Debug().Err(err).Msg("Markdown renderer unavailable")
		}
		_, _ = fmt.Fprintln(out, md.Render(res.Answer))
	}

	switch {
	case res.Error != "":
		return fmt.Errorf("generation failed: %s", res.Error)
	case snap.Status == chat.StatusStopped:
		return context.Canceled
	case res.Answer == "":
		return ErrNoAnswer
	}

	if !opts.JSON && res.ConversationID != "" {
		rt.Logger.Debug().Str("conversation", res.ConversationID).Msg("Answer saved")
	}
	return nil
}
