package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"

	domain "github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/cli/chat/command"
	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/health"
)

const plainPrompt = "you> "

// generator is the part of the generation controller the REPL drives.
type generator interface {
	Start(ctx context.Context, prompt string) (<-chan struct{}, error)
	Cancel(reason string)
}

// plainREPL is the line-based chat. Answers stream to out as they arrive.
type plainREPL struct {
	store   *domain.Store
	ctrl    generator
	runner  *command.Runner
	monitor *health.Monitor
	printer *helpers.EventPrinter
	out     io.Writer
}

// Run reads lines until EOF, /exit or ctx ends.
func (r *plainREPL) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          plainPrompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r.printf("Grok Team chat. Type /help for commands, /exit to quit.\n")
	if r.monitor != nil && r.monitor.State() == health.Offline {
		r.printf("Warning: backend is offline: %v\n", r.monitor.LastError())
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				r.printf("\n")
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		quit, edit := r.handleLine(ctx, line)
		if quit {
			return nil
		}
		if edit != "" {
			_, _ = rl.WriteStdin([]byte(edit))
		}
	}
}

// handleLine runs one input line. It reports whether to quit and any
// prompt to place back into the input.
func (r *plainREPL) handleLine(ctx context.Context, line string) (quit bool, edit string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, ""
	}

	if !command.IsCommand(line) {
		r.ask(ctx, line)
		return false, ""
	}

	res, err := r.runner.Run(ctx, line)
	if err != nil {
		r.printf("Error: %v\n", err)
		return false, ""
	}
	if res.Output != "" {
		r.printf("%s\n", res.Output)
	}

	switch {
	case res.Quit:
		return true, ""
	case res.ToggleTrace:
		show := !r.printer.ShowTrace()
		r.printer.SetTrace(show, "")
		r.printf("Trace %s\n", onOff(show))
	case res.TraceAgent != "":
		r.printer.SetTrace(true, res.TraceAgent)
		r.printf("Trace: %s\n", res.TraceAgent)
	case res.Stop:
		r.printf("Nothing is running\n")
	case res.Send != "":
		r.ask(ctx, res.Send)
	case res.Edit != "":
		return false, res.Edit
	}
	return false, ""
}

// ask streams one answer. Ctrl+C stops the answer instead of the REPL.
func (r *plainREPL) ask(ctx context.Context, prompt string) {
	done, err := r.ctrl.Start(ctx, prompt)
	if err != nil {
		r.printf("Error: %v\n", err)
		return
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	for waiting := true; waiting; {
		select {
		case <-done:
			waiting = false
		case <-sigs:
			r.ctrl.Cancel(domain.StatusStopped)
		}
	}
	r.printer.Finish()
	r.report()
}

// report prints how the last generation ended when it produced no answer
// text, and the answer duration when it did.
func (r *plainREPL) report() {
	snap := r.store.Snapshot()
	switch snap.Status {
	case domain.StatusStopped, domain.StatusNoData:
		r.printf("(%s)\n", snap.Status)
		return
	}

	if n := len(snap.Messages); n > 0 {
		last := snap.Messages[n-1]
		if last.Role == domain.RoleAssistant && last.DurationSeconds > 0 {
			r.printf("(%s)\n", helpers.FormatSeconds(last.DurationSeconds))
		}
	}
}

func (r *plainREPL) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
