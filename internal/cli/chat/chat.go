// Package chat implements the interactive 'grokteam chat' command: a
// full-screen UI on terminals, or a plain line REPL.
package chat

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	domain "github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/cli/chat/command"
	"github.com/grokteam/grokteam/internal/cli/chat/ui"
	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/generation"
	"github.com/grokteam/grokteam/internal/health"
)

// NewChatCmd creates the chat command.
func NewChatCmd(globals *helpers.GlobalOptions) *cobra.Command {
	var (
		plain        bool
		conversation string
		noTrace      bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent team interactively",
		Long: `Open an interactive chat with the Grok Team.

On a terminal this starts a full-screen UI with the agents' reasoning trace,
backend health and temperatures in the status bar. With --plain, or when
stdin/stdout are not terminals, it falls back to a line-based REPL.

Type /help inside the chat for the list of commands.

Examples:
  grokteam chat
  grokteam chat --conversation 3f2a9c1e
  grokteam chat --plain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := isTerminal(os.Stdin) && isTerminal(os.Stdout)
			return runChat(cmd.Context(), globals, chatOptions{
				plain:        plain || !interactive,
				conversation: conversation,
				noTrace:      noTrace,
			})
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Use the line-based REPL instead of the full-screen UI")
	cmd.Flags().StringVarP(&conversation, "conversation", "c", "", "Resume a conversation by ID")
	cmd.Flags().BoolVar(&noTrace, "no-trace", false, "Hide the reasoning trace")

	return cmd
}

type chatOptions struct {
	plain        bool
	conversation string
	noTrace      bool
}

func runChat(ctx context.Context, globals *helpers.GlobalOptions, opts chatOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var rtOpts []helpers.RuntimeOption
	if !opts.plain {
		rtOpts = append(rtOpts, helpers.WithLogFile())
	}
	rt, err := globals.Open(rtOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	cfg := rt.Config
	showTrace := cfg.UI.ShowTrace && !opts.noTrace

	store := rt.NewStore()
	runner := command.NewRunner(store, cfg.API.RequestTimeout)
	monitor := health.NewMonitor(rt.Client, cfg.Health.Interval, rt.Logger)
	go monitor.Run(ctx)

	bootstrap(ctx, rt, store, opts.conversation)

	if opts.plain {
		printer := helpers.NewEventPrinter(os.Stdout, os.Stdout, showTrace)
		ctrl := generation.NewController(store, rt.Client, rt.Logger, generation.WithEventHook(printer.Hook))
		defer stopGeneration(ctrl)

		repl := &plainREPL{
			store:   store,
			ctrl:    ctrl,
			runner:  runner,
			monitor: monitor,
			printer: printer,
			out:     os.Stdout,
		}
		return repl.Run(ctx, rt.Loader.HistoryPath())
	}

	ctrl := generation.NewController(store, rt.Client, rt.Logger)
	defer stopGeneration(ctrl)

	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()

	model, err := ui.NewModel(ctx, store, ctrl, runner, monitor, changes, ui.Options{
		ShowTrace: showTrace,
		NoColor:   cfg.UI.NoColor,
		WordWrap:  cfg.UI.WordWrap,
		APIURL:    rt.Client.BaseURL(),
	})
	if err != nil {
		return fmt.Errorf("failed to create UI model: %w", err)
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("interactive session failed: %w", err)
	}
	return nil
}

// bootstrap loads the conversation list and the conversation to resume.
// Failures are logged; the chat still opens.
func bootstrap(ctx context.Context, rt *helpers.Runtime, store *domain.Store, conversation string) {
	loadCtx, cancel := context.WithTimeout(ctx, rt.Config.API.RequestTimeout)
	defer cancel()

	if err := store.LoadConversations(loadCtx, ""); err != nil {
		rt.Logger.Warn().Err(err).Msg("Failed to load conversations")
	}
	if conversation != "" {
		if err := store.LoadConversation(loadCtx, conversation); err != nil {
			rt.Logger.Warn().Err(err).Str("conversation", conversation).Msg("Failed to resume conversation")
		}
	}
}

func stopGeneration(ctrl *generation.Controller) {
	ctrl.Cancel(domain.StatusStopped)
	ctrl.Wait()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
