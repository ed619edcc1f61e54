package cli

import (
	"github.com/spf13/cobra"

	"github.com/grokteam/grokteam/internal/cli/ask"
	"github.com/grokteam/grokteam/internal/cli/chat"
	"github.com/grokteam/grokteam/internal/cli/config"
	"github.com/grokteam/grokteam/internal/cli/conversations"
	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/cli/serve"
	"github.com/grokteam/grokteam/pkg/version"
)

// NewRootCmd builds the grokteam command tree.
func NewRootCmd() *cobra.Command {
	globals := &helpers.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "grokteam",
		Short: "Grok Team - chat with a team of cooperating AI agents",
		Long: `Chat with the Grok Team from the terminal.

A lead agent splits each prompt across its teammates, who think, search
and message each other before the lead streams back one answer. grokteam
shows that reasoning trace live next to the answer.

Key capabilities:
- Interactive chat: full-screen UI, or a plain REPL for pipes and dumb terminals
- One-shot questions: grokteam ask, with JSON output for scripts
- Conversations: list, search, resume and delete saved conversations
- Per-agent temperatures: tune each agent from the chat or the config
- Development backend: grokteam serve answers with a scripted team`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	globals.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(chat.NewChatCmd(globals))
	rootCmd.AddCommand(ask.NewAskCmd(globals))
	rootCmd.AddCommand(conversations.NewConversationsCmd(globals))
	rootCmd.AddCommand(newHealthCmd(globals))
	rootCmd.AddCommand(config.NewConfigCmd(globals))
	rootCmd.AddCommand(serve.NewServeCmd(globals))
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("grokteam version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
