// Package serve provides the 'grokteam serve' command, which runs the
// development backend.
package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/config"
	"github.com/grokteam/grokteam/internal/devserver"
)

// Options override the server section of the config.
type Options struct {
	Listen     string
	Database   string
	TokenDelay time.Duration
	SSE        bool
}

// NewServeCmd creates the serve command.
func NewServeCmd(globals *helpers.GlobalOptions) *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development backend",
		Long: `Run a local backend that speaks the chat API.

It answers every prompt with a scripted team exchange (thoughts, tool use,
chatroom messages and a streamed answer) and keeps conversations in SQLite.
Use it to try the chat without a model server, or to test clients.

Examples:
  grokteam serve
  grokteam serve --listen 127.0.0.1:9000 --database ./dev.db
  grokteam serve --sse --token-delay 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := globals.Open()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			srvCfg, database := ServerConfig(rt.Config.Config, opts, cmd.Flags().Changed)
			store, err := devserver.OpenStore(database, rt.Logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					rt.Logger.Warn().Err(err).Msg("Failed to close store")
				}
			}()

			cmd.Printf("Serving the chat API on http://%s/api (Ctrl+C to stop)\n", srvCfg.Listen)
			if err := devserver.New(srvCfg, store, rt.Logger).Run(ctx); err != nil {
				return fmt.Errorf("development backend failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "Address to listen on (default from config)")
	cmd.Flags().StringVar(&opts.Database, "database", "", "SQLite database file, or :memory:")
	cmd.Flags().DurationVar(&opts.TokenDelay, "token-delay", 0, "Delay between answer tokens")
	cmd.Flags().BoolVar(&opts.SSE, "sse", false, "Frame events as server-sent events")

	return cmd
}

// ServerConfig merges the flags the user set over the config file. It
// returns the server settings and the database to open.
func ServerConfig(cfg *config.Config, opts Options, changed func(string) bool) (devserver.Config, string) {
	out := devserver.Config{
		Listen:     cfg.Server.Listen,
		TokenDelay: cfg.Server.TokenDelay,
		SSE:        cfg.Server.SSE,
		Agents:     cfg.Agents,
	}
	database := cfg.Server.Database
	if changed("listen") {
		out.Listen = opts.Listen
	}
	if changed("database") {
		database = opts.Database
	}
	if changed("token-delay") {
		out.TokenDelay = opts.TokenDelay
	}
	if changed("sse") {
		out.SSE = opts.SSE
	}
	return out, database
}
