package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/health"
)

// healthReport is the output of one health probe.
type healthReport struct {
	API       string    `json:"api" yaml:"api" header:"API"`
	State     string    `json:"state" yaml:"state" header:"STATE"`
	Latency   string    `json:"latency" yaml:"latency" header:"LATENCY"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty" header:"ERROR"`
	CheckedAt time.Time `json:"checked_at" yaml:"checked_at" header:"CHECKED"`
}

// newHealthCmd creates the health command.
func newHealthCmd(globals *helpers.GlobalOptions) *cobra.Command {
	var (
		format *helpers.FormatFlag
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the backend is reachable",
		Long: `Probe the backend health endpoint.

With --watch the backend is polled on the configured health interval and
every state change is printed until interrupted. The command exits non-zero
when a single probe finds the backend offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format.Value()
			if err != nil {
				return err
			}

			rt, err := globals.Open()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			monitor := health.NewMonitor(rt.Client, rt.Config.Health.Interval, rt.Logger)
			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				watchHealth(ctx, monitor, rt.Client.BaseURL(), cmd.OutOrStdout())
				return nil
			}

			report := probe(cmd.Context(), monitor, rt.Client.BaseURL())
			formatter, err := helpers.NewFormatter(f)
			if err != nil {
				return err
			}
			if err := formatter.Format(report, cmd.OutOrStdout()); err != nil {
				return err
			}
			if report.State != health.Online.String() {
				return fmt.Errorf("backend %s is offline", report.API)
			}
			return nil
		},
	}

	format = helpers.AddFormatFlag(cmd, helpers.FormatTable, helpers.FormatTable, helpers.FormatJSON, helpers.FormatYAML)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep polling and print state changes")

	return cmd
}

func probe(ctx context.Context, m *health.Monitor, api string) healthReport {
	start := time.Now()
	state := m.Check(ctx)
	report := healthReport{
		API:       api,
		State:     state.String(),
		Latency:   helpers.FormatDuration(time.Since(start)),
		CheckedAt: m.CheckedAt(),
	}
	if err := m.LastError(); err != nil {
		report.Error = err.Error()
	}
	return report
}

// watchHealth prints one line per state change until ctx ends.
func watchHealth(ctx context.Context, m *health.Monitor, api string, w io.Writer) {
	_, _ = fmt.Fprintf(w, "Watching %s (Ctrl+C to stop)\n", api)
	m.OnChange(func(s health.State) {
		line := fmt.Sprintf("%s  %s", time.Now().Format(time.TimeOnly), s)
		if err := m.LastError(); err != nil && s == health.Offline {
			line += ": " + err.Error()
		}
		_, _ = fmt.Fprintln(w, line)
	})
	m.Run(ctx)
}
