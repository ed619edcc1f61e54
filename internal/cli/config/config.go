// Package config implements the 'grokteam config' command family.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/config"
	"github.com/grokteam/grokteam/internal/constants"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd(globals *helpers.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage grokteam configuration",
		Long: `Manage grokteam configuration.

Configuration priority (highest first):
  1. Command-line flags (--api, --log-level, --debug)
  2. Environment variables (GROKTEAM_API_URL, GROKTEAM_TEMPERATURES, ...)
  3. Config file (~/.grokteam/config.yaml, or --config)
  4. Built-in defaults

Environment Variables:
  GROKTEAM_CONFIG  Override the state directory (default: ~/.grokteam)`,
	}

	cmd.AddCommand(newViewCmd(globals))
	cmd.AddCommand(newInitCmd(globals))
	cmd.AddCommand(newSetTemperatureCmd(globals))
	cmd.AddCommand(newValidateCmd(globals))
	cmd.AddCommand(newPathCmd(globals))

	return cmd
}

// configFile returns the config file the command operates on.
func configFile(globals *helpers.GlobalOptions, loader *config.Loader) string {
	if globals.ConfigPath != "" {
		return globals.ConfigPath
	}
	return loader.ConfigPath()
}

// newViewCmd creates the 'config view' command.
func newViewCmd(globals *helpers.GlobalOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		Long: `Display the configuration after defaults, the config file, environment
variables and flags are merged.

Use --raw to output the merged config without annotations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := config.NewLoader().Resolve(globals.Overrides())
			if err != nil {
				return err
			}
			return runView(resolved, raw, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Output raw YAML without annotations")

	return cmd
}

func runView(resolved *config.Resolved, raw bool, w io.Writer) error {
	data, err := yaml.Marshal(resolved.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if !raw {
		fileState := "not present"
		if hasLayer(resolved, config.LayerFile) {
			fileState = "loaded"
		}
		_, _ = fmt.Fprintf(w, "# Config file: %s (%s)\n", resolved.Path, fileState)
		_, _ = fmt.Fprintf(w, "# Layers: %s\n", resolved.LayerNames())
		_, _ = fmt.Fprintln(w, "#")
	}

	_, err = w.Write(data)
	return err
}

func hasLayer(r *config.Resolved, layer config.Layer) bool {
	for _, l := range r.Layers {
		if l == layer {
			return true
		}
	}
	return false
}

// newInitCmd creates the 'config init' command.
func newInitCmd(globals *helpers.GlobalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			return runInit(loader, configFile(globals, loader), force, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}

func runInit(loader *config.Loader, path string, force bool, w io.Writer) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	if err := loader.SaveTo(config.DefaultConfig(), path); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Wrote default configuration to %s\n", path)
	return nil
}

// newSetTemperatureCmd creates the 'config set-temperature' command.
func newSetTemperatureCmd(globals *helpers.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-temperature <agent> <value>",
		Short: "Persist an agent's sampling temperature",
		Long: fmt.Sprintf(`Store the default sampling temperature for one agent in the config file.

Values range from %.1f to %.1f. Agents not yet in the roster are added.

Examples:
  grokteam config set-temperature Harper 1.2
  grokteam config set-temperature Benjamin 0.3`, constants.MinTemperature, constants.MaxTemperature),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			return runSetTemperature(loader, configFile(globals, loader), args[0], args[1], cmd.OutOrStdout())
		},
	}
}

func runSetTemperature(loader *config.Loader, path, agent, value string, w io.Writer) error {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return errors.New("agent name is required")
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid temperature %q: %w", value, err)
	}

	cfg, err := loader.ReadFile(path)
	if err != nil {
		return err
	}

	name, found := agent, false
	for _, a := range cfg.Agents {
		if strings.EqualFold(a, agent) {
			name, found = a, true
			break
		}
	}
	if !found {
		cfg.Agents = append(cfg.Agents, agent)
	}
	if cfg.Temperatures == nil {
		cfg.Temperatures = map[string]float64{}
	}
	cfg.Temperatures[name] = t

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := loader.SaveTo(cfg, path); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "%s temperature set to %.2f in %s\n", name, t, path)
	return nil
}

// newValidateCmd creates the 'config validate' command.
func newValidateCmd(globals *helpers.GlobalOptions) *cobra.Command {
	var format *helpers.FormatFlag

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Resolve the configuration and report every problem found, such as an
invalid API URL, an out-of-range temperature or an unknown log level.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format.Value()
			if err != nil {
				return err
			}
			resolved, err := config.NewLoader().Resolve(globals.Overrides())
			if err != nil {
				return err
			}
			return runValidate(resolved, f, cmd.OutOrStdout())
		},
	}

	format = helpers.AddFormatFlag(cmd, helpers.FormatTable, helpers.FormatTable, helpers.FormatJSON)

	return cmd
}

// validationResult is the structured output of 'config validate'.
type validationResult struct {
	Path   string   `json:"path"`
	Layers string   `json:"layers"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func runValidate(resolved *config.Resolved, format helpers.OutputFormat, w io.Writer) error {
	result := validationResult{
		Path:   resolved.Path,
		Layers: resolved.LayerNames(),
		Valid:  true,
		Errors: []string{},
	}

	verr := resolved.Validate()
	if verr != nil {
		result.Valid = false
		var multi *config.MultiValidationError
		if errors.As(verr, &multi) {
			for _, e := range multi.Errors {
				result.Errors = append(result.Errors, e.Error())
			}
		} else {
			result.Errors = append(result.Errors, verr.Error())
		}
		sort.Strings(result.Errors)
	}

	if format != helpers.FormatTable {
		formatter, err := helpers.NewFormatter(format)
		if err != nil {
			return err
		}
		if err := formatter.Format(result, w); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(w, "Config: %s (%s)\n", result.Path, result.Layers)
		if result.Valid {
			_, _ = fmt.Fprintln(w, "✓ Configuration is valid")
		}
		for _, e := range result.Errors {
			_, _ = fmt.Fprintf(w, "✗ %s\n", e)
		}
	}

	if !result.Valid {
		return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
	}
	return nil
}

// newPathCmd creates the 'config path' command.
func newPathCmd(globals *helpers.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show where grokteam keeps its files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "config:   %s\n", configFile(globals, loader))
			_, _ = fmt.Fprintf(w, "log:      %s\n", loader.LogPath())
			_, _ = fmt.Fprintf(w, "history:  %s\n", loader.HistoryPath())
			return nil
		},
	}
}
