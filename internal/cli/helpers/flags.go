package helpers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// FormatFlag is a --format/-o flag restricted to a set of formats.
type FormatFlag struct {
	value     string
	supported []OutputFormat
}

// AddFormatFlag registers --format/-o on cmd, with shell completion of the
// supported formats.
func AddFormatFlag(cmd *cobra.Command, def OutputFormat, supported ...OutputFormat) *FormatFlag {
	f := &FormatFlag{supported: supported}
	names := formatNames(supported)

	cmd.Flags().StringVarP(&f.value, "format", "o", string(def),
		fmt.Sprintf("Output format (%s)", strings.Join(names, ", ")))
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	return f
}

// Value returns the chosen format, or an error naming the supported ones.
func (f *FormatFlag) Value() (OutputFormat, error) {
	if err := ValidateFormat(f.value, f.supported); err != nil {
		return "", err
	}
	return OutputFormat(f.value), nil
}

// AddTraceFlag registers --trace, which prints the agents' reasoning.
func AddTraceFlag(cmd *cobra.Command, traceVar *bool) {
	cmd.Flags().BoolVar(traceVar, "trace", false, "Show the agents' reasoning trace")
}

// ValidateFormat checks format against supported.
func ValidateFormat(format string, supported []OutputFormat) error {
	for _, s := range supported {
		if format == string(s) {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(formatNames(supported), ", "))
}

func formatNames(formats []OutputFormat) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}
