package config

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/grokteam/grokteam/internal/constants"
	"github.com/grokteam/grokteam/internal/logging"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		builder.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// Validate checks the whole config and reports every problem at once.
func (c *Config) Validate() error {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Version == "" {
		add("version", "version is required")
	}

	if c.API.BaseURL == "" {
		add("api.base_url", "base URL is required")
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api.base_url", "must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}

	if c.API.RequestTimeout <= 0 {
		add("api.request_timeout", "request timeout must be positive")
	}
	if c.API.Retry.MaxRetries < 1 {
		add("api.retry.max_retries", "at least one attempt is required")
	}
	if c.API.Retry.InitialBackoff < 0 || c.API.Retry.MaxBackoff < 0 {
		add("api.retry", "backoff durations must not be negative")
	}

	if c.Health.Interval <= 0 {
		add("health.interval", "health interval must be positive")
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, agent := range c.Agents {
		name := strings.TrimSpace(agent)
		if name == "" {
			add("agents", "agent names must not be empty")
			continue
		}
		if seen[name] {
			add("agents", "duplicate agent %q", name)
		}
		seen[name] = true
	}

	agents := make([]string, 0, len(c.Temperatures))
	for agent := range c.Temperatures {
		agents = append(agents, agent)
	}
	sort.Strings(agents)
	for _, agent := range agents {
		t := c.Temperatures[agent]
		if math.IsNaN(t) || t < constants.MinTemperature || t > constants.MaxTemperature {
			add("temperatures."+agent, "must be between %.1f and %.1f, got %v",
				constants.MinTemperature, constants.MaxTemperature, t)
		}
	}

	if c.UI.WordWrap < 0 {
		add("ui.word_wrap", "word wrap must not be negative")
	}

	if !logging.ValidLevel(c.Log.Level) {
		add("log.level", "unknown level %q (trace, debug, info, warn, error)", c.Log.Level)
	}

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		add("server.listen", "must be host:port, got %q", c.Server.Listen)
	}
	if c.Server.Database == "" {
		add("server.database", "database is required (use :memory: for a throwaway store)")
	}
	if c.Server.TokenDelay < 0 {
		add("server.token_delay", "token delay must not be negative")
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

// TemperaturesFor returns a temperature for every configured agent, using
// the default where none is set, plus any extra agents with explicit
// temperatures.
func (c *Config) TemperaturesFor() map[string]float64 {
	out := make(map[string]float64, len(c.Agents)+len(c.Temperatures))
	for _, agent := range c.Agents {
		out[agent] = constants.DefaultTemperature
	}
	for agent, t := range c.Temperatures {
		out[agent] = t
	}
	return out
}
