package config

import (
	"time"

	"github.com/grokteam/grokteam/internal/retry"
)

// SchemaVersion is the configuration schema version.
const SchemaVersion = "1"

// Config represents ~/.grokteam/config.yaml.
type Config struct {
	Version string       `yaml:"version"`
	API     APIConfig    `yaml:"api"`
	Health  HealthConfig `yaml:"health"`

	// Agents is the team roster shown in temperature settings.
	Agents []string `yaml:"agents" env:"GROKTEAM_AGENTS"`
	// Temperatures holds per-agent sampling temperatures. Agents missing
	// here use the default.
	Temperatures map[string]float64 `yaml:"temperatures,omitempty" env:"GROKTEAM_TEMPERATURES"`

	UI     UIConfig     `yaml:"ui"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// APIConfig describes how to reach the backend.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" env:"GROKTEAM_API_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"GROKTEAM_REQUEST_TIMEOUT"`
	Retry          RetryConfig   `yaml:"retry"`
}

// RetryConfig controls retries of idempotent backend calls.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries" env:"GROKTEAM_RETRY_MAX"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// HealthConfig controls backend health polling.
type HealthConfig struct {
	Interval time.Duration `yaml:"interval" env:"GROKTEAM_HEALTH_INTERVAL"`
}

// UIConfig holds terminal presentation preferences.
type UIConfig struct {
	NoColor   bool `yaml:"no_color" env:"GROKTEAM_NO_COLOR"`
	WordWrap  int  `yaml:"word_wrap"`
	ShowTrace bool `yaml:"show_trace" env:"GROKTEAM_SHOW_TRACE"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" env:"GROKTEAM_LOG_LEVEL"`
	// File receives logs while the full-screen UI owns the terminal. Empty
	// means ~/.grokteam/grokteam.log.
	File string `yaml:"file,omitempty" env:"GROKTEAM_LOG_FILE"`
}

// ServerConfig configures the development backend started by `serve`.
type ServerConfig struct {
	Listen     string        `yaml:"listen" env:"GROKTEAM_SERVER_LISTEN"`
	Database   string        `yaml:"database" env:"GROKTEAM_SERVER_DATABASE"`
	TokenDelay time.Duration `yaml:"token_delay" env:"GROKTEAM_SERVER_TOKEN_DELAY"`
	// SSE frames every event as `data: <json>` followed by a blank line.
	SSE bool `yaml:"sse" env:"GROKTEAM_SERVER_SSE"`
}

// Policy converts the retry settings for the API client.
func (r RetryConfig) Policy() retry.Config {
	p := retry.DefaultConfig()
	if r.MaxRetries > 0 {
		p.MaxRetries = r.MaxRetries
	}
	if r.InitialBackoff > 0 {
		p.InitialBackoff = r.InitialBackoff
	}
	if r.MaxBackoff > 0 {
		p.MaxBackoff = r.MaxBackoff
	}
	return p
}
