package config

import (
	"github.com/grokteam/grokteam/internal/constants"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	temps := make(map[string]float64, len(constants.DefaultAgents))
	for _, agent := range constants.DefaultAgents {
		temps[agent] = constants.DefaultTemperature
	}

	return &Config{
		Version: SchemaVersion,
		API: APIConfig{
			BaseURL:        constants.DefaultAPIBaseURL,
			RequestTimeout: constants.DefaultRequestTimeout,
			Retry: RetryConfig{
				MaxRetries:     constants.DefaultRetryAttempts,
				InitialBackoff: constants.DefaultRetryInitialBackoff,
				MaxBackoff:     constants.DefaultRetryMaxBackoff,
			},
		},
		Health: HealthConfig{
			Interval: constants.DefaultHealthInterval,
		},
		Agents:       append([]string(nil), constants.DefaultAgents...),
		Temperatures: temps,
		UI: UIConfig{
			WordWrap:  constants.DefaultWordWrap,
			ShowTrace: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Listen:     constants.DefaultServerListen,
			Database:   constants.DefaultServerDatabase,
			TokenDelay: constants.DefaultServerTokenDelay,
		},
	}
}
