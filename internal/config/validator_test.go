package config

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		field   string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Version = "" },
			wantErr: true,
			field:   "version",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.API.BaseURL = "localhost:8000/api" },
			wantErr: true,
			field:   "api.base_url",
		},
		{
			name:    "empty base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: true,
			field:   "api.base_url",
		},
		{
			name:    "zero request timeout",
			mutate:  func(c *Config) { c.API.RequestTimeout = 0 },
			wantErr: true,
			field:   "api.request_timeout",
		},
		{
			name:    "no attempts",
			mutate:  func(c *Config) { c.API.Retry.MaxRetries = 0 },
			wantErr: true,
			field:   "api.retry.max_retries",
		},
		{
			name:    "negative backoff",
			mutate:  func(c *Config) { c.API.Retry.MaxBackoff = -time.Second },
			wantErr: true,
			field:   "api.retry",
		},
		{
			name:    "zero health interval",
			mutate:  func(c *Config) { c.Health.Interval = 0 },
			wantErr: true,
			field:   "health.interval",
		},
		{
			name:    "duplicate agent",
			mutate:  func(c *Config) { c.Agents = append(c.Agents, "Grok") },
			wantErr: true,
			field:   "agents",
		},
		{
			name:    "blank agent",
			mutate:  func(c *Config) { c.Agents = append(c.Agents, " ") },
			wantErr: true,
			field:   "agents",
		},
		{
			name:    "temperature too hot",
			mutate:  func(c *Config) { c.Temperatures["Harper"] = 2.01 },
			wantErr: true,
			field:   "temperatures.Harper",
		},
		{
			name:    "temperature NaN",
			mutate:  func(c *Config) { c.Temperatures["Lucas"] = math.NaN() },
			wantErr: true,
			field:   "temperatures.Lucas",
		},
		{
			name:   "temperature bounds are inclusive",
			mutate: func(c *Config) { c.Temperatures["Grok"], c.Temperatures["Lucas"] = 0, 2 },
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
			field:   "log.level",
		},
		{
			name:    "bad listen address",
			mutate:  func(c *Config) { c.Server.Listen = "8000" },
			wantErr: true,
			field:   "server.listen",
		},
		{
			name:    "missing database",
			mutate:  func(c *Config) { c.Server.Database = "" },
			wantErr: true,
			field:   "server.database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var multi *MultiValidationError
			require.ErrorAs(t, err, &multi)
			require.Len(t, multi.Errors, 1)
			assert.Equal(t, tt.field, multi.Errors[0].Field)
		})
	}
}

func TestConfig_ValidateReportsEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Version = ""
	cfg.Health.Interval = -1
	cfg.UI.WordWrap = -5

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "validation failed with 3 errors"))
}

func TestConfig_TemperaturesFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents = []string{"Grok", "Ada"}
	cfg.Temperatures = map[string]float64{"Grok": 0.1, "Zed": 1.4}

	assert.Equal(t, map[string]float64{"Grok": 0.1, "Ada": 0.7, "Zed": 1.4}, cfg.TemperaturesFor())
}

func TestMultiValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *MultiValidationError
		expected string
	}{
		{
			name: "single error",
			err: &MultiValidationError{
				Errors: []ValidationError{{Field: "field1", Message: "is required"}},
			},
			expected: "field1: is required",
		},
		{
			name: "multiple errors",
			err: &MultiValidationError{
				Errors: []ValidationError{
					{Field: "field1", Message: "is required"},
					{Field: "field2", Message: "is invalid"},
				},
			},
			expected: "validation failed with 2 errors",
		},
		{
			name:     "no errors",
			err:      &MultiValidationError{Errors: []ValidationError{}},
			expected: "no validation errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), tt.expected)
		})
	}
}
