// Package constants defines shared configuration constants and defaults.
package constants

import "time"

// Sampling temperature bounds accepted per agent.
const (
	DefaultTemperature = 0.7
	MinTemperature     = 0.0
	MaxTemperature     = 2.0
)

// Client timing defaults.
const (
	// DefaultRequestTimeout bounds conversation CRUD and health calls.
	// The chat stream itself is never bounded by it.
	DefaultRequestTimeout = 15 * time.Second

	DefaultHealthInterval = 10 * time.Second

	// DefaultRefreshTimeout bounds the conversation list refresh that follows
	// a finalized generation.
	DefaultRefreshTimeout = 10 * time.Second

	DefaultRetryAttempts       = 3
	DefaultRetryInitialBackoff = 200 * time.Millisecond
	DefaultRetryMaxBackoff     = 2 * time.Second
)

// Stream ingestion limits.
const (
	// StreamReadChunkSize is the size of each read from the response body.
	StreamReadChunkSize = 32 * 1024

	// MaxErrorBodyBytes caps the diagnostic body read from a failed response.
	MaxErrorBodyBytes = 512
)

// UI defaults.
const (
	DefaultWordWrap = 80

	// MaxRenderedMessages is how many history messages the TUI renders.
	MaxRenderedMessages = 20
)

// Development backend defaults.
const (
	DefaultServerTokenDelay = 25 * time.Millisecond
)
