package testutil

import (
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a logger that drops everything.
func NewTestLogger(t testing.TB) zerolog.Logger {
	t.Helper()
	return zerolog.Nop()
}

// NewTestLoggerWithOutput returns a debug-level logger writing to t.Log, so
// output only shows for failing or verbose tests.
func NewTestLoggerWithOutput(t testing.TB) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewConsoleWriter(zerolog.ConsoleTestWriter(t))).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
}
