// Package errors provides utilities for error handling in grokteam.
package errors

import (
	"io"

	"github.com/rs/zerolog"
)

// drainLimit caps how much of an abandoned body is discarded before close.
const drainLimit = 64 * 1024

// DeferClose properly closes an io.Closer with logging.
// Use this in defer statements to avoid suppressing close errors.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// DrainClose discards a bounded remainder of an HTTP body before closing it,
// so the underlying connection can be reused. Read errors are ignored.
func DrainClose(logger zerolog.Logger, body io.ReadCloser, msg string) {
	if body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, body, drainLimit)
	DeferClose(logger, body, msg)
}
