package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/grokteam/grokteam/internal/constants"
)

// ErrEmptyBody is returned when a successful chat response carries no body.
var ErrEmptyBody = errors.New("empty response stream from server")

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Code   int
	Status string
	// Body is a best-effort excerpt of the response body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s: %s", e.Code, e.Status, e.Body)
}

// Temporary reports whether repeating the request might succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

func newStatusError(resp *http.Response) *StatusError {
	status := http.StatusText(resp.StatusCode)
	if status == "" {
		status = strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
	}

	se := &StatusError{Code: resp.StatusCode, Status: status}
	if resp.Body != nil {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, constants.MaxErrorBodyBytes))
		// The cap may split a multi-byte rune.
		se.Body = strings.TrimSpace(strings.ToValidUTF8(string(excerpt), ""))
	}
	return se
}
