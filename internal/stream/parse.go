package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyFrame is returned for a blank frame.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrMissingType is returned for a JSON object without a "type".
	ErrMissingType = errors.New("frame has no event type")
)

// ParseEvent decodes one frame produced by Decoder. Frames of an unknown
// type parse successfully; check Type.Known before acting on them.
func ParseEvent(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, ErrEmptyFrame
	}

	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return Event{}, fmt.Errorf("malformed frame: %w", err)
	}
	if ev.Type == "" {
		return Event{}, ErrMissingType
	}
	return ev, nil
}

// Encode renders ev as a single NDJSON frame, newline included.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}
	return append(data, '\n'), nil
}
