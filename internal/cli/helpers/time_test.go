package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "zero", t: time.Time{}, want: "-"},
		{name: "future", t: now.Add(time.Minute), want: "just now"},
		{name: "seconds", t: now.Add(-30 * time.Second), want: "just now"},
		{name: "minutes", t: now.Add(-5 * time.Minute), want: "5m ago"},
		{name: "hours", t: now.Add(-3 * time.Hour), want: "3h ago"},
		{name: "days", t: now.Add(-50 * time.Hour), want: "2d ago"},
		{name: "old", t: time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC), want: "2025-12-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(tt.t, now))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{1500 * time.Nanosecond, "1.5µs"},
		{2500 * time.Microsecond, "2.5ms"},
		{1234 * time.Millisecond, "1.23s"},
		{90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "2.50s", FormatSeconds(2.5))
}
