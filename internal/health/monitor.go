// Package health polls the backend health endpoint and tracks whether it
// is reachable.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/grokteam/grokteam/internal/constants"
)

// Prober checks the backend once. *api.Client implements it.
type Prober interface {
	Health(ctx context.Context) error
}

// State is the last observed backend reachability.
type State int

const (
	Unknown State = iota
	Online
	Offline
)

func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Monitor polls a Prober on a fixed interval.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	mu        sync.RWMutex
	state     State
	lastErr   error
	checkedAt time.Time
	listeners []func(State)
}

// NewMonitor creates a monitor. A non-positive interval uses the default.
func NewMonitor(prober Prober, interval time.Duration, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = constants.DefaultHealthInterval
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  interval,
		logger:   logger.With().Str("component", "health").Logger(),
	}
}

// OnChange registers fn to be called whenever the state changes. It must
// be called before Run.
func (m *Monitor) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State returns the last observed state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Online reports whether the last probe succeeded.
func (m *Monitor) Online() bool {
	return m.State() == Online
}

// LastError returns the error of the last failed probe, if any.
func (m *Monitor) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// CheckedAt returns when the last probe finished.
func (m *Monitor) CheckedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkedAt
}

// Check probes once and records the result.
func (m *Monitor) Check(ctx context.Context) State {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Health(ctx)

	next := Online
	if err != nil {
		next = Offline
	}

	m.mu.Lock()
	prev := m.state
	m.state = next
	m.lastErr = err
	m.checkedAt = time.Now()
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()

	if prev != next {
		ev := m.logger.Info()
		if err != nil {
			ev = m.logger.Warn().Err(err)
		}
		ev.Str("state", next.String()).Msg("Backend health changed")
		for _, fn := range listeners {
			fn(next)
		}
	}
	return next
}

// Run probes immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
