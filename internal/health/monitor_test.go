package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grokteam/grokteam/internal/testutil"
)

type fakeProber struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (f *fakeProber) Health(context.Context) error {
	f.calls.Add(1)
	if f.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "online", Online.String())
	assert.Equal(t, "offline", Offline.String())
}

func TestMonitor_Check(t *testing.T) {
	prober := &fakeProber{}
	m := NewMonitor(prober, time.Second, testutil.NewTestLogger(t))

	var mu sync.Mutex
	var changes []State
	m.OnChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, s)
	})

	assert.Equal(t, Unknown, m.State())

	assert.Equal(t, Online, m.Check(context.Background()))
	assert.True(t, m.Online())
	assert.NoError(t, m.LastError())
	assert.False(t, m.CheckedAt().IsZero())

	m.Check(context.Background())

	prober.fail.Store(true)
	assert.Equal(t, Offline, m.Check(context.Background()))
	assert.False(t, m.Online())
	assert.EqualError(t, m.LastError(), "connection refused")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Online, Offline}, changes, "listeners fire on transitions only")
}

func TestMonitor_RunPollsUntilCancelled(t *testing.T) {
	prober := &fakeProber{}
	m := NewMonitor(prober, 10*time.Millisecond, testutil.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(stopped)
	}()

	require.True(t, testutil.Eventually(t, 2*time.Second, func() bool { return prober.calls.Load() >= 3 }))
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, m.Online())
}

func TestNewMonitor_DefaultInterval(t *testing.T) {
	m := NewMonitor(&fakeProber{}, 0, testutil.NewTestLogger(t))
	assert.Equal(t, 10*time.Second, m.interval)
}
