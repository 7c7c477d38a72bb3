package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextTick_DiscoverySlowByDefault(t *testing.T) {
	m := newTestMonitor(t)
	require.Equal(t, DiscoveryInterval, m.nextTick())
}

func TestNextTick_DiscoveryFastWithinFastWindow(t *testing.T) {
	m := newTestMonitor(t)
	m.mu.Lock()
	m.fastDiscoveryUntil = time.Now().Add(time.Minute)
	m.mu.Unlock()
	require.Equal(t, FastDiscoveryInterval, m.nextTick())
}

func TestNextTick_LiveUsesPollInterval(t *testing.T) {
	m := New(stubAdapter{}, Options{PollInterval: 7 * time.Second})
	t.Cleanup(func() { _ = m.Dispose() })
	m.mu.Lock()
	m.state = StateLive
	m.mu.Unlock()
	require.Equal(t, 7*time.Second, m.nextTick())
}

func TestNextTick_EndedUsesOneSecondFallback(t *testing.T) {
	m := newTestMonitor(t)
	m.mu.Lock()
	m.state = StateEnded
	m.mu.Unlock()
	require.Equal(t, time.Second, m.nextTick())
}

func TestCheckRotation_NoopWhenPinned(t *testing.T) {
	m := newTestMonitor(t)
	m.mu.Lock()
	m.pinned = true
	m.mu.Unlock()
	m.checkRotation() // must not panic with a nil current ref or adapter calls
}

func TestCheckRotation_NoopWhenNoCurrentSession(t *testing.T) {
	m := newTestMonitor(t)
	m.checkRotation()
	require.Nil(t, m.SessionRef())
}
