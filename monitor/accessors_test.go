package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sessionwatch/sessionwatch/adapter"
	"github.com/sessionwatch/sessionwatch/aggregator"
	"github.com/sessionwatch/sessionwatch/hooks"
	"github.com/sessionwatch/sessionwatch/reader"
)

type stubAdapter struct{}

func (stubAdapter) Name() string                                     { return "stub" }
func (stubAdapter) SessionDirectory(workspace string) string         { return "" }
func (stubAdapter) DiscoverSessionDirectory(workspace string) string { return "" }
func (stubAdapter) FindActiveSession(workspace string) *adapter.SessionRef {
	return nil
}
func (stubAdapter) FindAllSessions(workspace string) []adapter.SessionRef { return nil }
func (stubAdapter) IsSessionRef(name string) bool                         { return false }
func (stubAdapter) GetSessionID(ref adapter.SessionRef) string            { return "" }
func (stubAdapter) EncodeWorkspacePath(absPath string) string             { return absPath }
func (stubAdapter) ExtractSessionLabel(ref adapter.SessionRef) string     { return "" }
func (stubAdapter) CreateReader(ref adapter.SessionRef) (reader.Reader, error) {
	return nil, nil
}
func (stubAdapter) ScanSubagents(sessionDir, sessionID string) []adapter.SubagentStats {
	return nil
}

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	m := New(stubAdapter{}, Options{})
	t.Cleanup(func() { _ = m.Dispose() })
	return m
}

func TestMonitor_StateDefaultsToDiscovery(t *testing.T) {
	m := newTestMonitor(t)
	require.Equal(t, StateDiscovery, m.State())
	require.True(t, m.IsInDiscoveryMode())
	require.False(t, m.IsActive())
}

func TestMonitor_SessionRefNilWhenUnattached(t *testing.T) {
	m := newTestMonitor(t)
	require.Nil(t, m.SessionRef())
}

func TestMonitor_SessionRefReturnsIndependentCopy(t *testing.T) {
	m := newTestMonitor(t)
	m.mu.Lock()
	m.ref = &adapter.SessionRef{Path: "/a/b"}
	m.mu.Unlock()

	got := m.SessionRef()
	require.Equal(t, "/a/b", got.Path)
	got.Path = "mutated"

	again := m.SessionRef()
	require.Equal(t, "/a/b", again.Path)
}

func TestMonitor_TurnAttributionsReturnsIndependentCopy(t *testing.T) {
	m := newTestMonitor(t)
	m.consumer.appendTurnAttribution(aggregator.TurnAttribution{TurnIndex: 1})

	got := m.TurnAttributions()
	require.Len(t, got, 1)
	got[0].TurnIndex = 99

	again := m.TurnAttributions()
	require.Equal(t, 1, again[0].TurnIndex)
}

func TestMonitor_ContextTimelineReturnsIndependentCopy(t *testing.T) {
	m := newTestMonitor(t)
	m.consumer.appendContextPoint(aggregator.ContextSizePoint{InputTokens: 7})

	got := m.ContextTimeline()
	require.Len(t, got, 1)
	require.Equal(t, 7, got[0].InputTokens)
}

func TestMonitor_TimelineReturnsIndependentCopy(t *testing.T) {
	m := newTestMonitor(t)
	m.consumer.appendTimeline([]aggregator.TimelineEvent{{Description: "x"}})

	got := m.Timeline()
	require.Len(t, got, 1)
}

func TestMonitor_AssistantTextsReturnsIndependentCopy(t *testing.T) {
	m := newTestMonitor(t)
	m.consumer.pushAssistantText("hello")

	got := m.AssistantTexts()
	require.Equal(t, []string{"hello"}, got)
}

func TestMonitor_LastQuotaNilWhenNeverReported(t *testing.T) {
	m := newTestMonitor(t)
	require.Nil(t, m.LastQuota())
}

func TestMonitor_LastQuotaReturnsIndependentCopy(t *testing.T) {
	m := newTestMonitor(t)
	m.mu.Lock()
	m.lastQuota = &hooks.QuotaState{Used: 5}
	m.mu.Unlock()

	got := m.LastQuota()
	require.Equal(t, float64(5), got.Used)
	got.Used = 999

	again := m.LastQuota()
	require.Equal(t, float64(5), again.Used)
}

func TestMonitor_TogglePinFlipsState(t *testing.T) {
	m := newTestMonitor(t)
	require.False(t, m.IsPinned())
	require.True(t, m.TogglePin())
	require.True(t, m.IsPinned())
	require.False(t, m.TogglePin())
}

func TestMonitor_BusReturnsConfiguredBus(t *testing.T) {
	b := hooks.NewBus()
	m := New(stubAdapter{}, Options{Bus: b})
	t.Cleanup(func() { _ = m.Dispose() })
	require.Equal(t, b, m.Bus())
}

func TestMonitor_DisposeIsIdempotent(t *testing.T) {
	m := New(stubAdapter{}, Options{})
	require.NoError(t, m.Dispose())
	require.NoError(t, m.Dispose())
}
