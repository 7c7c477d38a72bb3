package monitor

import (
	"github.com/sessionwatch/sessionwatch/adapter"
	"github.com/sessionwatch/sessionwatch/aggregator"
	"github.com/sessionwatch/sessionwatch/hooks"
)

// State returns the monitor's current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionRef returns the currently attached session, or nil when no
// session is attached.
func (m *Monitor) SessionRef() *adapter.SessionRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ref == nil {
		return nil
	}
	cp := *m.ref
	return &cp
}

// TurnAttributions returns an independent copy of the capped per-turn
// attribution history.
func (m *Monitor) TurnAttributions() []aggregator.TurnAttribution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]aggregator.TurnAttribution(nil), m.consumer.turnAttributions...)
}

// ContextTimeline returns an independent copy of the capped, halving-thinned
// context-size series.
func (m *Monitor) ContextTimeline() []aggregator.ContextSizePoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]aggregator.ContextSizePoint(nil), m.consumer.contextTimeline...)
}

// Timeline returns an independent copy of the monitor's mirrored timeline.
func (m *Monitor) Timeline() []aggregator.TimelineEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]aggregator.TimelineEvent(nil), m.consumer.timeline...)
}

// AssistantTexts returns an independent copy of the bounded assistant-text
// buffer used for downstream decision extraction.
func (m *Monitor) AssistantTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.consumer.assistantTexts...)
}

// LastQuota returns the most recently observed producer-supplied quota
// state, or nil when the adapter has never reported one.
func (m *Monitor) LastQuota() *hooks.QuotaState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastQuota == nil {
		return nil
	}
	cp := *m.lastQuota
	return &cp
}
