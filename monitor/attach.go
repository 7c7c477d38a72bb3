package monitor

import (
	"context"
	"time"

	"github.com/sessionwatch/sessionwatch/adapter"
	"github.com/sessionwatch/sessionwatch/aggregator"
	"github.com/sessionwatch/sessionwatch/event"
	"github.com/sessionwatch/sessionwatch/hooks"
	"github.com/sessionwatch/sessionwatch/snapshot"
)

// attach binds the monitor to ref: either fast-forwarding from a valid
// snapshot or performing a full replay, then entering Live.
func (m *Monitor) attach(ref adapter.SessionRef) error {
	m.mu.Lock()
	if !m.lastSwitchAt.IsZero() && time.Since(m.lastSwitchAt) < SessionSwitchCooldown && m.ref != nil && m.ref.Path != ref.Path {
		m.mu.Unlock()
		return nil // cooldown suppresses rapid bouncing between candidate sessions
	}
	m.mu.Unlock()

	rdr, err := m.adp.CreateReader(ref)
	if err != nil {
		m.opts.Logger.Warn(context.Background(), "monitor: create reader failed", "error", err)
		return err
	}

	m.mu.Lock()
	m.ref = &ref
	m.rdr = rdr
	m.lastSwitchAt = time.Now()
	m.consumer = newConsumerState()
	m.hashes = newHashSet()
	m.agg = aggregator.New(m.opts.AggregatorOptions)
	m.state = StateReplay
	m.mu.Unlock()

	m.emit(hooks.Event{Type: hooks.ReplayStateChange, BoolValue: true})

	sessionID := m.adp.GetSessionID(ref)
	restored := false
	if m.store != nil {
		if wire, ok, err := m.store.Load(sessionID); err == nil && ok {
			// SessionRef carries no producer-agnostic byte size (opencode's
			// ref is a DB row, not a file), so the stale-truncation half of
			// snapshot.IsValid is skipped here; a real truncation is still
			// caught by the reader's own WasTruncated check on first poll.
			usable := snapshot.IsValid(wire, wire.SourceSize) && wire.ProviderID == m.adp.Name()
			if usable {
				if m.agg.Restore(wire.Aggregator) {
					_ = m.consumer.unmarshal(wire.Consumer, m.hashes)
					if err := rdr.SeekTo(wire.ReaderPosition); err == nil {
						_ = rdr.Flush()
						restored = true
					}
				}
			} else {
				_ = m.store.Delete(sessionID)
			}
		}
	}

	var events []event.Event
	if restored {
		events, err = rdr.ReadNew()
	} else {
		events, err = rdr.ReadAll()
	}
	if err != nil {
		m.opts.Logger.Warn(context.Background(), "monitor: initial read failed", "error", err)
	}
	m.applyEvents(events)
	_ = rdr.Flush()

	m.mu.Lock()
	m.state = StateLive
	now := time.Now()
	m.consumer.sessionStartTime = &now
	m.mu.Unlock()

	m.emit(hooks.Event{Type: hooks.ReplayStateChange, BoolValue: false})
	m.emit(hooks.Event{
		Type:    hooks.SessionStart,
		Session: &hooks.SessionRef{SessionID: sessionID, Provider: m.adp.Name(), Path: ref.Path},
	})

	m.startLiveWatch(ref)
	return nil
}

// applyEvents dedupes, processes each event through the aggregator, mirrors
// consumer-local bounded history, and fans out bus events.
func (m *Monitor) applyEvents(events []event.Event) {
	for i := range events {
		e := &events[i]
		h := eventHash(e)
		if m.hashes.seenOrAdd(h) {
			continue // already seen this event, skip
		}

		delta := m.agg.ProcessEvent(e)
		m.consumeDelta(e, delta)
	}
}

func (m *Monitor) consumeDelta(e *event.Event, delta aggregator.Delta) {
	m.mu.Lock()
	replaying := m.state == StateReplay
	m.mu.Unlock()

	if delta.TurnAttribution != nil {
		m.consumer.appendTurnAttribution(*delta.TurnAttribution)
		if e.Model != "" {
			m.consumer.lastModelID = e.Model
		}
	}
	if delta.ContextSizePoint != nil {
		m.consumer.appendContextPoint(*delta.ContextSizePoint)
	}
	m.consumer.appendTimeline(delta.Timeline)

	if delta.ToolCall != nil {
		var input any
		if e.Message != nil {
			for _, b := range e.Message.Parts {
				if tu, ok := b.(event.ToolUsePart); ok && tu.ID == delta.ToolCall.ToolUseID {
					input = tu.Input
				}
			}
		}
		m.consumer.recordToolCall(delta.ToolCall.Timestamp, delta.ToolCall.ToolName, input)
		m.emit(hooks.Event{Type: hooks.ToolCall, ToolCall: delta.ToolCall})
		if !replaying {
			m.maybeDetectCycle()
		}
	}
	if delta.ToolAnalyticsName != "" {
		if ta, ok := m.agg.ToolAnalytics()[delta.ToolAnalyticsName]; ok {
			m.consumer.mirrorToolAnalytics(delta.ToolAnalyticsName, ta)
			m.emit(hooks.Event{Type: hooks.ToolAnalytics, ToolAnalytics: &ta})
		}
	}
	if delta.TokenUsage != nil {
		m.emit(hooks.Event{Type: hooks.TokenUsage, TokenUsage: delta.TokenUsage})
	}
	if delta.Compaction != nil {
		m.emit(hooks.Event{Type: hooks.Compaction, Compaction: delta.Compaction})
	}
	if delta.Truncation != nil {
		m.consumer.lastErrorMessage = delta.Truncation.Marker
		m.emit(hooks.Event{Type: hooks.Truncation, Truncation: delta.Truncation})
	}
	if delta.Latency != nil {
		m.emit(hooks.Event{Type: hooks.LatencyUpdate, LatencyStats: delta.Latency})
	}
	if delta.TaskChanged {
		m.emit(hooks.Event{Type: hooks.TaskChanged})
	}
	if delta.PlanChanged {
		m.emit(hooks.Event{Type: hooks.PlanChanged})
	}

	if e.Message != nil && e.Message.Role == event.RoleAssistant {
		for _, b := range e.Message.Parts {
			if t, ok := b.(event.TextPart); ok {
				m.consumer.pushAssistantText(t.Text)
			}
		}
	}

	if !replaying {
		if qr, ok := m.adp.(adapter.QuotaReporter); ok && m.ref != nil {
			if used, limit, unlimited, ok := qr.GetQuotaFromSession(*m.ref); ok {
				q := &hooks.QuotaState{Used: used, Limit: limit, Unlimited: unlimited}
				m.lastQuota = q
				m.emit(hooks.Event{Type: hooks.QuotaUpdate, Quota: q})
			}
		}
	}
}

func (m *Monitor) maybeDetectCycle() {
	name, count, windowMS, ok := detectCycle(m.consumer.toolCallHistory)
	if !ok {
		return
	}
	m.mu.Lock()
	throttled := !m.lastCycleNotifyAt.IsZero() && time.Since(m.lastCycleNotifyAt) < CycleThrottle
	if !throttled {
		m.lastCycleNotifyAt = time.Now()
	}
	m.mu.Unlock()
	if throttled {
		return
	}
	m.emit(hooks.Event{
		Type: hooks.CycleDetected,
		Cycle: &hooks.CycleDetection{
			ToolName:  name,
			Count:     count,
			WindowMS:  windowMS,
			Timestamp: time.Now(),
		},
	})
}

// processFileChange is the entry point a watcher or DB poll tick triggers
// . A shrink resets the aggregator and resumes from 0.
func (m *Monitor) processFileChange() {
	m.mu.Lock()
	rdr, ref := m.rdr, m.ref
	m.mu.Unlock()
	if rdr == nil || ref == nil {
		return
	}

	if !rdr.Exists() {
		m.endSession()
		return
	}

	if rdr.WasTruncated() {
		m.agg.Reset()
		m.mu.Lock()
		m.consumer = newConsumerState()
		m.hashes = newHashSet()
		m.mu.Unlock()
	}

	events, err := rdr.ReadNew()
	if err != nil {
		m.opts.Logger.Warn(context.Background(), "monitor: read_new failed", "error", err)
		return
	}
	if len(events) == 0 {
		_ = rdr.Flush()
		return
	}

	m.applyEvents(events)
	_ = rdr.Flush()

	m.mu.Lock()
	due := time.Since(m.lastSnapshotSaveAt) >= SnapshotSaveInterval
	m.mu.Unlock()
	if due {
		if err := m.saveSnapshot(); err != nil {
			m.opts.Logger.Warn(context.Background(), "monitor: snapshot save failed", "error", err)
		}
	}
}

// endSession fires onSessionEnd, finalizes plan state, drops the reader,
// and enters fast-discovery.
func (m *Monitor) endSession() {
	m.finalizePlan()

	m.mu.Lock()
	m.state = StateEnded
	m.mu.Unlock()

	m.emit(hooks.Event{Type: hooks.SessionEnd})

	if err := m.saveSnapshot(); err != nil {
		m.opts.Logger.Warn(context.Background(), "monitor: snapshot save on session end failed", "error", err)
	}

	m.detachReader()
	m.enterFastDiscovery()
}

// finalizePlan closes out an active plan at session end: in-progress
// steps fail with the last known error, pending steps are skipped.
func (m *Monitor) finalizePlan() {
	plan := m.agg.Plan()
	if plan == nil || !plan.Active {
		return
	}
	now := time.Now()
	for _, step := range plan.Steps {
		switch step.Status {
		case aggregator.StepInProgress:
			step.Status = aggregator.StepFailed
			step.ErrorMessage = m.consumer.lastErrorMessage
			step.CompletedAt = &now
		case aggregator.StepPending:
			step.Status = aggregator.StepSkipped
		}
	}
	if plan.EnteredAt != nil {
		plan.TotalDurationMS = now.Sub(*plan.EnteredAt).Milliseconds()
	}
	plan.ExitedAt = &now
}
