// Package hooks implements the engine's external event bus: a
// strongly-typed, fire-and-forget fan-out surface that the session monitor
// publishes to and that consumers subscribe against. Modeled on the
// publish/subscribe bus used by the agent runtime's hook system.
package hooks

import (
	"time"

	"github.com/sessionwatch/sessionwatch/aggregator"
)

// Type discriminates the outbound event variants.
type Type string

const (
	TokenUsage          Type = "onTokenUsage"
	ToolCall            Type = "onToolCall"
	ToolAnalytics       Type = "onToolAnalytics"
	TimelineEvent       Type = "onTimelineEvent"
	LatencyUpdate       Type = "onLatencyUpdate"
	Compaction          Type = "onCompaction"
	Truncation          Type = "onTruncation"
	CycleDetected       Type = "onCycleDetected"
	QuotaUpdate         Type = "onQuotaUpdate"
	SessionStart        Type = "onSessionStart"
	SessionEnd          Type = "onSessionEnd"
	DiscoveryModeChange Type = "onDiscoveryModeChange"
	ReplayStateChange   Type = "onReplayStateChange"
	TaskChanged         Type = "onTaskChanged"
	PlanChanged         Type = "onPlanChanged"
)

// SessionRef identifies the session a onSessionStart/onSessionEnd event
// concerns.
type SessionRef struct {
	SessionID string
	Provider  string
	Path      string
}

// CycleDetection is the payload of an onCycleDetected event: the same tool
// call (by name+input fingerprint) observed repeatedly in a short window.
type CycleDetection struct {
	ToolName  string
	Count     int
	WindowMS  int64
	Timestamp time.Time
}

// QuotaState is the payload of an onQuotaUpdate event, sourced from a
// producer's optional get_quota_from_session.
type QuotaState struct {
	Used      float64
	Limit     float64
	ResetsAt  *time.Time
	Unlimited bool
}

// Event is the single envelope type carried through the bus. At most one
// payload field is populated, matching Type; the mode-change events carry
// their flag in BoolValue. Subscribers must treat the
// event as a read-only snapshot.
type Event struct {
	Type      Type
	Timestamp time.Time

	TokenUsage    *aggregator.TokenUsageDelta
	ToolCall      *aggregator.ToolCallInfo
	ToolAnalytics *aggregator.ToolAnalytics
	Timeline      *aggregator.TimelineEvent
	LatencyStats  *aggregator.LatencyRecord
	Compaction    *aggregator.CompactionEvent
	Truncation    *aggregator.TruncationEvent
	Cycle         *CycleDetection
	Quota         *QuotaState
	Session       *SessionRef
	BoolValue     bool
}
