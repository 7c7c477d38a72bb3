package aggregator

import "time"

// ModelStatsEntry is one (model, stats) pair in a serialized ModelStats map.
type ModelStatsEntry struct {
	Model string     `json:"model"`
	Stats ModelStats `json:"stats"`
}

// ToolAnalyticsEntry is one (name, analytics) pair in a serialized
// ToolAnalytics map.
type ToolAnalyticsEntry struct {
	Name      string        `json:"name"`
	Analytics ToolAnalytics `json:"analytics"`
}

// TaskEntry is one (task_id, task) pair in a serialized task map.
type TaskEntry struct {
	TaskID string      `json:"taskId"`
	Task   TrackedTask `json:"task"`
}

// PlanStateSnapshot mirrors PlanState for the wire format; Steps is already
// an array so it needs no pair-wrapping.
type PlanStateSnapshot struct {
	Active          bool        `json:"active"`
	Steps           []*PlanStep `json:"steps"`
	Title           string      `json:"title"`
	Source          string      `json:"source"`
	EnteredAt       *time.Time  `json:"enteredAt,omitempty"`
	ExitedAt        *time.Time  `json:"exitedAt,omitempty"`
	TotalDurationMS int64       `json:"totalDurationMs"`
	CompletionRate  float64     `json:"completionRate"`
	Revision        int         `json:"revision"`
	RawMarkdown     string      `json:"rawMarkdown"`
}

// AggregatorSnapshot is the full, portable state of an Aggregator, as
// produced by Serialize and consumed by Restore. Pending-tool-call and pending-task-create maps are
// intentionally absent: they are transient bookkeeping, never part of the
// persisted shape.
type AggregatorSnapshot struct {
	Version    int    `json:"version"`
	EventCount int64  `json:"eventCount"`
	ProviderID string `json:"providerId"`

	Usage  UsageTotals          `json:"usage"`
	Models []ModelStatsEntry    `json:"models"`
	Tools  []ToolAnalyticsEntry `json:"tools"`

	Tasks        []TaskEntry `json:"tasks"`
	ActiveTaskID string      `json:"activeTaskId"`

	Plan *PlanStateSnapshot `json:"plan,omitempty"`

	ContextAttribution ContextAttribution `json:"contextAttribution"`
	LastContextSize    int                `json:"lastContextSize"`
	TurnIndex          int                `json:"turnIndex"`

	Compactions []CompactionEvent `json:"compactions"`
	Truncations []TruncationEvent `json:"truncations"`
	Timeline    []TimelineEvent   `json:"timeline"`
	Latencies   []LatencyRecord   `json:"latencies"`
	BurnSamples []BurnSample      `json:"burnSamples"`
}

// Serialize produces a portable snapshot of the current aggregator state
// . Every keyed map is flattened to an ordered array of pairs;
// bounded sequences are copied as-is.
func (a *Aggregator) Serialize() AggregatorSnapshot {
	snap := AggregatorSnapshot{
		Version:            snapshotVersion,
		EventCount:         a.eventCount,
		ProviderID:         a.opts.ProviderID,
		Usage:              a.usage,
		ActiveTaskID:       a.activeTaskID,
		ContextAttribution: a.contextAttrib,
		LastContextSize:    a.lastContextSize,
		TurnIndex:          a.turnIndex,
		Compactions:        append([]CompactionEvent(nil), a.compactions...),
		Truncations:        append([]TruncationEvent(nil), a.truncations...),
		Timeline:           append([]TimelineEvent(nil), a.timeline...),
		Latencies:          append([]LatencyRecord(nil), a.latencies...),
		BurnSamples:        append([]BurnSample(nil), a.burnSamples...),
	}

	for name, ms := range a.models {
		snap.Models = append(snap.Models, ModelStatsEntry{Model: name, Stats: *ms})
	}
	for name, ta := range a.tools {
		snap.Tools = append(snap.Tools, ToolAnalyticsEntry{Name: name, Analytics: *ta})
	}
	for id, t := range a.tasks {
		snap.Tasks = append(snap.Tasks, TaskEntry{TaskID: id, Task: *t})
	}
	if a.plan != nil {
		snap.Plan = &PlanStateSnapshot{
			Active:          a.plan.Active,
			Steps:           a.plan.Steps,
			Title:           a.plan.Title,
			Source:          a.plan.Source,
			EnteredAt:       a.plan.EnteredAt,
			ExitedAt:        a.plan.ExitedAt,
			TotalDurationMS: a.plan.TotalDurationMS,
			CompletionRate:  a.plan.CompletionRate,
			Revision:        a.plan.Revision,
			RawMarkdown:     a.plan.RawMarkdown,
		}
	}

	return snap
}

// Restore replaces the aggregator's state with the given snapshot. An
// unknown version is a no-op that leaves the aggregator freshly reset
// : the caller is expected to discard the stale
// snapshot. Pending-tool-call and pending-task-create maps are always
// empty after a restore, so tool-analytics pending_count survives but a
// subsequent matching result cannot decrement it.
func (a *Aggregator) Restore(snap AggregatorSnapshot) bool {
	providerID := a.opts.ProviderID
	a.resetState()
	a.opts.ProviderID = providerID

	if snap.Version != snapshotVersion {
		return false
	}

	a.eventCount = snap.EventCount
	a.usage = snap.Usage
	a.activeTaskID = snap.ActiveTaskID
	a.contextAttrib = snap.ContextAttribution
	a.lastContextSize = snap.LastContextSize
	a.turnIndex = snap.TurnIndex
	a.compactions = append([]CompactionEvent(nil), snap.Compactions...)
	a.truncations = append([]TruncationEvent(nil), snap.Truncations...)
	a.timeline = append([]TimelineEvent(nil), snap.Timeline...)
	a.latencies = append([]LatencyRecord(nil), snap.Latencies...)
	a.burnSamples = append([]BurnSample(nil), snap.BurnSamples...)

	for _, entry := range snap.Models {
		ms := entry.Stats
		a.models[entry.Model] = &ms
	}
	for _, entry := range snap.Tools {
		ta := entry.Analytics
		a.tools[entry.Name] = &ta
	}
	for _, entry := range snap.Tasks {
		t := entry.Task
		a.tasks[entry.TaskID] = &t
	}
	if snap.Plan != nil {
		a.plan = &PlanState{
			Active:          snap.Plan.Active,
			Steps:           snap.Plan.Steps,
			Title:           snap.Plan.Title,
			Source:          snap.Plan.Source,
			EnteredAt:       snap.Plan.EnteredAt,
			ExitedAt:        snap.Plan.ExitedAt,
			TotalDurationMS: snap.Plan.TotalDurationMS,
			CompletionRate:  snap.Plan.CompletionRate,
			Revision:        snap.Plan.Revision,
			RawMarkdown:     snap.Plan.RawMarkdown,
		}
	}

	return true
}
