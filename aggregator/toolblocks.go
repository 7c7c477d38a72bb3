package aggregator

import "github.com/sessionwatch/sessionwatch/event"

// applyToolBlocks walks the event's content blocks looking for tool_use and
// tool_result parts and maintains the pending-call map and per-tool
// analytics.
func (a *Aggregator) applyToolBlocks(e *event.Event, d *Delta) {
	for _, b := range e.ContentBlocks() {
		switch v := b.(type) {
		case event.ToolUsePart:
			a.startToolCall(v, e, d)
		case event.ToolResultPart:
			a.finishToolCall(v, e, d)
		}
	}
}

func (a *Aggregator) startToolCall(v event.ToolUsePart, e *event.Event, d *Delta) {
	ta, ok := a.tools[v.Name]
	if !ok {
		ta = &ToolAnalytics{Name: v.Name}
		a.tools[v.Name] = ta
	}
	ta.Pending++
	d.ToolAnalyticsName = v.Name

	if v.ID == "" {
		// No id: no pending call can be correlated to a future result, but
		// the call itself still counts toward analytics.
		return
	}
	a.pendingTools[v.ID] = pendingToolCall{ToolName: v.Name, Start: e.Timestamp}
	d.ToolCall = &ToolCallInfo{ToolUseID: v.ID, ToolName: v.Name, Timestamp: e.Timestamp}

	if !e.IsSidechain {
		a.appendTimeline(TimelineEvent{
			Type:        TimelineToolCall,
			Timestamp:   e.Timestamp,
			Description: truncateDescription(v.Name),
			NoiseLevel:  NoiseAI,
			Metadata:    map[string]any{"tool_name": v.Name},
		}, d)
	}
}

func (a *Aggregator) finishToolCall(v event.ToolResultPart, e *event.Event, d *Delta) {
	pc, ok := a.pendingTools[v.ToolUseID]
	toolName := "unknown"
	if ok {
		toolName = pc.ToolName
		delete(a.pendingTools, v.ToolUseID)

		ta := a.tools[toolName]
		if ta == nil {
			ta = &ToolAnalytics{Name: toolName}
			a.tools[toolName] = ta
		}
		if ta.Pending > 0 {
			ta.Pending--
		}
		ta.Completed++
		dur := int64(0)
		if v.Duration != nil {
			dur = v.Duration.Milliseconds()
		} else {
			dur = e.Timestamp.Sub(pc.Start).Milliseconds()
			if dur < 0 {
				dur = 0
			}
		}
		ta.TotalDurationMS += dur
		if v.IsError {
			ta.Failure++
		} else {
			ta.Success++
		}
		d.ToolAnalyticsName = toolName
	} else {
		// Orphan result: no pending call matches, so neither analytics nor
		// the timeline are updated.
		return
	}

	if !e.IsSidechain {
		noise := NoiseAI
		if v.IsError {
			noise = NoiseSystem
		}
		a.appendTimeline(TimelineEvent{
			Type:        TimelineToolResult,
			Timestamp:   e.Timestamp,
			Description: truncateDescription(v.Content),
			NoiseLevel:  noise,
			Metadata: map[string]any{
				"tool_name": toolName,
				"is_error":  v.IsError,
			},
		}, d)
	}
}

// ToolAnalytics returns an independent copy of the per-tool analytics map.
func (a *Aggregator) ToolAnalytics() map[string]ToolAnalytics {
	out := make(map[string]ToolAnalytics, len(a.tools))
	for k, v := range a.tools {
		out[k] = *v
	}
	return out
}

// PendingToolCount returns the number of tool calls currently awaiting a
// result for the given tool name (for test/debug introspection only; not
// part of the external contract).
func (a *Aggregator) PendingToolCount(name string) int64 {
	if ta, ok := a.tools[name]; ok {
		return ta.Pending
	}
	return 0
}
