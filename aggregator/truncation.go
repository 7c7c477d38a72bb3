package aggregator

import (
	"strings"

	"github.com/sessionwatch/sessionwatch/event"
)

// truncationMarkers is the closed set of sentinel substrings that identify a
// tool_result as truncated. Matching is case-insensitive.
var truncationMarkers = []struct {
	needle string
	label  string
}{
	{"[response truncated]", "Response truncated"},
	{"<response clipped>", "Response clipped"},
	{"content_too_long", "Content too long"},
	{"tool output was truncated", "Tool output was truncated"},
	{"[warning: tool output was truncated]", "Tool output was truncated"},
}

// applyTruncation scans tool_result content for truncation markers and
// emits a TruncationEvent when found, attaching the tool name from the
// just-consumed pending call or the raw event hint, else "unknown".
func (a *Aggregator) applyTruncation(e *event.Event, d *Delta) {
	for _, b := range e.ContentBlocks() {
		tr, ok := b.(event.ToolResultPart)
		if !ok {
			continue
		}
		marker, ok := matchTruncationMarker(tr.Content)
		if !ok {
			continue
		}
		toolName := "unknown"
		if d.ToolAnalyticsName != "" {
			toolName = d.ToolAnalyticsName
		} else if e.ToolNameHint != "" {
			toolName = e.ToolNameHint
		}
		te := TruncationEvent{Timestamp: e.Timestamp, ToolName: toolName, Marker: marker}
		a.truncations = append(a.truncations, te)
		d.Truncation = &te
	}
}

func matchTruncationMarker(content string) (string, bool) {
	lower := strings.ToLower(content)
	for _, m := range truncationMarkers {
		if strings.Contains(lower, m.needle) {
			return m.label, true
		}
	}
	return "", false
}

// Truncations returns an independent copy of all detected truncations.
func (a *Aggregator) Truncations() []TruncationEvent {
	out := make([]TruncationEvent, len(a.truncations))
	copy(out, a.truncations)
	return out
}

// TruncationCount returns the number of detected truncations.
func (a *Aggregator) TruncationCount() int { return len(a.truncations) }
