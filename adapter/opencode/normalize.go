package opencode

import (
	"time"

	"github.com/sessionwatch/sessionwatch/event"
)

// rawRow mirrors the JSON payload stored in one session_events row. The
// shape intentionally matches the claudecode family's record fields where
// semantics overlap, since both normalize into the same canonical Event.
type rawRow struct {
	Type        string    `json:"type"`
	Timestamp   string    `json:"timestamp"`
	Role        string    `json:"role"`
	Text        string    `json:"text"`
	Model       string    `json:"model"`
	Usage       *rawUsage `json:"usage"`
	ToolName    string    `json:"toolName"`
	ToolUseID   string    `json:"toolCallId"`
	ToolInput   any       `json:"toolInput"`
	ToolOutput  string    `json:"toolOutput"`
	IsError     bool      `json:"isError"`
	ContextSize int       `json:"contextSize"`
}

type rawUsage struct {
	InputTokens  int      `json:"inputTokens"`
	OutputTokens int      `json:"outputTokens"`
	CacheTokens  int      `json:"cacheReadTokens"`
	CostUSD      *float64 `json:"costUsd"`
}

var rowTypeMap = map[string]event.Type{
	"user_message":      event.TypeUser,
	"assistant_message": event.TypeAssistant,
	"tool_call":         event.TypeToolUse,
	"tool_result":       event.TypeToolResult,
	"summary":           event.TypeSummary,
	"system":            event.TypeSystem,
}

// normalizeRow converts one decoded session_events payload into the
// canonical Event model. Opencode's schema carries the Event's content as
// flat fields rather than a content-block array, so tool calls and results
// are synthesized as single-part messages.
func normalizeRow(r rawRow) (event.Event, bool) {
	typ, ok := rowTypeMap[r.Type]
	if !ok {
		return event.Event{}, false
	}

	ts := time.Now()
	if r.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, r.Timestamp); err == nil {
			ts = parsed
		} else if parsed, err := time.Parse(time.RFC3339Nano, r.Timestamp); err == nil {
			ts = parsed
		} else {
			return event.Event{}, false
		}
	}

	e := event.Event{
		Type:        typ,
		Timestamp:   ts,
		Text:        r.Text,
		Model:       r.Model,
		ContextSize: r.ContextSize,
	}

	switch typ {
	case event.TypeToolUse:
		e.Message = &event.Message{
			Role:  event.RoleAssistant,
			Parts: []event.Part{event.ToolUsePart{ID: r.ToolUseID, Name: r.ToolName, Input: r.ToolInput}},
		}
	case event.TypeToolResult:
		e.Message = &event.Message{
			Role:  event.RoleUser,
			Parts: []event.Part{event.ToolResultPart{ToolUseID: r.ToolUseID, Content: r.ToolOutput, IsError: r.IsError}},
		}
		e.ToolNameHint = r.ToolName
		e.RawToolResultID = r.ToolUseID
	default:
		role := event.Role(r.Role)
		if role == "" {
			role = event.RoleUser
			if typ == event.TypeAssistant {
				role = event.RoleAssistant
			}
		}
		e.Message = &event.Message{Role: role, Parts: []event.Part{event.TextPart{Text: r.Text}}}
	}

	if r.Usage != nil {
		u := event.Usage{
			InputTokens:     r.Usage.InputTokens,
			OutputTokens:    r.Usage.OutputTokens,
			CacheReadTokens: r.Usage.CacheTokens,
		}
		if r.Usage.CostUSD != nil {
			u.ReportedCost = *r.Usage.CostUSD
			u.HasReportedCost = true
		}
		e.Usage = &u
	}

	return e, true
}
