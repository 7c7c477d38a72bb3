package claudecode

import (
	"time"

	"github.com/google/uuid"

	"github.com/sessionwatch/sessionwatch/event"
)

// rawRecord mirrors one JSONL line of the session-log format: a tagged
// record carrying either a nested message (role + content blocks) or a
// flat text/tool shorthand, plus usage and bookkeeping fields the producer
// may or may not supply.
type rawRecord struct {
	Type           string         `json:"type"`
	Timestamp      string         `json:"timestamp"`
	Message        *rawMessage    `json:"message"`
	Text           string         `json:"text"`
	Model          string         `json:"model"`
	Usage          *rawUsage      `json:"usage"`
	PermissionMode string         `json:"permissionMode"`
	IsSidechain    bool           `json:"isSidechain"`
	MessageID      string         `json:"messageId"`
	RequestID      string         `json:"requestId"`
	ToolNameHint   string         `json:"toolNameHint"`
	ContextSize    int            `json:"contextSize"`
	ToolUseResult  *rawToolResult `json:"toolUseResult"`
}

type rawMessage struct {
	Role    string     `json:"role"`
	Content []rawBlock `json:"content"`
}

type rawBlock struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Thinking  string `json:"thinking"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Input     any    `json:"input"`
	ToolUseID string `json:"tool_use_id"`
	Content   any    `json:"content"`
	IsError   bool   `json:"is_error"`
}

type rawUsage struct {
	InputTokens              int      `json:"input_tokens"`
	OutputTokens             int      `json:"output_tokens"`
	CacheCreationInputTokens int      `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int      `json:"cache_read_input_tokens"`
	ReasoningTokens          int      `json:"reasoning_tokens"`
	CostUSD                  *float64 `json:"cost_usd"`
}

type rawToolResult struct {
	DurationMS *int64 `json:"durationMs"`
}

var typeMap = map[string]event.Type{
	"user":        event.TypeUser,
	"assistant":   event.TypeAssistant,
	"tool_use":    event.TypeToolUse,
	"tool_result": event.TypeToolResult,
	"summary":     event.TypeSummary,
	"system":      event.TypeSystem,
}

// normalizeRecord converts one decoded JSONL line into the canonical Event
// model. An unrecognized type or an unparseable timestamp fails the
// record.
func normalizeRecord(r rawRecord) (event.Event, bool) {
	typ, ok := typeMap[r.Type]
	if !ok {
		return event.Event{}, false
	}

	ts := time.Now()
	if r.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, r.Timestamp)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, r.Timestamp)
		}
		if err != nil {
			return event.Event{}, false
		}
		ts = parsed
	}

	e := event.Event{
		Type:           typ,
		Timestamp:      ts,
		Text:           r.Text,
		Model:          r.Model,
		PermissionMode: r.PermissionMode,
		IsSidechain:    r.IsSidechain,
		MessageID:      r.MessageID,
		RequestID:      r.RequestID,
		ToolNameHint:   r.ToolNameHint,
		ContextSize:    r.ContextSize,
	}

	if e.MessageID == "" {
		// Some record types (summary, system) never carry a producer message
		// id; synthesize one so the dedup hash still distinguishes
		// same-timestamp records instead of colliding on an empty field.
		e.MessageID = uuid.NewString()
	}

	if r.Message != nil {
		e.Message = &event.Message{Role: event.Role(r.Message.Role), Parts: normalizeBlocks(r.Message.Content)}
		if r.ToolUseResult != nil && r.ToolUseResult.DurationMS != nil {
			attachToolResultDuration(e.Message.Parts, time.Duration(*r.ToolUseResult.DurationMS)*time.Millisecond)
		}
	}

	if r.Usage != nil {
		u := event.Usage{
			InputTokens:         r.Usage.InputTokens,
			OutputTokens:        r.Usage.OutputTokens,
			CacheCreationTokens: r.Usage.CacheCreationInputTokens,
			CacheReadTokens:     r.Usage.CacheReadInputTokens,
			ReasoningTokens:     r.Usage.ReasoningTokens,
		}
		if r.Usage.CostUSD != nil {
			u.ReportedCost = *r.Usage.CostUSD
			u.HasReportedCost = true
		}
		e.Usage = &u
	}

	return e, true
}

// attachToolResultDuration sets Duration on the first ToolResultPart found,
// preferring the producer-reported wall-clock duration over any later
// computation from surrounding event timestamps.
func attachToolResultDuration(parts []event.Part, d time.Duration) {
	for i, p := range parts {
		if tr, ok := p.(event.ToolResultPart); ok {
			tr.Duration = &d
			parts[i] = tr
			return
		}
	}
}

func normalizeBlocks(blocks []rawBlock) []event.Part {
	var parts []event.Part
	for _, b := range blocks {
		switch b.Type {
		case "text":
			parts = append(parts, event.TextPart{Text: b.Text})
		case "thinking":
			parts = append(parts, event.ThinkingPart{Text: b.Thinking})
		case "tool_use":
			parts = append(parts, event.ToolUsePart{ID: b.ID, Name: b.Name, Input: b.Input})
		case "tool_result":
			parts = append(parts, event.ToolResultPart{
				ToolUseID: b.ToolUseID,
				Content:   toolResultContentString(b.Content),
				IsError:   b.IsError,
			})
		}
	}
	return parts
}

// toolResultContentString accepts either a plain string or Anthropic-style
// content-block-array tool result and flattens it to text.
func toolResultContentString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var out string
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				if s, ok := m["text"].(string); ok {
					out += s
				}
			}
		}
		return out
	default:
		return ""
	}
}
