// Package event defines the canonical, producer-agnostic event and usage
// types consumed by the rest of the engine. Every producer adapter (see
// package adapter) normalizes its own on-disk encoding into these types
// before anything downstream (reader, aggregator, monitor) sees a record.
package event

import "time"

// Role identifies the speaker for a Message.
type Role string

const (
	// RoleUser is the role for user-authored messages, including tool_result
	// blocks sent back to the model.
	RoleUser Role = "user"

	// RoleAssistant is the role for model-authored messages.
	RoleAssistant Role = "assistant"

	// RoleSystem is the role for system-authored messages.
	RoleSystem Role = "system"
)

// Type discriminates the tagged Event variants named in the data model:
// user, assistant, tool_use, tool_result, summary, system.
type Type string

const (
	// TypeUser is a user-authored event (may carry tool_result blocks).
	TypeUser Type = "user"
	// TypeAssistant is a model-authored event.
	TypeAssistant Type = "assistant"
	// TypeToolUse is a standalone tool invocation event.
	TypeToolUse Type = "tool_use"
	// TypeToolResult is a standalone tool result event.
	TypeToolResult Type = "tool_result"
	// TypeSummary is a producer-emitted compaction/summary event.
	TypeSummary Type = "summary"
	// TypeSystem is a producer-emitted system event.
	TypeSystem Type = "system"
)

type (
	// Part is a marker interface implemented by every content block variant:
	// TextPart, ThinkingPart, ToolUsePart, ToolResultPart.
	Part interface {
		isPart()
	}

	// TextPart is a plain visible text content block.
	TextPart struct {
		Text string
	}

	// ThinkingPart carries model reasoning content. Not billed separately;
	// contributes to the "thinking" context-attribution bucket.
	ThinkingPart struct {
		Text string
	}

	// ToolUsePart declares a tool invocation by the assistant. ID may be
	// empty for malformed producer records; the aggregator tolerates this.
	ToolUsePart struct {
		ID    string
		Name  string
		Input any
	}

	// ToolResultPart carries the result of a prior tool invocation,
	// correlated to a ToolUsePart by ToolUseID. Duration, when the producer
	// supplies it, is preferred over wall-clock computation.
	ToolResultPart struct {
		ToolUseID string
		Content   string
		IsError   bool
		Duration  *time.Duration
	}

	// Message carries the role and ordered content blocks for an Event.
	// Content may alternatively be a plain string (see Event.Text).
	Message struct {
		Role  Role
		Parts []Part
	}

	// Usage carries producer-supplied token accounting for a single
	// usage-bearing event. Absent usage (a nil *Usage on Event) must never be
	// invented by the aggregator — it leaves totals untouched instead.
	Usage struct {
		InputTokens         int
		OutputTokens        int
		CacheCreationTokens int
		CacheReadTokens     int
		ReasoningTokens     int
		ReportedCost        float64
		HasReportedCost     bool
	}

	// Event is the canonical tagged event consumed by the aggregator. Every
	// field beyond Type and Timestamp is optional; producer adapters fill in
	// only what their native format actually supplies.
	Event struct {
		// Type discriminates the event variant.
		Type Type
		// Timestamp is the event time as recorded by the producer.
		Timestamp time.Time
		// Message carries role + content when present.
		Message *Message
		// Text is a plain-string shorthand for Message content when the
		// producer does not use structured blocks. When both Text and
		// Message are set, Message takes precedence.
		Text string
		// Model identifies the model that produced this event, when known.
		Model string
		// Usage carries token accounting when the producer supplies it.
		Usage *Usage
		// PermissionMode is a producer-specific label (e.g. "plan", "default").
		PermissionMode string
		// IsSidechain flags events belonging to a sidechain/subagent
		// transcript; the aggregator relegates these to noise in the
		// timeline.
		IsSidechain bool
		// MessageID and RequestID participate in the dedup hash when
		// the producer supplies them; both may be empty.
		MessageID string
		RequestID string
		// ToolNameHint supplements truncation detection when a raw
		// tool_result event carries no resolvable pending call.
		ToolNameHint string
		// ContextSize overrides the default context-size formula
		// (input+cache_write+cache_read) when the producer supplies its own
		// computed figure. Zero means "not supplied, use the formula".
		ContextSize int
		// RawToolResultID is set on standalone TypeToolResult events (outside
		// of a Message) to identify the tool_use_id they resolve.
		RawToolResultID string
	}
)

func (TextPart) isPart()       {}
func (ThinkingPart) isPart()   {}
func (ToolUsePart) isPart()    {}
func (ToolResultPart) isPart() {}

// ContentBlocks returns the event's content blocks regardless of whether
// they were supplied via Message or the plain-Text shorthand.
func (e *Event) ContentBlocks() []Part {
	if e.Message != nil {
		return e.Message.Parts
	}
	if e.Text != "" {
		return []Part{TextPart{Text: e.Text}}
	}
	return nil
}

// EffectiveRole returns the role to attribute this event's content to,
// falling back to the event Type when no Message is present.
func (e *Event) EffectiveRole() Role {
	if e.Message != nil {
		return e.Message.Role
	}
	switch e.Type {
	case TypeAssistant:
		return RoleAssistant
	case TypeSystem:
		return RoleSystem
	default:
		return RoleUser
	}
}
