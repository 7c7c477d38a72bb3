package aggregator

import (
	"fmt"
	"strings"

	"github.com/sessionwatch/sessionwatch/event"
)

// systemReminderSentinels are text markers that cause a user-event text
// block to be attributed to "system_prompt" rather than "user_messages".
var systemReminderSentinels = []string{
	"<system-reminder>",
	"CLAUDE.md",
	"AGENTS.md",
	"# System",
	"_instructions>",
}

func looksLikeSystemReminder(text string) bool {
	for _, s := range systemReminderSentinels {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func estimateTokens(s string) int64 {
	if s == "" {
		return 0
	}
	n := int64(len([]rune(s)))
	return (n + 3) / 4
}

// applyContextAttribution walks the event's content blocks and assigns their
// estimated size to one of the seven context-attribution buckets.
// Bucket amounts are always the length-based estimate, even when the event
// carries usage; producer-supplied input/output token counts are recorded
// only on the turn attribution.
func (a *Aggregator) applyContextAttribution(e *event.Event, d *Delta) {
	blocks := e.ContentBlocks()
	var turn TurnAttribution
	turn.TurnIndex = a.turnIndex
	turn.Timestamp = e.Timestamp
	turn.Role = string(e.EffectiveRole())

	switch e.Type {
	case event.TypeSummary:
		amt := estimateTokens(e.Text)
		a.contextAttrib.Other += amt
		turn.Breakdown.Other += amt

	case event.TypeUser, event.TypeToolResult:
		for _, b := range blocks {
			switch v := b.(type) {
			case event.ToolResultPart:
				amt := estimateTokens(v.Content)
				a.contextAttrib.ToolOutputs += amt
				turn.Breakdown.ToolOutputs += amt
			case event.TextPart:
				if looksLikeSystemReminder(v.Text) {
					amt := estimateTokens(v.Text)
					a.contextAttrib.SystemPrompt += amt
					turn.Breakdown.SystemPrompt += amt
				} else {
					amt := estimateTokens(v.Text)
					a.contextAttrib.UserMessages += amt
					turn.Breakdown.UserMessages += amt
				}
			}
		}

	case event.TypeAssistant, event.TypeToolUse:
		for _, b := range blocks {
			switch v := b.(type) {
			case event.ThinkingPart:
				amt := estimateTokens(v.Text)
				a.contextAttrib.Thinking += amt
				turn.Breakdown.Thinking += amt
			case event.ToolUsePart:
				amt := estimateTokens(inputAsText(v.Input))
				a.contextAttrib.ToolInputs += amt
				turn.Breakdown.ToolInputs += amt
			case event.TextPart:
				amt := estimateTokens(v.Text)
				a.contextAttrib.AssistantResponses += amt
				turn.Breakdown.AssistantResponses += amt
			}
		}
	}

	if e.Usage != nil {
		turn.InputTokens = e.Usage.InputTokens
		turn.OutputTokens = e.Usage.OutputTokens
	}

	if len(blocks) > 0 || e.Usage != nil {
		d.TurnAttribution = &turn
	}
}

func inputAsText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ContextAttribution returns an independent copy of the seven buckets.
func (a *Aggregator) ContextAttribution() ContextAttribution { return a.contextAttrib }
