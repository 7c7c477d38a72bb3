package opencode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sessionwatch/sessionwatch/event"
)

func TestNormalizeRow_UnknownTypeRejected(t *testing.T) {
	_, ok := normalizeRow(rawRow{Type: "bogus"})
	require.False(t, ok)
}

func TestNormalizeRow_ToolCallSynthesizesToolUsePart(t *testing.T) {
	r := rawRow{Type: "tool_call", ToolName: "bash", ToolUseID: "id1", ToolInput: map[string]any{"cmd": "ls"}}
	e, ok := normalizeRow(r)
	require.True(t, ok)
	require.Equal(t, event.RoleAssistant, e.Message.Role)
	tu, ok := e.Message.Parts[0].(event.ToolUsePart)
	require.True(t, ok)
	require.Equal(t, "bash", tu.Name)
}

func TestNormalizeRow_ToolResultSynthesizesToolResultPart(t *testing.T) {
	r := rawRow{Type: "tool_result", ToolName: "bash", ToolUseID: "id1", ToolOutput: "done", IsError: true}
	e, ok := normalizeRow(r)
	require.True(t, ok)
	require.Equal(t, event.RoleUser, e.Message.Role)
	tr, ok := e.Message.Parts[0].(event.ToolResultPart)
	require.True(t, ok)
	require.Equal(t, "done", tr.Content)
	require.True(t, tr.IsError)
	require.Equal(t, "bash", e.ToolNameHint)
	require.Equal(t, "id1", e.RawToolResultID)
}

func TestNormalizeRow_DefaultRoleFallback(t *testing.T) {
	e, ok := normalizeRow(rawRow{Type: "user_message", Text: "hi"})
	require.True(t, ok)
	require.Equal(t, event.RoleUser, e.Message.Role)

	e, ok = normalizeRow(rawRow{Type: "assistant_message", Text: "hi"})
	require.True(t, ok)
	require.Equal(t, event.RoleAssistant, e.Message.Role)
}

func TestNormalizeRow_ExplicitRoleHonored(t *testing.T) {
	e, ok := normalizeRow(rawRow{Type: "user_message", Role: "system", Text: "hi"})
	require.True(t, ok)
	require.Equal(t, event.RoleSystem, e.Message.Role)
}

func TestNormalizeRow_UsageAndCost(t *testing.T) {
	cost := 1.25
	r := rawRow{
		Type: "assistant_message",
		Usage: &rawUsage{
			InputTokens:  5,
			OutputTokens: 6,
			CacheTokens:  7,
			CostUSD:      &cost,
		},
	}
	e, ok := normalizeRow(r)
	require.True(t, ok)
	require.NotNil(t, e.Usage)
	require.Equal(t, 5, e.Usage.InputTokens)
	require.Equal(t, 7, e.Usage.CacheReadTokens)
	require.True(t, e.Usage.HasReportedCost)
}

func TestNormalizeRow_TimestampFallback(t *testing.T) {
	e, ok := normalizeRow(rawRow{Type: "user_message", Timestamp: "2024-06-01T00:00:00Z"})
	require.True(t, ok)
	require.Equal(t, 2024, e.Timestamp.Year())

	_, ok = normalizeRow(rawRow{Type: "user_message", Timestamp: "garbage"})
	require.False(t, ok)
}
