package aggregator_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionwatch/sessionwatch/aggregator"
	"github.com/sessionwatch/sessionwatch/event"
)

func mustUsage(in, out int) *event.Usage {
	return &event.Usage{InputTokens: in, OutputTokens: out}
}

func toolUse(id, name string, input any) *event.Event {
	return &event.Event{
		Type:      event.TypeAssistant,
		Timestamp: time.Now(),
		Message: &event.Message{
			Role:  event.RoleAssistant,
			Parts: []event.Part{event.ToolUsePart{ID: id, Name: name, Input: input}},
		},
	}
}

func toolResult(toolUseID, content string, isError bool) *event.Event {
	return &event.Event{
		Type:      event.TypeUser,
		Timestamp: time.Now(),
		Message: &event.Message{
			Role:  event.RoleUser,
			Parts: []event.Part{event.ToolResultPart{ToolUseID: toolUseID, Content: content, IsError: isError}},
		},
	}
}

func userText(text string) *event.Event {
	return &event.Event{
		Type:      event.TypeUser,
		Timestamp: time.Now(),
		Message:   &event.Message{Role: event.RoleUser, Parts: []event.Part{event.TextPart{Text: text}}},
	}
}

func assistantText(text, model string, usage *event.Usage) *event.Event {
	return &event.Event{
		Type:      event.TypeAssistant,
		Timestamp: time.Now(),
		Model:     model,
		Usage:     usage,
		Message:   &event.Message{Role: event.RoleAssistant, Parts: []event.Part{event.TextPart{Text: text}}},
	}
}

// S1 — single tool cycle: tool_use then matching tool_result.
func TestSingleToolCycle(t *testing.T) {
	a := aggregator.New(aggregator.Options{})

	a.ProcessEvent(toolUse("tu1", "Bash", map[string]any{"command": "ls"}))
	stats := a.ToolAnalytics()["Bash"]
	assert.EqualValues(t, 1, stats.Pending)
	assert.EqualValues(t, 0, stats.Completed)

	a.ProcessEvent(toolResult("tu1", "file1\nfile2", false))
	stats = a.ToolAnalytics()["Bash"]
	assert.EqualValues(t, 0, stats.Pending)
	assert.EqualValues(t, 1, stats.Completed)
	assert.EqualValues(t, 1, stats.Success)
	assert.EqualValues(t, 0, stats.Failure)
	assert.EqualValues(t, 2, a.EventCount())
}

// S2 — compaction: context size drops below 80% of the prior non-zero size.
func TestCompactionDetection(t *testing.T) {
	a := aggregator.New(aggregator.Options{})

	a.ProcessEvent(assistantText("hello", "claude-x", mustUsage(1000, 50)))
	require.Equal(t, 0, a.CompactionCount())

	// Next event's context size (input+cache) drops well under 80% of 1000.
	d := a.ProcessEvent(assistantText("continuing", "claude-x", mustUsage(500, 20)))
	assert.Equal(t, 1, a.CompactionCount())
	require.NotNil(t, d.Compaction)
	assert.Equal(t, 1000, d.Compaction.ContextBefore)
	assert.Equal(t, 500, d.Compaction.ContextAfter)
}

// S3 — TodoWrite replacement: T1,T2 (non-subagent) plus a subagent SA, then
// a TodoWrite with three todos, one referencing another via "blocked by".
func TestTodoWriteReplacement(t *testing.T) {
	a := aggregator.New(aggregator.Options{})

	a.ProcessEvent(toolUse("ta1", "TaskCreate", map[string]any{"subject": "T1"}))
	a.ProcessEvent(toolResult("ta1", "Task #1 created", false))
	a.ProcessEvent(toolUse("ta2", "TaskCreate", map[string]any{"subject": "T2"}))
	a.ProcessEvent(toolResult("ta2", "Task #2 created", false))
	a.ProcessEvent(toolUse("sa1", "Task", map[string]any{"description": "SA"}))

	require.Equal(t, "agent-sa1", a.ActiveTaskID())

	a.ProcessEvent(toolUse("tw1", "TodoWrite", map[string]any{
		"todos": []any{
			map[string]any{"content": "A", "status": "pending"},
			map[string]any{"content": "B (blocked by A)", "status": "pending"},
			map[string]any{"content": "C", "status": "pending"},
		},
	}))

	tasks := a.Tasks()
	require.Contains(t, tasks, "agent-sa1")
	require.Contains(t, tasks, "todo-0")
	require.Contains(t, tasks, "todo-1")
	require.Contains(t, tasks, "todo-2")
	assert.Equal(t, []string{"todo-0"}, tasks["todo-1"].BlockedBy)
	assert.Equal(t, []string{"todo-1"}, tasks["todo-0"].Blocks)
	assert.Equal(t, "agent-sa1", a.ActiveTaskID())
}

// S4 — restore from snapshot: a completed tool cycle is serialized, restored
// into a fresh aggregator, then a second tool_result for the same tool_use
// id must not decrement pending (already 0) nor re-count completed.
func TestRestoreNonDecrement(t *testing.T) {
	a := aggregator.New(aggregator.Options{})
	a.ProcessEvent(toolUse("tu1", "Bash", map[string]any{}))
	a.ProcessEvent(toolResult("tu1", "ok", false))

	snap := a.Serialize()

	b := aggregator.New(aggregator.Options{})
	ok := b.Restore(snap)
	require.True(t, ok)

	before := b.ToolAnalytics()["Bash"]
	assert.EqualValues(t, 0, before.Pending)
	assert.EqualValues(t, 1, before.Completed)

	b.ProcessEvent(toolResult("tu1", "ok again", false))

	after := b.ToolAnalytics()["Bash"]
	assert.EqualValues(t, 0, after.Pending)
	assert.EqualValues(t, 1, after.Completed)
}

// S5 — snapshot version mismatch: restoring with an unrecognized version is
// a no-op that leaves the aggregator freshly reset.
func TestRestoreVersionMismatch(t *testing.T) {
	a := aggregator.New(aggregator.Options{})
	a.ProcessEvent(toolUse("tu1", "Bash", map[string]any{}))
	a.ProcessEvent(toolResult("tu1", "ok", false))

	snap := a.Serialize()
	snap.Version = 999

	b := aggregator.New(aggregator.Options{})
	ok := b.Restore(snap)
	assert.False(t, ok)
	assert.EqualValues(t, 0, b.EventCount())
}

// S6 — truncation detection via sentinel marker matching.
func TestTruncationDetection(t *testing.T) {
	a := aggregator.New(aggregator.Options{})
	a.ProcessEvent(toolUse("tu1", "Read", map[string]any{"file_path": "big.log"}))
	a.ProcessEvent(toolResult("tu1", "...[response truncated]", false))

	require.Equal(t, 1, a.TruncationCount())
	tr := a.Truncations()[0]
	assert.Equal(t, "Read", tr.ToolName)
	assert.Equal(t, "Response truncated", tr.Marker)
}

func TestActiveTaskClearedOnDelete(t *testing.T) {
	a := aggregator.New(aggregator.Options{})
	a.ProcessEvent(toolUse("ta1", "TaskCreate", map[string]any{"subject": "T1"}))
	a.ProcessEvent(toolResult("ta1", "Task #1 created", false))
	a.ProcessEvent(toolUse("tu1", "TaskUpdate", map[string]any{"taskId": "1", "status": "in_progress"}))
	assert.Equal(t, "1", a.ActiveTaskID())

	a.ProcessEvent(toolUse("tu2", "TaskUpdate", map[string]any{"taskId": "1", "status": "deleted"}))
	assert.Equal(t, "", a.ActiveTaskID())
	_, exists := a.Tasks()["1"]
	assert.False(t, exists)
}

func TestGettersReturnIndependentCopies(t *testing.T) {
	a := aggregator.New(aggregator.Options{})
	a.ProcessEvent(toolUse("tu1", "Bash", map[string]any{}))

	tools := a.ToolAnalytics()
	entry := tools["Bash"]
	entry.Pending = 999
	tools["Bash"] = entry

	fresh := a.ToolAnalytics()
	assert.EqualValues(t, 1, fresh["Bash"].Pending)
}

func TestResetZeroesEverythingExceptProviderID(t *testing.T) {
	a := aggregator.New(aggregator.Options{ProviderID: "claude-code"})
	a.ProcessEvent(assistantText("hi", "claude-x", mustUsage(10, 5)))
	require.EqualValues(t, 1, a.EventCount())

	a.Reset()
	assert.EqualValues(t, 0, a.EventCount())
	assert.Equal(t, "claude-code", a.ProviderID())
	assert.Equal(t, aggregator.UsageTotals{}, a.UsageTotals())
}

// Property: tool analytics never shows Completed != Success+Failure, and
// Pending never goes negative, across arbitrary valid tool_use/tool_result
// interleavings.
func TestToolAnalyticsInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("completed equals success plus failure, pending never negative", prop.ForAll(
		func(ops []toolOp) bool {
			a := aggregator.New(aggregator.Options{})
			for i, op := range ops {
				id := "tu" + strconv.Itoa(i%5)
				if op.isUse {
					a.ProcessEvent(toolUse(id, "Bash", map[string]any{}))
				} else {
					a.ProcessEvent(toolResult(id, "output", op.isError))
				}
			}
			for _, stats := range a.ToolAnalytics() {
				if stats.Pending < 0 {
					return false
				}
				if stats.Completed != stats.Success+stats.Failure {
					return false
				}
			}
			return true
		},
		genToolOps(),
	))

	properties.TestingRun(t)
}

type toolOp struct {
	isUse   bool
	isError bool
}

func genToolOps() gopter.Gen {
	genOp := gen.IntRange(0, 3).Map(func(n int) toolOp {
		return toolOp{isUse: n%2 == 0, isError: n >= 2}
	})
	return gen.SliceOfN(26, genOp)
}
