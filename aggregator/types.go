// Package aggregator implements the core of the engine: a pure, deterministic
// state machine that distills an append-only event stream into session
// metrics. See the component design for the Aggregator (package-level
// contract: ProcessEvent / Reset / Serialize / Restore).
//
// The Aggregator never performs I/O, never blocks, and never panics: every
// malformed or out-of-order input is absorbed silently (see the Failure
// semantics discussion on Aggregator.ProcessEvent). It holds no file handles,
// no timers, no subscriptions — it is owned exclusively by its caller (the
// session monitor) and safe to use from a single goroutine at a time.
package aggregator

import "time"

// TaskStatus is the lifecycle state of a TrackedTask.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskDeleted    TaskStatus = "deleted"
)

// PlanStepStatus is the lifecycle state of a PlanStep.
type PlanStepStatus string

const (
	StepPending    PlanStepStatus = "pending"
	StepInProgress PlanStepStatus = "in_progress"
	StepCompleted  PlanStepStatus = "completed"
	StepFailed     PlanStepStatus = "failed"
	StepSkipped    PlanStepStatus = "skipped"
)

// TimelineEventType discriminates the kind of TimelineEvent.
type TimelineEventType string

const (
	TimelineUserPrompt        TimelineEventType = "user_prompt"
	TimelineAssistantResponse TimelineEventType = "assistant_response"
	TimelineToolCall          TimelineEventType = "tool_call"
	TimelineToolResult        TimelineEventType = "tool_result"
	TimelineCompaction        TimelineEventType = "compaction"
	TimelineError             TimelineEventType = "error"
	TimelineSessionStart      TimelineEventType = "session_start"
	TimelineSessionEnd        TimelineEventType = "session_end"
)

// NoiseLevel classifies a TimelineEvent for client-side filtering.
type NoiseLevel string

const (
	NoiseUser   NoiseLevel = "user"
	NoiseAI     NoiseLevel = "ai"
	NoiseSystem NoiseLevel = "system"
	NoiseNoise  NoiseLevel = "noise"
)

const descriptionMaxLen = 200

type (
	// UsageTotals holds the non-negative monotonic counters accumulated over
	// the life of a session.
	UsageTotals struct {
		InputTokens      int64
		OutputTokens     int64
		CacheWriteTokens int64
		CacheReadTokens  int64
		ReportedCost     float64
	}

	// ModelStats holds per-model accumulators, keyed by model id ("unknown"
	// when the producer does not supply one).
	ModelStats struct {
		Model            string
		Calls            int64
		InputTokens      int64
		OutputTokens     int64
		CacheWriteTokens int64
		CacheReadTokens  int64
		Cost             float64
	}

	// ToolAnalytics holds per-tool-name call accounting. Completed always
	// equals Success+Failure; Success and Failure never decrease.
	ToolAnalytics struct {
		Name            string
		Pending         int64
		Completed       int64
		Success         int64
		Failure         int64
		TotalDurationMS int64
	}

	// pendingToolCall is transient bookkeeping for a tool_use awaiting its
	// tool_result. Never serialized.
	pendingToolCall struct {
		ToolName string
		Start    time.Time
	}

	// TrackedTask mirrors the Tracked Task data model.
	TrackedTask struct {
		ID                  string
		Subject             string
		Description         string
		Status              TaskStatus
		ActiveForm          string
		CreatedAt           time.Time
		UpdatedAt           time.Time
		BlockedBy           []string
		Blocks              []string
		AssociatedToolCalls []string
		IsSubagent          bool
		SubagentType        string
		IsGoalGate          bool
	}

	// PlanStep mirrors one step of a PlanState.
	PlanStep struct {
		ID           string
		Description  string
		Status       PlanStepStatus
		StartedAt    *time.Time
		CompletedAt  *time.Time
		DurationMS   int64
		TokensUsed   int64
		ToolCalls    int64
		Output       string
		ErrorMessage string
		Complexity   string
	}

	// PlanState mirrors the Plan State data model.
	PlanState struct {
		Active          bool
		Steps           []*PlanStep
		Title           string
		Source          string
		EnteredAt       *time.Time
		ExitedAt        *time.Time
		TotalDurationMS int64
		CompletionRate  float64
		Revision        int
		RawMarkdown     string
	}

	// ContextAttribution holds the seven non-negative buckets that sum to
	// the cumulative estimated context.
	ContextAttribution struct {
		SystemPrompt       int64
		UserMessages       int64
		AssistantResponses int64
		ToolInputs         int64
		ToolOutputs        int64
		Thinking           int64
		Other              int64
	}

	// CompactionEvent records a detected context compaction.
	CompactionEvent struct {
		Timestamp       time.Time
		ContextBefore   int
		ContextAfter    int
		TokensReclaimed int
	}

	// TruncationEvent records a detected tool-output truncation.
	TruncationEvent struct {
		Timestamp time.Time
		ToolName  string
		Marker    string
	}

	// LatencyRecord records one completed user->assistant response cycle.
	LatencyRecord struct {
		UserTimestamp          time.Time
		FirstTokenTimestamp    time.Time
		TotalResponseTimestamp time.Time
		FirstTokenLatencyMS    int64
		TotalResponseMS        int64
	}

	// TimelineEvent is one entry in the capped insertion-ordered timeline.
	TimelineEvent struct {
		Type        TimelineEventType
		Timestamp   time.Time
		Description string
		NoiseLevel  NoiseLevel
		Metadata    map[string]any
	}

	// BurnSample is one point in the token burn-rate sliding window.
	BurnSample struct {
		Timestamp     time.Time
		CumulativeIn  int64
		CumulativeOut int64
	}

	// ContextSizePoint is one point in the context-size time series exposed
	// to callers.
	ContextSizePoint struct {
		Timestamp   time.Time
		InputTokens int
		TurnIndex   int
	}

	// TurnAttribution is the per-turn content breakdown exposed to callers
	// for building a bounded turn history.
	TurnAttribution struct {
		TurnIndex    int
		Timestamp    time.Time
		Role         string
		InputTokens  int
		OutputTokens int
		Breakdown    ContextAttribution
	}

	// TokenUsageDelta is fired whenever an event carries usage.
	TokenUsageDelta struct {
		Model string
		Usage UsageTotals
	}

	// ToolCallInfo is fired whenever a new tool_use block is observed.
	ToolCallInfo struct {
		ToolUseID string
		ToolName  string
		Timestamp time.Time
	}

	// Delta is returned by ProcessEvent and describes everything that
	// changed as a result of processing a single event. Fields are nil/zero
	// when nothing of that kind occurred. Callers (the session monitor) use
	// Delta to decide which outbound events to fire on the external bus.
	Delta struct {
		TokenUsage        *TokenUsageDelta
		ToolCall          *ToolCallInfo
		ToolAnalyticsName string
		Timeline          []TimelineEvent
		Compaction        *CompactionEvent
		Truncation        *TruncationEvent
		Latency           *LatencyRecord
		ContextSizePoint  *ContextSizePoint
		TurnAttribution   *TurnAttribution
		TaskChanged       bool
		PlanChanged       bool
	}
)

func truncateDescription(s string) string {
	r := []rune(s)
	if len(r) <= descriptionMaxLen {
		return s
	}
	return string(r[:descriptionMaxLen-1]) + "…"
}
