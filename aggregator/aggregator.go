package aggregator

import (
	"time"

	"github.com/sessionwatch/sessionwatch/event"
)

const (
	// DefaultTimelineCap is the default number of timeline entries retained.
	DefaultTimelineCap = 100
	// DefaultLatencyCap is the default number of latency records retained.
	DefaultLatencyCap = 50
	// DefaultBurnWindowMS is the default sliding window for burn-rate samples.
	DefaultBurnWindowMS = 300_000
	// DefaultBurnSampleMS is the minimum spacing between burn-rate samples.
	DefaultBurnSampleMS = 10_000
	// CompactionThreshold is the fraction of the prior context size below
	// which a new context size is considered a compaction.
	CompactionThreshold = 0.80
	// GoalGateBlocksThreshold is the minimum number of blocked tasks that
	// makes a task a goal gate regardless of keyword match.
	GoalGateBlocksThreshold = 3

	// snapshotVersion is incremented on any non-backward-compatible shape
	// change to AggregatorSnapshot. restore() with an unknown version is a
	// no-op that returns a fresh aggregator.
	snapshotVersion = 1
)

// ComputeContextSizeFunc computes the context-window size attributable to a
// usage-bearing event. The default is input+cache_write+cache_read.
type ComputeContextSizeFunc func(u event.Usage) int

// ReadPlanFileFunc is the injected side-effecting callback used as the last
// resort when materializing a plan on ExitPlanMode and no accumulated
// assistant text or written plan file content is available. A nil or always-empty callback still produces valid (if
// sparser) plans.
type ReadPlanFileFunc func(path string) (string, bool)

// Options configures optional Aggregator behavior. All fields are optional;
// zero values fall back to the documented defaults.
type Options struct {
	TimelineCap        int
	LatencyCap         int
	BurnWindowMS       int64
	BurnSampleMS       int64
	ProviderID         string
	ComputeContextSize ComputeContextSizeFunc
	ReadPlanFile       ReadPlanFileFunc
}

func defaultComputeContextSize(u event.Usage) int {
	return u.InputTokens + u.CacheCreationTokens + u.CacheReadTokens
}

func (o Options) withDefaults() Options {
	if o.TimelineCap <= 0 {
		o.TimelineCap = DefaultTimelineCap
	}
	if o.LatencyCap <= 0 {
		o.LatencyCap = DefaultLatencyCap
	}
	if o.BurnWindowMS <= 0 {
		o.BurnWindowMS = DefaultBurnWindowMS
	}
	if o.BurnSampleMS <= 0 {
		o.BurnSampleMS = DefaultBurnSampleMS
	}
	if o.ComputeContextSize == nil {
		o.ComputeContextSize = defaultComputeContextSize
	}
	return o
}

// Aggregator is the pure, single-threaded state machine described by the
// component design. It is driven exclusively through ProcessEvent, Reset,
// Serialize, and Restore; every other method is a read-only accessor.
type Aggregator struct {
	opts Options

	usage  UsageTotals
	models map[string]*ModelStats
	tools  map[string]*ToolAnalytics

	pendingTools       map[string]pendingToolCall
	pendingTaskCreates map[string]string // tool_use_id -> subject/description text
	tasks              map[string]*TrackedTask
	activeTaskID       string
	todoSeq            int
	planSeq            int

	plan              *PlanState
	planAssistantText []string
	planLastUserText  string
	lastEditTarget    string
	lastPlanFilePath  string
	lastPlanFileText  string
	lastErrorMessage  string

	contextAttrib   ContextAttribution
	lastContextSize int
	turnIndex       int

	compactions []CompactionEvent
	truncations []TruncationEvent
	timeline    []TimelineEvent
	latencies   []LatencyRecord

	pendingLatencyUser *time.Time
	pendingLatencyTurn int

	burnSamples []BurnSample

	eventCount int64
}

// New constructs an empty Aggregator ready to process events.
func New(opts Options) *Aggregator {
	a := &Aggregator{opts: opts.withDefaults()}
	a.resetState()
	return a
}

// ProviderID returns the provider identifier this aggregator was configured
// with. It is not reset by Reset.
func (a *Aggregator) ProviderID() string { return a.opts.ProviderID }

// EventCount returns the number of events processed since creation or the
// last Reset.
func (a *Aggregator) EventCount() int64 { return a.eventCount }

// Reset zeroes every counter and empties every collection except ProviderID.
func (a *Aggregator) Reset() {
	a.resetState()
}

func (a *Aggregator) resetState() {
	a.usage = UsageTotals{}
	a.models = make(map[string]*ModelStats)
	a.tools = make(map[string]*ToolAnalytics)
	a.pendingTools = make(map[string]pendingToolCall)
	a.pendingTaskCreates = make(map[string]string)
	a.tasks = make(map[string]*TrackedTask)
	a.activeTaskID = ""
	a.todoSeq = 0
	a.planSeq = 0
	a.plan = nil
	a.planAssistantText = nil
	a.planLastUserText = ""
	a.lastEditTarget = ""
	a.lastPlanFilePath = ""
	a.lastPlanFileText = ""
	a.lastErrorMessage = ""
	a.contextAttrib = ContextAttribution{}
	a.lastContextSize = 0
	a.turnIndex = 0
	a.compactions = nil
	a.truncations = nil
	a.timeline = nil
	a.latencies = nil
	a.pendingLatencyUser = nil
	a.pendingLatencyTurn = 0
	a.burnSamples = nil
	a.eventCount = 0
}

// SeedContextSize sets the current and previous remembered context size
// without emitting a compaction. Used when restoring derived state from an
// external source that already computed a context size.
func (a *Aggregator) SeedContextSize(n int) {
	a.lastContextSize = n
}

// SeedContextAttribution writes all seven buckets atomically.
func (a *Aggregator) SeedContextAttribution(c ContextAttribution) {
	a.contextAttrib = c
}

// ProcessEvent is the single entry point driving all aggregator state. It
// never blocks, never performs I/O, and never panics: malformed content is
// skipped, duplicate handling is the caller's responsibility, and
// every branch degrades gracefully rather than failing.
func (a *Aggregator) ProcessEvent(e *event.Event) Delta {
	if e == nil {
		return Delta{}
	}
	a.eventCount++

	var d Delta

	if e.Usage != nil {
		a.applyUsage(e, &d)
	}

	a.applyContextAttribution(e, &d)
	a.applyToolBlocks(e, &d)
	a.applyTaskEvents(e, &d)
	a.applyPlanEvents(e, &d)
	a.applyTruncation(e, &d)
	a.applyLatency(e, &d)
	a.appendTimelineForEvent(e, &d)

	return d
}
