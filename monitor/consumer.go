package monitor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sessionwatch/sessionwatch/aggregator"
)

// consumerState is the derived, monitor-owned state that sits alongside the
// aggregator's own state: history the aggregator itself does not retain,
// because retaining it is a consumer concern rather than a pure-core one.
type consumerState struct {
	turnAttributions []aggregator.TurnAttribution
	contextTimeline  []aggregator.ContextSizePoint
	timeline         []aggregator.TimelineEvent
	toolAnalytics    map[string]aggregator.ToolAnalytics

	toolCallHistory []toolFingerprint
	assistantTexts  []string

	lastModelID      string
	sessionStartTime *time.Time
	currentTurnIndex int
	planStepCursor   int
	lastErrorMessage string
}

type toolFingerprint struct {
	Timestamp time.Time
	Name      string
	Digest    string
}

func newConsumerState() *consumerState {
	return &consumerState{toolAnalytics: make(map[string]aggregator.ToolAnalytics)}
}

func (c *consumerState) appendTurnAttribution(ta aggregator.TurnAttribution) {
	c.turnAttributions = append(c.turnAttributions, ta)
	if len(c.turnAttributions) > MaxTurnAttributions {
		c.turnAttributions = append([]aggregator.TurnAttribution(nil), c.turnAttributions[1:]...)
	}
	c.currentTurnIndex = ta.TurnIndex
}

// appendContextPoint appends a context-size sample, halving the series by
// dropping every other (older) entry once MaxContextTimeline is exceeded,
// rather than simply truncating the front — this keeps a long-running
// session's early history visible at reduced resolution instead of losing
// it outright.
func (c *consumerState) appendContextPoint(p aggregator.ContextSizePoint) {
	c.contextTimeline = append(c.contextTimeline, p)
	if len(c.contextTimeline) > MaxContextTimeline {
		thinned := make([]aggregator.ContextSizePoint, 0, len(c.contextTimeline)/2+1)
		for i, pt := range c.contextTimeline {
			if i%2 == 0 {
				thinned = append(thinned, pt)
			}
		}
		c.contextTimeline = thinned
	}
}

func (c *consumerState) appendTimeline(events []aggregator.TimelineEvent) {
	if len(events) == 0 {
		return
	}
	c.timeline = append(c.timeline, events...)
	if over := len(c.timeline) - MaxTimelineEvents; over > 0 {
		c.timeline = append([]aggregator.TimelineEvent(nil), c.timeline[over:]...)
	}
}

func (c *consumerState) mirrorToolAnalytics(name string, analytics aggregator.ToolAnalytics) {
	c.toolAnalytics[name] = analytics
}

// recordToolCall records a tool-call fingerprint for cycle detection,
// keeping only the most recent window needed by the largest detector
// window size.
func (c *consumerState) recordToolCall(ts time.Time, name string, input any) {
	c.toolCallHistory = append(c.toolCallHistory, toolFingerprint{
		Timestamp: ts,
		Name:      name,
		Digest:    fingerprint(name, input),
	})
	const keep = 40
	if over := len(c.toolCallHistory) - keep; over > 0 {
		c.toolCallHistory = append([]toolFingerprint(nil), c.toolCallHistory[over:]...)
	}
}

func fingerprint(name string, input any) string {
	data, err := json.Marshal(input)
	if err != nil {
		return name
	}
	sum := sha256.Sum256(data)
	return name + ":" + hex.EncodeToString(sum[:8])
}

// pushAssistantText records an assistant text block for downstream decision
// extraction, truncating each entry to MaxAssistantTextLength and capping
// the buffer at MaxAssistantTexts entries.
func (c *consumerState) pushAssistantText(text string) {
	if text == "" {
		return
	}
	if r := []rune(text); len(r) > MaxAssistantTextLength {
		text = string(r[:MaxAssistantTextLength])
	}
	c.assistantTexts = append(c.assistantTexts, text)
	if over := len(c.assistantTexts) - MaxAssistantTexts; over > 0 {
		c.assistantTexts = append([]string(nil), c.assistantTexts[over:]...)
	}
}

// consumerWire is the JSON shape of the "consumer" section of the snapshot
// document.
type consumerWire struct {
	Stats            consumerStats                 `json:"stats"`
	LastModelID      string                        `json:"lastModelId,omitempty"`
	SessionStartTime *time.Time                    `json:"sessionStartTime,omitempty"`
	CurrentTurnIndex int                           `json:"currentTurnIndex"`
	TurnAttributions []aggregator.TurnAttribution  `json:"turnAttributions"`
	ContextTimeline  []aggregator.ContextSizePoint `json:"contextTimeline"`
	Timeline         []aggregator.TimelineEvent    `json:"timeline"`
	ToolAnalyticsMap []toolAnalyticsPair           `json:"toolAnalyticsMap"`
	SeenHashes       []string                      `json:"seenHashes"`
}

type toolAnalyticsPair struct {
	Name      string                   `json:"name"`
	Analytics aggregator.ToolAnalytics `json:"analytics"`
}

// consumerStats is a small free-form rollup kept for operator display; it
// duplicates nothing the aggregator does not already expose, so it is
// recomputed rather than independently accumulated.
type consumerStats struct {
	AssistantTextCount int `json:"assistantTextCount"`
	ToolCallHistoryLen int `json:"toolCallHistoryLen"`
	PlanStepCursor     int `json:"planStepCursor"`
}

func (c *consumerState) marshal(hashes *hashSet) json.RawMessage {
	w := consumerWire{
		Stats: consumerStats{
			AssistantTextCount: len(c.assistantTexts),
			ToolCallHistoryLen: len(c.toolCallHistory),
			PlanStepCursor:     c.planStepCursor,
		},
		LastModelID:      c.lastModelID,
		SessionStartTime: c.sessionStartTime,
		CurrentTurnIndex: c.currentTurnIndex,
		TurnAttributions: c.turnAttributions,
		ContextTimeline:  c.contextTimeline,
		Timeline:         c.timeline,
		SeenHashes:       hashes.snapshot(),
	}
	for name, a := range c.toolAnalytics {
		w.ToolAnalyticsMap = append(w.ToolAnalyticsMap, toolAnalyticsPair{Name: name, Analytics: a})
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil
	}
	return data
}

func (c *consumerState) unmarshal(raw json.RawMessage, hashes *hashSet) error {
	if len(raw) == 0 {
		return nil
	}
	var w consumerWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return fmt.Errorf("monitor: decode consumer snapshot: %w", err)
	}
	c.lastModelID = w.LastModelID
	c.sessionStartTime = w.SessionStartTime
	c.currentTurnIndex = w.CurrentTurnIndex
	c.turnAttributions = w.TurnAttributions
	c.contextTimeline = w.ContextTimeline
	c.timeline = w.Timeline
	c.planStepCursor = w.Stats.PlanStepCursor
	c.toolAnalytics = make(map[string]aggregator.ToolAnalytics, len(w.ToolAnalyticsMap))
	for _, pair := range w.ToolAnalyticsMap {
		c.toolAnalytics[pair.Name] = pair.Analytics
	}
	hashes.restore(w.SeenHashes)
	return nil
}
