package aggregator

import "github.com/sessionwatch/sessionwatch/event"

// appendTimeline appends an entry to the capped insertion-ordered timeline
// ring, evicting the oldest entry once the cap is reached.
func (a *Aggregator) appendTimeline(te TimelineEvent, d *Delta) {
	te.Description = truncateDescription(te.Description)
	a.timeline = append(a.timeline, te)
	if len(a.timeline) > a.opts.TimelineCap {
		a.timeline = a.timeline[len(a.timeline)-a.opts.TimelineCap:]
	}
	d.Timeline = append(d.Timeline, te)
}

// appendTimelineForEvent produces the timeline entry for user prompts and
// assistant text responses (tool_use/tool_result/compaction/truncation are
// appended inline by their respective handlers).
func (a *Aggregator) appendTimelineForEvent(e *event.Event, d *Delta) {
	if e.IsSidechain {
		a.appendSidechainNoise(e, d)
		return
	}

	switch e.Type {
	case event.TypeUser:
		blocks := e.ContentBlocks()
		if onlyToolResults(blocks) {
			return
		}
		text := firstText(blocks)
		if text == "" {
			return
		}
		a.appendTimeline(TimelineEvent{
			Type:        TimelineUserPrompt,
			Timestamp:   e.Timestamp,
			Description: text,
			NoiseLevel:  NoiseUser,
		}, d)

	case event.TypeAssistant:
		text := firstText(e.ContentBlocks())
		if text == "" {
			return
		}
		meta := map[string]any{}
		if e.Model != "" {
			meta["model"] = e.Model
		}
		if e.Usage != nil {
			meta["token_count"] = e.Usage.InputTokens + e.Usage.OutputTokens
		}
		a.appendTimeline(TimelineEvent{
			Type:        TimelineAssistantResponse,
			Timestamp:   e.Timestamp,
			Description: text,
			NoiseLevel:  NoiseAI,
			Metadata:    meta,
		}, d)

	case event.TypeSummary:
		a.appendTimeline(TimelineEvent{
			Type:        TimelineCompaction,
			Timestamp:   e.Timestamp,
			Description: "session summary",
			NoiseLevel:  NoiseSystem,
		}, d)
	}
}

func (a *Aggregator) appendSidechainNoise(e *event.Event, d *Delta) {
	text := firstText(e.ContentBlocks())
	if text == "" {
		return
	}
	a.appendTimeline(TimelineEvent{
		Type:        TimelineToolCall,
		Timestamp:   e.Timestamp,
		Description: text,
		NoiseLevel:  NoiseNoise,
	}, d)
}

func onlyToolResults(blocks []event.Part) bool {
	if len(blocks) == 0 {
		return false
	}
	for _, b := range blocks {
		if _, ok := b.(event.ToolResultPart); !ok {
			return false
		}
	}
	return true
}

func firstText(blocks []event.Part) string {
	for _, b := range blocks {
		switch v := b.(type) {
		case event.TextPart:
			if v.Text != "" {
				return v.Text
			}
		}
	}
	return ""
}

// Timeline returns an independent copy of the capped timeline, oldest first.
func (a *Aggregator) Timeline() []TimelineEvent {
	out := make([]TimelineEvent, len(a.timeline))
	copy(out, a.timeline)
	return out
}
