package aggregator

import "github.com/sessionwatch/sessionwatch/event"

const unknownModel = "unknown"

// applyUsage accumulates token totals and per-model stats for any event
// carrying usage, and advances context-size/compaction detection.
func (a *Aggregator) applyUsage(e *event.Event, d *Delta) {
	u := e.Usage

	a.usage.InputTokens += int64(u.InputTokens)
	a.usage.OutputTokens += int64(u.OutputTokens)
	a.usage.CacheWriteTokens += int64(u.CacheCreationTokens)
	a.usage.CacheReadTokens += int64(u.CacheReadTokens)
	if u.HasReportedCost {
		a.usage.ReportedCost += u.ReportedCost
	}

	model := e.Model
	if model == "" {
		model = unknownModel
	}
	ms, ok := a.models[model]
	if !ok {
		ms = &ModelStats{Model: model}
		a.models[model] = ms
	}
	ms.Calls++
	ms.InputTokens += int64(u.InputTokens)
	ms.OutputTokens += int64(u.OutputTokens)
	ms.CacheWriteTokens += int64(u.CacheCreationTokens)
	ms.CacheReadTokens += int64(u.CacheReadTokens)
	if u.HasReportedCost {
		ms.Cost += u.ReportedCost
	}

	d.TokenUsage = &TokenUsageDelta{Model: model, Usage: a.usage}

	a.recordBurnSample(e)
	a.advanceContextSize(e, d)
}

// advanceContextSize computes the current context size (producer-supplied
// formula by default) and emits a CompactionEvent when it drops below 80% of
// the previously remembered non-zero size.
func (a *Aggregator) advanceContextSize(e *event.Event, d *Delta) {
	size := e.ContextSize
	if size == 0 {
		size = a.opts.ComputeContextSize(*e.Usage)
	}
	if size < 0 {
		size = 0
	}

	a.turnIndex++

	if a.lastContextSize > 0 && float64(size) < float64(a.lastContextSize)*CompactionThreshold {
		ce := CompactionEvent{
			Timestamp:       e.Timestamp,
			ContextBefore:   a.lastContextSize,
			ContextAfter:    size,
			TokensReclaimed: a.lastContextSize - size,
		}
		a.compactions = append(a.compactions, ce)
		d.Compaction = &ce
		a.appendTimeline(TimelineEvent{
			Type:        TimelineCompaction,
			Timestamp:   e.Timestamp,
			Description: "context compacted",
			NoiseLevel:  NoiseSystem,
			Metadata: map[string]any{
				"context_before":   ce.ContextBefore,
				"context_after":    ce.ContextAfter,
				"tokens_reclaimed": ce.TokensReclaimed,
			},
		}, d)
	}

	if size > 0 {
		a.lastContextSize = size
	}

	d.ContextSizePoint = &ContextSizePoint{
		Timestamp:   e.Timestamp,
		InputTokens: size,
		TurnIndex:   a.turnIndex,
	}
}

// Compactions returns an independent copy of all detected compactions.
func (a *Aggregator) Compactions() []CompactionEvent {
	out := make([]CompactionEvent, len(a.compactions))
	copy(out, a.compactions)
	return out
}

// CompactionCount returns the number of detected compactions.
func (a *Aggregator) CompactionCount() int { return len(a.compactions) }

// UsageTotals returns an independent copy of the accumulated usage totals.
func (a *Aggregator) UsageTotals() UsageTotals { return a.usage }

// ModelStats returns an independent copy of the per-model accumulators.
func (a *Aggregator) ModelStats() map[string]ModelStats {
	out := make(map[string]ModelStats, len(a.models))
	for k, v := range a.models {
		out[k] = *v
	}
	return out
}

// LastContextSize returns the remembered last non-zero context size.
func (a *Aggregator) LastContextSize() int { return a.lastContextSize }

// ContextHealth reports the share of a supplied window limit still free:
// 100 minus the current context size as a percentage of the limit, clamped
// to [0,100]; a non-positive limit reports 100. Callers (the session monitor)
// supply the model's context window limit, which is producer-specific and
// out of the Aggregator's purview.
func ContextHealth(currentSize, windowLimit int) float64 {
	if windowLimit <= 0 {
		return 100
	}
	pct := 100 * (1 - float64(currentSize)/float64(windowLimit))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
