package aggregator

import (
	"time"

	"github.com/sessionwatch/sessionwatch/event"
)

// applyLatency tracks the single-shot user->assistant response cycle: a user
// event with non-empty text notes a pending timestamp; the next
// usage-bearing assistant event with text closes it into a LatencyRecord
// . Since producers in scope are non-streaming from the engine's
// point of view, FirstTokenLatencyMS and TotalResponseMS are identical.
func (a *Aggregator) applyLatency(e *event.Event, d *Delta) {
	switch e.Type {
	case event.TypeUser:
		if onlyToolResults(e.ContentBlocks()) {
			return
		}
		text := firstText(e.ContentBlocks())
		if text == "" {
			return
		}
		ts := e.Timestamp
		a.pendingLatencyUser = &ts
		a.pendingLatencyTurn = a.turnIndex

	case event.TypeAssistant:
		if a.pendingLatencyUser == nil {
			return
		}
		if e.Usage == nil {
			return
		}
		if firstText(e.ContentBlocks()) == "" {
			return
		}
		latencyMS := e.Timestamp.Sub(*a.pendingLatencyUser).Milliseconds()
		if latencyMS < 0 {
			latencyMS = 0
		}
		rec := LatencyRecord{
			UserTimestamp:          *a.pendingLatencyUser,
			FirstTokenTimestamp:    e.Timestamp,
			TotalResponseTimestamp: e.Timestamp,
			FirstTokenLatencyMS:    latencyMS,
			TotalResponseMS:        latencyMS,
		}
		a.latencies = append(a.latencies, rec)
		if len(a.latencies) > a.opts.LatencyCap {
			a.latencies = a.latencies[len(a.latencies)-a.opts.LatencyCap:]
		}
		d.Latency = &rec
		a.pendingLatencyUser = nil
	}
}

// LatencyStats summarizes the latency ring for external consumers.
type LatencyStats struct {
	Count     int
	AverageMS float64
	MaximumMS int64
	LastMS    int64
}

// Latencies returns an independent copy of the capped latency ring.
func (a *Aggregator) Latencies() []LatencyRecord {
	out := make([]LatencyRecord, len(a.latencies))
	copy(out, a.latencies)
	return out
}

// LatencyStatistics derives average/maximum/last from the current ring.
func (a *Aggregator) LatencyStatistics() LatencyStats {
	if len(a.latencies) == 0 {
		return LatencyStats{}
	}
	var sum, max int64
	for _, r := range a.latencies {
		sum += r.TotalResponseMS
		if r.TotalResponseMS > max {
			max = r.TotalResponseMS
		}
	}
	last := a.latencies[len(a.latencies)-1].TotalResponseMS
	return LatencyStats{
		Count:     len(a.latencies),
		AverageMS: float64(sum) / float64(len(a.latencies)),
		MaximumMS: max,
		LastMS:    last,
	}
}

// recordBurnSample appends a burn-rate sample at most once per BurnSampleMS
// and drops samples older than BurnWindowMS.
func (a *Aggregator) recordBurnSample(e *event.Event) {
	ts := e.Timestamp
	if len(a.burnSamples) > 0 {
		last := a.burnSamples[len(a.burnSamples)-1]
		if ts.Sub(last.Timestamp).Milliseconds() < a.opts.BurnSampleMS {
			return
		}
	}
	a.burnSamples = append(a.burnSamples, BurnSample{
		Timestamp:     ts,
		CumulativeIn:  a.usage.InputTokens,
		CumulativeOut: a.usage.OutputTokens,
	})
	cutoff := ts.Add(-time.Duration(a.opts.BurnWindowMS) * time.Millisecond)
	i := 0
	for i < len(a.burnSamples) && a.burnSamples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		a.burnSamples = a.burnSamples[i:]
	}
}

// BurnRate returns the current token burn rate in tokens/minute over the
// configured sliding window, or 0 when fewer than two samples are available.
func (a *Aggregator) BurnRate() float64 {
	if len(a.burnSamples) < 2 {
		return 0
	}
	first := a.burnSamples[0]
	last := a.burnSamples[len(a.burnSamples)-1]
	minutes := last.Timestamp.Sub(first.Timestamp).Minutes()
	if minutes <= 0 {
		return 0
	}
	deltaTokens := (last.CumulativeIn + last.CumulativeOut) - (first.CumulativeIn + first.CumulativeOut)
	return float64(deltaTokens) / minutes
}
