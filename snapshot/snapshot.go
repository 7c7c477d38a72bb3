// Package snapshot implements the sidecar persistence layer (C5): it writes
// and reads the combined aggregator+consumer state keyed by session id, and
// answers whether a stored snapshot is still valid against the session
// file's current size.
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/sessionwatch/sessionwatch/aggregator"
)

// Wire is the full on-disk snapshot document. Consumer
// is left as raw JSON so this package never needs to depend on the monitor
// package's consumer-local state shape; the monitor marshals/unmarshals it.
type Wire struct {
	Version        int                           `json:"version"`
	SessionID      string                        `json:"session_id"`
	ProviderID     string                        `json:"provider_id"`
	ReaderPosition int64                         `json:"reader_position"`
	SourceSize     int64                         `json:"source_size"`
	CreatedAt      time.Time                     `json:"created_at"`
	Aggregator     aggregator.AggregatorSnapshot `json:"aggregator"`
	Consumer       json.RawMessage               `json:"consumer,omitempty"`
}

// Store is the persistence contract for sidecar snapshots.
type Store interface {
	Save(sessionID string, w Wire) error
	Load(sessionID string) (Wire, bool, error)
	Delete(sessionID string) error
}

// IsValid reports whether w is still usable for fast-forwarding against a
// session file whose current size is currentSourceSize: the snapshot's
// recorded source size must not exceed the current size (a smaller current
// size means the file was truncated/rotated since the snapshot was taken)
// and both the wire and aggregator versions must be non-zero. The versions
// are not compared with the current schema here; Aggregator.Restore rejects
// an unknown aggregator version.
func IsValid(w Wire, currentSourceSize int64) bool {
	if w.Version == 0 {
		return false
	}
	if w.Aggregator.Version == 0 {
		return false
	}
	return w.SourceSize <= currentSourceSize
}
