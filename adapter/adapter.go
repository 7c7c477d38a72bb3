// Package adapter defines the Producer Adapter contract: a
// uniform façade over a family of producers that may use different
// on-disk encodings. One Adapter instance corresponds to one producer
// family (see the claudecode and opencode subpackages for concrete
// implementations).
package adapter

import (
	"time"

	"github.com/sessionwatch/sessionwatch/event"
	"github.com/sessionwatch/sessionwatch/reader"
)

// SessionRef identifies one session belonging to a producer family. Path is
// the producer-native location (a file or a DB connection string plus row
// key); Adapters are free to leave it opaque to callers other than
// themselves.
type SessionRef struct {
	Path         string
	ModifiedAt   time.Time
	WorkspaceKey string
}

// SubagentStats summarizes one sidechain/subagent transcript discovered
// under a session directory.
type SubagentStats struct {
	AgentID    string
	EventCount int
	StartedAt  time.Time
	EndedAt    time.Time
}

// Adapter is the producer-family façade. Every method degrades gracefully:
// missing paths yield empty results, never an error; malformed records are
// silently skipped by the reader it constructs.
type Adapter interface {
	// Name identifies the producer family ("claudecode", "opencode", ...).
	Name() string

	// SessionDirectory returns the conventional session directory for a
	// workspace; it may not yet exist.
	SessionDirectory(workspace string) string

	// DiscoverSessionDirectory heuristically locates a session directory
	// when the conventional one is absent (encoded workspace name match,
	// ancestor scan). Returns "" when nothing is found.
	DiscoverSessionDirectory(workspace string) string

	// FindActiveSession returns the most recently modified session
	// belonging to this producer for workspace, or nil.
	FindActiveSession(workspace string) *SessionRef

	// FindAllSessions returns every session for workspace, most recently
	// modified first.
	FindAllSessions(workspace string) []SessionRef

	// IsSessionRef reports whether name plausibly names a session belonging
	// to this producer (e.g. the right file extension or naming scheme).
	IsSessionRef(name string) bool

	// GetSessionID returns a stable identifier for ref: a file basename, a
	// database row id, or a synthetic path.
	GetSessionID(ref SessionRef) string

	// EncodeWorkspacePath losslessly folds slashes, colons, and
	// underscores in absPath to a single separator, so the encoded form
	// can be prefix-compared.
	EncodeWorkspacePath(absPath string) string

	// ExtractSessionLabel returns a short preview (e.g. the first user
	// message, truncated) for ref, or "" when unavailable.
	ExtractSessionLabel(ref SessionRef) string

	// CreateReader constructs an Incremental Reader over ref.
	CreateReader(ref SessionRef) (reader.Reader, error)

	// ScanSubagents discovers sidechain/subagent transcripts under
	// sessionDir belonging to sessionID.
	ScanSubagents(sessionDir, sessionID string) []SubagentStats
}

// ContextSizeComputer is an optional Adapter capability: a producer-native
// formula for context-window size.
type ContextSizeComputer interface {
	ComputeContextSize(u event.Usage) int
}

// QuotaReporter is an optional Adapter capability exposing producer-embedded
// quota/usage information.
type QuotaReporter interface {
	GetQuotaFromSession(ref SessionRef) (used, limit float64, unlimited bool, ok bool)
}

// ContextWindowLimiter is an optional Adapter capability reporting the
// context window size of a named model.
type ContextWindowLimiter interface {
	GetContextWindowLimit(model string) int
}
