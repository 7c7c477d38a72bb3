// Package opencode implements the Producer Adapter and Reader for the
// SQLite-backed session family: one row per event in a session_events
// table keyed by an auto-increment id, polled at OPENCODE_POLL_INTERVAL_MS
// rather than watched for filesystem changes.
package opencode

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sessionwatch/sessionwatch/adapter"
	"github.com/sessionwatch/sessionwatch/reader"
)

const providerID = "opencode"

// Adapter implements adapter.Adapter for the opencode SQLite family. Root is
// the directory holding one SQLite database per workspace, conventionally
// "~/.local/share/opencode/storage".
type Adapter struct {
	Root string

	// openDB opens (or reuses) the database at path. Overridable for tests.
	openDB func(path string) (*sql.DB, error)
}

// New constructs an Adapter rooted at the conventional directory under the
// current user's home, or root when non-empty.
func New(root string) *Adapter {
	if root == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			root = filepath.Join(home, ".local", "share", "opencode", "storage")
		}
	}
	return &Adapter{Root: root, openDB: defaultOpenDB}
}

func defaultOpenDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path)
}

func (a *Adapter) db(path string) (*sql.DB, error) {
	if a.openDB != nil {
		return a.openDB(path)
	}
	return defaultOpenDB(path)
}

func (a *Adapter) Name() string { return providerID }

var pathSeparatorFold = regexp.MustCompile(`[/\\:_]+`)

// EncodeWorkspacePath folds slashes, backslashes, colons, and underscores
// to a single "-", mirroring the claudecode family's convention so the two
// adapters can share a discovery scheme over differently-shaped storage.
func (a *Adapter) EncodeWorkspacePath(absPath string) string {
	return strings.Trim(pathSeparatorFold.ReplaceAllString(absPath, "-"), "-")
}

// dbPath returns the conventional database file for a workspace. Unlike
// claudecode's per-session files, opencode keeps one database per workspace
// holding every session as a row in a sessions table.
func (a *Adapter) dbPath(workspace string) string {
	return filepath.Join(a.Root, a.EncodeWorkspacePath(workspace)+".db")
}

func (a *Adapter) SessionDirectory(workspace string) string {
	return a.dbPath(workspace)
}

// DiscoverSessionDirectory scans Root for a database file whose name shares
// the encoded workspace as a prefix.
func (a *Adapter) DiscoverSessionDirectory(workspace string) string {
	want := a.EncodeWorkspacePath(workspace)
	entries, err := os.ReadDir(a.Root)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".db")
		if strings.HasPrefix(name, want) || strings.HasPrefix(want, name) {
			return filepath.Join(a.Root, e.Name())
		}
	}
	return ""
}

func (a *Adapter) IsSessionRef(name string) bool {
	return strings.HasSuffix(name, ".db")
}

// GetSessionID returns the session's row id, carried as the WorkspaceKey-
// qualified component of ref.Path by FindAllSessions ("<db path>#<row id>").
func (a *Adapter) GetSessionID(ref adapter.SessionRef) string {
	_, id := splitRef(ref.Path)
	return id
}

func splitRef(path string) (dbPath, rowID string) {
	i := strings.LastIndex(path, "#")
	if i < 0 {
		return path, ""
	}
	return path[:i], path[i+1:]
}

func joinRef(dbPath, rowID string) string { return dbPath + "#" + rowID }

func (a *Adapter) FindAllSessions(workspace string) []adapter.SessionRef {
	path := a.dbPath(workspace)
	if _, err := os.Stat(path); err != nil {
		if d := a.DiscoverSessionDirectory(workspace); d != "" {
			path = d
		} else {
			return nil
		}
	}

	db, err := a.db(path)
	if err != nil {
		return nil
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var refs []adapter.SessionRef
	for rows.Next() {
		var id string
		var updatedAtMS int64
		if err := rows.Scan(&id, &updatedAtMS); err != nil {
			continue
		}
		refs = append(refs, adapter.SessionRef{
			Path:         joinRef(path, id),
			ModifiedAt:   time.UnixMilli(updatedAtMS),
			WorkspaceKey: a.EncodeWorkspacePath(workspace),
		})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ModifiedAt.After(refs[j].ModifiedAt) })
	return refs
}

func (a *Adapter) FindActiveSession(workspace string) *adapter.SessionRef {
	refs := a.FindAllSessions(workspace)
	if len(refs) == 0 {
		return nil
	}
	return &refs[0]
}

// ExtractSessionLabel returns the first user_message row's text, truncated
// to a short preview.
func (a *Adapter) ExtractSessionLabel(ref adapter.SessionRef) string {
	dbPath, rowID := splitRef(ref.Path)
	db, err := a.db(dbPath)
	if err != nil {
		return ""
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT payload FROM session_events WHERE session_id = ? AND type = 'user_message' ORDER BY id ASC LIMIT 1`,
		rowID,
	)
	if err != nil {
		return ""
	}
	defer rows.Close()

	if !rows.Next() {
		return ""
	}
	var payload string
	if err := rows.Scan(&payload); err != nil {
		return ""
	}
	var rec rawRow
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return ""
	}
	return truncateLabel(rec.Text)
}

func truncateLabel(s string) string {
	r := []rune(strings.TrimSpace(s))
	const max = 80
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "…"
}

func (a *Adapter) CreateReader(ref adapter.SessionRef) (reader.Reader, error) {
	dbPath, rowID := splitRef(ref.Path)
	db, err := a.db(dbPath)
	if err != nil {
		return nil, err
	}
	return newRowReader(db, rowID), nil
}

// ScanSubagents groups session_events rows tagged with a non-empty
// agent_id column by that id; opencode records subagent activity as rows
// within the same session rather than as separate sessions.
func (a *Adapter) ScanSubagents(sessionDir, sessionID string) []adapter.SubagentStats {
	db, err := a.db(sessionDir)
	if err != nil {
		return nil
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT agent_id, timestamp FROM session_events WHERE session_id = ? AND agent_id != '' ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	stats := make(map[string]*adapter.SubagentStats)
	var order []string
	for rows.Next() {
		var agentID, ts string
		if err := rows.Scan(&agentID, &ts); err != nil {
			continue
		}
		t, _ := time.Parse(time.RFC3339, ts)
		s, ok := stats[agentID]
		if !ok {
			s = &adapter.SubagentStats{AgentID: agentID, StartedAt: t}
			stats[agentID] = s
			order = append(order, agentID)
		}
		s.EventCount++
		s.EndedAt = t
	}

	out := make([]adapter.SubagentStats, 0, len(order))
	for _, id := range order {
		out = append(out, *stats[id])
	}
	return out
}
