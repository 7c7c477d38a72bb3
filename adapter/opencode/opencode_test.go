package opencode

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sessionwatch/sessionwatch/adapter"

	_ "modernc.org/sqlite"
)

func TestEncodeWorkspacePath(t *testing.T) {
	a := &Adapter{}
	require.Equal(t, "Users-me-proj", a.EncodeWorkspacePath("/Users/me/proj"))
}

func TestSplitJoinRef(t *testing.T) {
	ref := joinRef("/some/path.db", "42")
	dbPath, rowID := splitRef(ref)
	require.Equal(t, "/some/path.db", dbPath)
	require.Equal(t, "42", rowID)
}

func TestSplitRef_NoHashReturnsWholePathAndEmptyID(t *testing.T) {
	dbPath, rowID := splitRef("/some/path.db")
	require.Equal(t, "/some/path.db", dbPath)
	require.Equal(t, "", rowID)
}

func TestIsSessionRef(t *testing.T) {
	a := &Adapter{}
	require.True(t, a.IsSessionRef("workspace.db"))
	require.False(t, a.IsSessionRef("workspace.jsonl"))
}

func TestGetSessionID(t *testing.T) {
	a := &Adapter{}
	id := a.GetSessionID(adapter.SessionRef{Path: "/db/path.db#42"})
	require.Equal(t, "42", id)
}

func setupWorkspaceDB(t *testing.T, root, workspace string) *Adapter {
	t.Helper()
	a := &Adapter{Root: root}
	dbPath := a.dbPath(workspace)
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE sessions (id TEXT PRIMARY KEY, updated_at INTEGER);
		CREATE TABLE session_events (id INTEGER PRIMARY KEY AUTOINCREMENT, session_id TEXT, agent_id TEXT DEFAULT '', timestamp TEXT, type TEXT, payload TEXT);
		INSERT INTO sessions (id, updated_at) VALUES ('s1', 1000), ('s2', 2000);
		INSERT INTO session_events (session_id, type, payload) VALUES ('s1', 'user_message', '{"type":"user_message","text":"hello there"}');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return a
}

func TestFindAllSessions_SortedMostRecentFirst(t *testing.T) {
	root := t.TempDir()
	a := setupWorkspaceDB(t, root, "/ws")

	refs := a.FindAllSessions("/ws")
	require.Len(t, refs, 2)
	_, id0 := splitRef(refs[0].Path)
	require.Equal(t, "s2", id0)
}

func TestFindAllSessions_MissingDBReturnsNil(t *testing.T) {
	a := &Adapter{Root: t.TempDir()}
	require.Nil(t, a.FindAllSessions("/nope"))
}

func TestExtractSessionLabel(t *testing.T) {
	root := t.TempDir()
	a := setupWorkspaceDB(t, root, "/ws")
	refs := a.FindAllSessions("/ws")
	require.NotEmpty(t, refs)

	var s1Ref adapter.SessionRef
	for _, r := range refs {
		_, id := splitRef(r.Path)
		if id == "s1" {
			s1Ref = r
		}
	}
	label := a.ExtractSessionLabel(s1Ref)
	require.Equal(t, "hello there", label)
}

func TestCreateReader_ReturnsWorkingReader(t *testing.T) {
	root := t.TempDir()
	a := setupWorkspaceDB(t, root, "/ws")
	refs := a.FindAllSessions("/ws")
	require.NotEmpty(t, refs)

	var s1Ref adapter.SessionRef
	for _, r := range refs {
		_, id := splitRef(r.Path)
		if id == "s1" {
			s1Ref = r
		}
	}

	rdr, err := a.CreateReader(s1Ref)
	require.NoError(t, err)
	events, err := rdr.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
}
