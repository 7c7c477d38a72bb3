package opencode

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE sessions (id TEXT PRIMARY KEY, updated_at INTEGER);
		CREATE TABLE session_events (id INTEGER PRIMARY KEY AUTOINCREMENT, session_id TEXT, agent_id TEXT DEFAULT '', timestamp TEXT, type TEXT, payload TEXT);
	`)
	require.NoError(t, err)
	return db
}

func insertEvent(t *testing.T, db *sql.DB, sessionID, payload string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO session_events (session_id, payload) VALUES (?, ?)`, sessionID, payload)
	require.NoError(t, err)
}

func TestRowReader_ReadNewAssignsSyntheticMessageID(t *testing.T) {
	db := newTestDB(t)
	insertEvent(t, db, "s1", `{"type":"user_message","text":"hi","timestamp":"2024-01-01T00:00:00Z"}`)

	r := newRowReader(db, "s1")
	events, err := r.ReadNew()
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].MessageID)
}

func TestRowReader_ReadNewOnlyReturnsRowsPastPosition(t *testing.T) {
	db := newTestDB(t)
	insertEvent(t, db, "s1", `{"type":"user_message","text":"first"}`)

	r := newRowReader(db, "s1")
	first, err := r.ReadNew()
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.NoError(t, r.Flush())

	insertEvent(t, db, "s1", `{"type":"user_message","text":"second"}`)
	second, err := r.ReadNew()
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, "second", second[0].Text)
}

func TestRowReader_MalformedPayloadSkipped(t *testing.T) {
	db := newTestDB(t)
	insertEvent(t, db, "s1", `not json`)
	insertEvent(t, db, "s1", `{"type":"user_message","text":"good"}`)

	r := newRowReader(db, "s1")
	events, err := r.ReadNew()
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "good", events[0].Text)
}

func TestRowReader_UnrecognizedTypeSkipped(t *testing.T) {
	db := newTestDB(t)
	insertEvent(t, db, "s1", `{"type":"unknown_row_type"}`)

	r := newRowReader(db, "s1")
	events, err := r.ReadNew()
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestRowReader_ReadAllResetsPosition(t *testing.T) {
	db := newTestDB(t)
	insertEvent(t, db, "s1", `{"type":"user_message","text":"a"}`)

	r := newRowReader(db, "s1")
	_, err := r.ReadNew()
	require.NoError(t, err)
	require.NoError(t, r.Flush())

	events, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestRowReader_ExistsReflectsSessionRow(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Exec(`INSERT INTO sessions (id, updated_at) VALUES ('s1', 0)`)
	require.NoError(t, err)

	require.True(t, newRowReader(db, "s1").Exists())
	require.False(t, newRowReader(db, "s2").Exists())
}

func TestRowReader_WasTruncatedDetectsShrink(t *testing.T) {
	db := newTestDB(t)
	insertEvent(t, db, "s1", `{"type":"user_message","text":"a"}`)
	insertEvent(t, db, "s1", `{"type":"user_message","text":"b"}`)

	r := newRowReader(db, "s1")
	require.False(t, r.WasTruncated())

	_, err := db.Exec(`DELETE FROM session_events WHERE session_id = 's1'`)
	require.NoError(t, err)

	require.True(t, r.WasTruncated())
	require.Zero(t, r.GetPosition())
}

func TestRowReader_SeekToAndFlush(t *testing.T) {
	db := newTestDB(t)
	r := newRowReader(db, "s1")
	require.NoError(t, r.SeekTo(7))
	require.EqualValues(t, 7, r.GetPosition())
	require.NoError(t, r.Flush())
	require.EqualValues(t, 7, r.GetPosition())
}
