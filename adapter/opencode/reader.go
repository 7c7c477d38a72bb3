package opencode

import (
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/sessionwatch/sessionwatch/event"
)

// rowReader polls a session_events table for rows with id > position.
// Position is the last consumed row id.
type rowReader struct {
	db           *sql.DB
	sessionRowID string
	pos          int64
	pendingPos   int64
	lastRowCount int64
}

func newRowReader(db *sql.DB, sessionRowID string) *rowReader {
	return &rowReader{db: db, sessionRowID: sessionRowID}
}

func (r *rowReader) Exists() bool {
	var n int
	err := r.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ? LIMIT 1`, r.sessionRowID).Scan(&n)
	return err == nil
}

func (r *rowReader) WasTruncated() bool {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM session_events WHERE session_id = ?`, r.sessionRowID).Scan(&count)
	if err != nil {
		return false
	}
	truncated := count < r.lastRowCount
	r.lastRowCount = count
	if truncated {
		r.pos = 0
		r.pendingPos = 0
	}
	return truncated
}

func (r *rowReader) GetPosition() int64 { return r.pos }

func (r *rowReader) SeekTo(pos int64) error {
	r.pos = pos
	r.pendingPos = pos
	return nil
}

func (r *rowReader) Flush() error {
	r.pos = r.pendingPos
	return nil
}

func (r *rowReader) ReadAll() ([]event.Event, error) {
	r.pos = 0
	r.pendingPos = 0
	return r.ReadNew()
}

// ReadNew polls for rows with id > r.pos, ordered ascending, and
// normalizes each payload into the canonical Event model. A row whose
// payload fails to parse is silently skipped.
func (r *rowReader) ReadNew() ([]event.Event, error) {
	rows, err := r.db.Query(
		`SELECT id, payload FROM session_events WHERE session_id = ? AND id > ? ORDER BY id ASC`,
		r.sessionRowID, r.pos,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []event.Event
	maxID := r.pos
	for rows.Next() {
		var id int64
		var payload string
		if err := rows.Scan(&id, &payload); err != nil {
			continue
		}
		if id > maxID {
			maxID = id
		}
		var rec rawRow
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			continue
		}
		e, ok := normalizeRow(rec)
		if !ok {
			continue
		}
		// The row id is already a stable per-record identifier; use it as
		// the dedup hash's message-id component rather than
		// synthesizing one, since opencode rows carry no message id field.
		if e.MessageID == "" {
			e.MessageID = strconv.FormatInt(id, 10)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return events, err
	}

	r.pendingPos = maxID
	return events, nil
}
