package claudecode

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"

	"github.com/sessionwatch/sessionwatch/event"
)

// byteReader tails a single JSONL session file. The
// position is the byte offset following the last complete line consumed.
type byteReader struct {
	path       string
	pos        int64
	pendingPos int64
	lastSize   int64
	truncated  bool
}

func newByteReader(path string) *byteReader {
	r := &byteReader{path: path}
	if fi, err := os.Stat(path); err == nil {
		r.lastSize = fi.Size()
	}
	return r
}

func (r *byteReader) Exists() bool {
	_, err := os.Stat(r.path)
	return err == nil
}

func (r *byteReader) WasTruncated() bool { return r.truncated }

func (r *byteReader) GetPosition() int64 { return r.pos }

func (r *byteReader) SeekTo(pos int64) error {
	r.pos = pos
	r.pendingPos = pos
	return nil
}

func (r *byteReader) Flush() error {
	r.pos = r.pendingPos
	return nil
}

func (r *byteReader) ReadAll() ([]event.Event, error) {
	r.pos = 0
	r.pendingPos = 0
	return r.ReadNew()
}

// ReadNew reads every complete line appended since the last Flush,
// withholding a partial trailing line, and normalizes each into the
// canonical Event model. A line that fails to parse as JSON, or whose
// schema is invalid, is silently skipped.
func (r *byteReader) ReadNew() ([]event.Event, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size < r.lastSize {
		r.truncated = true
		r.pos = 0
		r.pendingPos = 0
	} else {
		r.truncated = false
	}
	r.lastSize = size

	if _, err := f.Seek(r.pos, 0); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var events []event.Event
	consumed := r.pos
	for scanner.Scan() {
		line := scanner.Bytes()
		consumed += int64(len(line)) + 1 // newline
		if consumed > size {
			// The trailing line has no newline yet; leave it for a later read.
			consumed -= int64(len(line)) + 1
			break
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if !validateRecord(trimmed) {
			continue
		}
		var rec rawRecord
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			continue
		}
		e, ok := normalizeRecord(rec)
		if !ok {
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return events, err
	}

	r.pendingPos = consumed
	return events, nil
}
