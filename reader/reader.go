// Package reader defines the Incremental Reader contract: a
// source of canonical events that can be tailed incrementally, whether the
// underlying producer is a flat file or a polled database table.
package reader

import "github.com/sessionwatch/sessionwatch/event"

// Reader incrementally yields events from one producer-native session
// source. For byte-oriented sources the position is the byte offset after
// the last complete record consumed; for row-oriented sources it is the
// last row id or sequence number.
type Reader interface {
	// ReadNew returns every record appended since the last call (or since
	// construction / SeekTo). A partially written trailing record is
	// withheld until it is complete.
	ReadNew() ([]event.Event, error)

	// ReadAll performs a full replay from the start of the source,
	// ignoring the current position.
	ReadAll() ([]event.Event, error)

	// Flush commits the current read position so a future ReadNew does not
	// re-yield already-returned records.
	Flush() error

	// GetPosition returns the current committed position.
	GetPosition() int64

	// SeekTo fast-forwards the reader to pos, typically after restoring
	// from a snapshot.
	SeekTo(pos int64) error

	// Exists reports whether the underlying source is currently present.
	Exists() bool

	// WasTruncated reports whether the underlying source shrank since the
	// last read; callers are expected to reset(), then resume from 0.
	WasTruncated() bool
}
