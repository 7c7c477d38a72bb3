package monitor

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sessionwatch/sessionwatch/event"
)

func TestEventHash_DistinguishesBySameFields(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e1 := &event.Event{Type: event.TypeUser, Timestamp: ts, MessageID: "m1", RequestID: "r1"}
	e2 := &event.Event{Type: event.TypeUser, Timestamp: ts, MessageID: "m2", RequestID: "r1"}
	require.NotEqual(t, eventHash(e1), eventHash(e2))
}

func TestEventHash_IdenticalFieldsCollide(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e1 := &event.Event{Type: event.TypeUser, Timestamp: ts, MessageID: "m1", RequestID: "r1"}
	e2 := &event.Event{Type: event.TypeUser, Timestamp: ts, MessageID: "m1", RequestID: "r1"}
	require.Equal(t, eventHash(e1), eventHash(e2))
}

func TestHashSet_SeenOrAdd(t *testing.T) {
	s := newHashSet()
	require.False(t, s.seenOrAdd("a"))
	require.True(t, s.seenOrAdd("a"))
	require.False(t, s.seenOrAdd("b"))
}

func TestHashSet_EvictsOldestQuarterWhenOverCapacity(t *testing.T) {
	s := newHashSet()
	for i := 0; i < MaxSeenHashes; i++ {
		require.False(t, s.seenOrAdd("filler-"+strconv.Itoa(i)))
	}
	require.Len(t, s.order, MaxSeenHashes)

	// one more insertion should trigger eviction of the oldest quarter
	require.False(t, s.seenOrAdd("overflow"))
	require.Less(t, len(s.order), MaxSeenHashes+1)
	require.LessOrEqual(t, len(s.order), MaxSeenHashes-MaxSeenHashes/4+1)
}

func TestHashSet_SnapshotAndRestoreRoundTrip(t *testing.T) {
	s := newHashSet()
	s.seenOrAdd("a")
	s.seenOrAdd("b")

	snap := s.snapshot()
	require.Equal(t, []string{"a", "b"}, snap)

	restored := newHashSet()
	restored.restore(snap)
	require.True(t, restored.seenOrAdd("a"))
	require.True(t, restored.seenOrAdd("b"))
	require.False(t, restored.seenOrAdd("c"))
}
