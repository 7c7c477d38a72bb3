package monitor

import (
	"strconv"

	"github.com/sessionwatch/sessionwatch/event"
)

// hashSet is the bounded, insertion-ordered set of event hashes used to
// suppress double-application when a re-read overlaps previously-seen
// records. At MaxSeenHashes the oldest quarter is
// evicted.
type hashSet struct {
	order []string
	seen  map[string]struct{}
}

func newHashSet() *hashSet {
	return &hashSet{seen: make(map[string]struct{})}
}

func eventHash(e *event.Event) string {
	return string(e.Type) + ":" + strconv.FormatInt(e.Timestamp.UnixNano(), 10) + ":" + e.MessageID + ":" + e.RequestID
}

// seenOrAdd reports whether h was already present, inserting it if not.
func (s *hashSet) seenOrAdd(h string) bool {
	if _, ok := s.seen[h]; ok {
		return true
	}
	s.seen[h] = struct{}{}
	s.order = append(s.order, h)
	if len(s.order) > MaxSeenHashes {
		evict := len(s.order) / 4
		if evict < 1 {
			evict = 1
		}
		for _, old := range s.order[:evict] {
			delete(s.seen, old)
		}
		s.order = append([]string(nil), s.order[evict:]...)
	}
	return false
}

func (s *hashSet) snapshot() []string {
	return append([]string(nil), s.order...)
}

func (s *hashSet) restore(hashes []string) {
	s.order = append([]string(nil), hashes...)
	s.seen = make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		s.seen[h] = struct{}{}
	}
}
