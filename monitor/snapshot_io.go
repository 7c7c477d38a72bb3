package monitor

import (
	"time"

	"github.com/sessionwatch/sessionwatch/snapshot"
)

// saveSnapshot persists the combined aggregator+consumer state if a store
// and an attached session are present. Position is recorded as the
// reader's committed position, which doubles as the source-size stand-in
// for IsValid's staleness check across both byte- and row-oriented
// producers.
func (m *Monitor) saveSnapshot() error {
	m.mu.Lock()
	store, ref, rdr := m.store, m.ref, m.rdr
	m.mu.Unlock()
	if store == nil || ref == nil || rdr == nil {
		return nil
	}

	sessionID := m.adp.GetSessionID(*ref)
	pos := rdr.GetPosition()

	wire := snapshot.Wire{
		Version:        snapshotWireVersion,
		SessionID:      sessionID,
		ProviderID:     m.adp.Name(),
		ReaderPosition: pos,
		SourceSize:     pos,
		CreatedAt:      time.Now(),
		Aggregator:     m.agg.Serialize(),
		Consumer:       m.consumer.marshal(m.hashes),
	}

	if err := store.Save(sessionID, wire); err != nil {
		return err
	}

	m.mu.Lock()
	m.lastSnapshotSaveAt = time.Now()
	m.mu.Unlock()
	return nil
}
