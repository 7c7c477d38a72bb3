package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore mirrors snapshots into Redis, keyed "sessionwatch:snapshot:<id>".
// It is intended to sit alongside a FileStore (see MirroredStore) so a
// multi-instance deployment can share snapshots without a shared disk.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

// NewRedisStore constructs a RedisStore against addr/db. Prefix defaults to
// "sessionwatch:snapshot:" when empty.
func NewRedisStore(addr string, db int, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sessionwatch:snapshot:"
	}
	return &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		Prefix: prefix,
	}
}

func (s *RedisStore) key(sessionID string) string { return s.Prefix + sessionID }

// Save writes w as a JSON value with no expiry; the session monitor's own
// throttling bounds write volume.
func (s *RedisStore) Save(sessionID string, w Wire) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	if err := s.Client.Set(context.Background(), s.key(sessionID), data, 0).Err(); err != nil {
		return fmt.Errorf("snapshot: redis set %s: %w", sessionID, err)
	}
	return nil
}

// Load reads the snapshot for sessionID. A missing key is not an error.
func (s *RedisStore) Load(sessionID string) (Wire, bool, error) {
	data, err := s.Client.Get(context.Background(), s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return Wire{}, false, nil
	}
	if err != nil {
		return Wire{}, false, fmt.Errorf("snapshot: redis get %s: %w", sessionID, err)
	}
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Wire{}, false, nil
	}
	return w, true, nil
}

// Delete removes the snapshot for sessionID.
func (s *RedisStore) Delete(sessionID string) error {
	if err := s.Client.Del(context.Background(), s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("snapshot: redis del %s: %w", sessionID, err)
	}
	return nil
}

// MirroredStore writes to Primary and, best-effort, to Mirror; reads always
// come from Primary. Used to keep a Redis copy warm without making it a
// dependency of correctness: a Mirror failure never fails Save.
type MirroredStore struct {
	Primary Store
	Mirror  Store
}

func (s *MirroredStore) Save(sessionID string, w Wire) error {
	if err := s.Primary.Save(sessionID, w); err != nil {
		return err
	}
	if s.Mirror != nil {
		_ = s.Mirror.Save(sessionID, w)
	}
	return nil
}

func (s *MirroredStore) Load(sessionID string) (Wire, bool, error) {
	return s.Primary.Load(sessionID)
}

func (s *MirroredStore) Delete(sessionID string) error {
	if s.Mirror != nil {
		_ = s.Mirror.Delete(sessionID)
	}
	return s.Primary.Delete(sessionID)
}
