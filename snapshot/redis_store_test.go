package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRedisStore_DefaultsPrefix(t *testing.T) {
	s := NewRedisStore("localhost:6379", 0, "")
	require.Equal(t, "sessionwatch:snapshot:", s.Prefix)
	require.Equal(t, "sessionwatch:snapshot:sess1", s.key("sess1"))
}

func TestNewRedisStore_HonorsCustomPrefix(t *testing.T) {
	s := NewRedisStore("localhost:6379", 2, "custom:")
	require.Equal(t, "custom:", s.Prefix)
	require.Equal(t, "custom:sess1", s.key("sess1"))
}
