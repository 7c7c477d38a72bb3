package claudecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRecord_AcceptsKnownType(t *testing.T) {
	require.True(t, validateRecord([]byte(`{"type":"user"}`)))
}

func TestValidateRecord_RejectsUnknownType(t *testing.T) {
	require.False(t, validateRecord([]byte(`{"type":"bogus"}`)))
}

func TestValidateRecord_RejectsMissingType(t *testing.T) {
	require.False(t, validateRecord([]byte(`{"text":"hi"}`)))
}

func TestValidateRecord_RejectsMalformedJSON(t *testing.T) {
	require.False(t, validateRecord([]byte(`{not json`)))
}
