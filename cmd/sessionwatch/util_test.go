package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONMarshalCompact(t *testing.T) {
	data, err := jsonMarshalCompact(map[string]any{"a": 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(data))
}

func TestJSONMarshalCompact_UnsupportedTypeErrors(t *testing.T) {
	_, err := jsonMarshalCompact(func() {})
	require.Error(t, err)
}
