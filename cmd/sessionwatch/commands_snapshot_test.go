package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sessionwatch/sessionwatch/aggregator"
	"github.com/sessionwatch/sessionwatch/snapshot"
)

func writeSnapshotTestConfig(t *testing.T, snapshotDir string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.toml")
	body := "snapshot_dir = \"" + snapshotDir + "\"\n"
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))
	return configPath
}

func seedSnapshot(t *testing.T, dir, sessionID string) {
	t.Helper()
	store, err := snapshot.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(sessionID, snapshot.Wire{
		Version:    1,
		SessionID:  sessionID,
		ProviderID: "claude-code",
		CreatedAt:  time.Now(),
		Aggregator: aggregator.AggregatorSnapshot{Version: 1},
	}))
}

func TestSnapshotShowCmd_PrintsYAMLByDefault(t *testing.T) {
	dir := t.TempDir()
	seedSnapshot(t, dir, "sess1")
	configPath := writeSnapshotTestConfig(t, dir)

	cmd := buildSnapshotShowCmd()
	cmd.SetArgs([]string{"--config", configPath, "sess1"})
	require.NoError(t, cmd.Execute())
}

func TestSnapshotShowCmd_PrintsJSONWhenRequested(t *testing.T) {
	dir := t.TempDir()
	seedSnapshot(t, dir, "sess1")
	configPath := writeSnapshotTestConfig(t, dir)

	cmd := buildSnapshotShowCmd()
	cmd.SetArgs([]string{"--config", configPath, "--json", "sess1"})
	require.NoError(t, cmd.Execute())
}

func TestSnapshotShowCmd_MissingSessionErrors(t *testing.T) {
	dir := t.TempDir()
	configPath := writeSnapshotTestConfig(t, dir)

	cmd := buildSnapshotShowCmd()
	cmd.SetArgs([]string{"--config", configPath, "nope"})
	require.Error(t, cmd.Execute())
}

func TestSnapshotDeleteCmd_RemovesSnapshot(t *testing.T) {
	dir := t.TempDir()
	seedSnapshot(t, dir, "sess1")
	configPath := writeSnapshotTestConfig(t, dir)

	cmd := buildSnapshotDeleteCmd()
	cmd.SetArgs([]string{"--config", configPath, "sess1"})
	require.NoError(t, cmd.Execute())

	store, err := snapshot.NewFileStore(dir)
	require.NoError(t, err)
	_, ok, err := store.Load("sess1")
	require.NoError(t, err)
	require.False(t, ok)
}
