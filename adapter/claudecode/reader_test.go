package claudecode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteReader_ReadNewWithholdsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"user","text":"a"}`+"\n"+`{"type":"user","text":"b"`), 0o644))

	r := newByteReader(path)
	events, err := r.ReadNew()
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "a", events[0].Text)

	require.NoError(t, r.Flush())
	require.Less(t, r.GetPosition(), int64(len(`{"type":"user","text":"a"}`+"\n"+`{"type":"user","text":"b"`)))
}

func TestByteReader_FlushThenReadNewPicksUpAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"user","text":"a"}`+"\n"), 0o644))

	r := newByteReader(path)
	events, err := r.ReadNew()
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, r.Flush())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"user","text":"b"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events, err = r.ReadNew()
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "b", events[0].Text)
}

func TestByteReader_MalformedLinesSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	body := `{"type":"user","text":"good"}` + "\n" +
		`not json at all` + "\n" +
		`{"type":"bogus"}` + "\n" +
		`{"type":"user","text":"also good"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	r := newByteReader(path)
	events, err := r.ReadNew()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "good", events[0].Text)
	require.Equal(t, "also good", events[1].Text)
}

func TestByteReader_TruncationDetectedAndResetsPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	long := `{"type":"user","text":"a"}` + "\n" + `{"type":"user","text":"b"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(long), 0o644))

	r := newByteReader(path)
	_, err := r.ReadNew()
	require.NoError(t, err)
	require.NoError(t, r.Flush())
	require.False(t, r.WasTruncated())

	short := `{"type":"user","text":"c"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(short), 0o644))

	events, err := r.ReadNew()
	require.NoError(t, err)
	require.True(t, r.WasTruncated())
	require.Len(t, events, 1)
	require.Equal(t, "c", events[0].Text)
}

func TestByteReader_ExistsReflectsFileState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	r := newByteReader(path)
	require.False(t, r.Exists())

	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	require.True(t, r.Exists())
}

func TestByteReader_ReadAllResetsToBeginning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"user","text":"a"}`+"\n"), 0o644))

	r := newByteReader(path)
	_, err := r.ReadNew()
	require.NoError(t, err)
	require.NoError(t, r.Flush())

	events, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestByteReader_MissingFileReturnsNoEvents(t *testing.T) {
	r := newByteReader(filepath.Join(t.TempDir(), "missing.jsonl"))
	events, err := r.ReadNew()
	require.NoError(t, err)
	require.Nil(t, events)
}
