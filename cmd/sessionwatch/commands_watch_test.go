package main

import (
	"bufio"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sessionwatch/sessionwatch/aggregator"
	"github.com/sessionwatch/sessionwatch/hooks"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// whatever was written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	fn()
	require.NoError(t, w.Close())
	os.Stdout = orig

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return strings.Join(lines, "\n")
}

func TestEventPrinter_PrintsHumanReadableSessionStart(t *testing.T) {
	p := eventPrinter{}
	out := captureStdout(t, func() {
		p.print(hooks.Event{Type: hooks.SessionStart, Session: &hooks.SessionRef{SessionID: "s1", Provider: "claude-code"}})
	})
	require.Contains(t, out, "session_start")
	require.Contains(t, out, "s1")
}

func TestEventPrinter_PrintsHumanReadableToolCall(t *testing.T) {
	p := eventPrinter{}
	out := captureStdout(t, func() {
		p.print(hooks.Event{Type: hooks.ToolCall, ToolCall: &aggregator.ToolCallInfo{ToolName: "bash", ToolUseID: "t1"}})
	})
	require.Contains(t, out, "tool=bash")
	require.Contains(t, out, "id=t1")
}

func TestEventPrinter_PrintsHumanReadableUnknownTypeFallback(t *testing.T) {
	p := eventPrinter{}
	out := captureStdout(t, func() {
		p.print(hooks.Event{Type: hooks.TaskChanged})
	})
	require.Contains(t, out, string(hooks.TaskChanged))
}

func TestEventPrinter_PrintsJSONLines(t *testing.T) {
	p := eventPrinter{jsonLines: true}
	out := captureStdout(t, func() {
		p.print(hooks.Event{Type: hooks.SessionEnd})
	})
	require.Contains(t, out, `"Type":"onSessionEnd"`)
}
