// Package claudecode implements the Producer Adapter and Reader for the
// newline-delimited JSON session-log family: one JSON object per line
// under a per-workspace directory, conventionally
// "~/.claude/projects/<encoded-workspace>/*.jsonl".
package claudecode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sessionwatch/sessionwatch/adapter"
	"github.com/sessionwatch/sessionwatch/reader"
)

const providerID = "claude-code"

// Adapter implements adapter.Adapter for the claude-code JSONL family.
type Adapter struct {
	// Root is the base directory session directories are encoded under
	// (default "~/.claude/projects"); overridable for tests.
	Root string
}

// New constructs an Adapter rooted at the conventional directory under the
// current user's home, or root when non-empty.
func New(root string) *Adapter {
	if root == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			root = filepath.Join(home, ".claude", "projects")
		}
	}
	return &Adapter{Root: root}
}

func (a *Adapter) Name() string { return providerID }

var pathSeparatorFold = regexp.MustCompile(`[/\\:_]+`)

// EncodeWorkspacePath folds slashes, backslashes, colons, and underscores
// to a single "-" so the encoded form can be prefix-compared.
func (a *Adapter) EncodeWorkspacePath(absPath string) string {
	return strings.Trim(pathSeparatorFold.ReplaceAllString(absPath, "-"), "-")
}

func (a *Adapter) SessionDirectory(workspace string) string {
	return filepath.Join(a.Root, a.EncodeWorkspacePath(workspace))
}

// DiscoverSessionDirectory scans Root for a directory whose encoded name
// shares the encoded workspace as a prefix, in case the workspace moved or
// the encoding scheme produced a slightly different key historically.
func (a *Adapter) DiscoverSessionDirectory(workspace string) string {
	want := a.EncodeWorkspacePath(workspace)
	entries, err := os.ReadDir(a.Root)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), want) || strings.HasPrefix(want, e.Name()) {
			return filepath.Join(a.Root, e.Name())
		}
	}
	return ""
}

func (a *Adapter) IsSessionRef(name string) bool {
	return strings.HasSuffix(name, ".jsonl")
}

func (a *Adapter) GetSessionID(ref adapter.SessionRef) string {
	base := filepath.Base(ref.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *Adapter) FindAllSessions(workspace string) []adapter.SessionRef {
	dir := a.SessionDirectory(workspace)
	if _, err := os.Stat(dir); err != nil {
		if d := a.DiscoverSessionDirectory(workspace); d != "" {
			dir = d
		} else {
			return nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var refs []adapter.SessionRef
	for _, e := range entries {
		if e.IsDir() || !a.IsSessionRef(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		refs = append(refs, adapter.SessionRef{
			Path:         filepath.Join(dir, e.Name()),
			ModifiedAt:   info.ModTime(),
			WorkspaceKey: a.EncodeWorkspacePath(workspace),
		})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ModifiedAt.After(refs[j].ModifiedAt) })
	return refs
}

func (a *Adapter) FindActiveSession(workspace string) *adapter.SessionRef {
	refs := a.FindAllSessions(workspace)
	if len(refs) == 0 {
		return nil
	}
	return &refs[0]
}

// ExtractSessionLabel reads the first few lines of the session file and
// returns the first user-authored text block, truncated to a short
// preview.
func (a *Adapter) ExtractSessionLabel(ref adapter.SessionRef) string {
	f, err := os.Open(ref.Path)
	if err != nil {
		return ""
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	for i := 0; i < 50; i++ {
		var rec rawRecord
		if err := dec.Decode(&rec); err != nil {
			return ""
		}
		if rec.Type != "user" {
			continue
		}
		if rec.Message != nil {
			for _, b := range rec.Message.Content {
				if b.Type == "text" && b.Text != "" {
					return truncateLabel(b.Text)
				}
			}
		}
		if rec.Text != "" {
			return truncateLabel(rec.Text)
		}
	}
	return ""
}

func truncateLabel(s string) string {
	r := []rune(strings.TrimSpace(s))
	const max = 80
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "…"
}

func (a *Adapter) CreateReader(ref adapter.SessionRef) (reader.Reader, error) {
	return newByteReader(ref.Path), nil
}

// ScanSubagents discovers sidechain transcripts. The claude-code family
// records sidechains inline (IsSidechain on ordinary records) rather than
// as separate files, so this walks the same session file and groups
// sidechain events by their message id.
func (a *Adapter) ScanSubagents(sessionDir, sessionID string) []adapter.SubagentStats {
	path := filepath.Join(sessionDir, sessionID+".jsonl")
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	stats := make(map[string]*adapter.SubagentStats)
	dec := json.NewDecoder(f)
	for {
		var rec rawRecord
		if err := dec.Decode(&rec); err != nil {
			break
		}
		if !rec.IsSidechain {
			continue
		}
		key := rec.MessageID
		if key == "" {
			key = "sidechain"
		}
		ts, _ := time.Parse(time.RFC3339Nano, rec.Timestamp)
		s, ok := stats[key]
		if !ok {
			s = &adapter.SubagentStats{AgentID: key, StartedAt: ts}
			stats[key] = s
		}
		s.EventCount++
		s.EndedAt = ts
	}

	out := make([]adapter.SubagentStats, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	return out
}
