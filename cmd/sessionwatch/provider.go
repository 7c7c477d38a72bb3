package main

import (
	"fmt"

	"github.com/sessionwatch/sessionwatch/adapter"
	"github.com/sessionwatch/sessionwatch/adapter/claudecode"
	"github.com/sessionwatch/sessionwatch/adapter/opencode"
	"github.com/sessionwatch/sessionwatch/config"
)

// resolveAdapter builds the named producer adapter, honoring a per-provider
// custom directory override from cfg.
func resolveAdapter(name string, cfg config.Config) (adapter.Adapter, error) {
	dir := cfg.CustomSessionDirs[name]
	switch name {
	case "claude-code", "claudecode", "":
		return claudecode.New(dir), nil
	case "opencode":
		return opencode.New(dir), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want claude-code or opencode)", name)
	}
}
