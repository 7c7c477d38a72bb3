// Package config loads engine configuration from a TOML file plus
// environment overrides: a typed struct, sane defaults, and a thin
// env-override layer read via godotenv for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the engine's top-level configuration.
type Config struct {
	// SnapshotDir is the writable per-user directory snapshots are stored
	// under.
	SnapshotDir string `toml:"snapshot_dir"`

	// Producers lists the enabled producer adapter names ("claudecode",
	// "opencode"). Empty means all known producers are enabled.
	Producers []string `toml:"producers"`

	// RedisAddr, when non-empty, mirrors snapshots to Redis in addition to
	// the file-based store.
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`

	// OpenCodePollIntervalMS is the opencode poll cadence in milliseconds;
	// the OPENCODE_POLL_INTERVAL_MS environment variable overrides it.
	OpenCodePollIntervalMS int `toml:"opencode_poll_interval_ms"`

	// CustomSessionDirs overrides automatic discovery for named providers
	// (provider -> directory), matching "custom directories override all
	// discovery".
	CustomSessionDirs map[string]string `toml:"custom_session_dirs"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		SnapshotDir:            defaultSnapshotDir(),
		LogLevel:               "info",
		OpenCodePollIntervalMS: 1500,
	}
}

func defaultSnapshotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sessionwatch/snapshots"
	}
	return home + "/.sessionwatch/snapshots"
}

// Load reads a TOML configuration file at path, applies it over Default,
// loads a .env file from the working directory if present (via godotenv,
// ignored if absent),
// and finally applies SESSIONWATCH_* environment overrides. A missing
// config file is not an error: Load falls back to Default with env
// overrides applied.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load() // best effort; absence is not an error

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SESSIONWATCH_SNAPSHOT_DIR"); v != "" {
		cfg.SnapshotDir = v
	}
	if v := os.Getenv("SESSIONWATCH_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("SESSIONWATCH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("OPENCODE_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OpenCodePollIntervalMS = n
		}
	}
}
