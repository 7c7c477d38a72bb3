package monitor

import "time"

// Fixed operational thresholds. These are never
// user-configurable; the monitor reads none of them from config.Config.
const (
	MaxTimelineEvents      = 100
	MaxSeenHashes          = 10_000
	MaxTurnAttributions    = 200
	MaxContextTimeline     = 500
	MaxAssistantTexts      = 200
	MaxAssistantTextLength = 500

	FileChangeDebounce      = 100 * time.Millisecond
	NewSessionCheckDebounce = 500 * time.Millisecond
	SessionSwitchCooldown   = 5 * time.Second
	DiscoveryInterval       = 30 * time.Second
	FastDiscoveryInterval   = 5 * time.Second
	FastDiscoveryDuration   = 2 * time.Minute
	SnapshotSaveInterval    = 30 * time.Second
	CycleThrottle           = 60 * time.Second

	OpenCodePollInterval = 1500 * time.Millisecond
	OpenCodeInactivity   = 60 * time.Second

	snapshotWireVersion = 1
)
