// Package monitor implements the Session Monitor (C6): the orchestrator
// that discovers sessions, owns a Producer Adapter and Reader pair, drives
// the Aggregator, manages replay/live transitions, watches the filesystem,
// handles session rotation, throttles snapshot writes, and fans out
// consumer events over the external bus.
//
// The Monitor is the only active component in the engine: the Aggregator is
// purely reactive, and the adapter/reader pair is passive until asked.
package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sessionwatch/sessionwatch/adapter"
	"github.com/sessionwatch/sessionwatch/aggregator"
	"github.com/sessionwatch/sessionwatch/hooks"
	"github.com/sessionwatch/sessionwatch/reader"
	"github.com/sessionwatch/sessionwatch/snapshot"
	"github.com/sessionwatch/sessionwatch/telemetry"
)

// State is the monitor's lifecycle state.
type State string

const (
	StateDiscovery State = "discovery"
	StateReplay    State = "replay"
	StateLive      State = "live"
	StateEnded     State = "ended"
)

// Options configures a Monitor. Bus, Logger, Metrics, and Tracer get safe
// defaults applied by New; a nil Store leaves snapshot persistence off.
type Options struct {
	Bus               hooks.Bus
	Store             snapshot.Store
	Logger            telemetry.Logger
	Metrics           telemetry.Metrics
	Tracer            telemetry.Tracer
	AggregatorOptions aggregator.Options
	PollInterval      time.Duration // generic live-mode poll cadence, defaults to OpenCodePollInterval
}

func (o Options) withDefaults() Options {
	if o.Bus == nil {
		o.Bus = hooks.NewBus()
	}
	if o.Logger == nil {
		o.Logger = telemetry.NewNoopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.NewNoopMetrics()
	}
	if o.Tracer == nil {
		o.Tracer = telemetry.NewNoopTracer()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = OpenCodePollInterval
	}
	return o
}

// Monitor is the C6 orchestrator. Exactly one Monitor exists per attached
// workspace/session; a process may run many Monitors without interference.
type Monitor struct {
	mu sync.Mutex

	opts  Options
	adp   adapter.Adapter
	agg   *aggregator.Aggregator
	store snapshot.Store

	workspace string
	customDir string
	pinned    bool

	ref   *adapter.SessionRef
	rdr   reader.Reader
	state State

	consumer *consumerState
	hashes   *hashSet

	watcher   *fsnotify.Watcher
	triggerCh chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup

	fastDiscoveryUntil time.Time
	lastSwitchAt       time.Time
	lastSnapshotSaveAt time.Time
	lastCycleNotifyAt  time.Time
	lastQuota          *hooks.QuotaState

	disposed bool
}

// New constructs a Monitor over the given adapter. The aggregator is built
// fresh from opts.AggregatorOptions; callers who want to resume from a
// snapshot should rely on attach's automatic snapshot restore rather than
// pre-seeding the aggregator themselves.
func New(adp adapter.Adapter, opts Options) *Monitor {
	opts = opts.withDefaults()
	m := &Monitor{
		opts:      opts,
		adp:       adp,
		agg:       aggregator.New(opts.AggregatorOptions),
		store:     opts.Store,
		state:     StateDiscovery,
		consumer:  newConsumerState(),
		hashes:    newHashSet(),
		triggerCh: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	m.wg.Add(1)
	go m.runLoop()
	return m
}

// Bus returns the event bus consumers should Register against.
func (m *Monitor) Bus() hooks.Bus { return m.opts.Bus }

// Aggregator exposes the underlying aggregator for read-only accessor use.
// Callers must not call its mutating methods directly; only the Monitor
// drives ProcessEvent/Reset/Restore.
func (m *Monitor) Aggregator() *aggregator.Aggregator { return m.agg }

// Start attaches to the most recently active session for workspace,
// entering Discovery if none is found yet.
func (m *Monitor) Start(workspace string) error {
	m.mu.Lock()
	m.workspace = workspace
	m.customDir = ""
	m.mu.Unlock()
	return m.refresh()
}

// StartWithCustomPath overrides discovery entirely with a fixed directory.
func (m *Monitor) StartWithCustomPath(dir string) error {
	m.mu.Lock()
	m.customDir = dir
	m.mu.Unlock()
	return m.refresh()
}

// SwitchProvider replaces the producer adapter and re-attaches.
func (m *Monitor) SwitchProvider(adp adapter.Adapter) error {
	m.mu.Lock()
	m.adp = adp
	m.mu.Unlock()
	m.detachReader()
	return m.refresh()
}

// SwitchToSession force-attaches to a specific session ref, bypassing
// discovery and the auto-switch cooldown (an explicit user action).
func (m *Monitor) SwitchToSession(ref adapter.SessionRef) error {
	m.mu.Lock()
	m.lastSwitchAt = time.Time{}
	m.mu.Unlock()
	return m.attach(ref)
}

// RefreshSession re-runs discovery/attachment for the current workspace or
// custom path, picking up a newly appeared session.
func (m *Monitor) RefreshSession() error {
	return m.refresh()
}

func (m *Monitor) refresh() error {
	m.mu.Lock()
	workspace, customDir := m.workspace, m.customDir
	m.mu.Unlock()

	var found *adapter.SessionRef
	if customDir != "" {
		found = findInCustomDir(m.adp, customDir)
	} else {
		found = m.adp.FindActiveSession(workspace)
	}

	if found == nil {
		m.enterDiscovery()
		return nil
	}
	return m.attach(*found)
}

func findInCustomDir(adp adapter.Adapter, dir string) *adapter.SessionRef {
	refs := adp.FindAllSessions(dir)
	if len(refs) == 0 {
		entries, _ := os.ReadDir(dir) // one file per session: list dir itself
		for _, e := range entries {
			ref := adapter.SessionRef{Path: filepath.Join(dir, e.Name())}
			info, err := e.Info()
			if err != nil || e.IsDir() || !adp.IsSessionRef(e.Name()) || adp.GetSessionID(ref) == "" {
				continue
			}
			ref.ModifiedAt = info.ModTime()
			refs = append(refs, ref)
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].ModifiedAt.After(refs[j].ModifiedAt) })
	}
	if len(refs) == 0 {
		return nil
	}
	return &refs[0]
}

// IsActive reports whether a session is currently attached (Replay or
// Live).
func (m *Monitor) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateReplay || m.state == StateLive
}

func (m *Monitor) IsInDiscoveryMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateDiscovery
}

func (m *Monitor) IsReplaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateReplay
}

func (m *Monitor) IsPinned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pinned
}

// TogglePin flips the pinned flag, which suppresses auto-switch on session
// rotation, and returns the new value.
func (m *Monitor) TogglePin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned = !m.pinned
	return m.pinned
}

// Dispose cancels every timer, closes every watcher, and persists a final
// snapshot. Subscribers registered on the bus are not unregistered.
func (m *Monitor) Dispose() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil
	}
	m.disposed = true
	m.mu.Unlock()

	close(m.done)

	m.mu.Lock()
	ref, rdr, state, w := m.ref, m.rdr, m.state, m.watcher
	m.watcher = nil
	m.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
	m.wg.Wait()

	if ref != nil && rdr != nil && state != StateEnded {
		if err := m.saveSnapshot(); err != nil {
			m.opts.Logger.Warn(context.Background(), "monitor: final snapshot save failed", "error", err)
		}
	}
	m.detachReader()
	return nil
}

func (m *Monitor) detachReader() {
	m.mu.Lock()
	m.rdr = nil
	m.ref = nil
	m.mu.Unlock()
}

func (m *Monitor) emit(evt hooks.Event) {
	m.mu.Lock()
	replaying := m.state == StateReplay
	m.mu.Unlock()
	if replaying {
		return
	}
	evt.Timestamp = time.Now()
	m.opts.Bus.Publish(evt)
}
