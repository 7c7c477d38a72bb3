package monitor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sessionwatch/sessionwatch/adapter"
	"github.com/sessionwatch/sessionwatch/hooks"
)

// runLoop is the single always-on goroutine driving every timed or
// watch-triggered action. Funneling discovery polls, live polls, and
// filesystem notifications through one goroutine keeps the engine
// single-threaded in spirit even though Go itself is concurrent.
func (m *Monitor) runLoop() {
	defer m.wg.Done()
	for {
		wait := m.nextTick()
		select {
		case <-m.done:
			return
		case <-m.triggerCh:
			m.debounceThen(m.handleTrigger)
		case <-time.After(wait):
			m.handleTrigger()
		}
	}
}

// debounceThen waits FileChangeDebounce before acting, draining any
// further trigger signals that arrive meanwhile so a burst of writes to
// the same file collapses into one read.
func (m *Monitor) debounceThen(fn func()) {
	timer := time.NewTimer(FileChangeDebounce)
	defer timer.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-m.triggerCh:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(FileChangeDebounce)
		case <-timer.C:
			fn()
			return
		}
	}
}

func (m *Monitor) nextTick() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateDiscovery:
		if time.Now().Before(m.fastDiscoveryUntil) {
			return FastDiscoveryInterval
		}
		return DiscoveryInterval
	case StateLive:
		return m.opts.PollInterval
	default:
		return time.Second
	}
}

func (m *Monitor) handleTrigger() {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch state {
	case StateDiscovery:
		_ = m.refresh()
	case StateLive:
		m.checkRotation()
		m.processFileChange()
	}
}

func (m *Monitor) notify() {
	select {
	case m.triggerCh <- struct{}{}:
	default:
	}
}

// enterDiscovery transitions into Discovery and arms a filesystem watch on
// the session directory and its parent, so the monitor survives the
// directory not yet existing.
func (m *Monitor) enterDiscovery() {
	m.mu.Lock()
	already := m.state == StateDiscovery
	m.state = StateDiscovery
	m.mu.Unlock()

	m.armWatch()
	if !already {
		m.emit(hooks.Event{Type: hooks.DiscoveryModeChange, BoolValue: true})
	}
}

// enterFastDiscovery starts a capped fast-discovery window after a session
// ends.
func (m *Monitor) enterFastDiscovery() {
	m.mu.Lock()
	m.fastDiscoveryUntil = time.Now().Add(FastDiscoveryDuration)
	m.mu.Unlock()
	m.enterDiscovery()
}

// startLiveWatch arms a filesystem watch on the attached session's file (or
// its containing database, for DB-backed producers) so live reads are
// triggered promptly rather than waiting out the poll interval.
func (m *Monitor) startLiveWatch(ref adapter.SessionRef) {
	dir := filepath.Dir(ref.Path)
	m.setWatchDir(dir)
}

func (m *Monitor) armWatch() {
	m.mu.Lock()
	workspace, customDir := m.workspace, m.customDir
	m.mu.Unlock()

	dir := customDir
	if dir == "" {
		dir = m.adp.SessionDirectory(workspace)
	}
	m.setWatchDir(dir)
}

// setWatchDir replaces the current fsnotify watcher with one rooted at dir
// and its parent. Watch failures are swallowed: the poll ticker remains
// the fallback trigger.
func (m *Monitor) setWatchDir(dir string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	_ = watcher.Add(dir)
	_ = watcher.Add(filepath.Dir(dir))

	m.mu.Lock()
	old := m.watcher
	m.watcher = watcher
	m.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	m.wg.Add(1)
	go m.forwardWatchEvents(watcher)
}

// forwardWatchEvents pumps fsnotify notifications into triggerCh until the
// watcher is closed (by a later setWatchDir call or Dispose) or the
// monitor is done.
func (m *Monitor) forwardWatchEvents(watcher *fsnotify.Watcher) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case _, ok := <-watcher.Events:
			if !ok {
				return
			}
			m.notify()
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.opts.Logger.Warn(context.Background(), "monitor: watch error")
		}
	}
}

// checkRotation detects a change to a different session file in the same
// directory and, unless pinned or within the post-switch cooldown,
// auto-switches to it.
func (m *Monitor) checkRotation() {
	m.mu.Lock()
	pinned := m.pinned
	workspace, customDir := m.workspace, m.customDir
	current := m.ref
	cooling := !m.lastSwitchAt.IsZero() && time.Since(m.lastSwitchAt) < SessionSwitchCooldown
	m.mu.Unlock()

	if pinned || cooling || current == nil {
		return
	}

	var latest *adapter.SessionRef
	if customDir != "" {
		latest = findInCustomDir(m.adp, customDir)
	} else {
		latest = m.adp.FindActiveSession(workspace)
	}
	if latest == nil || latest.Path == current.Path {
		return
	}
	_ = m.attach(*latest)
}
