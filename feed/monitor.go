package feed

import (
	"time"
)

// monitor is one run of the diagnostics samplers: uptime since the last
// successful open and stall detection against the last event arrival.
// A monitor starts on successful connect (unless hidden) and stops on
// disconnect, stop, or hidden transition; a stopped monitor's pending
// tick is discarded by the identity check in sample.
type monitor struct {
	stop chan struct{}
}

// startMonitorLocked launches the sampler loop. No-op if running.
func (f *Feed[T]) startMonitorLocked() {
	if f.monitor != nil {
		return
	}

	m := &monitor{stop: make(chan struct{})}
	f.monitor = m

	go f.sampleLoop(m)
}

// stopMonitorLocked halts the sampler loop. No-op if not running.
func (f *Feed[T]) stopMonitorLocked() {
	if f.monitor == nil {
		return
	}
	close(f.monitor.stop)
	f.monitor = nil
}

func (f *Feed[T]) sampleLoop(m *monitor) {
	ticker := time.NewTicker(f.cfg.Thresholds.SamplerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			f.sample(m)
		}
	}
}

// sample takes one diagnostics reading under the feed lock.
func (f *Feed[T]) sample(m *monitor) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// A tick racing its own shutdown must not touch state.
	if f.monitor != m {
		return
	}

	now := f.now()
	f.diag.UptimeMs = now.Sub(f.diag.LastConnectedAt).Milliseconds()

	// Pausing is not stalling; the stall reading holds while paused.
	if !f.paused {
		reference := f.metrics.LastEventAt
		if reference.IsZero() {
			reference = f.diag.LastConnectedAt
		}
		gap := now.Sub(reference)
		if gap >= f.cfg.Thresholds.StallAfter {
			f.diag.Stalled = true
			f.diag.StallDurationMs = gap.Milliseconds()
		} else {
			f.diag.Stalled = false
			f.diag.StallDurationMs = 0
		}
	}

	// Rolling rates decay as the window ages even with no arrivals.
	f.metrics.EventsPerMinute, f.metrics.AverageIntervalMs = f.window.rates(now)

	f.notifyLocked()
}
