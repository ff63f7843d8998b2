package feed

import (
	"time"
)

// Metrics is the per-feed ingestion aggregate. All fields are point-in-
// time copies when read through Metrics() or Snapshot().
type Metrics struct {
	// Received counts events retained after parsing, validation, and dedup.
	Received int64

	// Dropped counts events discarded for any reason (parse failure,
	// schema failure, duplicate key).
	Dropped int64

	// SkippedWhilePaused counts events that arrived while the feed was
	// paused, whether or not they were buffered.
	SkippedWhilePaused int64

	// Buffered is the current pause-buffer occupancy.
	Buffered int

	// ReconnectAttempts counts reconnections scheduled since creation.
	ReconnectAttempts int64

	// LastEventAt is the arrival time of the most recent retained event.
	LastEventAt time.Time

	// EventsPerMinute is the arrival count over the trailing 60 seconds.
	EventsPerMinute int

	// AverageIntervalMs is the mean inter-arrival gap over the trailing
	// 60-second window, or 0 with fewer than two arrivals.
	AverageIntervalMs float64
}

// Diagnostics is the per-feed connection health aggregate.
type Diagnostics struct {
	// UptimeMs is milliseconds since the last successful open, sampled
	// on the monitor cadence while connected.
	UptimeMs int64

	// Stalled reports an open connection with no recent event arrival.
	Stalled bool

	// StallDurationMs is the current event gap while stalled, else 0.
	StallDurationMs int64

	LastConnectedAt    time.Time
	LastDisconnectedAt time.Time

	// ConsecutiveErrors counts transport errors since the last
	// successful open.
	ConsecutiveErrors int

	// LastFailureReason records what caused the most recent disconnect.
	LastFailureReason FailureReason

	// Health is derived from status and diagnostics, never set directly.
	Health Health
}

// arrivalWindow maintains the trailing 60 seconds of event arrival
// timestamps for rate computation. Not safe for concurrent use; the
// owning feed's mutex guards it.
type arrivalWindow struct {
	span    time.Duration
	arrived []time.Time
}

func newArrivalWindow() *arrivalWindow {
	return &arrivalWindow{span: time.Minute}
}

// record notes one arrival and prunes expired entries.
func (w *arrivalWindow) record(now time.Time) {
	w.arrived = append(w.arrived, now)
	w.prune(now)
}

// prune discards timestamps older than the window span.
func (w *arrivalWindow) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	drop := 0
	for drop < len(w.arrived) && w.arrived[drop].Before(cutoff) {
		drop++
	}
	if drop > 0 {
		w.arrived = append(w.arrived[:0], w.arrived[drop:]...)
	}
}

// rates returns events-per-minute and mean inter-arrival milliseconds
// for the current window contents.
func (w *arrivalWindow) rates(now time.Time) (perMinute int, avgIntervalMs float64) {
	w.prune(now)

	perMinute = len(w.arrived)
	if perMinute < 2 {
		return perMinute, 0
	}

	var total time.Duration
	for i := 1; i < len(w.arrived); i++ {
		total += w.arrived[i].Sub(w.arrived[i-1])
	}
	avgIntervalMs = float64(total.Milliseconds()) / float64(perMinute-1)
	return perMinute, avgIntervalMs
}

// reset clears the window.
func (w *arrivalWindow) reset() {
	w.arrived = w.arrived[:0]
}
