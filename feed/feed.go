package feed

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/feedpulse/errors"
	"github.com/c360/feedpulse/metric"
	"github.com/c360/feedpulse/pkg/buffer"
	"github.com/c360/feedpulse/signals"
	"github.com/c360/feedpulse/transport"
)

// pendingEvent is one decoded event parked in the pause buffer together
// with its dedup key.
type pendingEvent[T any] struct {
	event T
	key   string
}

// Feed is the connection manager, ingestion pipeline, and diagnostics
// monitor for one streaming feed instance. A Feed is created once and
// lives for the process lifetime; it is started, stopped, restarted,
// and reset but never destroyed.
//
// All state is guarded by one mutex. Transport callbacks, reconnect
// timer firings, signal handlers, and control calls each acquire it,
// complete their mutation, and release it; the epoch counter invalidates
// callbacks that belong to a torn-down connection so nothing fires
// after Stop returns.
type Feed[T any] struct {
	cfg     Config[T]
	factory transport.Factory
	sig     signals.Signals
	logger  *slog.Logger
	prom    *metric.Metrics

	now func() time.Time

	mu    sync.Mutex
	epoch uint64

	active bool
	paused bool
	hidden bool
	status Status

	lastErr       error
	everConnected bool

	items    []T
	seenKeys map[string]struct{}

	pauseBuf   buffer.Buffer[pendingEvent[T]]
	bufferKeys map[string]struct{}

	window  *arrivalWindow
	metrics Metrics
	diag    Diagnostics

	attempts int
	conn     transport.Conn
	retry    *time.Timer

	monitor *monitor

	watchers map[string]chan Snapshot[T]
}

// New creates a feed instance. The signals source and registry may be
// nil; a nil logger discards. The feed starts idle; call Start.
func New[T any](cfg Config[T], factory transport.Factory, sig signals.Signals,
	logger *slog.Logger, registry *metric.Registry) (*Feed[T], error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Feed", "New", "checking transport factory")
	}

	cfg.Thresholds = cfg.Thresholds.withDefaults()

	if sig == nil {
		sig = signals.NewManual()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	f := &Feed[T]{
		cfg:        cfg,
		factory:    factory,
		sig:        sig,
		logger:     logger.With("component", "feed."+cfg.Name),
		now:        time.Now,
		status:     StatusIdle,
		seenKeys:   make(map[string]struct{}),
		bufferKeys: make(map[string]struct{}),
		window:     newArrivalWindow(),
		watchers:   make(map[string]chan Snapshot[T]),
	}

	if registry != nil {
		f.prom = registry.CoreMetrics()
	}

	// Evicted entries must release their dedup key or a re-delivery of
	// the evicted event would be wrongly suppressed. The callback runs
	// inside Write, which only ever happens under f.mu.
	buf, err := buffer.NewRing[pendingEvent[T]](cfg.BufferLimit,
		buffer.WithOverflowPolicy[pendingEvent[T]](buffer.DropOldest),
		buffer.WithDropCallback[pendingEvent[T]](func(p pendingEvent[T]) {
			delete(f.bufferKeys, p.key)
		}),
		buffer.WithMetrics[pendingEvent[T]](registry, cfg.Name),
	)
	if err != nil {
		return nil, errors.Wrap(err, "Feed", "New", "creating pause buffer")
	}
	f.pauseBuf = buf

	return f, nil
}

// Name returns the feed's configured name.
func (f *Feed[T]) Name() string {
	return f.cfg.Name
}

// Start activates the feed and begins connecting. Calling Start on an
// already active feed resets the backoff counter and is otherwise a
// no-op.
func (f *Feed[T]) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active {
		f.attempts = 0
		return
	}

	f.active = true
	f.attempts = 0
	f.lastErr = nil
	f.diag.ConsecutiveErrors = 0
	f.diag.LastFailureReason = FailureNone
	f.diag.Stalled = false
	f.diag.StallDurationMs = 0
	f.diag.UptimeMs = 0

	f.logger.Info("feed starting", "url", f.cfg.URL)
	f.connectLocked()
}

// Stop deactivates the feed: the connection is closed, any pending
// reconnect and sampler timers are cancelled, and no callback mutates
// the feed after Stop returns. Idempotent.
func (f *Feed[T]) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return
	}

	f.teardownLocked()
	f.status = StatusIdle
	f.diag.LastDisconnectedAt = f.now()

	f.logger.Info("feed stopped")
	f.notifyLocked()
}

// RestartOptions controls Restart behavior.
type RestartOptions struct {
	// ResetBackoff zeroes the reconnect attempt counter.
	ResetBackoff bool

	// ClearItems empties the retained item list and its dedup keys.
	ClearItems bool
}

// Restart tears down the current connection and timer and reconnects
// immediately. The feed becomes active even if it was stopped.
func (f *Feed[T]) Restart(opts RestartOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.teardownLocked()
	f.active = true

	if opts.ResetBackoff {
		f.attempts = 0
	}
	if opts.ClearItems {
		f.items = nil
		f.seenKeys = make(map[string]struct{})
	}

	f.logger.Info("feed restarting",
		"resetBackoff", opts.ResetBackoff, "clearItems", opts.ClearItems)
	f.connectLocked()
}

// ResetOptions selects which feed state Reset clears.
type ResetOptions struct {
	Items       bool
	Metrics     bool
	Diagnostics bool
}

// Reset clears retained state without touching the connection.
func (f *Feed[T]) Reset(opts ResetOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if opts.Items {
		f.items = nil
		f.seenKeys = make(map[string]struct{})
		f.pauseBuf.Clear()
		f.bufferKeys = make(map[string]struct{})
		f.metrics.Buffered = 0
	}
	if opts.Metrics {
		f.metrics = Metrics{Buffered: f.pauseBuf.Size()}
		f.window.reset()
	}
	if opts.Diagnostics {
		// Connection timestamps survive a reset; the uptime sampler
		// still needs them while the connection is open.
		f.diag.ConsecutiveErrors = 0
		f.diag.LastFailureReason = FailureNone
		f.diag.Stalled = false
		f.diag.StallDurationMs = 0
		f.diag.UptimeMs = 0
		f.lastErr = nil
	}

	f.notifyLocked()
}

// SetPaused sets the paused flag. Pausing redirects ingestion into the
// bounded pause buffer; resuming flushes buffered entries through the
// normal ingestion path in arrival order. Returns how many buffered
// entries were retained on resume. Idempotent.
func (f *Feed[T]) SetPaused(paused bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.paused == paused {
		return 0
	}
	f.paused = paused

	if paused {
		if f.status == StatusConnected {
			f.status = StatusPaused
		}
		f.logger.Debug("feed paused")
		f.notifyLocked()
		return 0
	}

	flushed := f.flushBufferLocked()
	if f.status == StatusPaused {
		f.status = StatusConnected
	}
	f.logger.Debug("feed resumed", "flushed", flushed)
	f.notifyLocked()
	return flushed
}

// TogglePause flips the paused flag and reports the new state plus how
// many buffered entries a resume flushed.
func (f *Feed[T]) TogglePause() (bool, int) {
	f.mu.Lock()
	paused := !f.paused
	f.mu.Unlock()

	return paused, f.SetPaused(paused)
}

// HandleConnectivity drives the feed from a host connectivity
// transition. Loss force-disconnects an active feed into the offline
// state with reconnection held; recovery reconnects immediately with a
// fresh backoff counter.
func (f *Feed[T]) HandleConnectivity(online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !online {
		if !f.active {
			return
		}
		f.epoch++
		f.closeConnLocked()
		f.stopMonitorLocked()
		f.status = StatusOffline
		f.diag.LastFailureReason = FailureOffline
		f.diag.LastDisconnectedAt = f.now()

		f.logger.Warn("connectivity lost, feed offline")
		f.scheduleReconnectLocked()
		f.notifyLocked()
		return
	}

	if f.active && (f.status == StatusOffline || f.status == StatusError) {
		f.attempts = 0
		f.cancelRetryLocked()
		f.logger.Info("connectivity restored, reconnecting")
		f.connectLocked()
	}
}

// HandleVisibility suspends diagnostics sampling while the host is
// hidden so throttled background timers cannot skew stall detection.
// Connection state is untouched.
func (f *Feed[T]) HandleVisibility(hidden bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hidden = hidden
	if hidden {
		f.stopMonitorLocked()
		return
	}
	if f.active && f.conn != nil && (f.status == StatusConnected || f.status == StatusPaused) {
		f.startMonitorLocked()
	}
}

// connectLocked dials a new connection for the current epoch. Dial is
// non-blocking; establishment is reported through the handler.
func (f *Feed[T]) connectLocked() {
	if f.attempts > 0 {
		f.status = StatusReconnecting
	} else {
		f.status = StatusConnecting
	}

	epoch := f.epoch
	f.conn = f.factory.Dial(f.cfg.URL, transport.Handler{
		OnOpen:    func() { f.handleOpen(epoch) },
		OnMessage: func(data []byte) { f.handleMessage(epoch, data) },
		OnError:   func(err error) { f.handleError(epoch, err) },
	})

	f.notifyLocked()
}

// handleOpen confirms a successful open: the backoff counter and error
// diagnostics reset, and the health monitor starts unless hidden.
func (f *Feed[T]) handleOpen(epoch uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if epoch != f.epoch || !f.active {
		return
	}

	f.attempts = 0
	f.cancelRetryLocked()
	f.everConnected = true
	f.lastErr = nil

	f.diag.LastConnectedAt = f.now()
	f.diag.ConsecutiveErrors = 0
	f.diag.LastFailureReason = FailureNone
	f.diag.UptimeMs = 0
	f.diag.Stalled = false
	f.diag.StallDurationMs = 0

	if f.paused {
		f.status = StatusPaused
	} else {
		f.status = StatusConnected
	}

	if !f.hidden {
		f.startMonitorLocked()
	}

	f.logger.Info("stream open", "url", f.cfg.URL)
	f.notifyLocked()
}

// handleMessage runs the ingestion pipeline for one inbound message.
func (f *Feed[T]) handleMessage(epoch uint64, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if epoch != f.epoch || !f.active {
		return
	}

	if f.paused {
		f.bufferMessageLocked(data)
		return
	}

	ev, err := f.cfg.Decode(data)
	if err != nil {
		f.dropLocked(dropReason(err))
		f.logger.Debug("payload dropped", "reason", err)
		f.notifyLocked()
		return
	}

	key := f.cfg.DedupeKey(ev)
	if _, dup := f.seenKeys[key]; dup {
		f.dropLocked("duplicate")
		f.logger.Debug("duplicate dropped", "key", key)
		f.notifyLocked()
		return
	}

	f.ingestLocked(ev, key)
	f.notifyLocked()
}

// bufferMessageLocked parks a validated, deduped event in the pause
// buffer instead of the item list.
func (f *Feed[T]) bufferMessageLocked(data []byte) {
	f.metrics.SkippedWhilePaused++

	ev, err := f.cfg.Decode(data)
	if err != nil {
		f.dropLocked(dropReason(err))
		f.notifyLocked()
		return
	}

	key := f.cfg.DedupeKey(ev)
	if _, dup := f.seenKeys[key]; dup {
		f.dropLocked("duplicate")
		f.notifyLocked()
		return
	}
	if _, dup := f.bufferKeys[key]; dup {
		f.dropLocked("duplicate")
		f.notifyLocked()
		return
	}

	f.bufferKeys[key] = struct{}{}
	if err := f.pauseBuf.Write(pendingEvent[T]{event: ev, key: key}); err != nil {
		delete(f.bufferKeys, key)
		f.dropLocked("buffer")
		f.notifyLocked()
		return
	}

	f.metrics.Buffered = f.pauseBuf.Size()
	f.notifyLocked()
}

// flushBufferLocked replays buffered entries through the normal
// ingestion path in original arrival order and empties the buffer.
// Returns how many entries survived flush-time dedup.
func (f *Feed[T]) flushBufferLocked() int {
	pending := f.pauseBuf.ReadBatch(f.pauseBuf.Size())
	f.bufferKeys = make(map[string]struct{})

	flushed := 0
	for _, p := range pending {
		if _, dup := f.seenKeys[p.key]; dup {
			// Delivered twice, once buffered and once live.
			f.dropLocked("duplicate")
			continue
		}
		f.ingestLocked(p.event, p.key)
		flushed++
	}

	f.metrics.Buffered = 0
	return flushed
}

// ingestLocked retains one decoded, deduped event: the key is tracked,
// the event prepended, and the tail evicted past MaxItems with its keys
// untracked atomically.
func (f *Feed[T]) ingestLocked(ev T, key string) {
	f.seenKeys[key] = struct{}{}
	f.items = append([]T{ev}, f.items...)

	if len(f.items) > f.cfg.MaxItems {
		for _, evicted := range f.items[f.cfg.MaxItems:] {
			delete(f.seenKeys, f.cfg.DedupeKey(evicted))
		}
		f.items = f.items[:f.cfg.MaxItems]
	}

	now := f.now()
	f.metrics.Received++
	f.metrics.LastEventAt = now
	f.window.record(now)
	f.metrics.EventsPerMinute, f.metrics.AverageIntervalMs = f.window.rates(now)

	// A fresh event ends any stall immediately rather than waiting for
	// the next sampler tick.
	f.diag.Stalled = false
	f.diag.StallDurationMs = 0

	if f.prom != nil {
		f.prom.EventsReceived.WithLabelValues(f.cfg.Name).Inc()
	}
}

// dropLocked discards one event, by reason.
func (f *Feed[T]) dropLocked(reason string) {
	f.metrics.Dropped++
	if f.prom != nil {
		f.prom.EventsDropped.WithLabelValues(f.cfg.Name, reason).Inc()
	}
}

// handleError records a transport failure and schedules a reconnect.
func (f *Feed[T]) handleError(epoch uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if epoch != f.epoch || !f.active {
		return
	}

	f.lastErr = err
	f.epoch++
	f.closeConnLocked()
	f.stopMonitorLocked()

	f.status = StatusError
	f.diag.ConsecutiveErrors++
	f.diag.LastFailureReason = FailureError
	f.diag.LastDisconnectedAt = f.now()

	f.logger.Error("transport failure",
		"error", err, "transient", errors.IsTransient(err),
		"consecutive", f.diag.ConsecutiveErrors)

	f.scheduleReconnectLocked()
	f.notifyLocked()
}

// scheduleReconnectLocked increments the attempt counter and arms the
// backoff timer. The previous timer is always cancelled first; timers
// never stack. While offline the attempt is counted but the timer is
// held; connectivity recovery reconnects directly.
func (f *Feed[T]) scheduleReconnectLocked() {
	f.cancelRetryLocked()

	f.attempts++
	f.metrics.ReconnectAttempts++
	if f.prom != nil {
		f.prom.ReconnectAttempts.WithLabelValues(f.cfg.Name).Inc()
	}

	if !f.sig.IsOnline() {
		f.logger.Debug("reconnect held until connectivity returns", "attempt", f.attempts)
		return
	}

	delay := f.cfg.Backoff.Delay(f.attempts)
	f.logger.Info("reconnect scheduled", "attempt", f.attempts, "delay", delay)

	epoch := f.epoch
	f.retry = time.AfterFunc(delay, func() {
		f.reconnect(epoch)
	})
}

// reconnect is the retry timer body.
func (f *Feed[T]) reconnect(epoch uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if epoch != f.epoch || !f.active {
		return
	}

	f.retry = nil
	f.closeConnLocked()
	f.connectLocked()
}

// teardownLocked deactivates the feed and releases every resource it
// owns. Bumping the epoch invalidates callbacks already in flight.
func (f *Feed[T]) teardownLocked() {
	f.active = false
	f.epoch++
	f.cancelRetryLocked()
	f.stopMonitorLocked()
	f.closeConnLocked()
}

func (f *Feed[T]) closeConnLocked() {
	if f.conn == nil {
		return
	}
	if err := f.conn.Close(); err != nil {
		f.logger.Debug("connection close", "error", err)
	}
	f.conn = nil
}

func (f *Feed[T]) cancelRetryLocked() {
	if f.retry == nil {
		return
	}
	f.retry.Stop()
	f.retry = nil
}

// classifyLocked derives health from status and diagnostics, in
// precedence order.
func (f *Feed[T]) classifyLocked() Health {
	switch {
	case f.status == StatusIdle && !f.everConnected:
		return HealthIdle

	case f.status == StatusError || f.status == StatusOffline,
		f.diag.LastFailureReason != FailureNone,
		f.diag.Stalled && f.diag.StallDurationMs >= f.cfg.Thresholds.CriticalStallAfter.Milliseconds():
		return HealthCritical

	case f.status == StatusReconnecting, f.diag.Stalled:
		return HealthDegraded

	case f.status == StatusConnected &&
		f.diag.UptimeMs >= f.cfg.Thresholds.ExcellentUptime.Milliseconds() &&
		f.diag.ConsecutiveErrors == 0:
		return HealthExcellent

	default:
		return HealthGood
	}
}

// notifyLocked recomputes health, mirrors gauges to Prometheus, and
// pushes a coalescing snapshot to every watcher.
func (f *Feed[T]) notifyLocked() {
	f.diag.Health = f.classifyLocked()

	if f.prom != nil {
		name := f.cfg.Name
		f.prom.FeedStatus.WithLabelValues(name).Set(f.status.gaugeValue())
		f.prom.FeedHealth.WithLabelValues(name).Set(f.diag.Health.gaugeValue())
		f.prom.EventsBuffered.WithLabelValues(name).Set(float64(f.metrics.Buffered))
		f.prom.ConsecutiveErrors.WithLabelValues(name).Set(float64(f.diag.ConsecutiveErrors))
		f.prom.UptimeSeconds.WithLabelValues(name).Set(float64(f.diag.UptimeMs) / 1000)
	}

	if len(f.watchers) == 0 {
		return
	}
	snap := f.snapshotLocked()
	for _, ch := range f.watchers {
		select {
		case ch <- snap:
		default:
			// Watcher is behind; replace the stale snapshot.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
