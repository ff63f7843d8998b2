package feed

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/feedpulse/pkg/backoff"
	"github.com/c360/feedpulse/signals"
	"github.com/c360/feedpulse/transport"
)

// newImageFeed builds a feed wired to a fake transport with a fast
// retry schedule so reconnection tests run in milliseconds.
func newImageFeed(t *testing.T, mutate func(*Config[ImageEvent])) (*Feed[ImageEvent], *transport.Fake, *signals.Manual) {
	t.Helper()

	cfg := ImageConfig("https://feeds.example.com/image")
	cfg.Backoff = backoff.Config{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Jitter:       -1, // negative sanitizes to no jitter
	}
	if mutate != nil {
		mutate(&cfg)
	}

	fake := transport.NewFake()
	sig := signals.NewManual()

	f, err := New(cfg, fake, sig, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, err)
	t.Cleanup(f.Stop)

	return f, fake, sig
}

func imagePayload(n int) map[string]any {
	return map[string]any{
		"prompt":   fmt.Sprintf("prompt %d", n),
		"imageURL": fmt.Sprintf("https://img.example.com/%d.jpg", n),
		"model":    "flux",
		"width":    1024,
		"height":   768,
	}
}

// seenKeysMatchItems asserts the dedup-key set mirrors exactly the keys
// of the retained items.
func seenKeysMatchItems(t *testing.T, f *Feed[ImageEvent]) {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.Len(t, f.seenKeys, len(f.items))
	for _, item := range f.items {
		assert.Contains(t, f.seenKeys, f.cfg.DedupeKey(item))
	}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config[ImageEvent]{}, transport.NewFake(), nil, nil, nil)
	require.Error(t, err)

	cfg := ImageConfig("https://feeds.example.com/image")
	_, err = New(cfg, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestStartConnectsThenOpens(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)

	assert.Equal(t, StatusIdle, f.Status())
	assert.Equal(t, HealthIdle, f.Health())

	f.Start()
	assert.Equal(t, StatusConnecting, f.Status())
	assert.Equal(t, 1, fake.DialCount())

	fake.Last().Open()
	assert.Equal(t, StatusConnected, f.Status())
	assert.Equal(t, HealthGood, f.Health())
	assert.False(t, f.Diagnostics().LastConnectedAt.IsZero())
}

func TestStartIsIdempotent(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)

	f.Start()
	f.Start()

	assert.Equal(t, 1, fake.DialCount())
}

func TestMalformedPayloadDropped(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()

	fake.Last().Emit([]byte(`{bad json`))

	assert.Empty(t, f.Items())
	assert.Equal(t, int64(1), f.Metrics().Dropped)
	assert.Equal(t, int64(0), f.Metrics().Received)
}

func TestSchemaFailureDropped(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()

	// Valid JSON, missing required fields
	fake.Last().Emit([]byte(`{"prompt": "hello"}`))

	assert.Empty(t, f.Items())
	assert.Equal(t, int64(1), f.Metrics().Dropped)
}

func TestDuplicateDroppedExactlyOnce(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()

	fake.Last().EmitJSON(imagePayload(1))
	fake.Last().EmitJSON(imagePayload(1))

	assert.Len(t, f.Items(), 1)
	assert.Equal(t, int64(1), f.Metrics().Received)
	assert.Equal(t, int64(1), f.Metrics().Dropped)
	seenKeysMatchItems(t, f)
}

func TestRetentionEvictsOldestWithKeys(t *testing.T) {
	f, fake, _ := newImageFeed(t, func(cfg *Config[ImageEvent]) {
		cfg.MaxItems = 3
	})
	f.Start()
	fake.Last().Open()

	for i := 1; i <= 4; i++ {
		fake.Last().EmitJSON(imagePayload(i))
	}

	items := f.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "https://img.example.com/4.jpg", items[0].ImageURL)
	assert.Equal(t, "https://img.example.com/2.jpg", items[2].ImageURL)
	seenKeysMatchItems(t, f)

	// The evicted event's key was released, so a re-broadcast of it is
	// accepted again.
	fake.Last().EmitJSON(imagePayload(1))
	items = f.Items()
	assert.Equal(t, "https://img.example.com/1.jpg", items[0].ImageURL)
	assert.Equal(t, int64(5), f.Metrics().Received)
	seenKeysMatchItems(t, f)
}

func TestPauseBuffersAndResumeFlushesInOrder(t *testing.T) {
	f, fake, _ := newImageFeed(t, func(cfg *Config[ImageEvent]) {
		cfg.BufferLimit = 2
	})
	f.Start()
	fake.Last().Open()

	f.SetPaused(true)
	assert.Equal(t, StatusPaused, f.Status())

	fake.Last().EmitJSON(imagePayload(1)) // A, evicted by C
	fake.Last().EmitJSON(imagePayload(2)) // B
	fake.Last().EmitJSON(imagePayload(3)) // C

	m := f.Metrics()
	assert.Equal(t, int64(3), m.SkippedWhilePaused)
	assert.Equal(t, 2, m.Buffered)
	assert.Empty(t, f.Items())

	flushed := f.SetPaused(false)
	assert.Equal(t, 2, flushed)
	assert.Equal(t, StatusConnected, f.Status())

	want := []ImageEvent{
		{Prompt: "prompt 3", ImageURL: "https://img.example.com/3.jpg", Model: "flux", Width: 1024, Height: 768},
		{Prompt: "prompt 2", ImageURL: "https://img.example.com/2.jpg", Model: "flux", Width: 1024, Height: 768},
	}
	assert.Empty(t, cmp.Diff(want, f.Items()))
	assert.Equal(t, 0, f.Metrics().Buffered)
	seenKeysMatchItems(t, f)
}

func TestPausedDuplicateAgainstBufferDropped(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()

	f.SetPaused(true)
	fake.Last().EmitJSON(imagePayload(1))
	fake.Last().EmitJSON(imagePayload(1))

	m := f.Metrics()
	assert.Equal(t, 1, m.Buffered)
	assert.Equal(t, int64(1), m.Dropped)
	assert.Equal(t, int64(2), m.SkippedWhilePaused)
}

func TestPausedDuplicateAgainstRetainedDropped(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()

	fake.Last().EmitJSON(imagePayload(1))
	f.SetPaused(true)
	fake.Last().EmitJSON(imagePayload(1))

	m := f.Metrics()
	assert.Equal(t, 0, m.Buffered)
	assert.Equal(t, int64(1), m.Dropped)

	assert.Equal(t, 0, f.SetPaused(false))
	assert.Len(t, f.Items(), 1)
}

func TestEvictedBufferEntryKeyReleased(t *testing.T) {
	f, fake, _ := newImageFeed(t, func(cfg *Config[ImageEvent]) {
		cfg.BufferLimit = 1
	})
	f.Start()
	fake.Last().Open()

	f.SetPaused(true)
	fake.Last().EmitJSON(imagePayload(1)) // evicted by 2
	fake.Last().EmitJSON(imagePayload(2))
	// 1's key was untracked on eviction, so it buffers again.
	fake.Last().EmitJSON(imagePayload(1))

	assert.Equal(t, 1, f.Metrics().Buffered)
	assert.Equal(t, 1, f.SetPaused(false))
	assert.Equal(t, "https://img.example.com/1.jpg", f.Items()[0].ImageURL)
}

func TestTogglePause(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()

	paused, flushed := f.TogglePause()
	assert.True(t, paused)
	assert.Equal(t, 0, flushed)

	fake.Last().EmitJSON(imagePayload(1))

	paused, flushed = f.TogglePause()
	assert.False(t, paused)
	assert.Equal(t, 1, flushed)
	assert.Len(t, f.Items(), 1)
}

func TestTransportErrorsDriveBackoffReconnect(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()

	for want := 1; want <= 3; want++ {
		fake.Last().Fail(stderrors.New("stream reset by peer"))

		d := f.Diagnostics()
		assert.Equal(t, want, d.ConsecutiveErrors)
		assert.Equal(t, FailureError, d.LastFailureReason)
		assert.Equal(t, HealthCritical, d.Health)
		assert.Equal(t, int64(want), f.Metrics().ReconnectAttempts)

		if want < 3 {
			dialed := fake.DialCount()
			require.Eventually(t, func() bool {
				return fake.DialCount() > dialed
			}, time.Second, time.Millisecond)
			assert.Equal(t, StatusReconnecting, f.Status())
		}
	}

	assert.Error(t, f.LastError())
}

func TestSuccessfulOpenResetsFailureState(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()

	fake.Last().Fail(stderrors.New("connection refused"))
	dialed := fake.DialCount()
	require.Eventually(t, func() bool {
		return fake.DialCount() > dialed
	}, time.Second, time.Millisecond)

	fake.Last().Open()

	d := f.Diagnostics()
	assert.Equal(t, StatusConnected, f.Status())
	assert.Equal(t, 0, d.ConsecutiveErrors)
	assert.Equal(t, FailureNone, d.LastFailureReason)
	assert.Equal(t, HealthGood, d.Health)
	assert.NoError(t, f.LastError())
}

func TestStopCancelsPendingReconnect(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()

	fake.Last().Fail(stderrors.New("connection refused"))
	f.Stop()

	dialed := fake.DialCount()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, dialed, fake.DialCount())
	assert.Equal(t, StatusIdle, f.Status())
}

func TestStopSuppressesLateCallbacks(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	conn := fake.Last()
	conn.Open()

	f.Stop()
	assert.True(t, conn.Closed())

	// A message racing the teardown must not mutate the feed.
	conn.Emit([]byte(`{"prompt":"x","imageURL":"u","model":"m","width":1,"height":1}`))
	conn.Fail(stderrors.New("late failure"))

	assert.Equal(t, StatusIdle, f.Status())
	assert.Empty(t, f.Items())
	assert.Equal(t, 0, f.Diagnostics().ConsecutiveErrors)
}

func TestStopIsIdempotent(t *testing.T) {
	f, _, _ := newImageFeed(t, nil)
	f.Start()
	f.Stop()
	f.Stop()
	assert.Equal(t, StatusIdle, f.Status())
}

func TestConnectivityLossForcesOfflineAndHoldsRetry(t *testing.T) {
	f, fake, sig := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()

	sig.SetOnline(false)
	f.HandleConnectivity(false)

	d := f.Diagnostics()
	assert.Equal(t, StatusOffline, f.Status())
	assert.Equal(t, FailureOffline, d.LastFailureReason)
	assert.Equal(t, 0, d.ConsecutiveErrors)
	assert.Equal(t, HealthCritical, d.Health)
	assert.Equal(t, int64(1), f.Metrics().ReconnectAttempts)

	// Reconnection is gated on connectivity, not on a timer.
	dialed := fake.DialCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, dialed, fake.DialCount())

	sig.SetOnline(true)
	f.HandleConnectivity(true)

	assert.Equal(t, dialed+1, fake.DialCount())
	assert.Equal(t, StatusConnecting, f.Status())

	fake.Last().Open()
	assert.Equal(t, StatusConnected, f.Status())
	assert.Equal(t, HealthGood, f.Health())
}

func TestRestartReconnectsImmediately(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()
	fake.Last().EmitJSON(imagePayload(1))

	f.Restart(RestartOptions{ResetBackoff: true, ClearItems: true})

	assert.Equal(t, 2, fake.DialCount())
	assert.Equal(t, StatusConnecting, f.Status())
	assert.Empty(t, f.Items())

	fake.Last().Open()
	fake.Last().EmitJSON(imagePayload(1))
	assert.Len(t, f.Items(), 1)
}

func TestResetSelective(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()
	fake.Last().EmitJSON(imagePayload(1))
	fake.Last().Emit([]byte(`{bad`))

	f.Reset(ResetOptions{Metrics: true})
	assert.Equal(t, int64(0), f.Metrics().Received)
	assert.Equal(t, int64(0), f.Metrics().Dropped)
	assert.Len(t, f.Items(), 1)

	f.Reset(ResetOptions{Items: true})
	assert.Empty(t, f.Items())
	seenKeysMatchItems(t, f)

	// A reset item list accepts previously retained keys again.
	fake.Last().EmitJSON(imagePayload(1))
	assert.Len(t, f.Items(), 1)
}

func TestStallDetection(t *testing.T) {
	f, fake, _ := newImageFeed(t, func(cfg *Config[ImageEvent]) {
		cfg.Thresholds = Thresholds{
			SamplerInterval:    5 * time.Millisecond,
			StallAfter:         25 * time.Millisecond,
			CriticalStallAfter: 10 * time.Second,
			ExcellentUptime:    time.Hour,
		}
	})
	f.Start()
	fake.Last().Open()

	require.Eventually(t, func() bool {
		return f.Diagnostics().Stalled
	}, time.Second, time.Millisecond)
	assert.Equal(t, HealthDegraded, f.Health())
	assert.Greater(t, f.Diagnostics().StallDurationMs, int64(0))

	// A fresh event clears the stall immediately.
	fake.Last().EmitJSON(imagePayload(1))
	d := f.Diagnostics()
	assert.False(t, d.Stalled)
	assert.Equal(t, int64(0), d.StallDurationMs)
	assert.Equal(t, HealthGood, d.Health)
}

func TestProlongedStallIsCritical(t *testing.T) {
	f, fake, _ := newImageFeed(t, func(cfg *Config[ImageEvent]) {
		cfg.Thresholds = Thresholds{
			SamplerInterval:    5 * time.Millisecond,
			StallAfter:         10 * time.Millisecond,
			CriticalStallAfter: 40 * time.Millisecond,
			ExcellentUptime:    time.Hour,
		}
	})
	f.Start()
	fake.Last().Open()

	require.Eventually(t, func() bool {
		return f.Health() == HealthCritical
	}, time.Second, time.Millisecond)
	assert.True(t, f.Diagnostics().Stalled)
}

func TestHiddenSuspendsSampling(t *testing.T) {
	f, fake, _ := newImageFeed(t, func(cfg *Config[ImageEvent]) {
		cfg.Thresholds = Thresholds{
			SamplerInterval:    5 * time.Millisecond,
			StallAfter:         15 * time.Millisecond,
			CriticalStallAfter: 10 * time.Second,
			ExcellentUptime:    time.Hour,
		}
	})
	f.Start()

	f.HandleVisibility(true)
	fake.Last().Open()

	// Hidden at open time, so no sampler runs and no stall is detected.
	time.Sleep(60 * time.Millisecond)
	assert.False(t, f.Diagnostics().Stalled)
	assert.Equal(t, StatusConnected, f.Status())

	f.HandleVisibility(false)
	require.Eventually(t, func() bool {
		return f.Diagnostics().Stalled
	}, time.Second, time.Millisecond)
}

func TestExcellentHealthAfterSustainedUptime(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()

	// Backdate the connection past the excellent threshold and take a
	// manual sample.
	f.mu.Lock()
	f.diag.LastConnectedAt = time.Now().Add(-6 * time.Minute)
	f.metrics.LastEventAt = time.Now()
	m := f.monitor
	f.mu.Unlock()
	require.NotNil(t, m)

	f.sample(m)

	d := f.Diagnostics()
	assert.GreaterOrEqual(t, d.UptimeMs, (5 * time.Minute).Milliseconds())
	assert.Equal(t, HealthExcellent, d.Health)
}

func TestWatchDeliversLatestSnapshot(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)

	ch, cancel := f.Watch()

	f.Start()
	fake.Last().Open()
	fake.Last().EmitJSON(imagePayload(1))
	fake.Last().EmitJSON(imagePayload(2))

	// The channel coalesces; drain until the latest state is observed.
	var snap Snapshot[ImageEvent]
	require.Eventually(t, func() bool {
		select {
		case snap = <-ch:
		default:
		}
		return len(snap.Items) == 2
	}, time.Second, time.Millisecond)

	assert.Equal(t, StatusConnected, snap.Status)
	assert.Equal(t, "image", snap.Name)
	assert.Equal(t, int64(2), snap.Metrics.Received)

	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Cancel twice is safe.
	cancel()
}

func TestSnapshotItemsAreACopy(t *testing.T) {
	f, fake, _ := newImageFeed(t, nil)
	f.Start()
	fake.Last().Open()
	fake.Last().EmitJSON(imagePayload(1))

	snap := f.Snapshot()
	snap.Items[0].ImageURL = "mutated"

	assert.Equal(t, "https://img.example.com/1.jpg", f.Items()[0].ImageURL)
}

func TestArrivalWindowRates(t *testing.T) {
	w := newArrivalWindow()
	base := time.Now()

	for i := 0; i < 5; i++ {
		w.record(base.Add(time.Duration(i) * 10 * time.Second))
	}

	now := base.Add(40 * time.Second)
	perMinute, avg := w.rates(now)
	assert.Equal(t, 5, perMinute)
	assert.InDelta(t, 10000, avg, 1)

	// 70s later only the last two arrivals remain in the window.
	perMinute, _ = w.rates(base.Add(95 * time.Second))
	assert.Equal(t, 2, perMinute)
}
