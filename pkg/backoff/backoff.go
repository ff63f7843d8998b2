// Package backoff computes jittered exponential reconnect delays.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config provides backoff configuration.
//
// The delay for attempt n is min(InitialDelay * 2^n + jitter, MaxDelay)
// where jitter is uniformly random in [0, Jitter).
type Config struct {
	InitialDelay time.Duration // Base delay, doubled per attempt
	MaxDelay     time.Duration // Upper bound on any computed delay
	Jitter       time.Duration // Jitter range; 0 disables jitter
}

// DefaultConfig returns the standard reconnection schedule:
// 1s base, doubling per attempt, up to 500ms of jitter, capped at 30s.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Jitter:       500 * time.Millisecond,
	}
}

// sanitized returns a copy of the config with zero values defaulted and
// inverted bounds corrected, so Delay never misbehaves on partial configs.
func (c Config) sanitized() Config {
	d := DefaultConfig()
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	return c
}

// Delay computes the delay before reconnect attempt n (1-based).
// Attempt values below 1 are treated as 1.
func (c Config) Delay(attempt int) time.Duration {
	cfg := c.sanitized()
	if attempt < 1 {
		attempt = 1
	}

	// Doubling via shift; guard against overflow past the cap.
	base := cfg.InitialDelay
	for i := 0; i < attempt; i++ {
		if base >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
		base <<= 1
	}

	delay := base
	if cfg.Jitter > 0 {
		randMu.Lock()
		delay += time.Duration(randSource.Int63n(int64(cfg.Jitter)))
		randMu.Unlock()
	}

	if delay > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return delay
}
