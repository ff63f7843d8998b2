package feed

import (
	"fmt"
	"time"

	"github.com/c360/feedpulse/errors"
	"github.com/c360/feedpulse/pkg/backoff"
)

// Default retention and buffering limits for the two public feeds.
const (
	DefaultImageMaxItems    = 30
	DefaultTextMaxItems     = 50
	DefaultPauseBufferLimit = 10
)

// Thresholds holds the product heuristics driving health classification
// and diagnostics sampling. Zero values select defaults.
type Thresholds struct {
	// SamplerInterval is the cadence of the uptime and stall samplers.
	SamplerInterval time.Duration

	// StallAfter is how long without an event before a connected feed
	// is considered stalled.
	StallAfter time.Duration

	// CriticalStallAfter is how long a stall persists before health
	// degrades from degraded to critical.
	CriticalStallAfter time.Duration

	// ExcellentUptime is the minimum error-free uptime for a connected
	// feed to be classified excellent.
	ExcellentUptime time.Duration
}

// DefaultThresholds returns the standard heuristics: 5s sampling, 15s
// stall detection, 60s critical stall, 5min excellent uptime.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SamplerInterval:    5 * time.Second,
		StallAfter:         15 * time.Second,
		CriticalStallAfter: 60 * time.Second,
		ExcellentUptime:    5 * time.Minute,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.SamplerInterval <= 0 {
		t.SamplerInterval = d.SamplerInterval
	}
	if t.StallAfter <= 0 {
		t.StallAfter = d.StallAfter
	}
	if t.CriticalStallAfter <= 0 {
		t.CriticalStallAfter = d.CriticalStallAfter
	}
	if t.ExcellentUptime <= 0 {
		t.ExcellentUptime = d.ExcellentUptime
	}
	return t
}

// Config describes one feed instance. It is never mutated after
// construction; the dedupe and decode strategies make the two feed
// types variants of one generic pipeline rather than subclasses.
type Config[T any] struct {
	// Name labels the feed in logs and metrics ("image", "text").
	Name string

	// URL is the streaming broadcast endpoint.
	URL string

	// MaxItems bounds the retained item list.
	MaxItems int

	// BufferLimit bounds the pause buffer.
	BufferLimit int

	// DedupeKey derives the deterministic identity of an event.
	DedupeKey func(T) string

	// Decode parses and shape-validates one raw transport message.
	Decode func([]byte) (T, error)

	// Backoff is the reconnect delay schedule. Zero values default.
	Backoff backoff.Config

	// Thresholds are the health heuristics. Zero values default.
	Thresholds Thresholds
}

// Validate checks the config for required fields.
func (c Config[T]) Validate() error {
	if c.Name == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "checking feed name")
	}
	if c.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "checking feed url")
	}
	if c.MaxItems <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: maxItems must be positive, got %d", errors.ErrInvalidConfig, c.MaxItems),
			"Config", "Validate", "checking retention limit")
	}
	if c.BufferLimit <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: bufferLimit must be positive, got %d", errors.ErrInvalidConfig, c.BufferLimit),
			"Config", "Validate", "checking pause buffer limit")
	}
	if c.DedupeKey == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "checking dedupe strategy")
	}
	if c.Decode == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "checking decode strategy")
	}
	return nil
}

// ImageConfig returns the standard configuration for the image feed.
func ImageConfig(url string) Config[ImageEvent] {
	return Config[ImageEvent]{
		Name:        "image",
		URL:         url,
		MaxItems:    DefaultImageMaxItems,
		BufferLimit: DefaultPauseBufferLimit,
		DedupeKey:   ImageEvent.DedupeKey,
		Decode:      DecodeImage,
		Backoff:     backoff.DefaultConfig(),
		Thresholds:  DefaultThresholds(),
	}
}

// TextConfig returns the standard configuration for the text feed.
func TextConfig(url string) Config[TextEvent] {
	return Config[TextEvent]{
		Name:        "text",
		URL:         url,
		MaxItems:    DefaultTextMaxItems,
		BufferLimit: DefaultPauseBufferLimit,
		DedupeKey:   TextEvent.DedupeKey,
		Decode:      DecodeText,
		Backoff:     backoff.DefaultConfig(),
		Thresholds:  DefaultThresholds(),
	}
}
