package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/feedpulse/errors"
	"github.com/c360/feedpulse/feed"
	"github.com/c360/feedpulse/pkg/backoff"
	"github.com/c360/feedpulse/transport"
)

// Transport kind constants.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Config is the complete engine configuration as loaded from YAML.
// Zero values select defaults; Validate rejects contradictions.
type Config struct {
	Image FeedConfig `yaml:"image"`
	Text  FeedConfig `yaml:"text"`

	// Transport selects the streaming client: "sse" (default) or
	// "websocket".
	Transport string `yaml:"transport,omitempty"`

	Backoff    BackoffConfig    `yaml:"backoff,omitempty"`
	Thresholds ThresholdsConfig `yaml:"thresholds,omitempty"`
}

// FeedConfig configures one feed endpoint and its limits.
type FeedConfig struct {
	URL         string `yaml:"url"`
	MaxItems    int    `yaml:"maxItems,omitempty"`
	BufferLimit int    `yaml:"bufferLimit,omitempty"`
}

// Duration is a time.Duration that unmarshals from YAML strings in Go
// duration syntax ("500ms", "2s", "1m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return errors.WrapInvalid(err, "config", "UnmarshalYAML", "decoding duration")
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.WrapInvalid(err, "config", "UnmarshalYAML", "parsing duration")
	}
	*d = Duration(parsed)
	return nil
}

// BackoffConfig overrides the reconnect schedule.
type BackoffConfig struct {
	InitialDelay Duration `yaml:"initialDelay,omitempty"`
	MaxDelay     Duration `yaml:"maxDelay,omitempty"`
	Jitter       Duration `yaml:"jitter,omitempty"`
}

// ThresholdsConfig overrides the health heuristics.
type ThresholdsConfig struct {
	SamplerInterval    Duration `yaml:"samplerInterval,omitempty"`
	StallAfter         Duration `yaml:"stallAfter,omitempty"`
	CriticalStallAfter Duration `yaml:"criticalStallAfter,omitempty"`
	ExcellentUptime    Duration `yaml:"excellentUptime,omitempty"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", "reading config file")
	}
	return Parse(data)
}

// Parse decodes and validates YAML config bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Parse", "decoding yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and
// contradictions.
func (c *Config) Validate() error {
	if c.Image.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "checking image feed url")
	}
	if c.Text.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "checking text feed url")
	}
	if c.Image.MaxItems < 0 || c.Text.MaxItems < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "checking retention limits")
	}
	if c.Image.BufferLimit < 0 || c.Text.BufferLimit < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "checking buffer limits")
	}

	switch c.Transport {
	case "", TransportSSE, TransportWebSocket:
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown transport %q", errors.ErrInvalidConfig, c.Transport),
			"config", "Validate", "checking transport kind")
	}

	return nil
}

// Factory returns the configured transport factory.
func (c *Config) Factory() transport.Factory {
	if c.Transport == TransportWebSocket {
		return &transport.WSFactory{}
	}
	return &transport.SSEFactory{}
}

// ImageFeed materializes the image feed configuration.
func (c *Config) ImageFeed() feed.Config[feed.ImageEvent] {
	out := feed.ImageConfig(c.Image.URL)
	applyFeedOverrides(&out.MaxItems, &out.BufferLimit, c.Image)
	out.Backoff = c.backoff()
	out.Thresholds = c.thresholds()
	return out
}

// TextFeed materializes the text feed configuration.
func (c *Config) TextFeed() feed.Config[feed.TextEvent] {
	out := feed.TextConfig(c.Text.URL)
	applyFeedOverrides(&out.MaxItems, &out.BufferLimit, c.Text)
	out.Backoff = c.backoff()
	out.Thresholds = c.thresholds()
	return out
}

func applyFeedOverrides(maxItems, bufferLimit *int, fc FeedConfig) {
	if fc.MaxItems > 0 {
		*maxItems = fc.MaxItems
	}
	if fc.BufferLimit > 0 {
		*bufferLimit = fc.BufferLimit
	}
}

func (c *Config) backoff() backoff.Config {
	out := backoff.DefaultConfig()
	if c.Backoff.InitialDelay > 0 {
		out.InitialDelay = time.Duration(c.Backoff.InitialDelay)
	}
	if c.Backoff.MaxDelay > 0 {
		out.MaxDelay = time.Duration(c.Backoff.MaxDelay)
	}
	if c.Backoff.Jitter > 0 {
		out.Jitter = time.Duration(c.Backoff.Jitter)
	}
	return out
}

// thresholds carries the overrides through; feed.New fills in defaults
// for any zero field.
func (c *Config) thresholds() feed.Thresholds {
	return feed.Thresholds{
		SamplerInterval:    time.Duration(c.Thresholds.SamplerInterval),
		StallAfter:         time.Duration(c.Thresholds.StallAfter),
		CriticalStallAfter: time.Duration(c.Thresholds.CriticalStallAfter),
		ExcellentUptime:    time.Duration(c.Thresholds.ExcellentUptime),
	}
}
