package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/feedpulse/feed"
	"github.com/c360/feedpulse/transport"
)

const minimalYAML = `
image:
  url: https://feeds.example.com/image
text:
  url: https://feeds.example.com/text
`

const fullYAML = `
image:
  url: https://feeds.example.com/image
  maxItems: 12
  bufferLimit: 4
text:
  url: https://feeds.example.com/text
transport: websocket
backoff:
  initialDelay: 2s
  maxDelay: 1m
  jitter: 250ms
thresholds:
  stallAfter: 20s
  excellentUptime: 10m
`

func TestParseMinimalAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	image := cfg.ImageFeed()
	assert.Equal(t, "https://feeds.example.com/image", image.URL)
	assert.Equal(t, feed.DefaultImageMaxItems, image.MaxItems)
	assert.Equal(t, feed.DefaultPauseBufferLimit, image.BufferLimit)
	assert.Equal(t, time.Second, image.Backoff.InitialDelay)

	text := cfg.TextFeed()
	assert.Equal(t, feed.DefaultTextMaxItems, text.MaxItems)

	_, isSSE := cfg.Factory().(*transport.SSEFactory)
	assert.True(t, isSSE)
}

func TestParseFullOverrides(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)

	image := cfg.ImageFeed()
	assert.Equal(t, 12, image.MaxItems)
	assert.Equal(t, 4, image.BufferLimit)
	assert.Equal(t, 2*time.Second, image.Backoff.InitialDelay)
	assert.Equal(t, time.Minute, image.Backoff.MaxDelay)
	assert.Equal(t, 250*time.Millisecond, image.Backoff.Jitter)
	assert.Equal(t, 20*time.Second, image.Thresholds.StallAfter)
	assert.Equal(t, 10*time.Minute, image.Thresholds.ExcellentUptime)

	// Unset overrides pass through as zero; the feed fills defaults.
	assert.Zero(t, image.Thresholds.SamplerInterval)

	_, isWS := cfg.Factory().(*transport.WSFactory)
	assert.True(t, isWS)
}

func TestParseRejectsMissingURLs(t *testing.T) {
	_, err := Parse([]byte(`image: {url: https://feeds.example.com/image}`))
	require.Error(t, err)

	_, err = Parse([]byte(`text: {url: https://feeds.example.com/text}`))
	require.Error(t, err)
}

func TestParseRejectsUnknownTransport(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + "transport: carrier-pigeon\n"))
	require.Error(t, err)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("image: [unclosed"))
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://feeds.example.com/text", cfg.Text.URL)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
