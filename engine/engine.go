package engine

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/c360/feedpulse/errors"
	"github.com/c360/feedpulse/feed"
	"github.com/c360/feedpulse/metric"
	"github.com/c360/feedpulse/signals"
	"github.com/c360/feedpulse/transport"
)

// Options configures an Engine. Image and Text are required; the rest
// default (SSE transport, manual signals, discard logger, no metrics).
type Options struct {
	Image feed.Config[feed.ImageEvent]
	Text  feed.Config[feed.TextEvent]

	Logger   *slog.Logger
	Factory  transport.Factory
	Signals  signals.Signals
	Registry *metric.Registry
}

// Engine is the public facade: two independently managed feed instances
// behind one construction site and one teardown. The connectivity and
// visibility watchers are attached exactly once, shared by both feeds,
// and detached on Shutdown.
type Engine struct {
	logger   *slog.Logger
	sig      signals.Signals
	registry *metric.Registry

	image *feed.Feed[feed.ImageEvent]
	text  *feed.Feed[feed.TextEvent]

	detach []func()

	shutdownOnce sync.Once
	shutdownErr  error
	down         bool
	mu           sync.Mutex
}

// New constructs an engine and its two feeds. Nothing connects until
// StartAll (or a per-feed Start).
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	factory := opts.Factory
	if factory == nil {
		factory = &transport.SSEFactory{}
	}

	sig := opts.Signals
	if sig == nil {
		sig = signals.NewManual()
	}

	image, err := feed.New(opts.Image, factory, sig, logger, opts.Registry)
	if err != nil {
		return nil, errors.Wrap(err, "Engine", "New", "creating image feed")
	}

	text, err := feed.New(opts.Text, factory, sig, logger, opts.Registry)
	if err != nil {
		return nil, errors.Wrap(err, "Engine", "New", "creating text feed")
	}

	e := &Engine{
		logger:   logger.With("component", "engine"),
		sig:      sig,
		registry: opts.Registry,
		image:    image,
		text:     text,
	}

	e.detach = append(e.detach,
		sig.OnConnectivityChange(func(online bool) {
			e.image.HandleConnectivity(online)
			e.text.HandleConnectivity(online)
		}),
		sig.OnVisibilityChange(func(hidden bool) {
			e.image.HandleVisibility(hidden)
			e.text.HandleVisibility(hidden)
		}),
	)

	return e, nil
}

// Image returns the image feed instance.
func (e *Engine) Image() *feed.Feed[feed.ImageEvent] {
	return e.image
}

// Text returns the text feed instance.
func (e *Engine) Text() *feed.Feed[feed.TextEvent] {
	return e.text
}

// StartAll activates both feeds. Returns ErrShuttingDown after Shutdown.
func (e *Engine) StartAll() error {
	e.mu.Lock()
	down := e.down
	e.mu.Unlock()
	if down {
		return errors.WrapInvalid(errors.ErrShuttingDown, "Engine", "StartAll", "starting feeds")
	}

	e.logger.Info("starting feeds")
	e.image.Start()
	e.text.Start()
	return nil
}

// Shutdown stops both feeds concurrently and detaches the shared
// signal watchers. Idempotent; later calls return the first result.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.shutdownOnce.Do(func() {
		e.mu.Lock()
		e.down = true
		e.mu.Unlock()

		e.logger.Info("shutting down")

		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error {
			e.image.Stop()
			return nil
		})
		g.Go(func() error {
			e.text.Stop()
			return nil
		})
		e.shutdownErr = g.Wait()

		for _, cancel := range e.detach {
			cancel()
		}
		e.detach = nil
	})
	return e.shutdownErr
}

// MetricsHandler returns the Prometheus exposition handler, or nil when
// the engine was built without a registry.
func (e *Engine) MetricsHandler() http.Handler {
	if e.registry == nil {
		return nil
	}
	return e.registry.Handler()
}
