// Package engine is the public facade over the two feed instances.
//
// An Engine is constructed once with its dependencies (logger, transport
// factory, runtime signals, metrics registry) passed explicitly, holds
// the image and text feeds for the process lifetime, attaches the
// process-wide connectivity and visibility watchers exactly once, and
// tears everything down deterministically on Shutdown. There is no
// hidden global state; two engines in one process do not interact.
package engine
