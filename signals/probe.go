package signals

import (
	"net"
	"sync"
	"time"
)

const (
	defaultProbeAddress  = "1.1.1.1:443"
	defaultProbeInterval = 10 * time.Second
	defaultProbeTimeout  = 3 * time.Second
)

// Probe is a Signals implementation for headless hosts: connectivity is
// determined by periodically dialing a well-known address, and the
// process is never considered hidden.
type Probe struct {
	*Manual

	address  string
	interval time.Duration
	timeout  time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// ProbeOptions configures a connectivity probe. Zero values select
// defaults (1.1.1.1:443, 10s interval, 3s dial timeout).
type ProbeOptions struct {
	Address     string
	Interval    time.Duration
	DialTimeout time.Duration
}

// NewProbe starts a connectivity probe. Callers must Close it.
func NewProbe(opts ProbeOptions) *Probe {
	if opts.Address == "" {
		opts.Address = defaultProbeAddress
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultProbeInterval
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultProbeTimeout
	}

	p := &Probe{
		Manual:   NewManual(),
		address:  opts.Address,
		interval: opts.Interval,
		timeout:  opts.DialTimeout,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	// First sample happens synchronously so IsOnline is meaningful
	// immediately after construction.
	p.SetOnline(p.sample())

	go p.loop()

	return p
}

// Close stops the probe's sampling loop.
func (p *Probe) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	<-p.done
}

func (p *Probe) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.SetOnline(p.sample())
		}
	}
}

// sample reports whether the probe address is reachable.
func (p *Probe) sample() bool {
	conn, err := net.DialTimeout("tcp", p.address, p.timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
