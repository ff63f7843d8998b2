package signals

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualDefaults(t *testing.T) {
	m := NewManual()
	assert.True(t, m.IsOnline())
	assert.False(t, m.IsHidden())
}

func TestManualConnectivityTransitions(t *testing.T) {
	m := NewManual()

	var got []bool
	cancel := m.OnConnectivityChange(func(online bool) {
		got = append(got, online)
	})

	m.SetOnline(false)
	m.SetOnline(false) // No transition, no callback
	m.SetOnline(true)

	assert.Equal(t, []bool{false, true}, got)

	cancel()
	m.SetOnline(false)
	assert.Equal(t, []bool{false, true}, got)
}

func TestManualVisibilityTransitions(t *testing.T) {
	m := NewManual()

	var got []bool
	cancel := m.OnVisibilityChange(func(hidden bool) {
		got = append(got, hidden)
	})
	defer cancel()

	m.SetHidden(true)
	m.SetHidden(false)

	assert.Equal(t, []bool{true, false}, got)
}

func TestManualMultipleSubscribers(t *testing.T) {
	m := NewManual()

	first, second := 0, 0
	cancelFirst := m.OnConnectivityChange(func(bool) { first++ })
	defer m.OnConnectivityChange(func(bool) { second++ })()

	m.SetOnline(false)
	cancelFirst()
	m.SetOnline(true)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestManualCallbackMayQueryState(t *testing.T) {
	m := NewManual()

	var observed bool
	defer m.OnConnectivityChange(func(online bool) {
		// Must not deadlock
		observed = m.IsOnline()
		assert.Equal(t, online, observed)
	})()

	m.SetOnline(false)
	assert.False(t, observed)
}

func TestProbeDetectsListener(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	probe := NewProbe(ProbeOptions{
		Address:     listener.Addr().String(),
		Interval:    20 * time.Millisecond,
		DialTimeout: 500 * time.Millisecond,
	})
	defer probe.Close()

	assert.True(t, probe.IsOnline())
	assert.False(t, probe.IsHidden())
}

func TestProbeDetectsUnreachable(t *testing.T) {
	probe := NewProbe(ProbeOptions{
		Address:     "127.0.0.1:1",
		Interval:    20 * time.Millisecond,
		DialTimeout: 200 * time.Millisecond,
	})
	defer probe.Close()

	assert.False(t, probe.IsOnline())
}

func TestProbeCloseStopsSampling(t *testing.T) {
	probe := NewProbe(ProbeOptions{
		Address:     "127.0.0.1:1",
		Interval:    10 * time.Millisecond,
		DialTimeout: 50 * time.Millisecond,
	})

	transitions := 0
	defer probe.OnConnectivityChange(func(bool) { transitions++ })()

	probe.Close()
	before := transitions
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, transitions)
}
