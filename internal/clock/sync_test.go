package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorld struct {
	now    time.Duration
	absent bool
}

func (w *fakeWorld) Now() (time.Duration, bool) { return w.now, !w.absent }

func TestRoundTripEstimatesHalfLatency(t *testing.T) {
	const rtt = 120 * time.Millisecond
	client := &fakeWorld{now: 2 * time.Second}
	server := &fakeWorld{now: 50 * time.Second}

	var pending []time.Duration
	s := New(client, false, true, 5*time.Second, func(ct time.Duration) { pending = append(pending, ct) })

	s.ReceivedPlayer()
	require.Len(t, pending, 1)

	// request travels half the round trip
	client.now += rtt / 2
	server.now += rtt / 2
	var report [2]time.Duration
	Echo(server, pending[0], func(ct, sr time.Duration) { report = [2]time.Duration{ct, sr} })

	client.now += rtt / 2
	server.now += rtt / 2
	s.HandleReport(report[0], report[1])

	assert.Equal(t, rtt/2, s.SingleTripTime())
	assert.Equal(t, server.now, s.ServerTime())
	assert.Equal(t, 48*time.Second, s.Offset())
}

func TestAuthorityReturnsOwnClock(t *testing.T) {
	w := &fakeWorld{now: 7 * time.Second}
	s := New(w, true, false, time.Second, nil)
	s.HandleReport(0, time.Hour)
	assert.Equal(t, 7*time.Second, s.ServerTime())
}

func TestTickProbesAfterFrequencyElapses(t *testing.T) {
	w := &fakeWorld{}
	probes := 0
	s := New(w, false, true, 5*time.Second, func(time.Duration) { probes++ })

	for i := 0; i < 5; i++ {
		s.Tick(time.Second)
	}
	assert.Equal(t, 0, probes, "running time must exceed the frequency")

	s.Tick(time.Second)
	assert.Equal(t, 1, probes)

	for i := 0; i < 5; i++ {
		s.Tick(time.Second)
	}
	assert.Equal(t, 1, probes)
	s.Tick(time.Second)
	assert.Equal(t, 2, probes)
}

func TestRemoteControllerNeverProbes(t *testing.T) {
	w := &fakeWorld{}
	probes := 0
	s := New(w, true, false, time.Second, func(time.Duration) { probes++ })
	s.ReceivedPlayer()
	s.Tick(10 * time.Second)
	assert.Zero(t, probes)
}

func TestMissingWorldSkipsProbeAndReport(t *testing.T) {
	w := &fakeWorld{absent: true}
	probes := 0
	samples := 0
	s := New(w, false, true, time.Second, func(time.Duration) { probes++ },
		WithSampleHook(func(Sample) { samples++ }))

	s.Probe()
	s.HandleReport(0, time.Second)
	assert.Zero(t, probes)
	assert.Zero(t, samples)
	assert.Zero(t, s.ServerTime())

	called := false
	Echo(w, 0, func(time.Duration, time.Duration) { called = true })
	assert.False(t, called)
}

func TestSampleHookReceivesRoundTrip(t *testing.T) {
	w := &fakeWorld{now: time.Second}
	var got Sample
	s := New(w, false, true, time.Second, nil, WithSampleHook(func(smp Sample) { got = smp }))
	s.HandleReport(800*time.Millisecond, 10*time.Second)
	assert.Equal(t, 200*time.Millisecond, got.RoundTrip)
	assert.Equal(t, 100*time.Millisecond, got.SingleTrip)
	assert.Equal(t, 10*time.Second+100*time.Millisecond-time.Second, got.Offset)
}
