// Package clock estimates the authority's clock on non-authoritative
// participants from periodic round-trip probes.
package clock

import "time"

// Source reports the participant's world time. ok is false when no world is loaded.
type Source interface {
	Now() (now time.Duration, ok bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (time.Duration, bool)

func (f SourceFunc) Now() (time.Duration, bool) { return f() }

// Sample is the outcome of one completed round trip.
type Sample struct {
	RoundTrip  time.Duration
	SingleTrip time.Duration
	Offset     time.Duration
}

// Sync is the per-connection clock state held by a player controller.
type Sync struct {
	source    Source
	authority bool
	local     bool
	frequency time.Duration

	running    time.Duration
	offset     time.Duration
	singleTrip time.Duration

	probe    func(clientTime time.Duration)
	onSample func(Sample)
}

// Option configures a Sync.
type Option func(*Sync)

// WithSampleHook registers fn to observe every completed round trip.
func WithSampleHook(fn func(Sample)) Option {
	return func(s *Sync) { s.onSample = fn }
}

// New builds the clock state for one controller. probe delivers a
// request-server-time message carrying the local send time.
func New(src Source, authority, local bool, frequency time.Duration, probe func(clientTime time.Duration), opts ...Option) *Sync {
	s := &Sync{
		source:    src,
		authority: authority,
		local:     local,
		frequency: frequency,
		probe:     probe,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ReceivedPlayer sends the first probe as soon as the local player is bound.
func (s *Sync) ReceivedPlayer() {
	if s.local {
		s.Probe()
	}
}

// Tick accumulates running time and probes once it exceeds the sync frequency.
func (s *Sync) Tick(dt time.Duration) {
	s.running += dt
	if s.local && s.running > s.frequency {
		s.Probe()
		s.running = 0
	}
}

// Probe sends a request stamped with the local world time. Skipped without a world.
func (s *Sync) Probe() {
	now, ok := s.source.Now()
	if !ok || s.probe == nil {
		return
	}
	s.probe(now)
}

// HandleReport consumes the authority's echo and recomputes the offset
// using half the round trip as the one-way delay.
func (s *Sync) HandleReport(clientTime, serverReceipt time.Duration) {
	now, ok := s.source.Now()
	if !ok {
		return
	}
	rtt := now - clientTime
	s.singleTrip = rtt / 2
	current := serverReceipt + s.singleTrip
	s.offset = current - now
	if s.onSample != nil {
		s.onSample(Sample{RoundTrip: rtt, SingleTrip: s.singleTrip, Offset: s.offset})
	}
}

// ServerTime returns the estimated authority time. The authority answers
// with its own clock. Zero without a world.
func (s *Sync) ServerTime() time.Duration {
	now, ok := s.source.Now()
	if !ok {
		return 0
	}
	if s.authority {
		return now
	}
	return now + s.offset
}

// Offset is the last computed difference between authority and local time.
func (s *Sync) Offset() time.Duration { return s.offset }

// SingleTripTime is half of the most recent round trip.
func (s *Sync) SingleTripTime() time.Duration { return s.singleTrip }

// Echo answers a probe on the authority with its receipt time. Skipped without a world.
func Echo(src Source, clientTime time.Duration, reply func(clientTime, serverReceipt time.Duration)) {
	now, ok := src.Now()
	if !ok {
		return
	}
	reply(clientTime, now)
}
