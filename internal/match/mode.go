// Package match runs the match timeline on the authority and the per-player
// controller view of it: countdowns, join-midgame snapshots and the
// cooldown reset.
package match

import (
	"time"

	"github.com/blasternet/combatsync/pkg/core"
	"github.com/google/uuid"
)

// StateFunc observes a match state change.
type StateFunc func(state core.MatchState)

// Mode is the authority's match timeline: warmup, play, cooldown, restart.
type Mode struct {
	timings   core.MatchTimings
	state     core.MatchState
	countdown time.Duration
	key       string
	round     int
	begun     bool
	listeners []StateFunc
}

// NewMode creates a timeline waiting for BeginPlay.
func NewMode(timings core.MatchTimings) *Mode {
	return &Mode{timings: timings, state: core.WaitingToStart}
}

// OnStateSet registers fn for every state change.
func (m *Mode) OnStateSet(fn StateFunc) { m.listeners = append(m.listeners, fn) }

// BeginPlay stamps the level start time.
func (m *Mode) BeginPlay(now time.Duration) {
	m.timings.LevelStart = now
	m.begun = true
	m.countdown = m.timings.Warmup
}

// Tick recomputes the countdown from the world time and advances the
// state when it runs out.
func (m *Mode) Tick(now time.Duration) {
	if !m.begun {
		return
	}
	t := m.timings
	switch m.state {
	case core.WaitingToStart:
		m.countdown = t.Warmup - now + t.LevelStart
		if m.countdown <= 0 {
			m.startMatch()
		}
	case core.InProgress:
		m.countdown = t.Warmup + t.Match - now + t.LevelStart
		if m.countdown <= 0 {
			m.setState(core.Cooldown)
		}
	case core.Cooldown:
		m.countdown = t.Cooldown + t.Warmup + t.Match - now + t.LevelStart
		if m.countdown <= 0 {
			m.restart(now)
		}
	}
}

func (m *Mode) startMatch() {
	m.round++
	m.key = uuid.NewString()
	m.setState(core.InProgress)
}

// restart begins a fresh level at now.
func (m *Mode) restart(now time.Duration) {
	m.timings.LevelStart = now
	m.countdown = m.timings.Warmup
	m.key = ""
	m.setState(core.WaitingToStart)
}

func (m *Mode) setState(s core.MatchState) {
	m.state = s
	for _, fn := range m.listeners {
		fn(s)
	}
}

// State is the current match state.
func (m *Mode) State() core.MatchState { return m.state }

// Countdown is the time left in the current state as of the last Tick.
func (m *Mode) Countdown() time.Duration { return m.countdown }

// LevelStart is the world time the current level began.
func (m *Mode) LevelStart() time.Duration { return m.timings.LevelStart }

// Timings returns the durations including the level start time.
func (m *Mode) Timings() core.MatchTimings { return m.timings }

// Key identifies the current match. It is empty while waiting to start.
func (m *Mode) Key() string { return m.key }

// Round counts matches started since the server came up.
func (m *Mode) Round() int { return m.round }
