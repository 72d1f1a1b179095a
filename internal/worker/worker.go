// Package worker turns authority-side gameplay hooks into telemetry events
// and persists them through the configured storage backend and InfluxDB.
package worker

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blasternet/combatsync/internal/dispatcher"
	"github.com/blasternet/combatsync/internal/storage"
	"github.com/blasternet/combatsync/pkg/core"
)

// ErrNoMatch is returned by EndMatch when no match is being recorded.
var ErrNoMatch = errors.New("no match being recorded")

// Metrics receives the telemetry counters. influx.Manager implements it.
type Metrics interface {
	RecordFire(*core.FireEvent) error
	RecordReload(*core.ReloadEvent) error
	RecordGrenade(*core.GrenadeEvent) error
	RecordHitClaim(*core.HitClaim) error
	RecordTimeSync(*core.TimeSyncSample) error
	RecordMatchState(*core.MatchStateChange) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Backend    storage.Backend
	Metrics    Metrics // nil disables metrics
	Logger     *slog.Logger
	ServerTime func() time.Duration // authority world time
	Now        func() time.Time     // wall clock stamped on records
}

// Manager records telemetry for one authority. Hook methods and the match
// lifecycle calls must run on the tick goroutine; the handlers they feed
// drain on the dispatcher's buffer goroutines.
type Manager struct {
	deps Dependencies
	d    *dispatcher.Dispatcher

	mu       sync.Mutex
	match    *core.Match
	inflight sync.WaitGroup
	skipped  atomic.Uint64
	failed   atomic.Uint64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ServerTime == nil {
		deps.ServerTime = func() time.Duration { return 0 }
	}
	return &Manager{deps: deps}
}

// Recording reports whether a match is between StartMatch and EndMatch.
func (m *Manager) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.match != nil
}

// Match returns the match being recorded.
func (m *Manager) Match() (*core.Match, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.match, m.match != nil
}

// StartMatch opens a match on the backend. Events emitted before it are
// skipped.
func (m *Manager) StartMatch(match *core.Match) error {
	if match.StartTime.IsZero() {
		match.StartTime = m.deps.Now()
	}
	if err := m.deps.Backend.StartMatch(match); err != nil {
		return err
	}
	m.mu.Lock()
	m.match = match
	m.mu.Unlock()
	m.deps.Logger.Info("Recording match", "match", match.Key, "level", match.Level, "players", len(match.Players))
	return nil
}

// EndMatch waits for every dispatched event to be written, then closes the
// match on the backend.
func (m *Manager) EndMatch() error {
	m.mu.Lock()
	match := m.match
	m.mu.Unlock()
	if match == nil {
		return ErrNoMatch
	}

	m.inflight.Wait()
	if match.EndTime.IsZero() {
		match.EndTime = m.deps.Now()
	}
	err := m.deps.Backend.EndMatch()

	m.mu.Lock()
	m.match = nil
	m.mu.Unlock()

	m.deps.Logger.Info("Match recorded", "match", match.Key,
		"duration", match.EndTime.Sub(match.StartTime).Round(time.Second),
		"skipped", m.skipped.Load(), "failed", m.failed.Load())
	return err
}

// Skipped counts events emitted while no match was recorded or dropped by a
// full queue.
func (m *Manager) Skipped() uint64 { return m.skipped.Load() }

// Failed counts events a backend or metrics writer rejected.
func (m *Manager) Failed() uint64 { return m.failed.Load() }

// StateListener returns a match state hook that opens a match record when
// play starts and closes it when cooldown begins. newMatch builds the record
// and is called on the tick goroutine.
func (m *Manager) StateListener(newMatch func() *core.Match) func(core.MatchState) {
	return func(state core.MatchState) {
		switch state {
		case core.InProgress:
			if m.Recording() {
				m.endLogged()
			}
			if err := m.StartMatch(newMatch()); err != nil {
				m.deps.Logger.Error("Failed to start match record", "error", err)
				return
			}
			m.MatchState(state)
		case core.Cooldown:
			m.MatchState(state)
			m.endLogged()
		default:
			m.MatchState(state)
		}
	}
}

func (m *Manager) endLogged() {
	if err := m.EndMatch(); err != nil && !errors.Is(err, ErrNoMatch) {
		m.deps.Logger.Error("Failed to end match record", "error", err)
	}
}
