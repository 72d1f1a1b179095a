// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/blasternet/combatsync/internal/config"
	v1 "github.com/blasternet/combatsync/internal/storage/memory/export/v1"
	"github.com/blasternet/combatsync/pkg/core"
)

// ErrNoMatch is returned when an operation needs a started match.
var ErrNoMatch = errors.New("no match in progress")

// Backend stores match telemetry in memory and exports it to JSON at match end.
type Backend struct {
	cfg   config.MemoryConfig
	tag   string
	match *core.Match

	players map[core.PlayerID]*v1.PlayerRecord

	transitions []core.WeaponTransition
	hitClaims   []core.HitClaim
	timeSyncs   []core.TimeSyncSample
	states      []core.MatchStateChange

	lastExportPath string
	lastExportMeta core.UploadMetadata
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		tag:     "combat",
		players: make(map[core.PlayerID]*v1.PlayerRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartMatch begins recording a new match, discarding anything recorded before.
func (b *Backend) StartMatch(m *core.Match) error {
	if m == nil {
		return errors.New("nil match")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.match = m
	b.players = make(map[core.PlayerID]*v1.PlayerRecord, len(m.Players))
	for _, p := range m.Players {
		b.players[p] = &v1.PlayerRecord{Player: p}
	}
	b.transitions = nil
	b.hitClaims = nil
	b.timeSyncs = nil
	b.states = nil
	return nil
}

// EndMatch exports the recorded match.
func (b *Backend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return ErrNoMatch
	}
	return b.exportJSON()
}

func (b *Backend) player(p core.PlayerID) *v1.PlayerRecord {
	r, ok := b.players[p]
	if !ok {
		r = &v1.PlayerRecord{Player: p}
		b.players[p] = r
	}
	return r
}

// RecordFire appends a shot to its player
func (b *Backend) RecordFire(e *core.FireEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.player(e.PlayerID)
	r.Fires = append(r.Fires, *e)
	return nil
}

// RecordReload appends a reload to its player
func (b *Backend) RecordReload(e *core.ReloadEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.player(e.PlayerID)
	r.Reloads = append(r.Reloads, *e)
	return nil
}

// RecordGrenade appends a throw or launch to its player
func (b *Backend) RecordGrenade(e *core.GrenadeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.player(e.PlayerID)
	r.Grenades = append(r.Grenades, *e)
	return nil
}

func (b *Backend) RecordWeaponTransition(e *core.WeaponTransition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions = append(b.transitions, *e)
	return nil
}

func (b *Backend) RecordHitClaim(e *core.HitClaim) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hitClaims = append(b.hitClaims, *e)
	return nil
}

func (b *Backend) RecordTimeSync(s *core.TimeSyncSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeSyncs = append(b.timeSyncs, *s)
	return nil
}

func (b *Backend) RecordMatchState(s *core.MatchStateChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, *s)
	return nil
}

// GetPlayer returns a copy of a player's record.
func (b *Backend) GetPlayer(p core.PlayerID) (v1.PlayerRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.players[p]
	if !ok {
		return v1.PlayerRecord{}, false
	}
	return *r, true
}

// HitClaims returns the recorded hit claims.
func (b *Backend) HitClaims() []core.HitClaim {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.HitClaim(nil), b.hitClaims...)
}

// States returns the recorded match phase changes.
func (b *Backend) States() []core.MatchStateChange {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.MatchStateChange(nil), b.states...)
}

// GetExportedFilePath returns the path of the last export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for upload
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}

// snapshot gathers the recorded data for the export builder. Callers hold mu.
func (b *Backend) snapshot() *v1.MatchData {
	return &v1.MatchData{
		Match:       b.match,
		Players:     b.players,
		Transitions: b.transitions,
		HitClaims:   b.hitClaims,
		TimeSyncs:   b.timeSyncs,
		States:      b.states,
	}
}
