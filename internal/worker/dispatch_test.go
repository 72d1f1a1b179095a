package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blasternet/combatsync/internal/clock"
	"github.com/blasternet/combatsync/internal/dispatcher"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Debug(msg string, _ ...any) { l.log(msg) }
func (l *mockLogger) Info(msg string, _ ...any)  { l.log(msg) }
func (l *mockLogger) Error(msg string, _ ...any) { l.log(msg) }

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu          sync.Mutex
	started     []*core.Match
	ended       int
	fires       []core.FireEvent
	reloads     []core.ReloadEvent
	transitions []core.WeaponTransition
	grenades    []core.GrenadeEvent
	hits        []core.HitClaim
	syncs       []core.TimeSyncSample
	states      []core.MatchState
	fireErr     error
	slow        time.Duration
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = append(b.started, m)
	return nil
}

func (b *mockBackend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ended++
	return nil
}

func (b *mockBackend) RecordFire(e *core.FireEvent) error {
	time.Sleep(b.slow)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fireErr != nil {
		return b.fireErr
	}
	b.fires = append(b.fires, *e)
	return nil
}

func (b *mockBackend) RecordReload(e *core.ReloadEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloads = append(b.reloads, *e)
	return nil
}

func (b *mockBackend) RecordWeaponTransition(e *core.WeaponTransition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions = append(b.transitions, *e)
	return nil
}

func (b *mockBackend) RecordGrenade(e *core.GrenadeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.grenades = append(b.grenades, *e)
	return nil
}

func (b *mockBackend) RecordHitClaim(e *core.HitClaim) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits = append(b.hits, *e)
	return nil
}

func (b *mockBackend) RecordTimeSync(s *core.TimeSyncSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncs = append(b.syncs, *s)
	return nil
}

func (b *mockBackend) RecordMatchState(s *core.MatchStateChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, s.State)
	return nil
}

// mockMetrics counts metric writes.
type mockMetrics struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func (m *mockMetrics) add(k string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[k]++
	return m.err
}

func (m *mockMetrics) RecordFire(*core.FireEvent) error              { return m.add("fire") }
func (m *mockMetrics) RecordReload(*core.ReloadEvent) error          { return m.add("reload") }
func (m *mockMetrics) RecordGrenade(*core.GrenadeEvent) error        { return m.add("grenade") }
func (m *mockMetrics) RecordHitClaim(*core.HitClaim) error           { return m.add("hit") }
func (m *mockMetrics) RecordTimeSync(*core.TimeSyncSample) error     { return m.add("sync") }
func (m *mockMetrics) RecordMatchState(*core.MatchStateChange) error { return m.add("state") }

var wall = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, b *mockBackend, metrics Metrics) (*Manager, *dispatcher.Dispatcher) {
	t.Helper()
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	t.Cleanup(d.Close)

	now := 90 * time.Second
	m := NewManager(Dependencies{
		Backend:    b,
		Metrics:    metrics,
		ServerTime: func() time.Duration { return now },
		Now:        func() time.Time { return wall },
	})
	m.RegisterHandlers(d)
	return m, d
}

func testWeapon(t *testing.T, name string) (*weapon.Registry, *weapon.Weapon) {
	t.Helper()
	reg := weapon.NewRegistry(true)
	arch, ok := weapon.DefaultArchetypes()[name]
	require.True(t, ok, name)
	return reg, reg.Spawn(arch, core.Vector{})
}

func TestRegisterHandlers_RegistersAllCommands(t *testing.T) {
	_, d := newTestManager(t, &mockBackend{}, nil)
	for _, cmd := range []string{
		CmdFire, CmdReload, CmdWeaponTransition, CmdGrenade, CmdHitClaim, CmdTimeSync, CmdMatchState,
	} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
}

func TestEventsBeforeStartAreSkipped(t *testing.T) {
	b := &mockBackend{}
	m, _ := newTestManager(t, b, nil)
	_, w := testWeapon(t, "pistol")

	m.Fired(1, w, core.Vector{X: 1}, false)
	m.MatchState(core.WaitingToStart)

	assert.Equal(t, uint64(2), m.Skipped())
	assert.ErrorIs(t, m.EndMatch(), ErrNoMatch)
	assert.Empty(t, b.fires)
}

func TestNoDispatcher_Skips(t *testing.T) {
	m := NewManager(Dependencies{Backend: &mockBackend{}})
	require.NoError(t, m.StartMatch(&core.Match{}))
	m.GrenadeThrown(1, 3)
	assert.Equal(t, uint64(1), m.Skipped())
}

func TestRecordsEveryKindUntilEnd(t *testing.T) {
	b := &mockBackend{}
	metrics := &mockMetrics{}
	m, _ := newTestManager(t, b, metrics)
	reg, w := testWeapon(t, "shotgun")
	reg.OnTransition(m.WeaponTransition)

	match := &core.Match{Key: "k", Level: "arena", Players: []core.PlayerID{1, 2}}
	require.NoError(t, m.StartMatch(match))
	assert.Equal(t, wall, match.StartTime)

	w.SetOwner(1)
	w.SetState(core.WeaponEquipped)
	w.SpendRound()
	m.Fired(1, w, core.Vector{X: 5, Y: 6, Z: 7}, true)
	m.Reloaded(1, w, 1, 9, true)
	m.GrenadeThrown(1, 3)
	m.GrenadeLaunched(2, core.Vector{}, core.Vector{X: 100})
	m.HitClaim(core.HitClaim{ShooterID: 1, VictimID: 2, Damage: 12, Accepted: true})
	m.TimeSyncHook(2)(clock.Sample{RoundTrip: 120 * time.Millisecond, SingleTrip: 60 * time.Millisecond})
	m.MatchState(core.InProgress)

	require.NoError(t, m.EndMatch())
	assert.False(t, m.Recording())
	assert.Equal(t, wall, match.EndTime)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.started, 1)
	assert.Equal(t, 1, b.ended)

	require.Len(t, b.fires, 1)
	f := b.fires[0]
	assert.Equal(t, core.PlayerID(1), f.PlayerID)
	assert.Equal(t, core.Shotgun, f.WeaponType)
	assert.Equal(t, w.Capacity()-1, f.AmmoAfter)
	assert.Equal(t, 90*time.Second, f.ServerTime)
	assert.True(t, f.Aiming)

	require.Len(t, b.reloads, 1)
	assert.True(t, b.reloads[0].Shell)
	assert.Equal(t, 9, b.reloads[0].CarriedAfter)

	require.Len(t, b.transitions, 1)
	assert.Equal(t, core.WeaponInitial, b.transitions[0].From)
	assert.Equal(t, core.WeaponEquipped, b.transitions[0].To)
	assert.Equal(t, core.PlayerID(1), b.transitions[0].OwnerID)

	require.Len(t, b.grenades, 2)
	require.Len(t, b.hits, 1)
	assert.True(t, b.hits[0].Accepted)
	require.Len(t, b.syncs, 1)
	assert.Equal(t, core.PlayerID(2), b.syncs[0].PlayerID)
	assert.Equal(t, []core.MatchState{core.InProgress}, b.states)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, map[string]int{"fire": 1, "reload": 1, "grenade": 2, "hit": 1, "sync": 1, "state": 1}, metrics.counts)
	assert.Zero(t, m.Failed())
}

func TestEndMatch_WaitsForSlowWrites(t *testing.T) {
	b := &mockBackend{slow: 20 * time.Millisecond}
	m, _ := newTestManager(t, b, nil)
	_, w := testWeapon(t, "smg")

	require.NoError(t, m.StartMatch(&core.Match{}))
	for range 5 {
		m.Fired(1, w, core.Vector{}, false)
	}
	require.NoError(t, m.EndMatch())

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Len(t, b.fires, 5)
}

func TestBackendFailureCounts(t *testing.T) {
	b := &mockBackend{fireErr: errors.New("disk full")}
	m, _ := newTestManager(t, b, &mockMetrics{err: errors.New("influx down")})
	_, w := testWeapon(t, "pistol")

	require.NoError(t, m.StartMatch(&core.Match{}))
	m.Fired(1, w, core.Vector{}, false)
	m.GrenadeThrown(1, 2)
	require.NoError(t, m.EndMatch())

	// the metrics failure does not fail the grenade
	assert.Equal(t, uint64(1), m.Failed())
}

func TestStateListener_OpensAndClosesMatch(t *testing.T) {
	b := &mockBackend{}
	m, _ := newTestManager(t, b, nil)
	listener := m.StateListener(func() *core.Match { return &core.Match{Level: "arena"} })

	listener(core.WaitingToStart)
	listener(core.InProgress)
	assert.True(t, m.Recording())
	listener(core.Cooldown)
	assert.False(t, m.Recording())
	listener(core.WaitingToStart)
	listener(core.InProgress)
	listener(core.Cooldown)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Len(t, b.started, 2)
	assert.Equal(t, 2, b.ended)
	assert.Equal(t, []core.MatchState{core.InProgress, core.Cooldown, core.InProgress, core.Cooldown}, b.states)
	assert.Equal(t, uint64(2), m.Skipped())
}

func TestHandler_RejectsWrongPayload(t *testing.T) {
	m, d := newTestManager(t, &mockBackend{}, nil)
	require.NoError(t, m.StartMatch(&core.Match{}))

	m.inflight.Add(1)
	_, err := d.Dispatch(dispatcher.Event{Command: CmdFire, Payload: "not a fire"})
	require.NoError(t, err)
	require.NoError(t, m.EndMatch())
	assert.Equal(t, uint64(1), m.Failed())
}
