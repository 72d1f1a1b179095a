package gormstorage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blasternet/combatsync/internal/database"
	"github.com/blasternet/combatsync/internal/model"
	"github.com/blasternet/combatsync/pkg/core"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSQLite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func startMatch(t *testing.T, b *Backend) *core.Match {
	t.Helper()
	m := &core.Match{
		Key:       "6b1d3c2e-0000-4000-8000-000000000001",
		Level:     "arena",
		StartTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Timings:   core.MatchTimings{Warmup: 10 * time.Second, Match: 2 * time.Minute, Cooldown: 10 * time.Second},
		Players:   []core.PlayerID{1, 2},
	}
	require.NoError(t, b.StartMatch(m))
	return m
}

func TestInit_RequiresDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestInit_MigratesSchema(t *testing.T) {
	b := newTestBackend(t)
	for _, m := range model.DatabaseModels {
		assert.True(t, b.DB().Migrator().HasTable(m))
	}
}

func TestStartMatch_AssignsID(t *testing.T) {
	b := newTestBackend(t)
	m := startMatch(t, b)
	require.NotZero(t, m.ID)

	stored, err := b.Match(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "arena", stored.Level)
	assert.Equal(t, m.Key, stored.Key)
	assert.Equal(t, []core.PlayerID{1, 2}, stored.Players)
	assert.Equal(t, 2*time.Minute, stored.Timings.Match)
}

func TestRecord_QueuesUntilFlush(t *testing.T) {
	b := newTestBackend(t)
	m := startMatch(t, b)

	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 1, WeaponID: 7, WeaponType: core.Shotgun, Target: core.Vector{X: 10, Y: 20, Z: 30}}))
	require.NoError(t, b.RecordReload(&core.ReloadEvent{PlayerID: 1, WeaponID: 7, Amount: 1, Shell: true}))
	require.NoError(t, b.RecordWeaponTransition(&core.WeaponTransition{WeaponID: 7, From: core.WeaponInitial, To: core.WeaponEquipped, OwnerID: 1}))
	require.NoError(t, b.RecordGrenade(&core.GrenadeEvent{PlayerID: 2, Remaining: 3}))
	require.NoError(t, b.RecordHitClaim(&core.HitClaim{ShooterID: 1, VictimID: 2, Damage: 20, Accepted: true}))
	require.NoError(t, b.RecordHitClaim(&core.HitClaim{ShooterID: 2, VictimID: 1, Damage: 20}))
	require.NoError(t, b.RecordTimeSync(&core.TimeSyncSample{PlayerID: 2, RoundTrip: 120 * time.Millisecond}))
	require.NoError(t, b.RecordMatchState(&core.MatchStateChange{State: core.InProgress}))

	assert.Equal(t, 8, b.Pending())
	s, err := b.Summary(m.ID)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)

	require.NoError(t, b.Flush())
	assert.Zero(t, b.Pending())

	s, err = b.Summary(m.ID)
	require.NoError(t, err)
	assert.Equal(t, Summary{
		Fires:        1,
		Reloads:      1,
		Transitions:  1,
		Grenades:     1,
		HitClaims:    2,
		AcceptedHits: 1,
		TimeSyncs:    1,
		StateChanges: 1,
	}, s)

	fires, err := b.FireEvents(m.ID)
	require.NoError(t, err)
	require.Len(t, fires, 1)
	assert.Equal(t, core.Shotgun, fires[0].WeaponType)
	assert.InDelta(t, 30, fires[0].Target.Z, 1e-9)

	accepted, err := b.HitClaims(m.ID, true)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, core.PlayerID(2), accepted[0].VictimID)

	all, err := b.HitClaims(m.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecord_StampsMatchAtRecordTime(t *testing.T) {
	b := newTestBackend(t)
	first := startMatch(t, b)
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 1}))

	second := startMatch(t, b)
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 2}))
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 2}))
	require.NoError(t, b.Flush())

	s1, err := b.Summary(first.ID)
	require.NoError(t, err)
	s2, err := b.Summary(second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s1.Fires)
	assert.Equal(t, int64(2), s2.Fires)
}

func TestEndMatch_FlushesAndStoresEndTime(t *testing.T) {
	b := newTestBackend(t)
	m := startMatch(t, b)
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 1}))

	m.EndTime = m.StartTime.Add(150 * time.Second)
	require.NoError(t, b.EndMatch())
	assert.Zero(t, b.Pending())

	stored, err := b.Match(m.ID)
	require.NoError(t, err)
	assert.True(t, m.EndTime.Equal(stored.EndTime), "end time %v", stored.EndTime)

	assert.ErrorIs(t, b.EndMatch(), ErrNoMatch)
}

func TestFlush_FailedBatchStaysQueued(t *testing.T) {
	b := newTestBackend(t)
	startMatch(t, b)
	require.NoError(t, b.RecordFire(&core.FireEvent{PlayerID: 1}))

	require.NoError(t, b.DB().Migrator().DropTable(&model.FireEvent{}))
	assert.Error(t, b.Flush())
	assert.Equal(t, 1, b.Pending())

	require.NoError(t, b.DB().AutoMigrate(&model.FireEvent{}))
	require.NoError(t, b.Flush())
	assert.Zero(t, b.Pending())
}

func TestClose_FlushesAndIsIdempotent(t *testing.T) {
	db, err := database.OpenSQLite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	m := startMatch(t, b)
	require.NoError(t, b.RecordGrenade(&core.GrenadeEvent{PlayerID: 1, Launched: true}))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	s, err := b.Summary(m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Grenades)
}

func TestWriteLoop_FlushesOnInterval(t *testing.T) {
	db, err := database.OpenSQLite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	startMatch(t, b)
	require.NoError(t, b.RecordMatchState(&core.MatchStateChange{State: core.WaitingToStart}))

	assert.Eventually(t, func() bool { return b.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
}
