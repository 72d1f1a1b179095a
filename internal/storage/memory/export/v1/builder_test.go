package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blasternet/combatsync/pkg/core"
)

func testData() *MatchData {
	start := time.Date(2026, 5, 2, 18, 30, 0, 0, time.UTC)
	return &MatchData{
		Match: &core.Match{
			Key:       "c0ffee",
			Level:     "arena",
			StartTime: start,
			EndTime:   start.Add(140*time.Second + 500*time.Millisecond),
			Timings: core.MatchTimings{
				Warmup:        10 * time.Second,
				Match:         120 * time.Second,
				Cooldown:      10 * time.Second,
				AlertFraction: 0.1,
			},
		},
		Players: map[core.PlayerID]*PlayerRecord{
			2: {
				Player: 2,
				Grenades: []core.GrenadeEvent{
					{ServerTime: 15 * time.Second, Launched: true, Origin: core.Vector{X: 1, Y: 2, Z: 3}, Target: core.Vector{X: 4.00049, Y: 5, Z: 6}, Remaining: 3},
				},
			},
			1: {
				Player: 1,
				Fires: []core.FireEvent{
					{ServerTime: 12 * time.Second, WeaponID: 7, WeaponType: core.AssaultRifle, Target: core.Vector{X: 100, Y: 0, Z: 50}, AmmoAfter: 29, Aiming: true},
				},
				Reloads: []core.ReloadEvent{
					{ServerTime: 13 * time.Second, WeaponID: 7, Amount: 1, AmmoAfter: 30, CarriedAfter: 59, Shell: false},
				},
			},
		},
		Transitions: []core.WeaponTransition{
			{ServerTime: 11 * time.Second, WeaponID: 9, WeaponType: core.Shotgun, From: core.WeaponInitial, To: core.WeaponEquipped, OwnerID: 2},
			{ServerTime: 11 * time.Second, WeaponID: 7, WeaponType: core.AssaultRifle, From: core.WeaponInitial, To: core.WeaponEquipped, OwnerID: 1},
			{ServerTime: 20 * time.Second, WeaponID: 9, WeaponType: core.Shotgun, From: core.WeaponEquipped, To: core.WeaponDropped},
		},
		HitClaims: []core.HitClaim{
			{ServerTime: 14 * time.Second, ShooterID: 1, VictimID: 2, WeaponID: 7, Damage: 20, Accepted: true, HitTime: 13900 * time.Millisecond},
			{ServerTime: 16 * time.Second, ShooterID: 1, VictimID: 2, WeaponID: 7, Damage: 20},
		},
		TimeSyncs: []core.TimeSyncSample{
			{PlayerID: 2, RoundTrip: 120 * time.Millisecond, SingleTrip: 60 * time.Millisecond, Offset: 1500 * time.Microsecond},
		},
		States: []core.MatchStateChange{
			{ServerTime: 10 * time.Second, State: core.InProgress},
			{ServerTime: 130 * time.Second, State: core.Cooldown},
		},
	}
}

func TestBuild_Header(t *testing.T) {
	e := Build(testData())

	assert.Equal(t, FormatVersion, e.FormatVersion)
	assert.Equal(t, "c0ffee", e.MatchKey)
	assert.Equal(t, "arena", e.Level)
	assert.Equal(t, "2026-05-02T18:30:00Z", e.StartTime)
	assert.Equal(t, "2026-05-02T18:32:20Z", e.EndTime)
	assert.Equal(t, 140.5, e.DurationSeconds)
	assert.Equal(t, Timings{WarmupMs: 10000, MatchMs: 120000, CooldownMs: 10000, AlertFraction: 0.1}, e.Timings)
}

func TestBuild_PlayersSortedWithSeries(t *testing.T) {
	e := Build(testData())
	require.Len(t, e.Players, 2)

	p1 := e.Players[0]
	assert.Equal(t, uint32(1), p1.ID)
	assert.Equal(t, [][]any{{int64(12000), uint32(7), "AssaultRifle", []float64{100, 0, 50}, 29, 1}}, p1.Fires)
	assert.Equal(t, [][]any{{int64(13000), uint32(7), 1, 30, 59, 0}}, p1.Reloads)
	assert.Empty(t, p1.Grenades)

	p2 := e.Players[1]
	assert.Equal(t, uint32(2), p2.ID)
	assert.Equal(t, [][]any{{int64(15000), 1, []float64{1, 2, 3}, []float64{4, 5, 6}, 3}}, p2.Grenades)
}

func TestBuild_WeaponsGroupTransitions(t *testing.T) {
	e := Build(testData())
	require.Len(t, e.Weapons, 2)

	assert.Equal(t, uint32(7), e.Weapons[0].ID)
	assert.Equal(t, "AssaultRifle", e.Weapons[0].Type)
	assert.Len(t, e.Weapons[0].Transitions, 1)

	assert.Equal(t, uint32(9), e.Weapons[1].ID)
	assert.Equal(t, [][]any{
		{int64(11000), core.WeaponInitial.String(), core.WeaponEquipped.String(), uint32(2)},
		{int64(20000), core.WeaponEquipped.String(), core.WeaponDropped.String(), uint32(0)},
	}, e.Weapons[1].Transitions)
}

func TestBuild_EventsOrderedByServerTime(t *testing.T) {
	e := Build(testData())
	require.Len(t, e.Events, 4)

	assert.Equal(t, []any{int64(10000), "state", "InProgress"}, e.Events[0])
	assert.Equal(t, []any{int64(14000), "hit", uint32(1), uint32(2), uint32(7), 20.0, 1, int64(13900)}, e.Events[1])
	assert.Equal(t, "hit", e.Events[2][1])
	assert.Equal(t, []any{int64(130000), "state", "Cooldown"}, e.Events[3])
}

func TestBuild_TimeSyncAndScores(t *testing.T) {
	e := Build(testData())

	assert.Equal(t, [][]any{{uint32(2), 120.0, 60.0, 1.5}}, e.TimeSync)
	assert.Equal(t, []Score{{Player: 1, Claims: 2, Accepted: 1, Damage: 20}}, e.Scores)
}

func TestBuild_EmptyMatch(t *testing.T) {
	e := Build(&MatchData{Match: &core.Match{Level: "empty"}})

	assert.Equal(t, "", e.StartTime)
	assert.Zero(t, e.DurationSeconds)
	assert.NotNil(t, e.Players)
	assert.NotNil(t, e.Weapons)
	assert.NotNil(t, e.Events)
	assert.NotNil(t, e.TimeSync)
	assert.NotNil(t, e.Scores)
}
