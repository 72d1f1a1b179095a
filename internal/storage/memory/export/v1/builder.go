package v1

import (
	"math"
	"sort"
	"time"

	"github.com/blasternet/combatsync/pkg/core"
)

// MatchData contains all the data needed to build an export
type MatchData struct {
	Match   *core.Match
	Players map[core.PlayerID]*PlayerRecord

	Transitions []core.WeaponTransition
	HitClaims   []core.HitClaim
	TimeSyncs   []core.TimeSyncSample
	States      []core.MatchStateChange
}

// PlayerRecord groups a player with all its time-series data
type PlayerRecord struct {
	Player   core.PlayerID
	Fires    []core.FireEvent
	Reloads  []core.ReloadEvent
	Grenades []core.GrenadeEvent
}

// Build creates an Export from the match data
func Build(data *MatchData) Export {
	m := data.Match
	export := Export{
		FormatVersion: FormatVersion,
		MatchKey:      m.Key,
		Level:         m.Level,
		StartTime:     formatTime(m.StartTime),
		EndTime:       formatTime(m.EndTime),
		Timings: Timings{
			WarmupMs:      m.Timings.Warmup.Milliseconds(),
			MatchMs:       m.Timings.Match.Milliseconds(),
			CooldownMs:    m.Timings.Cooldown.Milliseconds(),
			LevelStartMs:  m.Timings.LevelStart.Milliseconds(),
			AlertFraction: m.Timings.AlertFraction,
		},
		Players:  make([]Player, 0, len(data.Players)),
		Weapons:  make([]Weapon, 0),
		Events:   make([][]any, 0),
		TimeSync: make([][]any, 0, len(data.TimeSyncs)),
		Scores:   make([]Score, 0),
	}
	if !m.StartTime.IsZero() && m.EndTime.After(m.StartTime) {
		export.DurationSeconds = round3(m.EndTime.Sub(m.StartTime).Seconds())
	}

	ids := make([]core.PlayerID, 0, len(data.Players))
	for id := range data.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		export.Players = append(export.Players, buildPlayer(data.Players[id]))
	}

	export.Weapons = buildWeapons(data.Transitions)

	type timed struct {
		at  time.Duration
		row []any
	}
	var events []timed
	for _, s := range data.States {
		events = append(events, timed{s.ServerTime, []any{ms(s.ServerTime), "state", string(s.State)}})
	}
	for _, h := range data.HitClaims {
		events = append(events, timed{h.ServerTime, []any{
			ms(h.ServerTime), "hit", uint32(h.ShooterID), uint32(h.VictimID), uint32(h.WeaponID),
			round3(h.Damage), boolToInt(h.Accepted), ms(h.HitTime),
		}})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].at < events[j].at })
	for _, e := range events {
		export.Events = append(export.Events, e.row)
	}

	for _, s := range data.TimeSyncs {
		export.TimeSync = append(export.TimeSync, []any{
			uint32(s.PlayerID), msFloat(s.RoundTrip), msFloat(s.SingleTrip), msFloat(s.Offset),
		})
	}

	export.Scores = buildScores(data.HitClaims)
	return export
}

func buildPlayer(r *PlayerRecord) Player {
	p := Player{
		ID:       uint32(r.Player),
		Fires:    make([][]any, 0, len(r.Fires)),
		Reloads:  make([][]any, 0, len(r.Reloads)),
		Grenades: make([][]any, 0, len(r.Grenades)),
	}
	for _, f := range r.Fires {
		p.Fires = append(p.Fires, []any{
			ms(f.ServerTime), uint32(f.WeaponID), f.WeaponType.String(), vec(f.Target), f.AmmoAfter, boolToInt(f.Aiming),
		})
	}
	for _, rl := range r.Reloads {
		p.Reloads = append(p.Reloads, []any{
			ms(rl.ServerTime), uint32(rl.WeaponID), rl.Amount, rl.AmmoAfter, rl.CarriedAfter, boolToInt(rl.Shell),
		})
	}
	for _, g := range r.Grenades {
		p.Grenades = append(p.Grenades, []any{
			ms(g.ServerTime), boolToInt(g.Launched), vec(g.Origin), vec(g.Target), g.Remaining,
		})
	}
	return p
}

func buildWeapons(transitions []core.WeaponTransition) []Weapon {
	byID := make(map[core.WeaponID]*Weapon)
	var order []core.WeaponID
	for _, t := range transitions {
		w, ok := byID[t.WeaponID]
		if !ok {
			w = &Weapon{ID: uint32(t.WeaponID), Type: t.WeaponType.String(), Transitions: make([][]any, 0)}
			byID[t.WeaponID] = w
			order = append(order, t.WeaponID)
		}
		w.Transitions = append(w.Transitions, []any{ms(t.ServerTime), t.From.String(), t.To.String(), uint32(t.OwnerID)})
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]Weapon, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

func buildScores(claims []core.HitClaim) []Score {
	byShooter := make(map[core.PlayerID]*Score)
	for _, c := range claims {
		s, ok := byShooter[c.ShooterID]
		if !ok {
			s = &Score{Player: uint32(c.ShooterID)}
			byShooter[c.ShooterID] = s
		}
		s.Claims++
		if c.Accepted {
			s.Accepted++
			s.Damage += c.Damage
		}
	}
	out := make([]Score, 0, len(byShooter))
	for _, s := range byShooter {
		s.Damage = round3(s.Damage)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func ms(d time.Duration) int64 {
	return d.Milliseconds()
}

func msFloat(d time.Duration) float64 {
	return round3(float64(d) / float64(time.Millisecond))
}

func vec(v core.Vector) []float64 {
	return []float64{round3(v.X), round3(v.Y), round3(v.Z)}
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
