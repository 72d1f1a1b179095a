package convert

import (
	"encoding/json"
	"time"

	"github.com/blasternet/combatsync/internal/model"
	"github.com/blasternet/combatsync/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// vectorFromJSON reads a GeoJSON point back. Missing or invalid data gives the zero vector.
func vectorFromJSON(data datatypes.JSON) core.Vector {
	if len(data) == 0 {
		return core.Vector{}
	}
	var g geom.Geometry
	if err := json.Unmarshal(data, &g); err != nil || g.Type() != geom.TypePoint {
		return core.Vector{}
	}
	c, ok := g.AsPoint().Coordinates()
	if !ok {
		return core.Vector{}
	}
	return core.Vector{X: c.X, Y: c.Y, Z: c.Z}
}

// MatchToCore converts a GORM Match back to a core.Match.
func MatchToCore(m model.Match) core.Match {
	var players []core.PlayerID
	if len(m.Players) > 0 {
		_ = json.Unmarshal(m.Players, &players)
	}
	return core.Match{
		ID:        m.ID,
		Key:       m.Key,
		Level:     m.Level,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
		Timings: core.MatchTimings{
			Warmup:        time.Duration(m.WarmupMs) * time.Millisecond,
			Match:         time.Duration(m.MatchMs) * time.Millisecond,
			Cooldown:      time.Duration(m.CooldownMs) * time.Millisecond,
			LevelStart:    time.Duration(m.LevelStartMs) * time.Millisecond,
			AlertFraction: m.AlertFraction,
		},
		Players: players,
	}
}

// FireEventToCore converts a GORM FireEvent back to a core.FireEvent.
func FireEventToCore(e model.FireEvent) core.FireEvent {
	t, _ := core.ParseWeaponType(e.WeaponType)
	return core.FireEvent{
		Time:       e.Time,
		ServerTime: time.Duration(e.ServerTimeMs) * time.Millisecond,
		PlayerID:   core.PlayerID(e.PlayerID),
		WeaponID:   core.WeaponID(e.WeaponID),
		WeaponType: t,
		Target:     vectorFromJSON(e.Target),
		AmmoAfter:  e.AmmoAfter,
		Aiming:     e.Aiming,
	}
}

// HitClaimToCore converts a GORM HitClaim back to a core.HitClaim.
func HitClaimToCore(e model.HitClaim) core.HitClaim {
	return core.HitClaim{
		Time:            e.Time,
		ServerTime:      time.Duration(e.ServerTimeMs) * time.Millisecond,
		ShooterID:       core.PlayerID(e.ShooterID),
		VictimID:        core.PlayerID(e.VictimID),
		WeaponID:        core.WeaponID(e.WeaponID),
		TraceStart:      vectorFromJSON(e.TraceStart),
		InitialVelocity: vectorFromJSON(e.InitialVelocity),
		HitTime:         time.Duration(e.HitTimeMs) * time.Millisecond,
		Damage:          e.Damage,
		Accepted:        e.Accepted,
	}
}
