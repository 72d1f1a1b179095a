// Package convert maps core telemetry records to GORM rows and back.
package convert

import (
	"encoding/json"
	"time"

	"github.com/blasternet/combatsync/internal/geo"
	"github.com/blasternet/combatsync/internal/model"
	"github.com/blasternet/combatsync/pkg/core"
	"gorm.io/datatypes"
)

// pointJSON stores a vector as a GeoJSON point. An encoding failure stores null.
func pointJSON(v core.Vector) datatypes.JSON {
	data, err := geo.PointJSON(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

func ms(d time.Duration) int64 { return d.Milliseconds() }

func msFloat(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// CoreToMatch converts a core.Match to a GORM model.Match.
func CoreToMatch(m core.Match) model.Match {
	players := datatypes.JSON("[]")
	if len(m.Players) > 0 {
		players, _ = json.Marshal(m.Players)
	}
	out := model.Match{
		Key:           m.Key,
		Level:         m.Level,
		StartTime:     m.StartTime,
		EndTime:       m.EndTime,
		WarmupMs:      ms(m.Timings.Warmup),
		MatchMs:       ms(m.Timings.Match),
		CooldownMs:    ms(m.Timings.Cooldown),
		LevelStartMs:  ms(m.Timings.LevelStart),
		AlertFraction: m.Timings.AlertFraction,
		Players:       players,
	}
	out.ID = m.ID
	return out
}

// CoreToFireEvent converts a core.FireEvent to a GORM model.FireEvent.
func CoreToFireEvent(e core.FireEvent) model.FireEvent {
	return model.FireEvent{
		Time:         e.Time,
		ServerTimeMs: ms(e.ServerTime),
		PlayerID:     uint32(e.PlayerID),
		WeaponID:     uint32(e.WeaponID),
		WeaponType:   e.WeaponType.String(),
		Target:       pointJSON(e.Target),
		AmmoAfter:    e.AmmoAfter,
		Aiming:       e.Aiming,
	}
}

// CoreToReloadEvent converts a core.ReloadEvent to a GORM model.ReloadEvent.
func CoreToReloadEvent(e core.ReloadEvent) model.ReloadEvent {
	return model.ReloadEvent{
		Time:         e.Time,
		ServerTimeMs: ms(e.ServerTime),
		PlayerID:     uint32(e.PlayerID),
		WeaponID:     uint32(e.WeaponID),
		WeaponType:   e.WeaponType.String(),
		Amount:       e.Amount,
		AmmoAfter:    e.AmmoAfter,
		CarriedAfter: e.CarriedAfter,
		Shell:        e.Shell,
	}
}

// CoreToWeaponTransition converts a core.WeaponTransition to a GORM model.WeaponTransition.
func CoreToWeaponTransition(e core.WeaponTransition) model.WeaponTransition {
	return model.WeaponTransition{
		Time:         e.Time,
		ServerTimeMs: ms(e.ServerTime),
		WeaponID:     uint32(e.WeaponID),
		WeaponType:   e.WeaponType.String(),
		FromState:    e.From.String(),
		ToState:      e.To.String(),
		OwnerID:      uint32(e.OwnerID),
	}
}

// CoreToGrenadeEvent converts a core.GrenadeEvent to a GORM model.GrenadeEvent.
func CoreToGrenadeEvent(e core.GrenadeEvent) model.GrenadeEvent {
	return model.GrenadeEvent{
		Time:         e.Time,
		ServerTimeMs: ms(e.ServerTime),
		PlayerID:     uint32(e.PlayerID),
		Launched:     e.Launched,
		Origin:       pointJSON(e.Origin),
		Target:       pointJSON(e.Target),
		Remaining:    e.Remaining,
	}
}

// CoreToHitClaim converts a core.HitClaim to a GORM model.HitClaim.
func CoreToHitClaim(e core.HitClaim) model.HitClaim {
	return model.HitClaim{
		Time:            e.Time,
		ServerTimeMs:    ms(e.ServerTime),
		ShooterID:       uint32(e.ShooterID),
		VictimID:        uint32(e.VictimID),
		WeaponID:        uint32(e.WeaponID),
		TraceStart:      pointJSON(e.TraceStart),
		InitialVelocity: pointJSON(e.InitialVelocity),
		HitTimeMs:       ms(e.HitTime),
		Damage:          e.Damage,
		Accepted:        e.Accepted,
	}
}

// CoreToTimeSyncSample converts a core.TimeSyncSample to a GORM model.TimeSyncSample.
func CoreToTimeSyncSample(s core.TimeSyncSample) model.TimeSyncSample {
	return model.TimeSyncSample{
		Time:         s.Time,
		PlayerID:     uint32(s.PlayerID),
		RoundTripMs:  msFloat(s.RoundTrip),
		SingleTripMs: msFloat(s.SingleTrip),
		OffsetMs:     msFloat(s.Offset),
	}
}

// CoreToMatchStateChange converts a core.MatchStateChange to a GORM model.MatchStateChange.
func CoreToMatchStateChange(s core.MatchStateChange) model.MatchStateChange {
	return model.MatchStateChange{
		Time:         s.Time,
		ServerTimeMs: ms(s.ServerTime),
		State:        string(s.State),
	}
}
