package influx

import (
	"strconv"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/blasternet/combatsync/pkg/core"
)

func playerTag(p core.PlayerID) string {
	return strconv.FormatUint(uint64(p), 10)
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FirePoint counts one accepted shot.
func FirePoint(e *core.FireEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementFire,
		map[string]string{
			"player": playerTag(e.PlayerID),
			"weapon": e.WeaponType.String(),
		},
		map[string]any{
			"count":  1,
			"ammo":   e.AmmoAfter,
			"aiming": e.Aiming,
		},
		stamp(e.Time))
}

func ReloadPoint(e *core.ReloadEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementReload,
		map[string]string{
			"player": playerTag(e.PlayerID),
			"weapon": e.WeaponType.String(),
		},
		map[string]any{
			"amount":  e.Amount,
			"carried": e.CarriedAfter,
			"shell":   e.Shell,
		},
		stamp(e.Time))
}

func GrenadePoint(e *core.GrenadeEvent) *influxdb2_write.Point {
	kind := "thrown"
	if e.Launched {
		kind = "launched"
	}
	return influxdb2_write.NewPoint(MeasurementGrenade,
		map[string]string{
			"player": playerTag(e.PlayerID),
			"kind":   kind,
		},
		map[string]any{"remaining": e.Remaining},
		stamp(e.Time))
}

// HitClaimPoint records the verdict and damage of a lag-compensated hit.
func HitClaimPoint(e *core.HitClaim) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementHitClaim,
		map[string]string{
			"shooter":  playerTag(e.ShooterID),
			"victim":   playerTag(e.VictimID),
			"accepted": strconv.FormatBool(e.Accepted),
		},
		map[string]any{
			"damage": e.Damage,
			"age_ms": ms(e.ServerTime - e.HitTime),
		},
		stamp(e.Time))
}

// TimeSyncPoint records one clock-sync round trip in milliseconds.
func TimeSyncPoint(s *core.TimeSyncSample) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementTimeSync,
		map[string]string{"player": playerTag(s.PlayerID)},
		map[string]any{
			"rtt_ms":     ms(s.RoundTrip),
			"one_way_ms": ms(s.SingleTrip),
			"offset_ms":  ms(s.Offset),
		},
		stamp(s.Time))
}

func MatchStatePoint(s *core.MatchStateChange) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementMatchState,
		map[string]string{"state": string(s.State)},
		map[string]any{"server_ms": ms(s.ServerTime)},
		stamp(s.Time))
}
