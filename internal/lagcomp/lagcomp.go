// Package lagcomp is the contract between projectiles and the lag
// compensation collaborator: score requests stamped with a past authority
// time, and the authority side that receives them.
package lagcomp

import (
	"time"

	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

// Clock is the synced clock of the shooter's controller.
type Clock interface {
	ServerTime() time.Duration
	SingleTripTime() time.Duration
}

// HitTime is the authority time at which the shooter saw the hit.
func HitTime(c Clock) time.Duration {
	return c.ServerTime() - c.SingleTripTime()
}

// Requester sends projectile score requests to the authority.
type Requester interface {
	ProjectileScoreRequest(req streaming.ScoreRequest)
}

// Damager applies damage on the authority. A zero victim is world geometry.
type Damager interface {
	ApplyDamage(victim core.PlayerID, amount float64, instigator core.PlayerID, w core.WeaponID)
}

// Projectile is a fired round in flight.
type Projectile struct {
	Owner            core.PlayerID
	Weapon           core.WeaponID
	TraceStart       core.Vector
	InitialVelocity  core.Vector
	Damage           float64
	ServerSideRewind bool
}

// Shooter is what a projectile knows about its owner on this participant.
type Shooter struct {
	Authority bool
	Local     bool
	Clock     Clock
	Requests  Requester
	Damage    Damager
}

// Outcome says how a hit was routed.
type Outcome uint8

const (
	Ignored Outcome = iota
	DamageApplied
	ScoreRequested
)

func (o Outcome) String() string {
	switch o {
	case DamageApplied:
		return "DamageApplied"
	case ScoreRequested:
		return "ScoreRequested"
	}
	return "Ignored"
}

// NewScoreRequest builds the request for a hit on victim at hitTime.
func NewScoreRequest(p Projectile, victim core.PlayerID, hitTime time.Duration) streaming.ScoreRequest {
	return streaming.ScoreRequest{
		Victim:          victim,
		TraceStart:      p.TraceStart,
		InitialVelocity: p.InitialVelocity,
		HitTime:         hitTime,
		Damage:          p.Damage,
		WeaponID:        p.Weapon,
	}
}

// OnHit routes a projectile impact. Without rewind the authority applies
// damage at once. With rewind only the locally controlled shooter reports
// hits on characters, stamped with the synced clock minus one trip.
func (p Projectile) OnHit(s Shooter, hit combat.Hit) Outcome {
	if s.Authority && !p.ServerSideRewind {
		if s.Damage == nil {
			return Ignored
		}
		s.Damage.ApplyDamage(hit.Player, p.Damage, p.Owner, p.Weapon)
		return DamageApplied
	}
	if hit.Player == 0 || !p.ServerSideRewind || !s.Local || s.Requests == nil || s.Clock == nil {
		return Ignored
	}
	s.Requests.ProjectileScoreRequest(NewScoreRequest(p, hit.Player, HitTime(s.Clock)))
	return ScoreRequested
}
