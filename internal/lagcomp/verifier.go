package lagcomp

import (
	"time"

	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

// DefaultMaxRewind bounds how far back a score request may reach.
const DefaultMaxRewind = 400 * time.Millisecond

// Verifier receives score requests on the authority. It bounds the claimed
// hit time by the rewind window, checks the shooter holds a rewind weapon
// and hands accepted claims to the damager with that weapon's damage.
// Hitbox rewind itself belongs to the collaborator behind it.
type Verifier struct {
	MaxRewind time.Duration
	Now       func() time.Duration
	Alive     func(core.PlayerID) bool
	Weapons   *weapon.Registry
	Damage    Damager
	OnClaim   func(core.HitClaim)
}

// Verify judges a request from shooter and reports whether it was accepted.
func (v *Verifier) Verify(shooter core.PlayerID, req streaming.ScoreRequest) bool {
	now := v.Now()
	window := v.MaxRewind
	if window <= 0 {
		window = DefaultMaxRewind
	}
	damage := req.Damage
	arch, ok := v.rewindWeapon(shooter, req.WeaponID)
	if ok {
		damage = arch.Damage
	}
	ok = ok &&
		req.Victim != 0 &&
		req.Victim != shooter &&
		req.HitTime <= now &&
		now-req.HitTime <= window &&
		damage > 0
	if ok && v.Alive != nil {
		ok = v.Alive(req.Victim)
	}
	if ok && v.Damage != nil {
		v.Damage.ApplyDamage(req.Victim, damage, shooter, req.WeaponID)
	}
	if v.OnClaim != nil {
		v.OnClaim(core.HitClaim{
			Time:            time.Now(),
			ServerTime:      now,
			ShooterID:       shooter,
			VictimID:        req.Victim,
			WeaponID:        req.WeaponID,
			TraceStart:      req.TraceStart,
			InitialVelocity: req.InitialVelocity,
			HitTime:         req.HitTime,
			Damage:          damage,
			Accepted:        ok,
		})
	}
	return ok
}

// rewindWeapon returns the archetype of id when shooter holds it and it
// scores through server-side rewind.
func (v *Verifier) rewindWeapon(shooter core.PlayerID, id core.WeaponID) (weapon.Archetype, bool) {
	if v.Weapons == nil {
		return weapon.Archetype{}, false
	}
	w, ok := v.Weapons.Get(id)
	if !ok {
		return weapon.Archetype{}, false
	}
	if owner, held := w.Owner(); !held || owner != shooter {
		return weapon.Archetype{}, false
	}
	arch := w.Archetype()
	return arch, arch.ServerSideRewind
}
