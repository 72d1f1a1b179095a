package combat

import (
	"github.com/blasternet/combatsync/pkg/core"
)

// shootingFactor is the crosshair kick applied per shot.
const shootingFactor = 0.85

// FireButtonPressed records the local trigger and fires on press.
func (c *Combat) FireButtonPressed(pressed bool) {
	c.fireButton = pressed
	if pressed {
		c.Fire()
	}
}

// Fire sends a fire request for the current aim target when CanFire allows
// and starts the fire-rate cooldown.
func (c *Combat) Fire() {
	if !c.CanFire() {
		return
	}
	c.canFire = false
	c.serverFire(c.hitTarget)
	if c.EquippedWeapon() == nil {
		return
	}
	c.crosshair.shooting = shootingFactor
	c.startFireTimer()
}

// CanFire gates a local fire attempt. A shotgun may interrupt its own reload.
func (c *Combat) CanFire() bool {
	w := c.EquippedWeapon()
	if w == nil || c.IsCloseToWall() {
		return false
	}
	if !w.IsEmpty() && c.canFire && c.state == core.Reloading && w.Type() == core.Shotgun {
		return true
	}
	return !w.IsEmpty() && c.canFire && c.state == core.Unoccupied
}

// IsCloseToWall reports whether the aim trace is blocked within the
// weapon's allowed gap. Without a character or weapon it reports true.
func (c *Combat) IsCloseToWall() bool {
	w := c.EquippedWeapon()
	if c.ch == nil || w == nil {
		return true
	}
	if c.env.World == nil {
		return false
	}
	start := c.ch.Location
	hit := c.env.World.LineTrace(start, c.hitTarget, c.ch.ID)
	return hit.Blocking && hit.Point.Sub(start).Len() <= w.Archetype().AllowedGapToWall
}

func (c *Combat) startFireTimer() {
	w := c.EquippedWeapon()
	if w == nil || c.ch == nil {
		return
	}
	c.env.Timers.Cancel(c.fireTimer)
	c.fireTimer = c.env.Timers.Schedule(w.Archetype().FireDelay, c.fireTimerFinished)
}

func (c *Combat) fireTimerFinished() {
	w := c.EquippedWeapon()
	if w == nil {
		return
	}
	c.canFire = true
	if c.fireButton && w.Archetype().Automatic {
		c.Fire()
	}
	c.reloadEmptyWeapon()
}

// FireCooldownActive reports whether the fire-rate timer is pending.
func (c *Combat) FireCooldownActive() bool { return c.env.Timers.Active(c.fireTimer) }

func (c *Combat) serverFire(target core.Vector) {
	if c.role.Authority {
		c.ServerFire(target)
		return
	}
	if c.env.Link != nil {
		c.env.Link.Fire(target)
	}
}

// ServerFire validates a fire request on the authority and broadcasts it.
// Requests against an empty magazine, a busy state or arriving before the
// weapon's fire delay has passed are dropped.
func (c *Combat) ServerFire(target core.Vector) {
	w := c.EquippedWeapon()
	if c.ch == nil || w == nil || w.IsEmpty() {
		return
	}
	shotgunInterrupt := c.state == core.Reloading && w.Type() == core.Shotgun
	if c.state != core.Unoccupied && !shotgunInterrupt {
		return
	}
	now := c.env.Timers.Now()
	if c.hasFired && now-c.lastFire < w.Archetype().FireDelay-c.cfg.FireTolerance {
		return
	}
	c.lastFire, c.hasFired = now, true
	aiming := c.aiming
	c.MulticastFire(target)
	if c.env.Telemetry != nil {
		c.env.Telemetry.Fired(c.ch.ID, w, target, aiming)
	}
	if c.env.Broadcast != nil {
		c.env.Broadcast.MulticastFire(c.ch.ID, target)
	}
}

// MulticastFire plays the fire on this observer. A shotgun firing out of a
// reload returns the player to Unoccupied.
func (c *Combat) MulticastFire(target core.Vector) {
	w := c.EquippedWeapon()
	if c.ch == nil || w == nil {
		return
	}
	if c.state == core.Reloading && w.Type() == core.Shotgun {
		c.playFireMontage()
		w.Fire(target)
		c.state = core.Unoccupied
		return
	}
	if c.state == core.Unoccupied {
		c.playFireMontage()
		w.Fire(target)
	}
}

func (c *Combat) playFireMontage() {
	if c.env.Anim != nil {
		c.env.Anim.PlayFireMontage(c.aiming)
	}
}
