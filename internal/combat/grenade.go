package combat

import "github.com/blasternet/combatsync/pkg/core"

// ThrowGrenade starts a throw. The local participant plays it at once; a
// non-authority also asks the authority, which owns the grenade count.
func (c *Combat) ThrowGrenade() {
	if c.grenades == 0 || c.state != core.Unoccupied || c.EquippedWeapon() == nil {
		return
	}
	c.state = core.ThrowingGrenade
	if c.ch != nil {
		c.beginThrow()
	}
	if c.ch != nil && !c.role.Authority && c.env.Link != nil {
		c.env.Link.ThrowGrenade()
	}
	if c.ch != nil && c.role.Authority {
		c.spendGrenade()
	}
}

// ServerThrowGrenade is the authority side of a remote throw request.
func (c *Combat) ServerThrowGrenade() {
	if c.grenades == 0 || c.EquippedWeapon() == nil {
		return
	}
	if !c.setState(core.ThrowingGrenade) {
		return
	}
	if c.ch != nil {
		c.beginThrow()
	}
	c.spendGrenade()
}

func (c *Combat) beginThrow() {
	if c.env.Anim != nil {
		c.env.Anim.PlayThrowGrenadeMontage()
	}
	c.attachToLeftHand(c.EquippedWeapon())
	c.showAttachedGrenade(true)
}

func (c *Combat) spendGrenade() {
	c.grenadeHeld = true
	c.grenades = clampInt(c.grenades-1, 0, c.cfg.StartingGrenades)
	c.updateHUDGrenades()
	if c.env.Telemetry != nil && c.ch != nil {
		c.env.Telemetry.GrenadeThrown(c.ch.ID, c.grenades)
	}
}

// ThrowGrenadeFinished is the throw montage completion.
func (c *Combat) ThrowGrenadeFinished() {
	c.state = core.Unoccupied
	c.grenadeHeld = false
	c.attachToRightHand(c.EquippedWeapon())
}

// LaunchGrenade is the release notify of the throw montage. The local
// participant sends its aim target to the authority.
func (c *Combat) LaunchGrenade() {
	c.showAttachedGrenade(false)
	if c.ch == nil || !c.role.Local {
		return
	}
	if c.role.Authority {
		c.ServerLaunchGrenade(c.hitTarget)
		return
	}
	if c.env.Link != nil {
		c.env.Link.LaunchGrenade(c.hitTarget)
	}
}

// ServerLaunchGrenade spawns the grenade projectile toward target. Only the
// grenade of the throw in progress can be launched, once.
func (c *Combat) ServerLaunchGrenade(target core.Vector) {
	if c.ch == nil || c.state != core.ThrowingGrenade || !c.grenadeHeld {
		return
	}
	c.grenadeHeld = false
	if c.env.Grenades == nil {
		return
	}
	origin := c.ch.AttachedGrenadeLocation()
	c.env.Grenades.SpawnGrenade(c.ch.ID, origin, target)
	if c.env.Telemetry != nil {
		c.env.Telemetry.GrenadeLaunched(c.ch.ID, origin, target)
	}
}

func (c *Combat) showAttachedGrenade(show bool) {
	if c.ch == nil {
		return
	}
	c.ch.GrenadeVisible = show
}

func (c *Combat) updateHUDGrenades() {
	if h := c.hud(); h != nil {
		h.SetGrenades(c.grenades)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
