package combat

import (
	"github.com/blasternet/combatsync/internal/ammo"
	"github.com/blasternet/combatsync/pkg/core"
)

// Reload requests a reload when CanReload allows.
func (c *Combat) Reload() {
	if c.CanReload() {
		c.serverReload()
	}
}

// CanReload requires a weapon with room in the magazine, carried ammo for
// it, and no action in progress.
func (c *Combat) CanReload() bool {
	w := c.EquippedWeapon()
	return w != nil &&
		w.Ammo() < w.Capacity() &&
		c.carried > 0 &&
		c.state == core.Unoccupied
}

func (c *Combat) serverReload() {
	if c.role.Authority {
		c.ServerReload()
		return
	}
	if c.env.Link != nil {
		c.env.Link.Reload()
	}
}

// ServerReload enters Reloading on the authority and starts the reload montage.
func (c *Combat) ServerReload() {
	if c.ch == nil || c.EquippedWeapon() == nil || !c.CanReload() {
		return
	}
	if !c.setState(core.Reloading) {
		return
	}
	c.handleReload()
}

func (c *Combat) handleReload() {
	w := c.EquippedWeapon()
	if c.env.Anim == nil || w == nil {
		return
	}
	c.env.Anim.PlayReloadMontage(w.Type())
}

// FinishReloading is the reload montage completion. The authority returns
// to Unoccupied and commits the ammo; any participant holding the trigger
// fires again.
func (c *Combat) FinishReloading() {
	if c.ch == nil {
		return
	}
	if c.role.Authority {
		c.state = core.Unoccupied
		c.updateAmmoValues()
	}
	if c.fireButton {
		c.Fire()
	}
}

// AmountToReload is the rounds a full reload moves from carried to magazine.
func (c *Combat) AmountToReload() int {
	w := c.EquippedWeapon()
	if w == nil || !c.ledger.Has(w.Type()) {
		return 0
	}
	return ammo.AmountToReload(w.Capacity(), w.Ammo(), c.ledger.Carried(w.Type()))
}

func (c *Combat) updateAmmoValues() {
	w := c.EquippedWeapon()
	if c.ch == nil || w == nil || !c.ledger.Has(w.Type()) {
		return
	}
	amount := c.AmountToReload()
	c.carried = c.ledger.Spend(w.Type(), amount)
	if h := c.hud(); h != nil {
		h.SetCarriedAmmo(c.carried)
	}
	w.AddAmmo(-amount)
	if c.env.Telemetry != nil {
		c.env.Telemetry.Reloaded(c.ch.ID, w, amount, c.carried, false)
	}
}

// ShotgunShellReload is the per-shell montage notify. Authority only.
func (c *Combat) ShotgunShellReload() {
	if c.ch != nil && c.role.Authority {
		c.updateShotgunAmmoValues()
	}
}

func (c *Combat) updateShotgunAmmoValues() {
	w := c.EquippedWeapon()
	if c.ch == nil || w == nil || !c.ledger.Has(w.Type()) || w.Type() != core.Shotgun {
		return
	}
	c.carried = c.ledger.Spend(w.Type(), 1)
	if h := c.hud(); h != nil {
		h.SetCarriedAmmo(c.carried)
	}
	w.AddAmmo(-1)
	c.canFire = true
	if c.env.Telemetry != nil {
		c.env.Telemetry.Reloaded(c.ch.ID, w, 1, c.carried, true)
	}
	if w.IsFull() || c.carried == 0 {
		c.jumpToShotgunEnd()
	}
}

func (c *Combat) jumpToShotgunEnd() {
	if c.env.Anim != nil {
		c.env.Anim.JumpToReloadSection(ShotgunEndSection)
	}
}

// PickupAmmo adds carried ammo on the authority and reloads when it matches
// the equipped weapon.
func (c *Combat) PickupAmmo(t core.WeaponType, amount int) {
	if c.ledger.Pickup(t, amount) {
		c.setCarriedAmmo()
		if h := c.hud(); h != nil {
			h.SetCarriedAmmo(c.carried)
		}
	}
	if w := c.EquippedWeapon(); w != nil && w.Type() == t {
		c.Reload()
	}
}

func (c *Combat) setCarriedAmmo() {
	w := c.EquippedWeapon()
	if w == nil || !c.ledger.Has(w.Type()) {
		return
	}
	c.carried = c.ledger.Carried(w.Type())
}
