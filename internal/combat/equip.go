package combat

import (
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
)

// EquipWeapon hands w to the player on the authority. With a primary held
// and the backpack free, w goes to the backpack; otherwise the primary is
// dropped and w takes its place.
func (c *Combat) EquipWeapon(w *weapon.Weapon) {
	if c.ch == nil || w == nil {
		return
	}
	if c.equipped != core.NoWeapon && c.secondary == core.NoWeapon {
		c.equipSecondary(w)
		c.playSound(c.SecondaryWeapon())
	} else {
		c.dropEquippedWeapon()
		c.equipPrimary(w)
	}
	c.ch.OrientToMovement = false
	c.ch.UseControllerYaw = true
}

// ShouldSwapWeapons reports whether both slots are filled.
func (c *Combat) ShouldSwapWeapons() bool {
	return c.equipped != core.NoWeapon && c.secondary != core.NoWeapon
}

// SwapWeapons exchanges primary and secondary after the swap delay.
// Presses while the delay is pending are ignored.
func (c *Combat) SwapWeapons() {
	if c.ch == nil || c.env.Timers.Active(c.swapTimer) {
		return
	}
	c.swapTimer = c.env.Timers.Schedule(c.cfg.SwapDelay, c.swapWeaponsTimerFinished)
}

// SwapPending reports whether a swap is waiting on its delay.
func (c *Combat) SwapPending() bool { return c.env.Timers.Active(c.swapTimer) }

func (c *Combat) swapWeaponsTimerFinished() {
	temp := c.EquippedWeapon()
	c.equipPrimary(c.SecondaryWeapon())
	c.equipSecondary(temp)
}

func (c *Combat) equipPrimary(w *weapon.Weapon) {
	if w == nil || c.ch == nil {
		return
	}
	c.stopMontages()
	c.state = core.Unoccupied

	w.SetIsHovering(false)
	c.handleWeaponSpecificLogic(c.EquippedWeapon(), w)
	if c.secondary == w.ID() {
		c.secondary = core.NoWeapon
	}
	c.equipped = w.ID()
	w.SetState(core.WeaponEquipped)

	c.attachToRightHand(w)
	c.playSound(w)

	w.SetOwner(c.ch.ID)
	w.SetHUDAmmo()

	c.setCarriedAmmo()
	if h := c.hud(); h != nil {
		h.SetCarriedAmmo(c.carried)
		h.SetWeaponIcon(w.Archetype().Icon)
	}
	c.reloadEmptyWeapon()
}

func (c *Combat) equipSecondary(w *weapon.Weapon) {
	if w == nil {
		return
	}
	w.SetIsHovering(false)
	c.stopMontages()
	c.state = core.Unoccupied

	if c.equipped == w.ID() {
		c.equipped = core.NoWeapon
	}
	c.secondary = w.ID()
	w.SetState(core.WeaponEquippedSecondary)
	c.attachToBackpack(w)
	w.SetOwner(c.ch.ID)
}

func (c *Combat) dropEquippedWeapon() {
	if w := c.EquippedWeapon(); w != nil {
		w.SetLocation(c.ch.Location)
		w.Dropped()
		c.equipped = core.NoWeapon
	}
}

func (c *Combat) attachToRightHand(w *weapon.Weapon) {
	if c.ch == nil || w == nil {
		return
	}
	w.Attach(RightHandSocket)
}

func (c *Combat) attachToLeftHand(w *weapon.Weapon) {
	if c.ch == nil || w == nil {
		return
	}
	socket := LeftHandSocket
	if t := w.Type(); t == core.Pistol || t == core.SubmachineGun {
		socket = LeftHandPistolSocket
	}
	w.Attach(socket)
}

func (c *Combat) attachToBackpack(w *weapon.Weapon) {
	if c.ch == nil || w == nil {
		return
	}
	w.Attach(w.Archetype().SecondarySocket)
}

func (c *Combat) reloadEmptyWeapon() {
	if w := c.EquippedWeapon(); w != nil && w.IsEmpty() {
		c.Reload()
	}
}

// handleWeaponSpecificLogic toggles the sniper scope overlay when switching
// to or from a sniper rifle while aiming. Local player only.
func (c *Combat) handleWeaponSpecificLogic(last, next *weapon.Weapon) {
	if last == nil || next == nil || !c.role.Local {
		return
	}
	if last.Type() == core.SniperRifle && next.Type() != core.SniperRifle {
		c.ch.DrawCrosshair = true
		if c.aiming {
			c.ch.ScopeVisible = false
			if h := c.hud(); h != nil {
				h.ShowCharacterOverlay()
			}
		}
	} else if next.Type() == core.SniperRifle {
		if c.aiming {
			c.ch.ScopeVisible = true
			c.ch.DrawCrosshair = false
			if h := c.hud(); h != nil {
				h.HideCharacterOverlay()
			}
		}
	}
}

// ServerEquip handles the equip button on the authority. A free weapon the
// character overlaps is picked up; with no pickup candidate and both slots
// filled the weapons are swapped.
func (c *Combat) ServerEquip(id core.WeaponID) {
	if id != core.NoWeapon {
		w := c.lookup(id)
		if w == nil || !c.canPickUp(w) {
			return
		}
		c.EquipWeapon(w)
		return
	}
	if c.ShouldSwapWeapons() {
		c.SwapWeapons()
	}
}

// canPickUp requires a free weapon lying in the world with its pickup
// sphere armed and within reach of the character.
func (c *Combat) canPickUp(w *weapon.Weapon) bool {
	if c.ch == nil {
		return false
	}
	if _, owned := w.Owner(); owned {
		return false
	}
	if s := w.State(); s != core.WeaponInitial && s != core.WeaponDropped {
		return false
	}
	if w.AreaSphere == weapon.NoCollision {
		return false
	}
	return w.Location().Sub(c.ch.Location).Len() <= c.cfg.PickupRadius
}
