package combat

import (
	"github.com/blasternet/combatsync/internal/replication"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
)

// Entity identifies the component on the wire.
func (c *Combat) Entity() replication.Entity {
	return replication.Entity{Kind: replication.KindCombat, ID: uint32(c.ch.ID)}
}

// Owner is the owning connection.
func (c *Combat) Owner() uint32 { return uint32(c.ch.ID) }

// Fields lists the replicated properties. Carried ammo is only sent to the owner.
func (c *Combat) Fields() []replication.Field {
	return []replication.Field{
		{Prop: replication.PropEquippedWeapon, Value: replication.IntValue(c.equipped)},
		{Prop: replication.PropSecondaryWeapon, Value: replication.IntValue(c.secondary)},
		{Prop: replication.PropAiming, Value: replication.BoolValue(c.aiming)},
		{Prop: replication.PropCombatState, Value: replication.IntValue(c.state)},
		{Prop: replication.PropCarriedAmmo, Value: replication.IntValue(c.carried), OwnerOnly: true},
		{Prop: replication.PropGrenades, Value: replication.IntValue(c.grenades)},
	}
}

// OnReplicated stores an authority value and runs its change hook.
func (c *Combat) OnReplicated(prop string, v replication.Value) {
	switch prop {
	case replication.PropEquippedWeapon:
		last := c.EquippedWeapon()
		c.equipped = core.WeaponID(v.Int)
		c.onRepEquippedWeapon(last)
	case replication.PropSecondaryWeapon:
		last := c.SecondaryWeapon()
		c.secondary = core.WeaponID(v.Int)
		c.onRepSecondaryWeapon(last)
	case replication.PropAiming:
		c.aiming = v.Bool()
	case replication.PropCombatState:
		c.state = core.CombatState(v.Int)
		c.onRepCombatState()
	case replication.PropCarriedAmmo:
		c.carried = int(v.Int)
		c.onRepCarriedAmmo()
	case replication.PropGrenades:
		c.grenades = int(v.Int)
		c.updateHUDGrenades()
	}
}

func (c *Combat) onRepEquippedWeapon(last *weapon.Weapon) {
	w := c.EquippedWeapon()
	if w == nil || c.ch == nil {
		return
	}
	w.SetIsHovering(false)
	c.stopMontages()
	c.handleWeaponSpecificLogic(last, w)

	w.SetState(core.WeaponEquipped)
	c.attachToRightHand(w)
	c.playSound(w)
	w.SetHUDAmmo()
	c.ch.OrientToMovement = false
	c.ch.UseControllerYaw = true

	if h := c.hud(); h != nil {
		h.SetWeaponIcon(w.Archetype().Icon)
	}
}

func (c *Combat) onRepSecondaryWeapon(last *weapon.Weapon) {
	w := c.SecondaryWeapon()
	if w == nil || c.ch == nil {
		return
	}
	w.SetIsHovering(false)
	c.stopMontages()
	w.SetState(core.WeaponEquippedSecondary)
	c.attachToBackpack(w)
	if last == nil {
		c.playSound(w)
	}
}

func (c *Combat) onRepCombatState() {
	switch c.state {
	case core.Reloading:
		c.handleReload()
	case core.Unoccupied:
		if c.fireButton {
			c.Fire()
		}
	case core.ThrowingGrenade:
		if c.ch != nil && !c.role.Local {
			c.attachToLeftHand(c.EquippedWeapon())
			if c.env.Anim != nil {
				c.env.Anim.PlayThrowGrenadeMontage()
			}
			c.showAttachedGrenade(true)
		}
	}
}

func (c *Combat) onRepCarriedAmmo() {
	w := c.EquippedWeapon()
	jump := w != nil &&
		w.Type() == core.Shotgun &&
		c.state == core.Reloading &&
		c.ch != nil &&
		c.carried == 0
	if jump {
		c.jumpToShotgunEnd()
	}
	if h := c.hud(); h != nil {
		h.SetCarriedAmmo(c.carried)
	}
}
