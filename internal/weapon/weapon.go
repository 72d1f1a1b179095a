// Package weapon implements the weapon lifecycle, its magazine and the
// weapon-to-owner relation table.
package weapon

import (
	"github.com/blasternet/combatsync/pkg/core"
)

// Collision is the collision mode of a weapon part.
type Collision uint8

const (
	NoCollision Collision = iota
	QueryOnly
	QueryAndPhysics
)

// Presentation is the locally derived visual and collision state. It is
// never replicated; every observer rebuilds it from the replicated state.
type Presentation struct {
	PickupWidget  bool
	AreaSphere    Collision
	MeshCollision Collision
	Physics       bool
	Gravity       bool
	Hovering      bool
	Scatter       bool
	Socket        string // attachment socket on the holder, empty when detached
}

// Effects receives the cosmetic and projectile side of a fire action.
type Effects interface {
	WeaponFired(w *Weapon, target core.Vector)
}

// Weapon is one weapon instance.
type Weapon struct {
	id        core.WeaponID
	arch      Archetype
	ammo      int
	state     core.WeaponState
	authority bool
	registry  *Registry
	location  core.Vector

	Presentation
}

func (w *Weapon) ID() core.WeaponID           { return w.id }
func (w *Weapon) Type() core.WeaponType       { return w.arch.Type }
func (w *Weapon) Archetype() Archetype        { return w.arch }
func (w *Weapon) Capacity() int               { return w.arch.Capacity }
func (w *Weapon) Ammo() int                   { return w.ammo }
func (w *Weapon) State() core.WeaponState     { return w.state }
func (w *Weapon) Location() core.Vector       { return w.location }
func (w *Weapon) SetLocation(loc core.Vector) { w.location = loc }

// IsEmpty reports an empty magazine.
func (w *Weapon) IsEmpty() bool { return w.ammo <= 0 }

// IsFull reports a full magazine.
func (w *Weapon) IsFull() bool { return w.ammo == w.arch.Capacity }

// Owner returns the holder from the relation table.
func (w *Weapon) Owner() (core.PlayerID, bool) { return w.registry.Owner(w.id) }

// SetOwner records p as the holder and refreshes the holder's ammo readout.
func (w *Weapon) SetOwner(p core.PlayerID) {
	w.registry.setOwner(w.id, p)
	w.SetHUDAmmo()
}

// BeginPlay hides the pickup prompt and, on the authority, arms the pickup sphere.
func (w *Weapon) BeginPlay() {
	w.PickupWidget = false
	if w.authority {
		w.AreaSphere = QueryAndPhysics
	}
}

// SetState changes the lifecycle state on the authority and applies its side effects.
func (w *Weapon) SetState(s core.WeaponState) {
	from := w.state
	w.state = s
	switch s {
	case core.WeaponEquipped, core.WeaponEquippedSecondary:
		w.PickupWidget = false
		w.AreaSphere = NoCollision
		w.disableMesh()
	case core.WeaponDropped:
		if w.authority {
			w.AreaSphere = QueryOnly
		}
		w.enableMesh()
	}
	if from != s {
		w.registry.transitioned(w, from, s)
	}
}

// OnStateReplicated mirrors SetState on an observer. The pickup sphere is
// authority-only and left untouched.
func (w *Weapon) OnStateReplicated(s core.WeaponState) {
	w.state = s
	switch s {
	case core.WeaponEquipped, core.WeaponEquippedSecondary:
		w.PickupWidget = false
		w.disableMesh()
	case core.WeaponDropped:
		w.enableMesh()
	}
}

func (w *Weapon) disableMesh() {
	w.Physics = false
	w.Gravity = false
	w.MeshCollision = NoCollision
}

func (w *Weapon) enableMesh() {
	w.Physics = true
	w.Gravity = true
	w.MeshCollision = QueryAndPhysics
}

// Attach parents the weapon to a holder socket.
func (w *Weapon) Attach(socket string) {
	w.Physics = false
	w.Socket = socket
}

// Dropped detaches the weapon and clears its owner.
func (w *Weapon) Dropped() {
	w.SetState(core.WeaponDropped)
	w.Socket = ""
	w.registry.clearOwner(w.id)
}

// Fire plays the fire effect and, on the authority, spends one round.
func (w *Weapon) Fire(target core.Vector) {
	if fx := w.registry.effects; fx != nil {
		fx.WeaponFired(w, target)
	}
	w.SpendRound()
}

// SpendRound removes one round on the authority.
func (w *Weapon) SpendRound() {
	if !w.authority {
		return
	}
	w.ammo = clamp(w.ammo-1, 0, w.arch.Capacity)
	w.SetHUDAmmo()
}

// AddAmmo SUBTRACTS n from the magazine: a positive argument removes rounds,
// a reload passes the negated reload amount.
func (w *Weapon) AddAmmo(n int) {
	w.ammo = clamp(w.ammo-n, 0, w.arch.Capacity)
	w.SetHUDAmmo()
}

// OnAmmoReplicated applies the authority's magazine count.
func (w *Weapon) OnAmmoReplicated(n int) {
	w.ammo = clamp(n, 0, w.arch.Capacity)
	w.SetHUDAmmo()
}

// OnOwnerReplicated applies an owner change. A zero player clears the owner.
func (w *Weapon) OnOwnerReplicated(p core.PlayerID) {
	if p == 0 {
		w.registry.clearOwner(w.id)
		return
	}
	w.registry.setOwner(w.id, p)
	w.SetHUDAmmo()
}

// SetHUDAmmo pushes the magazine count to the holder's readout. Skipped
// without a holder or a display.
func (w *Weapon) SetHUDAmmo() {
	owner, ok := w.Owner()
	if !ok || w.registry.displays == nil {
		return
	}
	if d, ok := w.registry.displays(owner); ok && d != nil {
		d.SetWeaponAmmo(w.ammo)
	}
}

// SetIsHovering toggles the idle pickup hover effect.
func (w *Weapon) SetIsHovering(b bool) { w.Hovering = b }

// SetScatter toggles hitscan spread. Projectile weapons ignore it.
func (w *Weapon) SetScatter(b bool) {
	if w.arch.Hitscan {
		w.Scatter = b
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
