package weapon

import (
	"slices"

	"github.com/blasternet/combatsync/pkg/core"
)

// AmmoDisplay is the part of a player's HUD that shows magazine ammo.
type AmmoDisplay interface {
	SetWeaponAmmo(ammo int)
}

// DisplayLookup resolves a player's HUD. ok is false when the player has none.
type DisplayLookup func(core.PlayerID) (AmmoDisplay, bool)

// TransitionFunc observes lifecycle changes made on the authority.
type TransitionFunc func(w *Weapon, from, to core.WeaponState)

// Registry holds every weapon instance of one participant and the
// weapon-to-holder relation.
type Registry struct {
	authority bool
	weapons   map[core.WeaponID]*Weapon
	owners    map[core.WeaponID]core.PlayerID
	nextID    core.WeaponID

	displays    DisplayLookup
	effects     Effects
	transitions []TransitionFunc
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDisplays sets how an owner's ammo readout is found.
func WithDisplays(fn DisplayLookup) RegistryOption {
	return func(r *Registry) { r.displays = fn }
}

// WithEffects sets the fire effect collaborator.
func WithEffects(fx Effects) RegistryOption {
	return func(r *Registry) { r.effects = fx }
}

// NewRegistry creates an empty registry.
func NewRegistry(authority bool, opts ...RegistryOption) *Registry {
	r := &Registry{
		authority: authority,
		weapons:   make(map[core.WeaponID]*Weapon),
		owners:    make(map[core.WeaponID]core.PlayerID),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnTransition registers fn for every authority state change.
func (r *Registry) OnTransition(fn TransitionFunc) {
	r.transitions = append(r.transitions, fn)
}

// SetEffects replaces the fire effect collaborator.
func (r *Registry) SetEffects(fx Effects) { r.effects = fx }

// Spawn creates a weapon with a fresh id, full magazine, in the Initial state.
func (r *Registry) Spawn(arch Archetype, at core.Vector) *Weapon {
	r.nextID++
	for r.weapons[r.nextID] != nil {
		r.nextID++
	}
	return r.SpawnWithID(r.nextID, arch, at)
}

// SpawnWithID creates a weapon under an id chosen by the authority.
func (r *Registry) SpawnWithID(id core.WeaponID, arch Archetype, at core.Vector) *Weapon {
	w := &Weapon{
		id:        id,
		arch:      arch,
		ammo:      arch.Capacity,
		state:     core.WeaponInitial,
		authority: r.authority,
		registry:  r,
		location:  at,
	}
	w.Hovering = true
	r.weapons[id] = w
	w.BeginPlay()
	return w
}

// Get looks up a weapon.
func (r *Registry) Get(id core.WeaponID) (*Weapon, bool) {
	w, ok := r.weapons[id]
	return w, ok
}

// Owner returns the holder of id.
func (r *Registry) Owner(id core.WeaponID) (core.PlayerID, bool) {
	p, ok := r.owners[id]
	return p, ok
}

// OwnedBy lists the weapons held by p in id order.
func (r *Registry) OwnedBy(p core.PlayerID) []core.WeaponID {
	var out []core.WeaponID
	for id, owner := range r.owners {
		if owner == p {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// All returns every weapon in id order.
func (r *Registry) All() []*Weapon {
	out := make([]*Weapon, 0, len(r.weapons))
	for _, w := range r.weapons {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b *Weapon) int { return int(a.id) - int(b.id) })
	return out
}

// Remove despawns a weapon and its ownership row.
func (r *Registry) Remove(id core.WeaponID) {
	delete(r.weapons, id)
	delete(r.owners, id)
}

// Len returns the number of live weapons.
func (r *Registry) Len() int { return len(r.weapons) }

func (r *Registry) setOwner(id core.WeaponID, p core.PlayerID) {
	if p == 0 {
		delete(r.owners, id)
		return
	}
	r.owners[id] = p
}

func (r *Registry) clearOwner(id core.WeaponID) {
	delete(r.owners, id)
}

func (r *Registry) transitioned(w *Weapon, from, to core.WeaponState) {
	if !r.authority {
		return
	}
	for _, fn := range r.transitions {
		fn(w, from, to)
	}
}
