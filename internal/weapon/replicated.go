package weapon

import (
	"time"

	"github.com/blasternet/combatsync/internal/replication"
	"github.com/blasternet/combatsync/pkg/core"
)

// Entity identifies the weapon on the wire.
func (w *Weapon) Entity() replication.Entity {
	return replication.Entity{Kind: replication.KindWeapon, ID: uint32(w.id)}
}

// Fields lists the replicated weapon properties.
func (w *Weapon) Fields() []replication.Field {
	owner, _ := w.Owner()
	return []replication.Field{
		{Prop: replication.PropWeaponState, Value: replication.IntValue(w.state)},
		{Prop: replication.PropAmmo, Value: replication.IntValue(w.ammo)},
		{Prop: replication.PropOwner, Value: replication.IntValue(owner)},
	}
}

// Tick is a no-op; weapons do not tick.
func (w *Weapon) Tick(time.Duration) {}

// OnReplicated routes a property change to its hook.
func (w *Weapon) OnReplicated(prop string, v replication.Value) {
	switch prop {
	case replication.PropWeaponState:
		w.OnStateReplicated(core.WeaponState(v.Int))
	case replication.PropAmmo:
		w.OnAmmoReplicated(int(v.Int))
	case replication.PropOwner:
		w.OnOwnerReplicated(core.PlayerID(v.Int))
	}
}

type sourceAdapter struct{ *Weapon }

func (s sourceAdapter) Owner() uint32 {
	p, _ := s.Weapon.Owner()
	return uint32(p)
}

// Source exposes the weapon to a replication tracker.
func (w *Weapon) Source() replication.Source { return sourceAdapter{w} }
