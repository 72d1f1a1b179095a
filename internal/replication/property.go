// Package replication turns authority state into per-property deltas and
// applies them on observers through idempotent change hooks.
package replication

import "time"

// Entity kinds.
const (
	KindCombat     = "combat"
	KindWeapon     = "weapon"
	KindController = "controller"
	KindGameState  = "game_state"
)

// Property ids.
const (
	PropEquippedWeapon  = "EquippedWeapon"
	PropSecondaryWeapon = "SecondaryWeapon"
	PropAiming          = "Aiming"
	PropCombatState     = "CombatState"
	PropCarriedAmmo     = "CarriedAmmo"
	PropGrenades        = "Grenades"
	PropAmmo            = "Ammo"
	PropWeaponState     = "WeaponState"
	PropOwner           = "Owner"
	PropMatchState      = "MatchState"
	PropTopPlayers      = "TopScoringPlayers"
)

// Entity identifies a replicated object.
type Entity struct {
	Kind string
	ID   uint32
}

// Value is a replicated property value.
type Value struct {
	Int  int64
	Text string
}

// Bool decodes a boolean stored in Int.
func (v Value) Bool() bool { return v.Int != 0 }

// BoolValue encodes b.
func BoolValue(b bool) Value {
	if b {
		return Value{Int: 1}
	}
	return Value{}
}

// IntValue encodes n.
func IntValue[T ~int | ~int64 | ~uint8 | ~uint32](n T) Value { return Value{Int: int64(n)} }

// TextValue encodes s.
func TextValue(s string) Value { return Value{Text: s} }

// Field is one property of an authority-side object.
type Field struct {
	Prop      string
	Value     Value
	OwnerOnly bool
}

// Source is an authority-side object that exposes its replicated fields.
type Source interface {
	Entity() Entity
	Owner() uint32 // owning connection, zero for none
	Fields() []Field
}

// Component is the lifecycle every replicated object follows on every participant.
type Component interface {
	BeginPlay()
	Tick(dt time.Duration)
	OnReplicated(prop string, v Value)
}
