// pkg/core/types.go
package core

import "math"

// PlayerID identifies a connected player session.
type PlayerID uint32

// WeaponID identifies a weapon instance in the world. Zero means no weapon.
type WeaponID uint32

// NoWeapon is the empty weapon reference.
const NoWeapon WeaponID = 0

// WeaponType enumerates the weapon families that share a carried-ammo pool.
type WeaponType uint8

const (
	AssaultRifle WeaponType = iota
	RocketLauncher
	Pistol
	SubmachineGun
	Shotgun
	SniperRifle
	GrenadeLauncher

	weaponTypeCount
)

var weaponTypeNames = [...]string{
	AssaultRifle:    "AssaultRifle",
	RocketLauncher:  "RocketLauncher",
	Pistol:          "Pistol",
	SubmachineGun:   "SMG",
	Shotgun:         "Shotgun",
	SniperRifle:     "SniperRifle",
	GrenadeLauncher: "GrenadeLauncher",
}

// WeaponTypes returns every weapon type in declaration order.
func WeaponTypes() []WeaponType {
	out := make([]WeaponType, 0, weaponTypeCount)
	for t := WeaponType(0); t < weaponTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t is a known weapon type.
func (t WeaponType) Valid() bool { return t < weaponTypeCount }

func (t WeaponType) String() string {
	if !t.Valid() {
		return "Unknown"
	}
	return weaponTypeNames[t]
}

// ParseWeaponType maps a name produced by String back to its type.
func ParseWeaponType(s string) (WeaponType, bool) {
	for i, name := range weaponTypeNames {
		if name == s {
			return WeaponType(i), true
		}
	}
	return 0, false
}

// WeaponState is the lifecycle state of a weapon instance.
type WeaponState uint8

const (
	WeaponInitial WeaponState = iota
	WeaponEquipped
	WeaponEquippedSecondary
	WeaponDropped
)

func (s WeaponState) String() string {
	switch s {
	case WeaponInitial:
		return "Initial"
	case WeaponEquipped:
		return "Equipped"
	case WeaponEquippedSecondary:
		return "EquippedSecondary"
	case WeaponDropped:
		return "Dropped"
	}
	return "Unknown"
}

// CombatState is the action a player is currently committed to.
type CombatState uint8

const (
	Unoccupied CombatState = iota
	Reloading
	ThrowingGrenade
)

func (s CombatState) String() string {
	switch s {
	case Unoccupied:
		return "Unoccupied"
	case Reloading:
		return "Reloading"
	case ThrowingGrenade:
		return "ThrowingGrenade"
	}
	return "Unknown"
}

// Vector is a point or direction in level space.
type Vector struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vector) Scale(f float64) Vector { return Vector{v.X * f, v.Y * f, v.Z * f} }

// Len returns the Euclidean length.
func (v Vector) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Len2D returns the length ignoring the vertical component.
func (v Vector) Len2D() float64 { return math.Hypot(v.X, v.Y) }

// Normalize returns the unit vector, or the zero vector for a zero-length input.
func (v Vector) Normalize() Vector {
	l := v.Len()
	if l == 0 {
		return Vector{}
	}
	return v.Scale(1 / l)
}
