// Package ammo holds the per-player carried-ammo pool and the reload arithmetic.
package ammo

import "github.com/blasternet/combatsync/pkg/core"

// Defaults used when configuration does not override them.
const (
	DefaultMaxAmmo          = 500
	DefaultStartingGrenades = 4
)

// DefaultStarting returns the carried ammo each player begins a match with.
func DefaultStarting() map[core.WeaponType]int {
	return map[core.WeaponType]int{
		core.AssaultRifle:    60,
		core.RocketLauncher:  8,
		core.Pistol:          30,
		core.SubmachineGun:   60,
		core.Shotgun:         10,
		core.SniperRifle:     6,
		core.GrenadeLauncher: 8,
	}
}

// Ledger maps weapon type to carried rounds. Values stay within [0, max].
type Ledger struct {
	max     int
	carried map[core.WeaponType]int
}

// NewLedger returns an empty ledger capped at max.
func NewLedger(max int) *Ledger {
	return &Ledger{max: max, carried: make(map[core.WeaponType]int)}
}

// Seed replaces the pool with the starting values.
func (l *Ledger) Seed(starting map[core.WeaponType]int) {
	l.carried = make(map[core.WeaponType]int, len(starting))
	for t, n := range starting {
		l.carried[t] = clamp(n, 0, l.max)
	}
}

// Max is the cap applied to every entry.
func (l *Ledger) Max() int { return l.max }

// Has reports whether the type has an entry. Types missing from the seed
// never accept pickups.
func (l *Ledger) Has(t core.WeaponType) bool {
	_, ok := l.carried[t]
	return ok
}

// Carried returns the rounds held for t.
func (l *Ledger) Carried(t core.WeaponType) int { return l.carried[t] }

// Pickup adds amount to t, clamped to [0, max]. It reports whether t has an entry.
func (l *Ledger) Pickup(t core.WeaponType, amount int) bool {
	n, ok := l.carried[t]
	if !ok {
		return false
	}
	l.carried[t] = clamp(n+amount, 0, l.max)
	return true
}

// Spend removes amount rounds from t and returns the remainder.
func (l *Ledger) Spend(t core.WeaponType, amount int) int {
	n, ok := l.carried[t]
	if !ok {
		return 0
	}
	n = clamp(n-amount, 0, l.max)
	l.carried[t] = n
	return n
}

// Snapshot copies the pool.
func (l *Ledger) Snapshot() map[core.WeaponType]int {
	out := make(map[core.WeaponType]int, len(l.carried))
	for t, n := range l.carried {
		out[t] = n
	}
	return out
}

// AmountToReload is min(capacity-current, carried), never negative.
func AmountToReload(capacity, current, carried int) int {
	room := capacity - current
	least := min(room, carried)
	return clamp(room, 0, least)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
