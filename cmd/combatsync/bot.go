package main

import (
	"math/rand/v2"
	"time"

	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/internal/netsync"
	"github.com/blasternet/combatsync/pkg/core"
)

// botInterval is how often a bot picks a new action, in its client time.
const botInterval = 300 * time.Millisecond

// bot drives one client with a fixed routine: pick up its weapons, then
// mostly shoot at the nearest opponent, sometimes reloading, throwing a
// grenade or swapping weapons.
type bot struct {
	client  *netsync.Client
	weapons []core.WeaponID
	rng     *rand.Rand

	next    time.Duration
	firing  bool
	actions int
}

func newBot(c *netsync.Client, weapons []core.WeaponID, seed uint64) *bot {
	return &bot{
		client:  c,
		weapons: weapons,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Act runs before the client ticks. A shot is aimed on one frame and fired
// on the next so the aim trace has run in between.
func (b *bot) Act(opponents []core.PlayerID) {
	pawn, ok := b.client.Pawn()
	if !ok {
		return
	}
	if b.firing {
		b.firing = false
		pawn.FireButtonPressed(true)
		pawn.FireButtonPressed(false)
		return
	}

	now := b.client.Now()
	if now < b.next {
		return
	}
	b.next = now + botInterval
	if b.client.Controller().State() != core.InProgress {
		return
	}
	if b.pickUp(pawn) {
		return
	}

	b.actions++
	switch roll := b.rng.IntN(20); {
	case roll < 14:
		if target, ok := b.nearest(pawn, opponents); ok {
			b.client.AimAt(target)
			b.firing = true
		}
	case roll < 16:
		pawn.Reload()
	case roll < 18:
		pawn.ThrowGrenade()
	default:
		b.client.Swap()
	}
}

// pickUp requests the next weapon the pawn is not holding yet.
func (b *bot) pickUp(pawn *combat.Combat) bool {
	for _, id := range b.weapons {
		if pawn.EquippedID() == id || pawn.SecondaryID() == id {
			continue
		}
		if pawn.EquippedID() != core.NoWeapon && pawn.SecondaryID() != core.NoWeapon {
			return false
		}
		b.client.Equip(id)
		return true
	}
	return false
}

func (b *bot) nearest(pawn *combat.Combat, opponents []core.PlayerID) (core.Vector, bool) {
	from := pawn.Character().Location
	var (
		best  core.Vector
		found bool
		dist  float64
	)
	for _, p := range opponents {
		if p == b.client.Player() {
			continue
		}
		r, ok := b.client.Replica(p)
		if !ok {
			continue
		}
		at := r.Character().Location
		if d := at.Sub(from).Len(); !found || d < dist {
			best, dist, found = at, d, true
		}
	}
	return best, found
}
