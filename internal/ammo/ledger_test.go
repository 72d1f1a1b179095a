package ammo

import (
	"testing"

	"github.com/blasternet/combatsync/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestSeedUsesStartingValues(t *testing.T) {
	l := NewLedger(DefaultMaxAmmo)
	l.Seed(DefaultStarting())

	assert.Equal(t, 60, l.Carried(core.AssaultRifle))
	assert.Equal(t, 8, l.Carried(core.RocketLauncher))
	assert.Equal(t, 30, l.Carried(core.Pistol))
	assert.Equal(t, 60, l.Carried(core.SubmachineGun))
	assert.Equal(t, 10, l.Carried(core.Shotgun))
	assert.Equal(t, 6, l.Carried(core.SniperRifle))
	assert.Equal(t, 8, l.Carried(core.GrenadeLauncher))
	for _, wt := range core.WeaponTypes() {
		assert.True(t, l.Has(wt), wt.String())
	}
}

func TestPickupClampsToMax(t *testing.T) {
	l := NewLedger(500)
	l.Seed(map[core.WeaponType]int{core.Pistol: 490})

	assert.True(t, l.Pickup(core.Pistol, 30))
	assert.Equal(t, 500, l.Carried(core.Pistol))

	assert.True(t, l.Pickup(core.Pistol, -900))
	assert.Equal(t, 0, l.Carried(core.Pistol))
}

func TestPickupIgnoresUnseededType(t *testing.T) {
	l := NewLedger(500)
	l.Seed(map[core.WeaponType]int{core.Pistol: 10})

	assert.False(t, l.Pickup(core.Shotgun, 5))
	assert.False(t, l.Has(core.Shotgun))
}

func TestSpendNeverGoesNegative(t *testing.T) {
	l := NewLedger(500)
	l.Seed(map[core.WeaponType]int{core.Shotgun: 1})

	assert.Equal(t, 0, l.Spend(core.Shotgun, 1))
	assert.Equal(t, 0, l.Spend(core.Shotgun, 1))
}

func TestAmountToReload(t *testing.T) {
	cases := []struct {
		name                       string
		capacity, current, carried int
		want                       int
	}{
		{"room limited", 30, 10, 50, 20},
		{"carried limited", 30, 10, 5, 5},
		{"full magazine", 30, 30, 50, 0},
		{"nothing carried", 30, 0, 0, 0},
		{"overfull magazine", 30, 31, 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AmountToReload(tc.capacity, tc.current, tc.carried)
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 0)
		})
	}
}

func TestCarriedStaysWithinBounds(t *testing.T) {
	l := NewLedger(100)
	l.Seed(DefaultStarting())
	amounts := []int{90, 90, -500, 7, 300, -3}
	for _, a := range amounts {
		for _, wt := range core.WeaponTypes() {
			l.Pickup(wt, a)
			n := l.Carried(wt)
			assert.GreaterOrEqual(t, n, 0)
			assert.LessOrEqual(t, n, 100)
		}
	}
}
