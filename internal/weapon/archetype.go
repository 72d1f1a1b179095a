package weapon

import (
	"time"

	"github.com/blasternet/combatsync/pkg/core"
)

// Archetype is the static definition a weapon instance is spawned from.
type Archetype struct {
	Name             string
	Type             core.WeaponType
	Capacity         int
	FireDelay        time.Duration
	Automatic        bool
	Damage           float64
	ProjectileSpeed  float64
	ServerSideRewind bool
	Hitscan          bool // hitscan weapons scatter unless scoped
	ZoomedFOV        float64
	ZoomInterpSpeed  float64
	AllowedGapToWall float64
	AimSensitivity   float64
	SecondarySocket  string
	Icon             string
	EquipSound       string
}

// DefaultArchetypes returns the stock arsenal keyed by name.
func DefaultArchetypes() map[string]Archetype {
	list := []Archetype{
		{Name: "assault_rifle", Type: core.AssaultRifle, Capacity: 30, FireDelay: 150 * time.Millisecond, Automatic: true,
			Damage: 20, ProjectileSpeed: 15000, ServerSideRewind: true, ZoomedFOV: 45, ZoomInterpSpeed: 20, AllowedGapToWall: 50, AimSensitivity: 0.7},
		{Name: "rocket_launcher", Type: core.RocketLauncher, Capacity: 1, FireDelay: 800 * time.Millisecond,
			Damage: 120, ProjectileSpeed: 1500, ZoomedFOV: 45, ZoomInterpSpeed: 20, AllowedGapToWall: 120, AimSensitivity: 0.8},
		{Name: "pistol", Type: core.Pistol, Capacity: 12, FireDelay: 250 * time.Millisecond,
			Damage: 15, Hitscan: true, ZoomedFOV: 60, ZoomInterpSpeed: 25, AllowedGapToWall: 30, AimSensitivity: 0.85},
		{Name: "smg", Type: core.SubmachineGun, Capacity: 40, FireDelay: 90 * time.Millisecond, Automatic: true,
			Damage: 10, Hitscan: true, ZoomedFOV: 55, ZoomInterpSpeed: 25, AllowedGapToWall: 30, AimSensitivity: 0.8},
		{Name: "shotgun", Type: core.Shotgun, Capacity: 6, FireDelay: 900 * time.Millisecond,
			Damage: 12, Hitscan: true, ZoomedFOV: 55, ZoomInterpSpeed: 20, AllowedGapToWall: 60, AimSensitivity: 0.85},
		{Name: "sniper_rifle", Type: core.SniperRifle, Capacity: 5, FireDelay: 1200 * time.Millisecond,
			Damage: 80, Hitscan: true, ZoomedFOV: 15, ZoomInterpSpeed: 30, AllowedGapToWall: 80, AimSensitivity: 0.3},
		{Name: "grenade_launcher", Type: core.GrenadeLauncher, Capacity: 4, FireDelay: 700 * time.Millisecond,
			Damage: 60, ProjectileSpeed: 2000, ZoomedFOV: 45, ZoomInterpSpeed: 20, AllowedGapToWall: 100, AimSensitivity: 0.8},
	}
	out := make(map[string]Archetype, len(list))
	for _, a := range list {
		if a.SecondarySocket == "" {
			a.SecondarySocket = "BackpackSocket"
		}
		a.Icon = a.Name + "_icon"
		a.EquipSound = a.Name + "_equip"
		out[a.Name] = a
	}
	return out
}
