package combat

import (
	"time"

	"github.com/blasternet/combatsync/internal/scheduler"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
)

// Timers is the one-shot timer service of the owning world.
type Timers interface {
	Schedule(delay time.Duration, fn func()) scheduler.Handle
	Cancel(h scheduler.Handle) bool
	Active(h scheduler.Handle) bool
	Now() time.Duration
}

// Hit is the result of a line trace.
type Hit struct {
	Blocking    bool
	Point       core.Vector
	Interactive bool // the hit actor reacts to crosshairs
	Player      core.PlayerID
}

// World answers visibility traces.
type World interface {
	LineTrace(start, end core.Vector, ignore core.PlayerID) Hit
}

// Animator plays montages on the owning character.
type Animator interface {
	PlayFireMontage(aiming bool)
	PlayReloadMontage(t core.WeaponType)
	PlayThrowGrenadeMontage()
	JumpToReloadSection(section string)
	StopAllMontages()
}

// Sounds plays positional cues.
type Sounds interface {
	PlayAt(cue string, at core.Vector)
}

// Color of the crosshair.
type Color uint8

const (
	White Color = iota
	Red
)

// Crosshair is the HUD package pushed every local tick.
type Crosshair struct {
	Spread float64
	Color  Color
	Set    string // crosshair texture set, named after the weapon archetype
}

// HUD is the owning controller's heads-up display.
type HUD interface {
	SetCarriedAmmo(n int)
	SetWeaponIcon(icon string)
	SetGrenades(n int)
	ShowCharacterOverlay()
	HideCharacterOverlay()
	SetCrosshair(c Crosshair)
	SetDrawCrosshair(draw bool)
}

// Link delivers server requests from a non-authoritative participant.
type Link interface {
	SetAiming(aiming bool)
	Reload()
	Fire(target core.Vector)
	ThrowGrenade()
	LaunchGrenade(target core.Vector)
}

// Broadcaster sends authority notifications to every other observer.
type Broadcaster interface {
	MulticastFire(player core.PlayerID, target core.Vector)
}

// GrenadeSpawner creates thrown grenade projectiles on the authority.
type GrenadeSpawner interface {
	SpawnGrenade(owner core.PlayerID, origin, target core.Vector)
}

// Telemetry observes accepted actions on the authority.
type Telemetry interface {
	Fired(player core.PlayerID, w *weapon.Weapon, target core.Vector, aiming bool)
	Reloaded(player core.PlayerID, w *weapon.Weapon, amount, carried int, shell bool)
	GrenadeThrown(player core.PlayerID, remaining int)
	GrenadeLaunched(player core.PlayerID, origin, target core.Vector)
}

// Env is the context a combat component works against. Only Timers and
// Weapons are required; every other collaborator may be nil and its side
// effects are then skipped.
type Env struct {
	Timers    Timers
	Weapons   *weapon.Registry
	World     World
	Anim      Animator
	Sound     Sounds
	HUD       func() (HUD, bool)
	Link      Link
	Broadcast Broadcaster
	Grenades  GrenadeSpawner
	Telemetry Telemetry
}

// Role is the participant's relation to the owning player.
type Role struct {
	Authority bool
	Local     bool
}
