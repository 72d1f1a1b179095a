// Package combat is the per-player combat component: equipped weapons,
// the combat state machine, fire gating, reloads and the grenade economy.
//
// Canonical state is only mutated where Role.Authority is set. Other
// participants send requests through Env.Link and learn the outcome from
// replicated properties applied through OnReplicated.
package combat

import (
	"time"

	"github.com/blasternet/combatsync/internal/ammo"
	"github.com/blasternet/combatsync/internal/scheduler"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
)

// Attachment sockets on the character mesh.
const (
	RightHandSocket      = "RightHandSocket"
	LeftHandSocket       = "LeftHandSocket"
	LeftHandPistolSocket = "LeftHandPistolSocket"
)

// ShotgunEndSection is the reload montage section that closes a shell-by-shell reload.
const ShotgunEndSection = "ShotgunEnd"

// TraceLength is the reach of the crosshair trace.
const TraceLength = 80000.0

// PickupRadius is how close a character must stand to a weapon to pick it up.
const PickupRadius = 200.0

// FireTolerance is how much earlier than the fire delay the authority
// still accepts a repeated fire request.
const FireTolerance = 50 * time.Millisecond

// Config holds the combat tunables.
type Config struct {
	MaxAmmo          int
	StartingGrenades int
	StartingAmmo     map[core.WeaponType]int
	SwapDelay        time.Duration
	ZoomInterpSpeed  float64
	TraceLength      float64
	TraceStartOffset float64
	PickupRadius     float64
	FireTolerance    time.Duration
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		MaxAmmo:          ammo.DefaultMaxAmmo,
		StartingGrenades: ammo.DefaultStartingGrenades,
		StartingAmmo:     ammo.DefaultStarting(),
		SwapDelay:        250 * time.Millisecond,
		ZoomInterpSpeed:  20,
		TraceLength:      TraceLength,
		TraceStartOffset: 80,
		PickupRadius:     PickupRadius,
		FireTolerance:    FireTolerance,
	}
}

type crosshairFactors struct {
	velocity  float64
	inAir     float64
	aim       float64
	shooting  float64
	character float64
	color     Color
}

// Combat is one player's combat component as seen by one participant.
type Combat struct {
	ch   *Character
	role Role
	env  Env
	cfg  Config

	// replicated
	equipped  core.WeaponID
	secondary core.WeaponID
	aiming    bool
	state     core.CombatState
	carried   int // owner-only
	grenades  int

	// authority only
	ledger      *ammo.Ledger
	lastFire    time.Duration
	hasFired    bool
	grenadeHeld bool // thrown and not yet launched

	// local only
	fireButton bool
	canFire    bool
	hitTarget  core.Vector
	fireTimer  scheduler.Handle
	swapTimer  scheduler.Handle
	defaultFOV float64
	currentFOV float64
	crosshair  crosshairFactors
}

// New creates the component for character ch.
func New(ch *Character, role Role, env Env, cfg Config) *Combat {
	if cfg.TraceLength == 0 {
		cfg.TraceLength = TraceLength
	}
	if cfg.PickupRadius == 0 {
		cfg.PickupRadius = PickupRadius
	}
	return &Combat{
		ch:       ch,
		role:     role,
		env:      env,
		cfg:      cfg,
		grenades: cfg.StartingGrenades,
		ledger:   ammo.NewLedger(cfg.MaxAmmo),
		canFire:  true,
	}
}

// BeginPlay applies the base walk speed, captures the camera FOV and seeds
// carried ammo on the authority.
func (c *Combat) BeginPlay() {
	if c.ch == nil || c.ch.Camera == nil {
		return
	}
	c.ch.MaxWalkSpeed = c.ch.BaseWalkSpeed
	c.defaultFOV = c.ch.Camera.FOV
	c.currentFOV = c.defaultFOV
	if c.role.Authority {
		c.ledger.Seed(c.cfg.StartingAmmo)
	}
}

// Tick runs the local-only per-frame work: aim trace, crosshair and FOV.
func (c *Combat) Tick(dt time.Duration) {
	if c.ch == nil || !c.role.Local {
		return
	}
	hit := c.TraceUnderCrosshairs()
	c.hitTarget = hit.Point
	c.setHUDCrosshairs(dt.Seconds())
	c.interpFOV(dt.Seconds())
}

func (c *Combat) Character() *Character            { return c.ch }
func (c *Combat) Role() Role                       { return c.role }
func (c *Combat) State() core.CombatState          { return c.state }
func (c *Combat) EquippedID() core.WeaponID        { return c.equipped }
func (c *Combat) SecondaryID() core.WeaponID       { return c.secondary }
func (c *Combat) Aiming() bool                     { return c.aiming }
func (c *Combat) CarriedAmmo() int                 { return c.carried }
func (c *Combat) Grenades() int                    { return c.grenades }
func (c *Combat) FireButtonHeld() bool             { return c.fireButton }
func (c *Combat) HitTarget() core.Vector           { return c.hitTarget }
func (c *Combat) SetHitTarget(p core.Vector)       { c.hitTarget = p }
func (c *Combat) CurrentFOV() float64              { return c.currentFOV }
func (c *Combat) Ledger() *ammo.Ledger             { return c.ledger }
func (c *Combat) CarriedFor(t core.WeaponType) int { return c.ledger.Carried(t) }

// EquippedWeapon resolves the primary weapon. It is nil when none is held
// or when the reference has replicated before the weapon itself.
func (c *Combat) EquippedWeapon() *weapon.Weapon { return c.lookup(c.equipped) }

// SecondaryWeapon resolves the backpack weapon.
func (c *Combat) SecondaryWeapon() *weapon.Weapon { return c.lookup(c.secondary) }

func (c *Combat) lookup(id core.WeaponID) *weapon.Weapon {
	if id == core.NoWeapon || c.env.Weapons == nil {
		return nil
	}
	w, ok := c.env.Weapons.Get(id)
	if !ok {
		return nil
	}
	return w
}

func (c *Combat) hud() HUD {
	if c.env.HUD == nil {
		return nil
	}
	h, ok := c.env.HUD()
	if !ok {
		return nil
	}
	return h
}

// setState moves along the allowed edges only: Unoccupied to an action and
// back. It reports whether the state is now to.
func (c *Combat) setState(to core.CombatState) bool {
	if c.state == to {
		return true
	}
	if c.state != core.Unoccupied && to != core.Unoccupied {
		return false
	}
	c.state = to
	return true
}

func (c *Combat) playSound(w *weapon.Weapon) {
	if c.env.Sound == nil || w == nil || w.Archetype().EquipSound == "" {
		return
	}
	c.env.Sound.PlayAt(w.Archetype().EquipSound, c.ch.Location)
}

func (c *Combat) stopMontages() {
	if c.env.Anim != nil {
		c.env.Anim.StopAllMontages()
	}
}
