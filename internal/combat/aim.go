package combat

import (
	"math"

	"github.com/blasternet/combatsync/pkg/core"
)

// Crosshair spread tuning.
const (
	spreadBase           = 0.5
	inAirSpread          = 2.25
	inAirInterpSpeed     = 2.2
	landedInterpSpeed    = 30
	aimSpread            = 0.58
	aimInterpSpeed       = 30
	shootingInterpSpeed  = 40
	characterSpread      = 0.7
	crouchVelocitySpread = 0.5
)

// SetAiming changes the aiming flag locally and on the authority.
func (c *Combat) SetAiming(aiming bool) {
	w := c.EquippedWeapon()
	if w == nil || c.ch == nil {
		return
	}
	c.aiming = aiming
	if !c.role.Authority && c.env.Link != nil {
		c.env.Link.SetAiming(aiming)
	}
	c.applyAimSpeed(aiming)
	if aiming {
		c.ch.Sensitivity = w.Archetype().AimSensitivity
	} else {
		c.ch.Sensitivity = 1
	}
	if c.role.Local && w.Type() == core.SniperRifle {
		c.ch.ScopeVisible = aiming
		c.ch.DrawCrosshair = !aiming
		w.SetScatter(!aiming)
		if h := c.hud(); h != nil {
			if aiming {
				h.HideCharacterOverlay()
			} else {
				h.ShowCharacterOverlay()
			}
		}
	}
}

// ServerSetAiming applies a remote aiming change on the authority.
func (c *Combat) ServerSetAiming(aiming bool) {
	if c.EquippedWeapon() == nil || c.ch == nil {
		return
	}
	c.aiming = aiming
	c.applyAimSpeed(aiming)
}

func (c *Combat) applyAimSpeed(aiming bool) {
	if aiming {
		c.ch.MaxWalkSpeed = c.ch.AimWalkSpeed
	} else {
		c.ch.MaxWalkSpeed = c.ch.BaseWalkSpeed
	}
}

// TraceUnderCrosshairs casts from the screen centre into the world. The
// ray starts just past the character; an unblocked ray yields its far end.
func (c *Combat) TraceUnderCrosshairs() Hit {
	if c.ch == nil || c.ch.Camera == nil {
		return Hit{Point: c.hitTarget}
	}
	dir := c.ch.Camera.Direction.Normalize()
	start := c.ch.Camera.Location
	toCharacter := c.ch.Location.Sub(start).Len()
	start = start.Add(dir.Scale(toCharacter + c.cfg.TraceStartOffset))
	end := start.Add(dir.Scale(c.cfg.TraceLength))

	var hit Hit
	if c.env.World != nil {
		hit = c.env.World.LineTrace(start, end, c.ch.ID)
	}
	if hit.Interactive {
		c.crosshair.color = Red
		c.crosshair.character = characterSpread
	} else {
		c.crosshair.color = White
		c.crosshair.character = 0
	}
	if !hit.Blocking {
		hit.Point = end
	}
	return hit
}

func (c *Combat) setHUDCrosshairs(dt float64) {
	h := c.hud()
	if c.ch == nil || h == nil {
		return
	}
	w := c.EquippedWeapon()
	if c.ch.GameplayDisabled || !c.ch.DrawCrosshair || w == nil {
		h.SetDrawCrosshair(false)
		return
	}
	h.SetCrosshair(Crosshair{
		Spread: c.CrosshairSpread(dt),
		Color:  c.crosshair.color,
		Set:    w.Archetype().Name,
	})
	h.SetDrawCrosshair(true)
}

// CrosshairSpread advances the spread factors by dt seconds and returns the total.
func (c *Combat) CrosshairSpread(dt float64) float64 {
	maxSpeed := c.ch.MaxSpeed()
	outMax := 1.0
	if c.ch.Crouched {
		outMax = crouchVelocitySpread
	}
	v := c.ch.Velocity
	v.Z = 0
	f := &c.crosshair
	f.velocity = mapRangeClamped(0, maxSpeed, 0, outMax, v.Len())

	if c.ch.InAir {
		f.inAir = interpTo(f.inAir, inAirSpread, dt, inAirInterpSpeed)
	} else {
		f.inAir = interpTo(f.inAir, 0, dt, landedInterpSpeed)
	}
	if c.aiming {
		f.aim = interpTo(f.aim, aimSpread, dt, aimInterpSpeed)
	} else {
		f.aim = interpTo(f.aim, 0, dt, aimInterpSpeed)
	}
	f.shooting = interpTo(f.shooting, 0, dt, shootingInterpSpeed)

	return spreadBase + f.velocity + f.inAir - f.aim + f.character + f.shooting
}

func (c *Combat) interpFOV(dt float64) {
	w := c.EquippedWeapon()
	if w == nil || c.ch == nil || c.ch.Camera == nil {
		return
	}
	if c.aiming {
		c.currentFOV = interpTo(c.currentFOV, w.Archetype().ZoomedFOV, dt, w.Archetype().ZoomInterpSpeed)
	} else {
		c.currentFOV = interpTo(c.currentFOV, c.defaultFOV, dt, c.cfg.ZoomInterpSpeed)
	}
	c.ch.Camera.FOV = c.currentFOV
}

// interpTo moves current toward target at speed per second, never overshooting.
func interpTo(current, target, dt, speed float64) float64 {
	if speed <= 0 {
		return target
	}
	dist := target - current
	if dist*dist < 1e-8 {
		return target
	}
	step := math.Max(0, math.Min(dt*speed, 1))
	return current + dist*step
}

func mapRangeClamped(inMin, inMax, outMin, outMax, v float64) float64 {
	var pct float64
	if d := inMax - inMin; math.Abs(d) < 1e-8 {
		if v >= inMax {
			pct = 1
		}
	} else {
		pct = math.Max(0, math.Min((v-inMin)/d, 1))
	}
	return outMin + (outMax-outMin)*pct
}
