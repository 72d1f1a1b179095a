package combat

import "github.com/blasternet/combatsync/pkg/core"

// Camera is the character's follow camera.
type Camera struct {
	Location  core.Vector
	Direction core.Vector
	FOV       float64
}

// Character is the pawn state the combat component reads and drives.
type Character struct {
	ID       core.PlayerID
	Location core.Vector
	Velocity core.Vector
	Crouched bool
	InAir    bool

	BaseWalkSpeed   float64
	AimWalkSpeed    float64
	CrouchWalkSpeed float64
	MaxWalkSpeed    float64
	Sensitivity     float64

	GameplayDisabled bool
	DrawCrosshair    bool
	OrientToMovement bool
	UseControllerYaw bool
	ScopeVisible     bool
	GrenadeVisible   bool
	GrenadeOffset    core.Vector // attached grenade relative to Location

	Camera *Camera
}

// NewCharacter returns a pawn with the stock movement tuning.
func NewCharacter(id core.PlayerID, at core.Vector) *Character {
	return &Character{
		ID:               id,
		Location:         at,
		BaseWalkSpeed:    600,
		AimWalkSpeed:     450,
		CrouchWalkSpeed:  300,
		MaxWalkSpeed:     600,
		Sensitivity:      1,
		DrawCrosshair:    true,
		OrientToMovement: true,
		GrenadeOffset:    core.Vector{X: 10, Y: -20, Z: 60},
		Camera: &Camera{
			Location:  at.Add(core.Vector{X: -170, Z: 90}),
			Direction: core.Vector{X: 1},
			FOV:       90,
		},
	}
}

// AttachedGrenadeLocation is the world position of the held grenade.
func (c *Character) AttachedGrenadeLocation() core.Vector {
	return c.Location.Add(c.GrenadeOffset)
}

// MaxSpeed is the walk speed cap for the current stance.
func (c *Character) MaxSpeed() float64 {
	if c.Crouched {
		return c.CrouchWalkSpeed
	}
	return c.MaxWalkSpeed
}
