package netsync

import (
	"time"

	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/internal/geo"
	"github.com/blasternet/combatsync/internal/intake"
	"github.com/blasternet/combatsync/internal/lagcomp"
	"github.com/blasternet/combatsync/internal/weapon"
	"github.com/blasternet/combatsync/pkg/core"
	"github.com/blasternet/combatsync/pkg/streaming"
)

// DefaultLevelWKT is a walled arena with a short cover wall in the middle.
const DefaultLevelWKT = "GEOMETRYCOLLECTION(POLYGON((0 0,4000 0,4000 4000,0 4000,0 0)),LINESTRING(1800 2600,2200 2600))"

// Capsule dimensions of a player body.
const (
	BodyRadius  = 40.0
	BodyHeight  = 180.0
	MuzzleLevel = 90.0 // muzzle height above the feet
)

// LevelConfig describes the level geometry every node builds its own copy of.
type LevelConfig struct {
	Name       string
	WKT        string
	WallHeight float64
}

// Config is shared by the authority and its clients.
type Config struct {
	Combat        combat.Config
	Timings       core.MatchTimings
	SyncFrequency time.Duration
	Intake        intake.Config
	Latency       time.Duration
	Codec         streaming.Codec
	FOV           float64 // unzoomed camera field of view
	MaxRewind     time.Duration
	GrenadeFuse   time.Duration
	GrenadeDamage float64
	Level         LevelConfig
	Archetypes    map[string]weapon.Archetype
}

// DefaultConfig returns the stock tuning on the default arena.
func DefaultConfig() Config {
	return Config{
		Combat: combat.DefaultConfig(),
		Timings: core.MatchTimings{
			Warmup:        10 * time.Second,
			Match:         120 * time.Second,
			Cooldown:      10 * time.Second,
			AlertFraction: 0.1,
		},
		SyncFrequency: 5 * time.Second,
		Intake:        intake.Config{Capacity: 1024, RatePerSecond: 120, Burst: 60},
		Latency:       60 * time.Millisecond,
		Codec:         streaming.MsgPack,
		FOV:           90,
		MaxRewind:     lagcomp.DefaultMaxRewind,
		GrenadeFuse:   time.Second,
		GrenadeDamage: 100,
		Level:         LevelConfig{Name: "arena", WKT: DefaultLevelWKT, WallHeight: geo.DefaultWallHeight},
		Archetypes:    weapon.DefaultArchetypes(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Codec == nil {
		c.Codec = d.Codec
	}
	if c.SyncFrequency <= 0 {
		c.SyncFrequency = d.SyncFrequency
	}
	if c.Intake.Capacity <= 0 {
		c.Intake.Capacity = d.Intake.Capacity
	}
	if c.MaxRewind <= 0 {
		c.MaxRewind = d.MaxRewind
	}
	if c.Level.WKT == "" {
		c.Level = d.Level
	}
	if c.Archetypes == nil {
		c.Archetypes = d.Archetypes
	}
	return c
}

func (c Config) character(p core.PlayerID, at core.Vector) *combat.Character {
	ch := combat.NewCharacter(p, at)
	if c.FOV > 0 {
		ch.Camera.FOV = c.FOV
	}
	return ch
}

func buildLevel(cfg LevelConfig) (*geo.Level, error) {
	return geo.NewLevel(cfg.Name, cfg.WKT, cfg.WallHeight)
}

func body(ch *combat.Character) geo.Body {
	return geo.Body{Player: ch.ID, Location: ch.Location, Radius: BodyRadius, Height: BodyHeight}
}

// impact traces a shot from the shooter's muzzle through target and
// describes the round that produced it.
func impact(level *geo.Level, ch *combat.Character, w *weapon.Weapon, target core.Vector) (lagcomp.Projectile, combat.Hit) {
	muzzle := ch.Location.Add(core.Vector{Z: MuzzleLevel})
	dir := target.Sub(muzzle).Normalize()
	// overshoot so a target point on a capsule surface still registers
	end := target.Add(dir.Scale(BodyRadius))
	arch := w.Archetype()
	p := lagcomp.Projectile{
		Owner:            ch.ID,
		Weapon:           w.ID(),
		TraceStart:       muzzle,
		InitialVelocity:  dir.Scale(arch.ProjectileSpeed),
		Damage:           arch.Damage,
		ServerSideRewind: arch.ServerSideRewind,
	}
	if level == nil {
		return p, combat.Hit{Point: end}
	}
	return p, level.LineTrace(muzzle, end, ch.ID)
}
