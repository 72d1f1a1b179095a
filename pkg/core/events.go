// pkg/core/events.go
package core

import (
	"time"
)

// FireEvent is an authority-accepted fire broadcast.
type FireEvent struct {
	Time       time.Time
	ServerTime time.Duration
	PlayerID   PlayerID
	WeaponID   WeaponID
	WeaponType WeaponType
	Target     Vector
	AmmoAfter  int
	Aiming     bool
}

// ReloadEvent records a committed reload.
type ReloadEvent struct {
	Time         time.Time
	ServerTime   time.Duration
	PlayerID     PlayerID
	WeaponID     WeaponID
	WeaponType   WeaponType
	Amount       int
	AmmoAfter    int
	CarriedAfter int
	Shell        bool // single shotgun shell
}

// WeaponTransition records a weapon lifecycle change.
type WeaponTransition struct {
	Time       time.Time
	ServerTime time.Duration
	WeaponID   WeaponID
	WeaponType WeaponType
	From       WeaponState
	To         WeaponState
	OwnerID    PlayerID // zero when ownerless
}

// GrenadeEvent records a grenade being thrown or launched.
type GrenadeEvent struct {
	Time       time.Time
	ServerTime time.Duration
	PlayerID   PlayerID
	Launched   bool
	Origin     Vector
	Target     Vector
	Remaining  int
}

// HitClaim is a client-submitted lag-compensated hit and the authority's verdict.
type HitClaim struct {
	Time            time.Time
	ServerTime      time.Duration
	ShooterID       PlayerID
	VictimID        PlayerID
	WeaponID        WeaponID
	TraceStart      Vector
	InitialVelocity Vector
	HitTime         time.Duration
	Damage          float64
	Accepted        bool
}

// TimeSyncSample is one completed clock-sync round trip.
type TimeSyncSample struct {
	Time       time.Time
	PlayerID   PlayerID
	RoundTrip  time.Duration
	SingleTrip time.Duration
	Offset     time.Duration
}

// MatchStateChange records the authority entering a new match phase.
type MatchStateChange struct {
	Time       time.Time
	ServerTime time.Duration
	State      MatchState
}
