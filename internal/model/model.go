// Package model holds the GORM tables combat telemetry is persisted to.
package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is every table of the telemetry schema, in migration order.
var DatabaseModels = []any{
	&ServerInfo{},
	&Match{},
	&FireEvent{},
	&ReloadEvent{},
	&WeaponTransition{},
	&GrenadeEvent{},
	&HitClaim{},
	&TimeSyncSample{},
	&MatchStateChange{},
}

// ServerInfo describes the server instance that produced the data.
type ServerInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
}

func (*ServerInfo) TableName() string {
	return "server_infos"
}

// Match is one recorded play session.
type Match struct {
	gorm.Model
	Key           string         `json:"key" gorm:"size:36;index:idx_match_key"`
	Level         string         `json:"level" gorm:"size:127"`
	StartTime     time.Time      `json:"startTime"`
	EndTime       time.Time      `json:"endTime"`
	WarmupMs      int64          `json:"warmupMs"`
	MatchMs       int64          `json:"matchMs"`
	CooldownMs    int64          `json:"cooldownMs"`
	LevelStartMs  int64          `json:"levelStartMs"`
	AlertFraction float64        `json:"alertFraction"`
	Players       datatypes.JSON `json:"players"`
}

func (*Match) TableName() string {
	return "matches"
}

// FireEvent is an authority-accepted shot.
type FireEvent struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement"`
	Time         time.Time      `json:"time" gorm:"index:idx_fire_time"`
	MatchID      uint           `json:"matchId" gorm:"index:idx_fire_match_id"`
	ServerTimeMs int64          `json:"serverTimeMs"`
	PlayerID     uint32         `json:"playerId" gorm:"index:idx_fire_player_id"`
	WeaponID     uint32         `json:"weaponId"`
	WeaponType   string         `json:"weaponType" gorm:"size:32"`
	Target       datatypes.JSON `json:"target"` // GeoJSON point
	AmmoAfter    int            `json:"ammoAfter"`
	Aiming       bool           `json:"aiming"`
}

func (*FireEvent) TableName() string {
	return "fire_events"
}

// ReloadEvent is a committed reload or shotgun shell.
type ReloadEvent struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time         time.Time `json:"time"`
	MatchID      uint      `json:"matchId" gorm:"index:idx_reload_match_id"`
	ServerTimeMs int64     `json:"serverTimeMs"`
	PlayerID     uint32    `json:"playerId"`
	WeaponID     uint32    `json:"weaponId"`
	WeaponType   string    `json:"weaponType" gorm:"size:32"`
	Amount       int       `json:"amount"`
	AmmoAfter    int       `json:"ammoAfter"`
	CarriedAfter int       `json:"carriedAfter"`
	Shell        bool      `json:"shell"`
}

func (*ReloadEvent) TableName() string {
	return "reload_events"
}

// WeaponTransition records a weapon lifecycle change.
type WeaponTransition struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time         time.Time `json:"time"`
	MatchID      uint      `json:"matchId" gorm:"index:idx_transition_match_id"`
	ServerTimeMs int64     `json:"serverTimeMs"`
	WeaponID     uint32    `json:"weaponId"`
	WeaponType   string    `json:"weaponType" gorm:"size:32"`
	FromState    string    `json:"from" gorm:"size:32"`
	ToState      string    `json:"to" gorm:"size:32"`
	OwnerID      uint32    `json:"ownerId"`
}

func (*WeaponTransition) TableName() string {
	return "weapon_transitions"
}

// GrenadeEvent records a throw or a launch.
type GrenadeEvent struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement"`
	Time         time.Time      `json:"time"`
	MatchID      uint           `json:"matchId" gorm:"index:idx_grenade_match_id"`
	ServerTimeMs int64          `json:"serverTimeMs"`
	PlayerID     uint32         `json:"playerId"`
	Launched     bool           `json:"launched"`
	Origin       datatypes.JSON `json:"origin"`
	Target       datatypes.JSON `json:"target"`
	Remaining    int            `json:"remaining"`
}

func (*GrenadeEvent) TableName() string {
	return "grenade_events"
}

// HitClaim is a lag-compensated hit and its verdict.
type HitClaim struct {
	ID              uint           `json:"id" gorm:"primarykey;autoIncrement"`
	Time            time.Time      `json:"time"`
	MatchID         uint           `json:"matchId" gorm:"index:idx_hit_match_id"`
	ServerTimeMs    int64          `json:"serverTimeMs"`
	ShooterID       uint32         `json:"shooterId" gorm:"index:idx_hit_shooter_id"`
	VictimID        uint32         `json:"victimId"`
	WeaponID        uint32         `json:"weaponId"`
	TraceStart      datatypes.JSON `json:"traceStart"`
	InitialVelocity datatypes.JSON `json:"initialVelocity"`
	HitTimeMs       int64          `json:"hitTimeMs"`
	Damage          float64        `json:"damage"`
	Accepted        bool           `json:"accepted"`
}

func (*HitClaim) TableName() string {
	return "hit_claims"
}

// TimeSyncSample is one clock-sync round trip.
type TimeSyncSample struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time         time.Time `json:"time"`
	MatchID      uint      `json:"matchId" gorm:"index:idx_timesync_match_id"`
	PlayerID     uint32    `json:"playerId"`
	RoundTripMs  float64   `json:"roundTripMs"`
	SingleTripMs float64   `json:"singleTripMs"`
	OffsetMs     float64   `json:"offsetMs"`
}

func (*TimeSyncSample) TableName() string {
	return "time_sync_samples"
}

// MatchStateChange records the authority entering a match phase.
type MatchStateChange struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time         time.Time `json:"time"`
	MatchID      uint      `json:"matchId" gorm:"index:idx_state_match_id"`
	ServerTimeMs int64     `json:"serverTimeMs"`
	State        string    `json:"state" gorm:"size:32"`
}

func (*MatchStateChange) TableName() string {
	return "match_state_changes"
}
