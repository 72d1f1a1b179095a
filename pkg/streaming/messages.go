package streaming

import (
	"encoding/json"
	"time"

	"github.com/blasternet/combatsync/pkg/core"
)

// Request types sent by a non-authoritative participant. All are delivered
// reliably and in order on the participant's channel.
const (
	TypeSetAiming         = "set_aiming"
	TypeReload            = "reload"
	TypeFire              = "fire"
	TypeThrowGrenade      = "throw_grenade"
	TypeLaunchGrenade     = "launch_grenade"
	TypeEquip             = "equip"
	TypeSwapWeapons       = "swap_weapons"
	TypeRequestServerTime = "request_server_time"
	TypeCheckMatchState   = "check_match_state"
	TypeScoreRequest      = "score_request"
)

// Notification types sent by the authority to observers.
const (
	TypeMulticastFire    = "multicast_fire"
	TypeReportServerTime = "report_server_time"
	TypeJoinMidgame      = "join_midgame"
	TypeDeltas           = "deltas"
	TypeSpawnWeapon      = "spawn_weapon"
	TypeSpawnPlayer      = "spawn_player"
)

// Telemetry stream types used by the websocket storage backend.
const (
	TypeStartMatch       = "start_match"
	TypeEndMatch         = "end_match"
	TypeFireEvent        = "fire_event"
	TypeReloadEvent      = "reload_event"
	TypeWeaponTransition = "weapon_transition"
	TypeGrenadeEvent     = "grenade_event"
	TypeHitClaim         = "hit_claim"
	TypeTimeSync         = "time_sync"
	TypeMatchState       = "match_state"
)

var requestTypes = map[string]bool{
	TypeSetAiming:         true,
	TypeReload:            true,
	TypeFire:              true,
	TypeThrowGrenade:      true,
	TypeLaunchGrenade:     true,
	TypeEquip:             true,
	TypeSwapWeapons:       true,
	TypeRequestServerTime: true,
	TypeCheckMatchState:   true,
	TypeScoreRequest:      true,
}

var notificationTypes = map[string]bool{
	TypeMulticastFire:    true,
	TypeReportServerTime: true,
	TypeJoinMidgame:      true,
	TypeDeltas:           true,
	TypeSpawnWeapon:      true,
	TypeSpawnPlayer:      true,
}

// IsRequest reports whether typ travels from a participant to the authority.
func IsRequest(typ string) bool { return requestTypes[typ] }

// IsNotification reports whether typ travels from the authority to observers.
func IsNotification(typ string) bool { return notificationTypes[typ] }

// Envelope wraps telemetry messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the telemetry server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SetAimingRequest asks the authority to change the aiming flag.
type SetAimingRequest struct {
	Aiming bool `json:"aiming" msgpack:"aiming"`
}

// FireRequest carries the locally traced hit point.
type FireRequest struct {
	Target core.Vector `json:"target" msgpack:"target"`
}

// LaunchGrenadeRequest carries the aim target at the moment of release.
type LaunchGrenadeRequest struct {
	Target core.Vector `json:"target" msgpack:"target"`
}

// EquipRequest asks to pick up the given weapon, or to swap when WeaponID is zero.
type EquipRequest struct {
	WeaponID core.WeaponID `json:"weaponId" msgpack:"weapon_id"`
}

// ServerTimeRequest is a clock-sync probe.
type ServerTimeRequest struct {
	ClientTime time.Duration `json:"clientTime" msgpack:"client_time"`
}

// ServerTimeReport echoes a probe with the authority's receipt time.
type ServerTimeReport struct {
	ClientTime    time.Duration `json:"clientTime" msgpack:"client_time"`
	ServerReceipt time.Duration `json:"serverReceipt" msgpack:"server_receipt"`
}

// ScoreRequest asks the lag-compensation collaborator to verify a hit.
type ScoreRequest struct {
	Victim          core.PlayerID `json:"victim" msgpack:"victim"`
	TraceStart      core.Vector   `json:"traceStart" msgpack:"trace_start"`
	InitialVelocity core.Vector   `json:"initialVelocity" msgpack:"initial_velocity"`
	HitTime         time.Duration `json:"hitTime" msgpack:"hit_time"`
	Damage          float64       `json:"damage" msgpack:"damage"`
	WeaponID        core.WeaponID `json:"weaponId" msgpack:"weapon_id"`
}

// FireBroadcast tells every observer that a player fired.
type FireBroadcast struct {
	Player core.PlayerID `json:"player" msgpack:"player"`
	Target core.Vector   `json:"target" msgpack:"target"`
}

// JoinMidgame is the match snapshot sent to a player that checks match state.
type JoinMidgame struct {
	State         core.MatchState `json:"state" msgpack:"state"`
	Warmup        time.Duration   `json:"warmup" msgpack:"warmup"`
	Match         time.Duration   `json:"match" msgpack:"match"`
	LevelStart    time.Duration   `json:"levelStart" msgpack:"level_start"`
	Cooldown      time.Duration   `json:"cooldown" msgpack:"cooldown"`
	AlertFraction float64         `json:"alertFraction" msgpack:"alert_fraction"`
}

// SpawnWeapon announces a weapon instance built from a named archetype.
type SpawnWeapon struct {
	WeaponID  core.WeaponID `json:"weaponId" msgpack:"weapon_id"`
	Archetype string        `json:"archetype" msgpack:"archetype"`
	Location  core.Vector   `json:"location" msgpack:"location"`
}

// SpawnPlayer announces a player character.
type SpawnPlayer struct {
	Player   core.PlayerID `json:"player" msgpack:"player"`
	Location core.Vector   `json:"location" msgpack:"location"`
}

// Delta is one replicated property change.
type Delta struct {
	Seq    uint64 `json:"seq" msgpack:"seq"`
	Kind   string `json:"kind" msgpack:"kind"`
	ID     uint32 `json:"id" msgpack:"id"`
	Prop   string `json:"prop" msgpack:"prop"`
	Int    int64  `json:"int,omitempty" msgpack:"int,omitempty"`
	Text   string `json:"text,omitempty" msgpack:"text,omitempty"`
	Owner  uint32 `json:"owner,omitempty" msgpack:"owner,omitempty"`
	Hidden bool   `json:"-" msgpack:"-"` // owner-only; stripped for other connections
}

// DeltaBatch is the set of changes the authority produced in one tick.
type DeltaBatch struct {
	Tick   uint64  `json:"tick" msgpack:"tick"`
	Deltas []Delta `json:"deltas" msgpack:"deltas"`
}

// StartMatchPayload opens a telemetry stream.
type StartMatchPayload struct {
	Match *core.Match `json:"match"`
}
