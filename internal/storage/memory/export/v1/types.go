// Package v1 contains the v1 export format for recorded match telemetry.
// Time series are compact positional arrays; the layout of each is noted on
// its field.
package v1

// FormatVersion is written to every export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	FormatVersion   int      `json:"formatVersion"`
	MatchKey        string   `json:"matchKey"`
	Level           string   `json:"level"`
	StartTime       string   `json:"startTime"` // RFC3339 UTC
	EndTime         string   `json:"endTime"`
	DurationSeconds float64  `json:"durationSeconds"`
	Timings         Timings  `json:"timings"`
	Players         []Player `json:"players"`
	Weapons         []Weapon `json:"weapons"`
	Events          [][]any  `json:"events"`   // [serverMs, kind, ...]
	TimeSync        [][]any  `json:"timeSync"` // [player, roundTripMs, singleTripMs, offsetMs]
	Scores          []Score  `json:"scores"`
}

// Timings are the announced match durations in milliseconds.
type Timings struct {
	WarmupMs      int64   `json:"warmupMs"`
	MatchMs       int64   `json:"matchMs"`
	CooldownMs    int64   `json:"cooldownMs"`
	LevelStartMs  int64   `json:"levelStartMs"`
	AlertFraction float64 `json:"alertFraction"`
}

// Player holds one participant's combat time series.
type Player struct {
	ID       uint32  `json:"id"`
	Fires    [][]any `json:"fires"`    // [serverMs, weaponId, weaponType, [x, y, z], ammoAfter, aiming]
	Reloads  [][]any `json:"reloads"`  // [serverMs, weaponId, amount, ammoAfter, carriedAfter, shell]
	Grenades [][]any `json:"grenades"` // [serverMs, launched, [ox, oy, oz], [tx, ty, tz], remaining]
}

// Weapon is one weapon instance and its lifecycle, oldest first.
type Weapon struct {
	ID          uint32  `json:"id"`
	Type        string  `json:"type"`
	Transitions [][]any `json:"transitions"` // [serverMs, from, to, owner]
}

// Score is the accepted-hit tally of a shooter.
type Score struct {
	Player   uint32  `json:"player"`
	Claims   int     `json:"claims"`
	Accepted int     `json:"accepted"`
	Damage   float64 `json:"damage"`
}
