// pkg/core/match.go
package core

import "time"

// MatchState is the replicated name of the match phase.
type MatchState string

const (
	WaitingToStart MatchState = "WaitingToStart"
	InProgress     MatchState = "InProgress"
	Cooldown       MatchState = "Cooldown"
)

// MatchTimings are the durations the authority announces to joining players.
type MatchTimings struct {
	Warmup        time.Duration
	Match         time.Duration
	Cooldown      time.Duration
	LevelStart    time.Duration
	AlertFraction float64
}

// Match is a recorded play session.
type Match struct {
	ID        uint
	Key       string // uuid assigned when the match starts
	Level     string
	StartTime time.Time
	EndTime   time.Time
	Timings   MatchTimings
	Players   []PlayerID
}

// UploadMetadata describes an exported telemetry file for the upload API.
type UploadMetadata struct {
	Level         string
	MatchKey      string
	MatchDuration float64 // seconds
	Tag           string
}
