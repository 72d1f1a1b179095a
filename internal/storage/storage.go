// internal/storage/storage.go
package storage

import "github.com/blasternet/combatsync/pkg/core"

// Backend is the interface all telemetry storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management. The backend keeps the pointer; callers set EndTime
	// before EndMatch.
	StartMatch(m *core.Match) error
	EndMatch() error

	// Event recording
	RecordFire(e *core.FireEvent) error
	RecordReload(e *core.ReloadEvent) error
	RecordWeaponTransition(e *core.WeaponTransition) error
	RecordGrenade(e *core.GrenadeEvent) error
	RecordHitClaim(e *core.HitClaim) error
	RecordTimeSync(s *core.TimeSyncSample) error
	RecordMatchState(s *core.MatchStateChange) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the telemetry web service.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
