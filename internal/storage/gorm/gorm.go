// Package gormstorage implements the storage.Backend interface on GORM with
// internal queues drained by a background writer goroutine. The sqlite and
// postgres backends embed it and only differ in how the connection is made.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/blasternet/combatsync/internal/database"
	"github.com/blasternet/combatsync/internal/model"
	"github.com/blasternet/combatsync/internal/model/convert"
	"github.com/blasternet/combatsync/internal/queue"
	"github.com/blasternet/combatsync/pkg/core"
)

// DefaultFlushInterval is how often the writer drains the queues.
const DefaultFlushInterval = 2 * time.Second

// queueLimit bounds each queue while the database is unreachable.
const queueLimit = 200_000

// ErrNoMatch is returned by EndMatch when no match was started.
var ErrNoMatch = errors.New("no match in progress")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	ServerName    string
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Fires       *queue.Queue[model.FireEvent]
	Reloads     *queue.Queue[model.ReloadEvent]
	Transitions *queue.Queue[model.WeaponTransition]
	Grenades    *queue.Queue[model.GrenadeEvent]
	HitClaims   *queue.Queue[model.HitClaim]
	TimeSyncs   *queue.Queue[model.TimeSyncSample]
	States      *queue.Queue[model.MatchStateChange]
}

func newQueues() *queues {
	return &queues{
		Fires:       queue.NewBounded[model.FireEvent](queueLimit),
		Reloads:     queue.NewBounded[model.ReloadEvent](queueLimit),
		Transitions: queue.NewBounded[model.WeaponTransition](queueLimit),
		Grenades:    queue.NewBounded[model.GrenadeEvent](queueLimit),
		HitClaims:   queue.NewBounded[model.HitClaim](queueLimit),
		TimeSyncs:   queue.NewBounded[model.TimeSyncSample](queueLimit),
		States:      queue.NewBounded[model.MatchStateChange](queueLimit),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	queues  *queues
	matchID atomic.Uint64

	mu    sync.Mutex
	match *core.Match

	writeMu  sync.Mutex // serializes flushes
	stopChan chan struct{}
	done     chan struct{}
	closed   atomic.Bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.ServerName == "" {
		deps.ServerName = "combatsync"
	}
	return &Backend{deps: deps, queues: newQueues()}
}

// DB is the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}
	b.deps.Logger.Info("Migrating schema", "function", "setupDB")
	if err := database.Migrate(b.deps.DB, b.deps.ServerName); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.Logger.Info("Database setup complete", "function", "setupDB")

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer after a final flush.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	return b.Flush()
}

// StartMatch inserts the match synchronously and assigns its ID.
func (b *Backend) StartMatch(m *core.Match) error {
	if m == nil {
		return errors.New("nil match")
	}
	row := convert.CoreToMatch(*m)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new match: %w", err)
	}
	m.ID = row.ID

	b.mu.Lock()
	b.match = m
	b.mu.Unlock()
	b.matchID.Store(uint64(row.ID))
	return nil
}

// SetMatchID points subsequent records at an existing match.
func (b *Backend) SetMatchID(id uint) {
	b.matchID.Store(uint64(id))
}

// EndMatch flushes pending records and stores the end time.
func (b *Backend) EndMatch() error {
	b.mu.Lock()
	m := b.match
	b.match = nil
	b.mu.Unlock()
	if m == nil {
		return ErrNoMatch
	}

	if err := b.Flush(); err != nil {
		return err
	}
	end := m.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	if err := b.deps.DB.Model(&model.Match{}).Where("id = ?", m.ID).Update("end_time", end).Error; err != nil {
		return fmt.Errorf("failed to close match %d: %w", m.ID, err)
	}
	return nil
}

func (b *Backend) currentMatch() uint {
	return uint(b.matchID.Load())
}

// RecordFire converts and queues a fire event.
func (b *Backend) RecordFire(e *core.FireEvent) error {
	row := convert.CoreToFireEvent(*e)
	row.MatchID = b.currentMatch()
	b.queues.Fires.Push(row)
	return nil
}

// RecordReload converts and queues a reload.
func (b *Backend) RecordReload(e *core.ReloadEvent) error {
	row := convert.CoreToReloadEvent(*e)
	row.MatchID = b.currentMatch()
	b.queues.Reloads.Push(row)
	return nil
}

// RecordWeaponTransition converts and queues a weapon state change.
func (b *Backend) RecordWeaponTransition(e *core.WeaponTransition) error {
	row := convert.CoreToWeaponTransition(*e)
	row.MatchID = b.currentMatch()
	b.queues.Transitions.Push(row)
	return nil
}

// RecordGrenade converts and queues a grenade event.
func (b *Backend) RecordGrenade(e *core.GrenadeEvent) error {
	row := convert.CoreToGrenadeEvent(*e)
	row.MatchID = b.currentMatch()
	b.queues.Grenades.Push(row)
	return nil
}

// RecordHitClaim converts and queues a hit claim.
func (b *Backend) RecordHitClaim(e *core.HitClaim) error {
	row := convert.CoreToHitClaim(*e)
	row.MatchID = b.currentMatch()
	b.queues.HitClaims.Push(row)
	return nil
}

// RecordTimeSync converts and queues a clock sample.
func (b *Backend) RecordTimeSync(s *core.TimeSyncSample) error {
	row := convert.CoreToTimeSyncSample(*s)
	row.MatchID = b.currentMatch()
	b.queues.TimeSyncs.Push(row)
	return nil
}

// RecordMatchState converts and queues a phase change.
func (b *Backend) RecordMatchState(s *core.MatchStateChange) error {
	row := convert.CoreToMatchStateChange(*s)
	row.MatchID = b.currentMatch()
	b.queues.States.Push(row)
	return nil
}

// Pending is the number of queued rows not yet written.
func (b *Backend) Pending() int {
	q := b.queues
	return q.Fires.Len() + q.Reloads.Len() + q.Transitions.Len() + q.Grenades.Len() +
		q.HitClaims.Len() + q.TimeSyncs.Len() + q.States.Len()
}

// Flush writes every queue now. Failed batches stay queued for the next
// attempt and the first error is returned.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	db := b.deps.DB
	log := b.deps.Logger
	errs := []error{
		writeQueue(db, b.queues.States, "match state changes", log),
		writeQueue(db, b.queues.Fires, "fire events", log),
		writeQueue(db, b.queues.Reloads, "reload events", log),
		writeQueue(db, b.queues.Transitions, "weapon transitions", log),
		writeQueue(db, b.queues.Grenades, "grenade events", log),
		writeQueue(db, b.queues.HitClaims, "hit claims", log),
		writeQueue(db, b.queues.TimeSyncs, "time sync samples", log),
	}
	return errors.Join(errs...)
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error("Error creating rows", "function", ":DB:WRITER:", "table", name, "count", len(items), "error", err)
		q.Requeue(items...)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writeLoop periodically drains queues into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
