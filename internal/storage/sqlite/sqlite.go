// Package sqlitestorage records into an in-memory SQLite database through
// the GORM backend and snapshots it to disk with VACUUM INTO, periodically
// and when a match ends.
package sqlitestorage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/blasternet/combatsync/internal/database"
	gormstorage "github.com/blasternet/combatsync/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // snapshot file, empty to keep everything in memory
}

type Backend struct {
	*gormstorage.Backend
	db      *gorm.DB
	cfg     Config
	log     *slog.Logger
	dumpLog zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dumpMu    sync.Mutex // one VACUUM INTO at a time
	snapshots atomic.Uint64
}

// New opens the in-memory database. Nothing runs until Init.
func New(cfg Config, logger *slog.Logger, dumpLog zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		db:      db,
		cfg:     cfg,
		log:     logger,
		dumpLog: dumpLog,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Init migrates, starts the GORM writer and, with a path and interval, the
// snapshot loop.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.snapshotLoop()
	}
	return nil
}

// EndMatch closes the match and writes a final snapshot.
func (b *Backend) EndMatch() error {
	if err := b.Backend.EndMatch(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the snapshot loop and the writer, then writes a last snapshot.
func (b *Backend) Close() error {
	b.cancel()
	b.wg.Wait()
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.Dump()
}

// Dump flushes pending rows and replaces the snapshot file. The copy is
// written beside the target and renamed over it, so a reader never sees a
// partial file. It does nothing without a path.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if err := b.Backend.Flush(); err != nil {
		b.log.Warn("Dumping with unwritten rows", "function", "sqlite:Dump", "error", err)
	}

	b.dumpMu.Lock()
	defer b.dumpMu.Unlock()
	tmp := b.cfg.DumpPath + ".tmp"
	if err := database.Snapshot(b.db, tmp, b.dumpLog); err != nil {
		return err
	}
	if err := os.Rename(tmp, b.cfg.DumpPath); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	b.snapshots.Add(1)
	return nil
}

// Snapshots returns how many snapshot files have been written.
func (b *Backend) Snapshots() uint64 {
	return b.snapshots.Load()
}

func (b *Backend) snapshotLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "function", "sqlite:snapshotLoop", "error", err)
			}
		}
	}
}
