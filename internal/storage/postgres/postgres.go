// Package postgres implements the storage.Backend interface on PostgreSQL.
// Writes go through the queue-based GORM backend; when the server cannot be
// reached the backend records into in-memory SQLite instead.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/blasternet/combatsync/internal/config"
	"github.com/blasternet/combatsync/internal/database"
	gormstorage "github.com/blasternet/combatsync/internal/storage/gorm"
)

// Backend connects through database.Manager and delegates to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	cfg     config.DBConfig
	manager *database.Manager
	log     *slog.Logger
}

// New creates a postgres backend. Nothing is dialed until Init.
func New(cfg config.DBConfig, logger *slog.Logger, dbLog zerolog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:     cfg,
		manager: database.NewManager(dbLog),
		log:     logger,
	}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	if err := b.manager.Connect(b.cfg); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if b.manager.Local() {
		b.log.Warn("Postgres unreachable, recording to in-memory SQLite", "function", "postgres:Init", "host", b.cfg.Host)
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     b.manager.DB,
		Logger: b.log,
	})
	return b.Backend.Init()
}

// Close stops the writer and releases the pool. Safe before Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if b.manager.Local() {
		// the in-memory database would vanish with its connection
		return err
	}
	return errors.Join(err, b.manager.Close())
}

// Local reports whether the backend fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager.Local()
}
