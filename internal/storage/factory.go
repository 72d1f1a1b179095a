package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/blasternet/combatsync/internal/config"
	"github.com/blasternet/combatsync/internal/storage/memory"
	"github.com/blasternet/combatsync/internal/storage/postgres"
	sqlitestorage "github.com/blasternet/combatsync/internal/storage/sqlite"
	"github.com/blasternet/combatsync/internal/storage/websocket"
)

// Dependencies are the shared services backends are built with.
type Dependencies struct {
	Logger *slog.Logger
	DBLog  zerolog.Logger
	DB     config.DBConfig
}

// NewBackend creates a storage backend based on configuration
func NewBackend(deps Dependencies, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(deps.DB, deps.Logger, deps.DBLog), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, deps.Logger, deps.DBLog)
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}, deps.Logger)
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
