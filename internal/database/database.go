// Package database opens the GORM connections the telemetry backends write to.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blasternet/combatsync/internal/config"
	"github.com/blasternet/combatsync/internal/model"
)

const (
	pingTimeout   = 5 * time.Second
	postgresConns = 10
	postgresBatch = 10000
)

// Manager owns the connection a GORM backend records into: postgres when
// it answers, otherwise a private in-memory SQLite database.
type Manager struct {
	DB *gorm.DB

	sqlDB *sql.DB
	valid bool
	local bool
	log   zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// Valid reports whether the manager holds a usable, migrated connection.
func (m *Manager) Valid() bool { return m.valid }

// Local reports whether the manager fell back to SQLite.
func (m *Manager) Local() bool { return m.local }

// Connect opens postgres and pings it, falling back to in-memory SQLite
// when the server cannot be reached.
func (m *Manager) Connect(cfg config.DBConfig) error {
	db, sqlDB, err := connectPostgres(cfg)
	if err != nil {
		m.log.Error().Err(err).Str("host", cfg.Host).Msg("Postgres unreachable, falling back to SQLite")
		return m.useSQLite()
	}
	sqlDB.SetMaxOpenConns(postgresConns)
	m.DB, m.sqlDB, m.valid = db, sqlDB, true
	m.log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to database")
	return nil
}

func connectPostgres(cfg config.DBConfig) (*gorm.DB, *sql.DB, error) {
	db, err := OpenPostgres(cfg)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	return db, sqlDB, nil
}

func (m *Manager) useSQLite() error {
	m.local = true
	db, err := OpenSQLite("")
	if err != nil {
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	m.DB, m.sqlDB, m.valid = db, sqlDB, true
	m.log.Info().Msg("Using local SQLite DB in memory")
	return nil
}

// Setup migrates the telemetry schema on the managed connection.
func (m *Manager) Setup(serverName string) error {
	if m.DB == nil {
		return errors.New("db not connected")
	}
	if err := Migrate(m.DB, serverName); err != nil {
		m.valid = false
		return err
	}
	m.log.Info().Bool("local", m.local).Msg("Database schema ready")
	return nil
}

// Close releases the pool.
func (m *Manager) Close() error {
	if m.sqlDB == nil {
		return nil
	}
	m.valid = false
	return m.sqlDB.Close()
}

// Migrate creates the telemetry tables and, on a fresh database, the
// server info row.
func Migrate(db *gorm.DB, serverName string) error {
	fresh := !db.Migrator().HasTable(&model.ServerInfo{})
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	if !fresh {
		return nil
	}
	info := model.ServerInfo{Name: serverName, Description: "combatsync authority"}
	if err := db.Create(&info).Error; err != nil {
		return fmt.Errorf("failed to create server_infos entry: %w", err)
	}
	return nil
}

// OpenPostgres opens a postgres connection without dialing it.
func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), gormConfig(postgresBatch, false))
}

func gormConfig(batch int, prepare bool) *gorm.Config {
	return &gorm.Config{
		PrepareStmt:            prepare,
		SkipDefaultTransaction: true,
		CreateBatchSize:        batch,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}
