package database

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const sqliteBatch = 2000

// tuned for a write-heavy recorder that snapshots to disk instead of
// relying on the journal
var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
	"PRAGMA page_size = 32768;",
}

// OpenSQLite opens a SQLite database at path. An empty path opens a private
// in-memory database held by a single connection.
func OpenSQLite(path string) (*gorm.DB, error) {
	memory := path == ""
	dsn := path
	if memory {
		dsn = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(sqliteBatch, true))
	if err != nil {
		return nil, err
	}
	if memory {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		// the database lives as long as its last connection
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting %q: %w", pragma, err)
		}
	}
	return db, nil
}

// DumpMemoryDBToDisk writes a point-in-time copy of db to path with
// VACUUM INTO, replacing any existing file.
func DumpMemoryDBToDisk(db *gorm.DB, path string) error {
	switch {
	case path == "":
		return errors.New("sqlite file path not set")
	case strings.ContainsRune(path, '\''):
		return fmt.Errorf("unsupported character in sqlite file path %q", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing existing DB file: %w", err)
	}
	if err := db.Exec("VACUUM INTO '" + path + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}

// Snapshot dumps db to path and logs how long it took.
func Snapshot(db *gorm.DB, path string, log zerolog.Logger) error {
	start := time.Now()
	if err := DumpMemoryDBToDisk(db, path); err != nil {
		return err
	}
	log.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Snapshot written")
	return nil
}
