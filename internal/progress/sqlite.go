package progress

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemorySQLitePath opens a private in-memory database
const MemorySQLitePath = "file::memory:"

// OpenSQLite opens or creates the SQLite database at path
func OpenSQLite(path string, log zerolog.Logger) (*GormStore, error) {
	if path == "" {
		path = MemorySQLitePath
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("Failed to set pragma")
		}
	}

	// In-memory databases exist per connection
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info().Str("path", path).Msg("Using SQLite progress store")
	return NewGormStore(db, log)
}
