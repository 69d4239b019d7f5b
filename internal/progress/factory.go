package progress

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/race/minirace/config"
)

// Store types accepted in progress.type
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Open builds the store selected by cfg.Type
func Open(cfg config.ProgressConfig, log zerolog.Logger) (Store, error) {
	switch cfg.Type {
	case TypeMemory, "":
		log.Info().Msg("Using in-memory progress store")
		return NewMemoryStore(), nil
	case TypeSQLite:
		return OpenSQLite(cfg.SQLite.Path, log)
	case TypePostgres:
		return OpenPostgres(cfg.Postgres, log)
	default:
		return nil, fmt.Errorf("unknown progress store type %q", cfg.Type)
	}
}
