package store

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/mapdrive/internal/config"
)

// New creates a store based on configuration.
func New(cfg config.StorageConfig, log *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(SQLiteConfig{
			Path:         cfg.SQLite.Path,
			DumpPath:     cfg.SQLite.DumpPath,
			DumpInterval: cfg.SQLite.DumpInterval,
		}, log)
	case "postgres":
		db, err := OpenPostgres(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return NewGorm(db)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
