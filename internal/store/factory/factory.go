package factory

import (
	"fmt"

	gormstore "mower-backend/internal/store/gorm"
	"mower-backend/internal/store/memory"
	"mower-backend/internal/store/types"
)

// NewStore creates a store instance for the configured backend.
func NewStore(cfg *types.Config) (types.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite":
		return gormstore.NewSQLiteStore(cfg.SQLite)
	case "postgres":
		return gormstore.NewPostgresStore(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
