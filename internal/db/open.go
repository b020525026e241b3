package db

import (
	"context"

	"github.com/techcodes/backend/internal/config"
)

const (
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindMemory   = "memory"
)

// Open picks the store from configuration: Postgres when DATABASE_URL is
// set, then a SQLite file, then process memory.
func Open(ctx context.Context, cfg config.Config) (Store, string, error) {
	switch {
	case cfg.DatabaseURL != "":
		s, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, KindPostgres, err
		}
		return s, KindPostgres, nil
	case cfg.SQLitePath != "":
		s, err := NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, KindSQLite, err
		}
		return s, KindSQLite, nil
	default:
		return NewMemoryStore(), KindMemory, nil
	}
}
