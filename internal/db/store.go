package db

import (
	"context"
	"embed"
	"errors"

	"github.com/techcodes/backend/internal/models"
)

var (
	ErrNoBatch  = errors.New("no batch stored")
	ErrNotFound = errors.New("record not found")
)

// Migrations holds the Postgres schema, applied by cmd/migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Store keeps the single working set. ReplaceBatch discards whatever was
// stored before.
type Store interface {
	Ping(ctx context.Context) error
	Close() error
	ReplaceBatch(ctx context.Context, b models.Batch) error
	CurrentBatch(ctx context.Context) (models.Batch, error)
	SetSent(ctx context.Context, row int, sent bool) error
}
