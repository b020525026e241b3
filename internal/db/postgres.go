package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techcodes/backend/internal/models"
)

// PostgresStore persists the working set in Postgres. The schema comes from
// the migrations in this package.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{Pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ReplaceBatch(ctx context.Context, b models.Batch) error {
	rows := make([][]any, 0, len(b.Records))
	for i, r := range b.Records {
		ticket, err := json.Marshal(r.Ticket)
		if err != nil {
			return fmt.Errorf("encode ticket %s: %w", r.Code, err)
		}
		rows = append(rows, []any{b.ID, i, r.Row, r.Code, r.Category.Label(), r.TechnicianKey, r.Sequence, ticket, r.Message, r.Link, r.Sent})
	}

	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE records, batches`); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO batches (id, source_name, fingerprint, processed_at, timestamp_source)
			VALUES ($1,$2,$3,$4,$5)
		`, b.ID, b.SourceName, b.Fingerprint, b.ProcessedAt, b.TimestampSource)
		if err != nil {
			return err
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"records"},
			[]string{"batch_id", "position", "row_number", "code", "category", "technician_key", "sequence", "ticket", "message", "link", "sent"},
			pgx.CopyFromRows(rows))
		return err
	})
}

func (s *PostgresStore) CurrentBatch(ctx context.Context) (models.Batch, error) {
	var b models.Batch
	err := s.Pool.QueryRow(ctx, `
		SELECT id, source_name, fingerprint, processed_at, timestamp_source
		FROM batches ORDER BY created_at DESC LIMIT 1
	`).Scan(&b.ID, &b.SourceName, &b.Fingerprint, &b.ProcessedAt, &b.TimestampSource)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Batch{}, ErrNoBatch
		}
		return models.Batch{}, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT row_number, code, category, technician_key, sequence, ticket, message, link, sent
		FROM records WHERE batch_id = $1 ORDER BY position ASC
	`, b.ID)
	if err != nil {
		return models.Batch{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r        models.Record
			category string
			ticket   []byte
		)
		if err := rows.Scan(&r.Row, &r.Code, &category, &r.TechnicianKey, &r.Sequence, &ticket, &r.Message, &r.Link, &r.Sent); err != nil {
			return models.Batch{}, err
		}
		if err := decodeRecord(&r, category, ticket); err != nil {
			return models.Batch{}, err
		}
		b.Records = append(b.Records, r)
	}
	return b, rows.Err()
}

func (s *PostgresStore) SetSent(ctx context.Context, row int, sent bool) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE records SET sent = $1 WHERE row_number = $2`, sent, row)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeRecord(r *models.Record, category string, ticket []byte) error {
	c, err := models.ParseCategory(category)
	if err != nil {
		return err
	}
	r.Category = c
	if err := json.Unmarshal(ticket, &r.Ticket); err != nil {
		return fmt.Errorf("decode ticket %s: %w", r.Code, err)
	}
	return nil
}
