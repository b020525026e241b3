package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"github.com/techcodes/backend/internal/models"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStore keeps the working set in a local file, used by the CLI so the
// sent flags survive between invocations.
type SQLiteStore struct {
	DB *sql.DB
}

// sqlitePragmas are passed in the DSN so the driver applies them to every
// pooled connection, not just the first.
var sqlitePragmas = []string{"foreign_keys(1)", "busy_timeout(1000)"}

func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

func NewSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteStore{DB: conn}, nil
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQLiteStore) ReplaceBatch(ctx context.Context, b models.Batch) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches`); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (id, source_name, fingerprint, processed_at, timestamp_source)
		VALUES (?,?,?,?,?)
	`, b.ID, b.SourceName, b.Fingerprint, b.ProcessedAt.UTC().Format(time.RFC3339Nano), b.TimestampSource)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (batch_id, position, row_number, code, category, technician_key, sequence, ticket, message, link, sent)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range b.Records {
		ticket, err := json.Marshal(r.Ticket)
		if err != nil {
			return fmt.Errorf("encode ticket %s: %w", r.Code, err)
		}
		if _, err := stmt.ExecContext(ctx, b.ID, i, r.Row, r.Code, r.Category.Label(), r.TechnicianKey, r.Sequence, string(ticket), r.Message, r.Link, r.Sent); err != nil {
			return fmt.Errorf("insert record %s: %w", r.Code, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) CurrentBatch(ctx context.Context) (models.Batch, error) {
	var (
		b           models.Batch
		processedAt string
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, source_name, fingerprint, processed_at, timestamp_source FROM batches LIMIT 1
	`).Scan(&b.ID, &b.SourceName, &b.Fingerprint, &processedAt, &b.TimestampSource)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Batch{}, ErrNoBatch
		}
		return models.Batch{}, err
	}
	b.ProcessedAt, err = time.Parse(time.RFC3339Nano, processedAt)
	if err != nil {
		return models.Batch{}, fmt.Errorf("parse processed_at: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT row_number, code, category, technician_key, sequence, ticket, message, link, sent
		FROM records WHERE batch_id = ? ORDER BY position ASC
	`, b.ID)
	if err != nil {
		return models.Batch{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r        models.Record
			category string
			ticket   string
		)
		if err := rows.Scan(&r.Row, &r.Code, &category, &r.TechnicianKey, &r.Sequence, &ticket, &r.Message, &r.Link, &r.Sent); err != nil {
			return models.Batch{}, err
		}
		if err := decodeRecord(&r, category, []byte(ticket)); err != nil {
			return models.Batch{}, err
		}
		b.Records = append(b.Records, r)
	}
	return b, rows.Err()
}

func (s *SQLiteStore) SetSent(ctx context.Context, row int, sent bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE records SET sent = ? WHERE row_number = ?`, sent, row)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
