package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/techcodes/backend/internal/db"
	"github.com/techcodes/backend/internal/models"
	"github.com/techcodes/backend/internal/sheet"
	"github.com/techcodes/backend/internal/utils"
)

// ExportHeader is the column order of the consolidated export.
var ExportHeader = []string{
	"Fecha", "Nombre del Tecnico", "Radio", "Suscriptor de la Orden", "TipoSolicitud",
	"CodigoGenerado", "MensajeGenerado", "WhatsAppLink", "Enviado",
}

const ExportSheetName = "Mensajes"

// DispatchService owns the working set: it derives batches from uploads and
// applies the operator's sent toggles.
type DispatchService struct {
	Store    db.Store
	Pipeline Pipeline
	Logger   zerolog.Logger
	Now      func() time.Time
}

type ImportSummary struct {
	BatchID         string         `json:"batch_id"`
	SourceName      string         `json:"source_name"`
	Records         int            `json:"records"`
	Sent            int            `json:"sent"`
	TimestampSource string         `json:"timestamp_source"`
	Reused          bool           `json:"reused"`
	Categories      map[string]int `json:"categories"`
	ProcessedAt     time.Time      `json:"processed_at"`
}

// Dispatch is a message rendered for sending.
type Dispatch struct {
	Record  models.Record `json:"record"`
	Message string        `json:"message"`
	Link    string        `json:"link"`
}

func (s *DispatchService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DispatchService) Ping(ctx context.Context) error {
	return s.Store.Ping(ctx)
}

// Import derives a batch from an uploaded file and replaces the working set.
// Uploading the same bytes again reuses the previous clock reference and
// sent flags, so already issued codes never move.
func (s *DispatchService) Import(ctx context.Context, name string, data []byte) (ImportSummary, error) {
	table, err := sheet.Read(name, bytes.NewReader(data))
	if err != nil {
		return ImportSummary{}, err
	}

	fingerprint := utils.Fingerprint(data)
	now := s.now()
	previousSent := map[int]bool{}
	reused := false

	prev, err := s.Store.CurrentBatch(ctx)
	switch {
	case err == nil && prev.Fingerprint == fingerprint:
		reused = true
		now = prev.ProcessedAt
		for _, r := range prev.Records {
			previousSent[r.Row] = r.Sent
		}
	case err != nil && !errors.Is(err, db.ErrNoBatch):
		return ImportSummary{}, fmt.Errorf("load current batch: %w", err)
	}

	batch, err := s.Pipeline.Run(table, now)
	if err != nil {
		s.Logger.Warn().Err(err).Str("source", name).Msg("batch rejected")
		return ImportSummary{}, err
	}
	batch.SourceName = name
	batch.Fingerprint = fingerprint
	for i := range batch.Records {
		if previousSent[batch.Records[i].Row] {
			batch.Records[i].Sent = true
		}
	}

	if err := s.Store.ReplaceBatch(ctx, batch); err != nil {
		return ImportSummary{}, fmt.Errorf("store batch: %w", err)
	}

	summary := ImportSummary{
		BatchID:         batch.ID,
		SourceName:      name,
		Records:         len(batch.Records),
		Sent:            batch.SentCount(),
		TimestampSource: batch.TimestampSource,
		Reused:          reused,
		Categories:      batch.CategoryCounts(),
		ProcessedAt:     batch.ProcessedAt,
	}
	s.Logger.Info().
		Str("batch_id", batch.ID).
		Str("source", name).
		Int("records", summary.Records).
		Str("timestamp_source", batch.TimestampSource).
		Bool("reused", reused).
		Msg("batch imported")
	return summary, nil
}

func (s *DispatchService) Batch(ctx context.Context) (models.Batch, error) {
	b, err := s.Store.CurrentBatch(ctx)
	if errors.Is(err, db.ErrNoBatch) {
		return models.Batch{}, ErrNoBatch
	}
	return b, err
}

// List returns records in sequencing order, hiding sent ones unless showSent.
func (s *DispatchService) List(ctx context.Context, showSent bool) ([]models.Record, error) {
	b, err := s.Batch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(b.Records))
	for _, r := range b.Records {
		if r.Sent && !showSent {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Lookup finds a record by spreadsheet row number or by ticket code.
func (s *DispatchService) Lookup(ctx context.Context, ref string) (models.Record, error) {
	b, err := s.Batch(ctx)
	if err != nil {
		return models.Record{}, err
	}
	idx, err := locate(b, ref)
	if err != nil {
		return models.Record{}, err
	}
	return b.Records[idx], nil
}

// Message renders the dispatch text with a manually entered token.
func (s *DispatchService) Message(ctx context.Context, ref string, token string) (Dispatch, error) {
	rec, err := s.Lookup(ctx, ref)
	if err != nil {
		return Dispatch{}, err
	}
	msg := s.Pipeline.Projector.Message(rec, token)
	return Dispatch{
		Record:  rec,
		Message: msg,
		Link:    s.Pipeline.Projector.Link(rec.Radio, msg),
	}, nil
}

// MarkSent toggles the sent flag. Nothing else on the record changes.
func (s *DispatchService) MarkSent(ctx context.Context, ref string, sent bool) (models.Record, error) {
	rec, err := s.Lookup(ctx, ref)
	if err != nil {
		return models.Record{}, err
	}
	if err := s.Store.SetSent(ctx, rec.Row, sent); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Record{}, ErrRecordNotFound
		}
		return models.Record{}, err
	}
	rec.Sent = sent
	s.Logger.Info().Str("code", rec.Code).Int("row", rec.Row).Bool("sent", sent).Msg("sent flag updated")
	return rec, nil
}

// Export writes the consolidated sheet in the given format.
func (s *DispatchService) Export(ctx context.Context, format string, w io.Writer) error {
	b, err := s.Batch(ctx)
	if err != nil {
		return err
	}
	return sheet.Write(format, w, ExportSheet(b, s.Pipeline.Resolver.Location))
}

// ExportSheet lays a batch out in export column order.
func ExportSheet(b models.Batch, loc *time.Location) sheet.Export {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([][]any, 0, len(b.Records))
	for _, r := range b.Records {
		rows = append(rows, []any{
			r.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
			r.Technician,
			r.Radio,
			r.Subscriber,
			r.Category.Label(),
			r.Code,
			r.Message,
			r.Link,
			r.Sent,
		})
	}
	return sheet.Export{Name: ExportSheetName, Header: ExportHeader, Rows: rows}
}

func locate(b models.Batch, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if row, err := strconv.Atoi(ref); err == nil {
		idx := b.FindRow(row)
		if idx < 0 {
			return 0, ErrRecordNotFound
		}
		return idx, nil
	}
	matches := b.FindCode(ref)
	switch len(matches) {
	case 0:
		return 0, ErrRecordNotFound
	case 1:
		return matches[0], nil
	default:
		return 0, ErrAmbiguousCode
	}
}
