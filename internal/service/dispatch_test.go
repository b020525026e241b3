package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/techcodes/backend/internal/db"
)

func newTestService(now time.Time) *DispatchService {
	return &DispatchService{
		Store:    db.NewMemoryStore(),
		Pipeline: testPipeline(),
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return now },
	}
}

func sampleCSV(t *testing.T) []byte {
	return ticketCSV(t, false,
		testRow{tech: "Juan Perez", reason: "NAP lleno", radio: "6123 4567"},
		testRow{tech: "Juan Perez", reason: "bajo nivel", radio: "6123 4567"},
		testRow{tech: "Ana Gomez", reason: "drop dañado", radio: "6000 1111"},
	)
}

func TestImportAndList(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))

	summary, err := svc.Import(ctx, "tickets.csv", sampleCSV(t))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Records != 3 || summary.Reused {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Categories["TAP/NAP"] != 1 || summary.Categories["Otro"] != 0 {
		t.Fatalf("unexpected category counts: %v", summary.Categories)
	}

	recs, err := svc.List(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Code != "413908MJP1" || recs[1].Code != "C413008MJP2" || recs[2].Code != "RC413008MAG1" {
		t.Fatalf("unexpected codes: %s %s %s", recs[0].Code, recs[1].Code, recs[2].Code)
	}
}

func TestListWithoutBatch(t *testing.T) {
	svc := newTestService(time.Now())
	if _, err := svc.List(context.Background(), true); !errors.Is(err, ErrNoBatch) {
		t.Fatalf("expected ErrNoBatch, got %v", err)
	}
}

func TestMarkSentKeepsCodeAndHidesRecord(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	if _, err := svc.Import(ctx, "tickets.csv", sampleCSV(t)); err != nil {
		t.Fatalf("import: %v", err)
	}
	before, err := svc.Lookup(ctx, "C413008MJP2")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	rec, err := svc.MarkSent(ctx, "C413008MJP2", true)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if !rec.Sent {
		t.Fatalf("expected record to be sent")
	}

	after, err := svc.Lookup(ctx, "C413008MJP2")
	if err != nil {
		t.Fatalf("lookup after: %v", err)
	}
	if after.Code != before.Code || after.Message != before.Message || after.Link != before.Link {
		t.Fatalf("marking sent changed derived fields")
	}

	visible, err := svc.List(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("expected sent record hidden, got %d records", len(visible))
	}
	all, err := svc.List(ctx, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records with show sent, got %d", len(all))
	}

	if _, err := svc.MarkSent(ctx, "NOPE", true); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestReimportSameBytesKeepsCodesAndSentFlags(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	data := sampleCSV(t)
	if _, err := svc.Import(ctx, "tickets.csv", data); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := svc.MarkSent(ctx, "2", true); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	svc.Now = func() time.Time { return time.Date(2024, 4, 20, 15, 0, 0, 0, time.UTC) }
	summary, err := svc.Import(ctx, "tickets.csv", data)
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if !summary.Reused || summary.Sent != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	rec, err := svc.Lookup(ctx, "2")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Code != "413908MJP1" || !rec.Sent {
		t.Fatalf("expected stable code and sent flag, got %+v", rec)
	}
}

func TestImportNewFileResetsWorkingSet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	if _, err := svc.Import(ctx, "tickets.csv", sampleCSV(t)); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := svc.MarkSent(ctx, "2", true); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	other := ticketCSV(t, false, testRow{tech: "Luis Rios", reason: "poste", radio: "1"})
	summary, err := svc.Import(ctx, "otro.csv", other)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Reused || summary.Records != 1 || summary.Sent != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestLookupAmbiguousCode(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Now())
	data := ticketCSV(t, true,
		testRow{start: "2024-03-05 08:00:00", tech: "Juan Perez", reason: "", radio: "1"},
		testRow{start: "2024-05-03 08:00:00", tech: "Juan Perez", reason: "", radio: "1"},
	)
	if _, err := svc.Import(ctx, "tickets.csv", data); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := svc.Lookup(ctx, "CODIGO08MJP1"); !errors.Is(err, ErrAmbiguousCode) {
		t.Fatalf("expected ErrAmbiguousCode, got %v", err)
	}
	rec, err := svc.Lookup(ctx, "3")
	if err != nil {
		t.Fatalf("lookup by row: %v", err)
	}
	if rec.Timestamp.Month() != time.May {
		t.Fatalf("expected May ticket, got %v", rec.Timestamp)
	}
}

func TestImportRejectsBadBatch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Now())

	_, err := svc.Import(ctx, "tickets.csv", []byte("Carro,Radio\n12,6000\n"))
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}

	data := ticketCSV(t, true, testRow{start: "ayer", tech: "Juan Perez", radio: "1"})
	_, err = svc.Import(ctx, "tickets.csv", data)
	if rows := TimestampErrors(err); len(rows) != 1 || rows[0].Row != 2 {
		t.Fatalf("expected timestamp error on row 2, got %v", err)
	}
	if _, err := svc.Batch(ctx); !errors.Is(err, ErrNoBatch) {
		t.Fatalf("rejected import must not store a batch, got %v", err)
	}
}

func TestMessageWithToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	if _, err := svc.Import(ctx, "tickets.csv", sampleCSV(t)); err != nil {
		t.Fatalf("import: %v", err)
	}
	d, err := svc.Message(ctx, "413908MJP1", "445566")
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if !strings.Contains(d.Message, "🔐Token: 445566") {
		t.Fatalf("expected token in message:\n%s", d.Message)
	}
	if !strings.Contains(d.Link, "445566") {
		t.Fatalf("expected token in link: %s", d.Link)
	}
	stored, err := svc.Lookup(ctx, "413908MJP1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if strings.Contains(stored.Message, "445566") {
		t.Fatalf("manual token must not be persisted")
	}
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	if _, err := svc.Import(ctx, "tickets.csv", sampleCSV(t)); err != nil {
		t.Fatalf("import: %v", err)
	}
	var buf bytes.Buffer
	if err := svc.Export(ctx, "csv", &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, strings.Join(ExportHeader, ",")+"\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "2024-03-05 10:00:00,Juan Perez,6123 4567,900123,TAP/NAP,413908MJP1,") {
		t.Fatalf("unexpected first row:\n%s", out)
	}
}

func TestLookupByRowAfterBlankLine(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	lines := strings.SplitAfter(string(sampleCSV(t)), "\n")
	data := lines[0] + lines[1] + "\n" + lines[2] + lines[3]
	if _, err := svc.Import(ctx, "tickets.csv", []byte(data)); err != nil {
		t.Fatalf("import: %v", err)
	}
	rec, err := svc.MarkSent(ctx, "4", true)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if rec.Code != "C413008MJP2" {
		t.Fatalf("row 4 should be the second sheet ticket, got %s", rec.Code)
	}
	if _, err := svc.Lookup(ctx, "3"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("blank line 3 must not resolve to a ticket, got %v", err)
	}
}
