package service

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/techcodes/backend/internal/sheet"
)

var panama = time.FixedZone("EST", -5*60*60)

type testRow struct {
	start  string
	tech   string
	reason string
	radio  string
}

func testHeader(withStart bool) []string {
	h := []string{
		FieldVehicle, FieldTechnician, FieldContractor, FieldClient, FieldSubscriber,
		FieldServiceAddress, FieldEscalationType, FieldClientPain, FieldRequest,
		FieldDiagnosis, FieldEscalationReason, FieldCoordinate, FieldRadio,
	}
	if withStart {
		return append([]string{FieldStartTime}, h...)
	}
	return h
}

func ticketTable(withStart bool, rows ...testRow) sheet.Table {
	t := sheet.Table{Header: testHeader(withStart)}
	for _, r := range rows {
		cells := []string{
			"12", r.tech, "ACME", "Maria Lopez", "900123", "SA-77", "Soporte",
			"Sin internet", "Revision", r.reason, r.reason, "8.98,-79.52", r.radio,
		}
		if withStart {
			cells = append([]string{r.start}, cells...)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func ticketCSV(t *testing.T, withStart bool, rows ...testRow) []byte {
	t.Helper()
	table := ticketTable(withStart, rows...)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := w.WriteAll(table.Rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	return buf.Bytes()
}

func testPipeline() Pipeline {
	return Pipeline{
		Resolver: Resolver{Location: panama},
		Projector: Projector{
			BaseURL:          "https://wa.me",
			CountryCode:      "507",
			TokenPlaceholder: DefaultTokenPlaceholder,
			StripPictographs: true,
		},
	}
}
