package service

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/techcodes/backend/internal/models"
	"github.com/techcodes/backend/internal/sheet"
)

// Canonical column names of the Ver3.0 form export.
const (
	FieldVehicle          = "Carro"
	FieldTechnician       = "Nombre del Tecnico"
	FieldContractor       = "Contratista"
	FieldClient           = "Nombre del cliente"
	FieldSubscriber       = "Suscriptor de la Orden"
	FieldServiceAddress   = "Numero De SA"
	FieldEscalationType   = "Tipo de Escalamiento"
	FieldClientPain       = "Dolor del Cliente"
	FieldRequest          = "Solicitud"
	FieldDiagnosis        = "Diagnóstico"
	FieldEscalationReason = "Razón de Escalamiento"
	FieldCoordinate       = "Coordenada"
	FieldRadio            = "Radio"
	FieldStartTime        = "Start time"
	FieldSent             = "Enviado"
)

// Positional fallbacks, 0-based (column K, L, R, T/U).
const (
	colClient           = 10
	colDiagnosis        = 11
	colEscalationType   = 17
	colReasonPrimary    = 19
	colReasonSupplement = 20
)

var RequiredFields = []string{
	FieldVehicle, FieldTechnician, FieldContractor, FieldClient,
	FieldSubscriber, FieldServiceAddress, FieldEscalationType,
	FieldClientPain, FieldRequest, FieldEscalationReason, FieldCoordinate, FieldRadio,
}

var fieldAliases = map[string][]string{
	FieldTechnician:       {"nombre del técnico", "tecnico", "técnico"},
	FieldDiagnosis:        {"diagnostico"},
	FieldEscalationReason: {"razon de escalamiento"},
	FieldServiceAddress:   {"número de sa"},
	FieldStartTime:        {"start_time", "hora de inicio"},
}

// timestampLayouts are tried in order for text start times.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/06 15:04",
	"2006-01-02",
	"1/2/2006",
}

// cellFunc returns the value of a resolved field for data row i.
type cellFunc func(i int) string

// Resolver turns a loosely typed table into tickets.
type Resolver struct {
	Location *time.Location
}

// Resolved is the resolver output.
type Resolved struct {
	Tickets         []models.Ticket
	TimestampSource string
}

// Resolve maps columns onto ticket fields. now stamps every ticket when the
// sheet has no start time column.
func (r Resolver) Resolve(t sheet.Table, now time.Time) (Resolved, error) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	index := headerIndex(t.Header)
	width := t.Width()

	byName := func(name string) (cellFunc, bool) {
		pos, ok := lookup(index, name)
		if !ok {
			return nil, false
		}
		return func(i int) string { return t.Cell(i, pos) }, true
	}
	byPosition := func(pos int) (cellFunc, bool) {
		if pos < 0 || pos >= width {
			return nil, false
		}
		return func(i int) string { return t.Cell(i, pos) }, true
	}

	fields := map[string]cellFunc{}
	for _, name := range RequiredFields {
		if fn, ok := byName(name); ok {
			fields[name] = fn
		}
	}
	if fn, ok := byName(FieldDiagnosis); ok {
		fields[FieldDiagnosis] = fn
	}

	fallbacks := map[string]int{
		FieldClient:         colClient,
		FieldDiagnosis:      colDiagnosis,
		FieldEscalationType: colEscalationType,
		FieldRadio:          width - 1,
	}
	for name, pos := range fallbacks {
		if _, ok := fields[name]; ok {
			continue
		}
		if fn, ok := byPosition(pos); ok {
			fields[name] = fn
		}
	}
	if _, ok := fields[FieldEscalationReason]; !ok {
		if fn, ok := reasonFallback(t, width); ok {
			fields[FieldEscalationReason] = fn
		}
	}

	var missing []string
	for _, name := range RequiredFields {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Resolved{}, &MissingColumnsError{Missing: missing}
	}

	get := func(name string, i int) string {
		if fn, ok := fields[name]; ok {
			return fn(i)
		}
		return ""
	}

	out := Resolved{TimestampSource: models.TimestampSourceClock}
	startTime, hasStart := byName(FieldStartTime)
	if hasStart {
		out.TimestampSource = models.TimestampSourceStartTime
	}
	sentCol, hasSent := byName(FieldSent)
	clock := now.In(loc)

	var tsErrs []error
	for i := range t.Rows {
		ticket := models.Ticket{
			Row:              t.Line(i),
			Vehicle:          get(FieldVehicle, i),
			Technician:       get(FieldTechnician, i),
			Contractor:       get(FieldContractor, i),
			Client:           get(FieldClient, i),
			Subscriber:       get(FieldSubscriber, i),
			ServiceAddress:   get(FieldServiceAddress, i),
			EscalationType:   get(FieldEscalationType, i),
			ClientPain:       get(FieldClientPain, i),
			Request:          get(FieldRequest, i),
			Diagnosis:        get(FieldDiagnosis, i),
			EscalationReason: get(FieldEscalationReason, i),
			Coordinate:       get(FieldCoordinate, i),
			Radio:            get(FieldRadio, i),
			Timestamp:        clock,
		}
		if hasStart {
			raw := startTime(i)
			ts, err := ParseTimestamp(raw, loc)
			if err != nil {
				tsErrs = append(tsErrs, &UnparseableTimestampError{Row: ticket.Row, Value: raw})
				continue
			}
			ticket.Timestamp = ts
		}
		if hasSent {
			ticket.MarkedSent = parseFlag(sentCol(i))
		}
		out.Tickets = append(out.Tickets, ticket)
	}
	if len(tsErrs) > 0 {
		return Resolved{}, errors.Join(tsErrs...)
	}
	return out, nil
}

// reasonFallback prefers the supplemental reason column when it holds a
// value and falls back to the primary one.
func reasonFallback(t sheet.Table, width int) (cellFunc, bool) {
	switch {
	case width > colReasonSupplement:
		return func(i int) string {
			if v := t.Cell(i, colReasonSupplement); v != "" {
				return v
			}
			return t.Cell(i, colReasonPrimary)
		}, true
	case width > colReasonPrimary:
		return func(i int) string { return t.Cell(i, colReasonPrimary) }, true
	default:
		return nil, false
	}
}

// ParseTimestamp accepts an Excel serial date or one of the text layouts.
// Wall-clock values are read in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return time.Time{}, errors.New("invalid serial date")
		}
		ts, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), loc), nil
	}
	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return ts.In(loc), nil
		}
	}
	return time.Time{}, errors.New("no matching layout")
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func lookup(idx map[string]int, name string) (int, bool) {
	if pos, ok := idx[normalizeHeader(name)]; ok {
		return pos, true
	}
	for _, alias := range fieldAliases[name] {
		if pos, ok := idx[normalizeHeader(alias)]; ok {
			return pos, true
		}
	}
	return 0, false
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "si", "sí", "yes", "x", "verdadero":
		return true
	default:
		return false
	}
}
