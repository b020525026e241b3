package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the classification bucket that drives the ticket code prefix.
type Category uint8

const (
	CategoryOther Category = iota
	CategoryTapNap
	CategoryMCO
	CategoryRecabling
)

// Categories lists every category in display order.
var Categories = []Category{CategoryTapNap, CategoryMCO, CategoryRecabling, CategoryOther}

func (c Category) Label() string {
	switch c {
	case CategoryTapNap:
		return "TAP/NAP"
	case CategoryMCO:
		return "MCO"
	case CategoryRecabling:
		return "Recableado"
	case CategoryOther:
		return "Otro"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}

func (c Category) String() string {
	return c.Label()
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.Label()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory accepts a display label or an enum-style name (TAP_NAP, RECABLEADO...).
func ParseCategory(value string) (Category, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	switch v {
	case "TAP/NAP", "TAP_NAP":
		return CategoryTapNap, nil
	case "MCO":
		return CategoryMCO, nil
	case "RECABLEADO":
		return CategoryRecabling, nil
	case "OTRO", "":
		return CategoryOther, nil
	default:
		return CategoryOther, fmt.Errorf("unknown category %q", value)
	}
}

// Ticket is one resolved input row.
type Ticket struct {
	Row              int       `json:"row"`
	Vehicle          string    `json:"vehicle"`
	Technician       string    `json:"technician"`
	Contractor       string    `json:"contractor"`
	Client           string    `json:"client"`
	Subscriber       string    `json:"subscriber"`
	ServiceAddress   string    `json:"service_address"`
	EscalationType   string    `json:"escalation_type"`
	ClientPain       string    `json:"client_pain"`
	Request          string    `json:"request"`
	Diagnosis        string    `json:"diagnosis"`
	EscalationReason string    `json:"escalation_reason"`
	Coordinate       string    `json:"coordinate"`
	Radio            string    `json:"radio"`
	Timestamp        time.Time `json:"timestamp"`
	MarkedSent       bool      `json:"marked_sent,omitempty"`
}

// Record is the derived, exportable view of a ticket. Everything except Sent
// is fixed once the record is derived.
type Record struct {
	Ticket
	Category      Category `json:"category"`
	TechnicianKey string   `json:"technician_key"`
	Sequence      int      `json:"sequence"`
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	Link          string   `json:"link"`
	Sent          bool     `json:"sent"`
}

const (
	TimestampSourceStartTime = "start_time"
	TimestampSourceClock     = "clock"
)

// Batch is the single working set derived from one uploaded file.
type Batch struct {
	ID              string    `json:"id"`
	SourceName      string    `json:"source_name"`
	Fingerprint     string    `json:"fingerprint"`
	ProcessedAt     time.Time `json:"processed_at"`
	TimestampSource string    `json:"timestamp_source"`
	Records         []Record  `json:"records"`
}

// FindRow returns the index of the record built from spreadsheet row, or -1.
func (b Batch) FindRow(row int) int {
	for i := range b.Records {
		if b.Records[i].Row == row {
			return i
		}
	}
	return -1
}

// FindCode returns the indexes of every record carrying code. Codes from
// different months can coincide (Mar 5 and May 3 both sum to 08M).
func (b Batch) FindCode(code string) []int {
	var out []int
	for i := range b.Records {
		if b.Records[i].Code == code {
			out = append(out, i)
		}
	}
	return out
}

// CategoryCounts counts records per category label.
func (b Batch) CategoryCounts() map[string]int {
	counts := map[string]int{}
	for _, c := range Categories {
		counts[c.Label()] = 0
	}
	for _, r := range b.Records {
		counts[r.Category.Label()]++
	}
	return counts
}

// SentCount counts records already marked as sent.
func (b Batch) SentCount() int {
	n := 0
	for _, r := range b.Records {
		if r.Sent {
			n++
		}
	}
	return n
}
