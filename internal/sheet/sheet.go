package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptySheet        = errors.New("sheet has no header row")
	ErrUnreadable        = errors.New("file cannot be read as a sheet")
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Table is a loosely typed sheet: a header row plus data rows. Rows may be
// shorter than the header when trailing cells are empty. Lines holds the
// 1-based sheet line of each row, which differs from its index once blank
// rows are dropped.
type Table struct {
	Header []string
	Rows   [][]string
	Lines  []int
}

// Line returns the sheet line of data row i. Tables built without Lines
// count rows contiguously after the header.
func (t Table) Line(i int) int {
	if i >= 0 && i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Width is the number of columns of the widest row, header included.
func (t Table) Width() int {
	w := len(t.Header)
	for _, r := range t.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Cell returns the trimmed value at (row, col), or "" when out of range.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// FormatFromName maps a file name to a supported format.
func FormatFromName(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Read loads a table, picking the reader from the file name extension.
func Read(name string, r io.Reader) (Table, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return Table{}, err
	}
	if format == FormatCSV {
		return ReadCSV(r)
	}
	return ReadXLSX(r)
}

// ReadXLSX reads the active worksheet. Cell values are kept raw so date cells
// arrive as Excel serial numbers instead of locale-formatted strings.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("%w: open workbook: %v", ErrUnreadable, err)
	}
	defer f.Close()

	name := f.GetSheetName(f.GetActiveSheetIndex())
	if name == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return Table{}, ErrEmptySheet
		}
		name = list[0]
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", name, err)
	}
	lines := make([]int, len(rows))
	for i := range rows {
		lines[i] = i + 1
	}
	return fromRows(rows, lines)
}

// ReadCSV reads a csv sheet. The reader drops empty lines on its own, so
// each record's sheet line is recovered from its position in the input.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		rows    [][]string
		lines   []int
		line    int
		lastEnd int
	)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("%w: read csv: %v", ErrUnreadable, err)
		}
		start, _ := reader.FieldPos(0)
		if skipped := start - lastEnd - 1; skipped > 0 {
			line += skipped
		}
		line++
		end, _ := reader.FieldPos(len(rec) - 1)
		lastEnd = end + strings.Count(rec[len(rec)-1], "\n")

		rows = append(rows, rec)
		lines = append(lines, line)
	}
	return fromRows(rows, lines)
}

// fromRows splits off the header and drops blank rows. lines[i] is the
// sheet line of rows[i].
func fromRows(rows [][]string, lines []int) (Table, error) {
	if len(rows) == 0 {
		return Table{}, ErrEmptySheet
	}
	t := Table{Header: rows[0]}
	for i, r := range rows[1:] {
		if blank(r) {
			continue
		}
		t.Rows = append(t.Rows, r)
		t.Lines = append(t.Lines, lines[i+1])
	}
	return t, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
