// Package importer turns uploaded spreadsheets into sampling populations and
// trial balances.
//
// Files are read into a Table whose rows are keyed by normalized header text.
// Column detection then maps those headers onto the fields each parser needs
// using an alias table, so "Supplier", "Vendor Name" and "Payee" all feed the
// vendor field.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither xlsx nor csv.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptySheet is returned when a file has no header row.
	ErrEmptySheet = errors.New("sheet has no header row")

	// ErrMissingColumn is returned when a required column cannot be detected.
	ErrMissingColumn = errors.New("required column not found")

	// ErrInvalidRow wraps a cell that could not be parsed.
	ErrInvalidRow = errors.New("invalid row")
)

// Row is one data row keyed by normalized header.
type Row struct {
	// Line is the 1-based row number in the sheet, counting the header.
	Line   int
	Values map[string]string
}

// Get returns the trimmed value under a normalized header.
func (r Row) Get(header string) string {
	return strings.TrimSpace(r.Values[header])
}

// Table is a parsed sheet.
type Table struct {
	// Headers are normalized header names in column order.
	Headers []string
	Rows    []Row
}

// ReadFile reads a .xlsx or .csv file from disk.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return Read(filepath.Base(path), f)
}

// Read parses r according to the extension of name.
func Read(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".csv", ".txt":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return buildTable(rows)
}

// ReadCSV reads comma-separated data with a header row.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	return buildTable(rows)
}

// buildTable treats the first non-blank row as the header row.
func buildTable(rows [][]string) (*Table, error) {
	headerIdx := -1
	for i, row := range rows {
		if !blank(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmptySheet
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = NormalizeHeader(h)
	}

	table := &Table{Headers: headers}
	for i := headerIdx + 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		values := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" || j >= len(rows[i]) {
				continue
			}
			if _, dup := values[h]; dup {
				continue
			}
			values[h] = rows[i][j]
		}
		table.Rows = append(table.Rows, Row{Line: i + 1, Values: values})
	}

	return table, nil
}

// NormalizeHeader lower-cases a header and collapses punctuation and
// whitespace to single spaces: "Invoice No." becomes "invoice no".
func NormalizeHeader(h string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
			continue
		}
		space = true
	}
	return b.String()
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
