// Package spreadsheet reads and writes the CSV and XLSX files used for bulk
// import and export. Rows are keyed by normalized header names.
package spreadsheet

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

var ErrUnsupportedFormat = errors.New("unsupported file format: expected .csv or .xlsx")

// Row is one data row. Line is the 1-based line in the source file, so the
// first data row under the header is line 2.
type Row struct {
	Line  int
	Cells map[string]string
}

// Get returns the trimmed value of the first alias present in the row.
func (r Row) Get(aliases ...string) string {
	for _, a := range aliases {
		if v, ok := r.Cells[NormalizeHeader(a)]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// NormalizeHeader lower-cases h and drops everything that is not a letter or
// digit, so "Quantity Bought", "quantity_bought" and "QuantityBought" agree.
func NormalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReadFile parses path according to its extension.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(f)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return toRows(records), nil
}

// ReadXLSX reads the first sheet of the workbook.
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("parse xlsx: workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	return toRows(records), nil
}

// toRows maps records under the first (header) record. Blank lines are
// dropped; short lines leave missing cells empty.
func toRows(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = NormalizeHeader(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		cells := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			if _, seen := cells[h]; seen {
				continue
			}
			if j < len(rec) {
				cells[h] = strings.TrimSpace(rec[j])
			} else {
				cells[h] = ""
			}
		}
		rows = append(rows, Row{Line: i + 2, Cells: cells})
	}
	return rows
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes headers followed by rows.
func WriteCSV(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a single sheet workbook.
func WriteXLSX(w io.Writer, sheet string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	if err := sw.SetRow("A1", toCells(headers)); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
