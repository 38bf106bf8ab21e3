// Package importer turns uploaded member spreadsheets into roster rows.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/roster"
)

// headerAliases maps lowercased column titles onto canonical field names
var headerAliases = map[string]string{
	"name":              roster.FieldFullName,
	"full name":         roster.FieldFullName,
	"fullname":          roster.FieldFullName,
	"user":              roster.FieldFullName,
	"email":             roster.FieldEmail,
	"e-mail":            roster.FieldEmail,
	"mobile":            roster.FieldPhone,
	"phone":             roster.FieldPhone,
	"phone number":      roster.FieldPhone,
	"chapter":           roster.FieldChapterName,
	"chapter name":      roster.FieldChapterName,
	"chaptername":       roster.FieldChapterName,
	"status":            roster.FieldMemberStatus,
	"membership status": roster.FieldMemberStatus,
	"memberstatus":      roster.FieldMemberStatus,
	"category":          roster.FieldBusinessCategory,
	"business category": roster.FieldBusinessCategory,
	"businesscategory":  roster.FieldBusinessCategory,
}

// NormalizeHeader returns the canonical field for a column title, or the
// trimmed title when it is not recognised.
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	if field, ok := headerAliases[strings.ToLower(h)]; ok {
		return field
	}
	return h
}

// columns maps each spreadsheet column onto its canonical field
type columns []string

func newColumns(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		cols[i] = NormalizeHeader(h)
	}
	return cols
}

// row builds a roster row from one record. Short records are padded with
// empty cells; when two columns map to the same field the first non-empty
// value wins.
func (c columns) row(line int, record []string) roster.Row {
	row := roster.Row{Line: line, Fields: make(map[string]string, len(c))}
	for i, field := range c {
		if field == "" {
			continue
		}
		var v string
		if i < len(record) {
			v = strings.TrimSpace(record[i])
		}
		if _, dup := row.Fields[field]; dup && v == "" {
			continue
		}
		row.Fields[field] = v
	}
	return row
}

// ParseCSV reads a header line followed by data rows. Row.Line is the
// line the record starts on, so the first data row is line 2. Empty lines
// between records come back as blank rows so they count towards the
// total the way spreadsheet rows do.
func ParseCSV(r io.Reader) ([]roster.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Validation("empty sheet")
	}
	if err != nil {
		return nil, apperr.Validation("failed to read header: %v", err)
	}
	cols := newColumns(header)
	lastLine := endLine(cr, header)

	rows := []roster.Row{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Validation("failed to read rows: %v", err)
		}
		line, _ := cr.FieldPos(0)
		for blank := lastLine + 1; blank < line; blank++ {
			rows = append(rows, cols.row(blank, nil))
		}
		lastLine = endLine(cr, record)

		rows = append(rows, cols.row(line, record))
	}
	return rows, nil
}

// endLine returns the line the record just read ends on. Quoted cells
// may span several lines.
func endLine(cr *csv.Reader, record []string) int {
	last := len(record) - 1
	line, _ := cr.FieldPos(last)
	return line + strings.Count(record[last], "\n")
}

// WriteTemplate writes an empty CSV with the canonical column titles
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Full Name", "Email", "Phone", "Chapter", "Status", "Category"}); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
