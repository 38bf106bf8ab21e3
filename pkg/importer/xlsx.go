package importer

import (
	"bufio"
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/roster"
)

// xlsxMagic is the zip local file header every xlsx workbook starts with
var xlsxMagic = []byte("PK\x03\x04")

// Parse reads an uploaded roster. The file extension picks the format;
// without a known extension a zip signature means xlsx and anything else
// is read as CSV.
func Parse(filename string, r io.Reader) ([]roster.Row, error) {
	br := bufio.NewReader(r)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(br)
	case ".csv", ".txt":
		return ParseCSV(br)
	case ".xls":
		return nil, apperr.Validation("legacy .xls workbooks are not supported, save as xlsx or csv")
	}

	magic, _ := br.Peek(len(xlsxMagic))
	if bytes.Equal(magic, xlsxMagic) {
		return ParseXLSX(br)
	}
	return ParseCSV(br)
}

// ParseXLSX reads the first worksheet of a workbook. The first row holds
// the column titles and Row.Line is the worksheet row number.
func ParseXLSX(r io.Reader) ([]roster.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("failed to open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("empty sheet")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validation("failed to read rows: %v", err)
	}
	if len(records) == 0 {
		return nil, apperr.Validation("empty sheet")
	}

	cols := newColumns(records[0])
	rows := make([]roster.Row, 0, len(records)-1)
	for i, record := range records[1:] {
		rows = append(rows, cols.row(i+2, record))
	}
	return rows, nil
}
