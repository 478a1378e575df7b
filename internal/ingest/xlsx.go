package ingest

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "regpulse/internal/errors"
)

// Format identifies an upload's spreadsheet format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks a format from the uploaded file name. Anything that is
// not an Excel workbook is treated as CSV, the common case.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Parse dispatches on format.
func Parse(content []byte, format Format) (*Table, error) {
	if format == FormatXLSX {
		return ParseXLSX(content)
	}
	return ParseCSV(content)
}

// ParseXLSX parses an Excel workbook. The first sheet containing rows is
// used; its first row is the header, remaining rows are data. The same
// shape rules as CSV apply: over-wide rows are dropped, narrow rows padded.
func ParseXLSX(content []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, apperrors.NewParsingError("could not open the Excel workbook", err)
	}
	defer f.Close()

	var rows [][]string
	for _, name := range f.GetSheetList() {
		sheetRows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if len(sheetRows) > 0 {
			rows = sheetRows
			break
		}
	}

	if len(rows) == 0 {
		return nil, apperrors.ErrEmptyInput
	}

	headers := rows[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	if len(headers) == 0 || (len(headers) == 1 && strings.TrimSpace(headers[0]) == "") {
		return nil, apperrors.ErrEmptyInput
	}

	var data [][]string
	for _, row := range rows[1:] {
		switch {
		case len(row) > len(headers):
			// Same policy as malformed CSV rows.
			continue
		case len(row) < len(headers):
			padded := make([]string, len(headers))
			copy(padded, row)
			data = append(data, padded)
		default:
			data = append(data, row)
		}
	}

	if len(data) == 0 {
		return nil, apperrors.ErrEmptyInput
	}

	return &Table{Headers: headers, Rows: data}, nil
}
