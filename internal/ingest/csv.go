// Package ingest turns uploaded spreadsheet bytes into a raw tabular
// structure. Parsing is deliberately forgiving: encoding noise is dropped,
// line endings are normalized and rows that do not fit the detected column
// count are skipped silently. Only structurally hopeless input fails.
package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	apperrors "regpulse/internal/errors"
)

// Table is a raw parsed spreadsheet: a header row plus data rows, every row
// padded or trimmed to the header width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ParseCSV decodes and parses comma-separated bytes.
//
// Decoding drops invalid UTF-8 byte sequences instead of failing, CRLF line
// endings are normalized to LF, and a leading byte-order mark is stripped
// from the first header name. Rows with more fields than the header are
// skipped; rows with fewer are padded with empty cells.
func ParseCSV(content []byte) (*Table, error) {
	text := decodeLenient(content)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = false

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.ErrEmptyInput
	}
	if err != nil {
		return nil, apperrors.NewParsingError("could not read the CSV header row", err)
	}

	headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	if len(headers) == 0 || (len(headers) == 1 && strings.TrimSpace(headers[0]) == "") {
		return nil, apperrors.ErrEmptyInput
	}

	var (
		rows    [][]string
		skipped int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Malformed row. Dropped by policy, not surfaced.
			skipped++
			continue
		}
		if err != nil {
			return nil, apperrors.NewParsingError("could not parse the CSV content", err)
		}

		switch {
		case len(record) > len(headers):
			skipped++
		case len(record) < len(headers):
			padded := make([]string, len(headers))
			copy(padded, record)
			rows = append(rows, padded)
		default:
			rows = append(rows, record)
		}
	}

	if skipped > 0 {
		slog.Debug("skipped malformed CSV rows",
			slog.Int("skipped", skipped),
			slog.Int("kept", len(rows)))
	}

	if len(rows) == 0 {
		return nil, apperrors.ErrEmptyInput
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// decodeLenient interprets bytes as UTF-8, dropping invalid sequences the
// way a decode with errors ignored would.
func decodeLenient(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}

	var b strings.Builder
	b.Grow(len(content))
	for len(content) > 0 {
		r, size := utf8.DecodeRune(content)
		if r == utf8.RuneError && size == 1 {
			content = content[1:]
			continue
		}
		b.WriteRune(r)
		content = content[size:]
	}
	return b.String()
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}
