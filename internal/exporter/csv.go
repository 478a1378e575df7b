// Package exporter renders filtered registration records back to CSV for
// download. Export is in-memory: the output is a byte slice handed straight
// to the HTTP layer, never a file on disk.
package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"regpulse/pkg/contracts/domain"
)

// ExportFilename is the download name offered for filtered exports.
const ExportFilename = "filtered_registrations.csv"

// ExportCSV serializes the filtered records as UTF-8 CSV bytes: the original
// header row followed by each record's original cells, with no index column.
// The output always ends with a trailing newline; an empty record set yields
// just the header row.
func ExportCSV(headers []string, records []*domain.Registration) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.Row); err != nil {
			return nil, fmt.Errorf("write record row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv export: %w", err)
	}
	return buf.Bytes(), nil
}
