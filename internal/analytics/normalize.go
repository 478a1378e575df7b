// Package analytics implements the registration pipeline: normalization of
// raw spreadsheet rows into typed records, conjunctive filtering and the
// aggregation views a dashboard renders. Every function here is pure over
// its inputs, so results are memoizable by content.
package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	apperrors "regpulse/internal/errors"
	"regpulse/internal/ingest"
	"regpulse/pkg/contracts/domain"
)

// timestampLayouts are tried in order when parsing the Created At column.
// Values without an explicit zone are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"01/02/2006 15:04:05 PM",
	"01/02/2006 3:04 PM",
}

// Normalizer converts a raw ingested table into a typed Dataset.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer. A nil logger falls back to the default.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger: logger.With(slog.String("component", "normalizer")),
	}
}

// DatasetID returns the content identity of an upload: the SHA-256 hex
// digest of its raw bytes. Identical uploads always map to the same ID.
func DatasetID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Normalize turns a raw table into a Dataset. Rows whose timestamp or year
// of study cannot be interpreted are dropped, not errored: a partially dirty
// export still yields a usable dataset. Dropping every row is an empty-input
// failure.
func (n *Normalizer) Normalize(content []byte, table *ingest.Table) (*domain.Dataset, error) {
	createdIdx := table.ColumnIndex(domain.ColCreatedAt)
	yearIdx := table.ColumnIndex(domain.ColYearOfStudy)
	if createdIdx < 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("required column %q is missing", domain.ColCreatedAt), nil)
	}
	if yearIdx < 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("required column %q is missing", domain.ColYearOfStudy), nil)
	}

	collegeIdx := table.ColumnIndex(domain.ColCollege)
	genderIdx := table.ColumnIndex(domain.ColGender)
	degreeIdx := table.ColumnIndex(domain.ColDegree)
	firstNameIdx := table.ColumnIndex(domain.ColFirstName)
	eventsIdx := table.ColumnIndex(domain.ColEvents)
	teamsIdx := table.ColumnIndex(domain.ColTeams)

	records := make([]domain.Registration, 0, len(table.Rows))
	var droppedTime, droppedYear int

	for _, row := range table.Rows {
		ts, ok := parseTimestamp(row[createdIdx])
		if !ok {
			droppedTime++
			continue
		}
		year, ok := cleanYear(row[yearIdx])
		if !ok {
			droppedYear++
			continue
		}

		rec := domain.Registration{
			Row:       row,
			CreatedAt: ts,
			Date:      truncateToDate(ts),
			Year:      year,
			College:   cell(row, collegeIdx),
			Gender:    cell(row, genderIdx),
			Degree:    cell(row, degreeIdx),
			FirstName: cell(row, firstNameIdx),
			Team:      cell(row, teamsIdx),
			Events:    SplitEvents(cell(row, eventsIdx)),
		}
		records = append(records, rec)
	}

	if droppedTime > 0 || droppedYear > 0 {
		n.logger.Info("dropped rows during normalization",
			slog.Int("bad_timestamp", droppedTime),
			slog.Int("bad_year", droppedYear),
			slog.Int("kept", len(records)))
	}

	if len(records) == 0 {
		return nil, apperrors.ErrEmptyInput
	}

	return &domain.Dataset{
		ID:      DatasetID(content),
		Headers: table.Headers,
		Records: records,
		RawRows: len(table.Rows),
	}, nil
}

// parseTimestamp tries the known layouts and converts the result to UTC.
func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	// Bare unix seconds show up in some exports.
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 1_000_000_000 {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}

// truncateToDate strips the time-of-day component, keeping midnight UTC.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// cleanYear coerces a raw year-of-study cell to its canonical integer label.
// Integral floats ("2.0") are accepted, anything non-numeric is rejected.
func cleanYear(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return strconv.Itoa(v), true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	if f != float64(int64(f)) {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

// cell returns a trimmed cell value, tolerating a missing column.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// SplitEvents splits a semicolon-delimited event list into trimmed names,
// dropping empty segments. Duplicate names are preserved.
func SplitEvents(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, domain.EventSeparator)
	events := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			events = append(events, name)
		}
	}
	if len(events) == 0 {
		return nil
	}
	return events
}

// Facets computes the observed value space of a dataset: distinct colleges,
// year labels and event names plus the full date range.
func Facets(ds *domain.Dataset) domain.DatasetFacets {
	colleges := newCounter()
	years := newCounter()
	events := newCounter()

	var first, last time.Time
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.College != "" {
			colleges.Add(rec.College)
		}
		years.Add(rec.Year)
		for _, ev := range rec.Events {
			events.Add(ev)
		}
		if first.IsZero() || rec.Date.Before(first) {
			first = rec.Date
		}
		if last.IsZero() || rec.Date.After(last) {
			last = rec.Date
		}
	}

	facets := domain.DatasetFacets{
		Colleges: colleges.SortedKeys(),
		Years:    years.Keys(),
		Events:   events.SortedKeys(),
	}
	domain.SortYearLabels(facets.Years)
	if !first.IsZero() {
		facets.FirstDate = first.Format(domain.DateLayout)
		facets.LastDate = last.Format(domain.DateLayout)
	}
	return facets
}
