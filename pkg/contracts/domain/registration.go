package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Canonical column names expected in uploaded registration exports.
// Column order is unconstrained and extra columns are ignored.
const (
	ColCreatedAt   = "Created At"
	ColYearOfStudy = "Year of Study"
	ColCollege     = "College Name"
	ColGender      = "Gender"
	ColDegree      = "Degree"
	ColFirstName   = "First Name"
	ColEvents      = "Registered Events"
	ColTeams       = "Teams"
)

// EventSeparator delimits event names inside the Registered Events column.
const EventSeparator = ";"

// Registration is one normalized registration row. It keeps the original
// cells (aligned with the dataset headers) so the filtered set can be
// exported byte-faithfully, plus the derived fields used by analytics.
type Registration struct {
	// Row holds the original cell values, aligned with Dataset.Headers.
	Row []string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	// Date is the calendar date of CreatedAt, truncated to midnight UTC.
	Date time.Time `json:"date"`
	// Year is the cleaned year-of-study label, e.g. "2". Always non-empty.
	Year string `json:"year"`

	College   string   `json:"college"`
	Gender    string   `json:"gender"`
	Degree    string   `json:"degree"`
	FirstName string   `json:"first_name"`
	Team      string   `json:"team"`
	Events    []string `json:"events,omitempty"`
}

// HasCompletedProfile reports whether name, college and gender are all
// present. Demographic breakdowns only consider completed profiles.
func (r *Registration) HasCompletedProfile() bool {
	return r.FirstName != "" && r.College != "" && r.Gender != ""
}

// Dataset is a parsed and normalized registration table. Records are
// immutable after normalization; every record carries a valid Date and Year.
type Dataset struct {
	// ID is the SHA-256 hex digest of the uploaded bytes.
	ID      string         `json:"id"`
	Headers []string       `json:"headers"`
	Records []Registration `json:"-"`
	// RawRows is the number of rows the upload contained before
	// normalization dropped unparseable ones.
	RawRows int `json:"raw_rows"`
}

// EventEntry is one (record, event name) pair produced by splitting a
// record's semicolon-delimited event list. A record listing the same event
// twice contributes two entries.
type EventEntry struct {
	Record *Registration
	Event  string
}

// FilterSelection is the (colleges, years, date range) triple chosen by the
// user. Empty slices and empty date bounds mean "no restriction", matching
// the UI defaults of all colleges, all years and the full observed range.
type FilterSelection struct {
	Colleges []string `json:"colleges,omitempty"`
	Years    []string `json:"years,omitempty"`
	From     string   `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To       string   `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// IsZero reports whether the selection restricts nothing.
func (s FilterSelection) IsZero() bool {
	return len(s.Colleges) == 0 && len(s.Years) == 0 && s.From == "" && s.To == ""
}

// DateRange resolves the inclusive [from, to] bounds. A single supplied
// endpoint collapses the range to that exact date on both bounds.
func (s FilterSelection) DateRange() (from, to time.Time, ok bool, err error) {
	if s.From == "" && s.To == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	fromStr, toStr := s.From, s.To
	if fromStr == "" {
		fromStr = toStr
	}
	if toStr == "" {
		toStr = fromStr
	}
	from, err = time.Parse(DateLayout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	to, err = time.Parse(DateLayout, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return from, to, true, nil
}

// CacheKey returns a canonical string identifying the selection, used as
// part of memoization cache keys. Equal selections (regardless of slice
// order) produce equal keys.
func (s FilterSelection) CacheKey() string {
	colleges := append([]string(nil), s.Colleges...)
	years := append([]string(nil), s.Years...)
	sort.Strings(colleges)
	sort.Strings(years)

	var b strings.Builder
	b.WriteString("c=")
	b.WriteString(strings.Join(colleges, "\x1f"))
	b.WriteString("|y=")
	b.WriteString(strings.Join(years, "\x1f"))
	b.WriteString("|from=")
	b.WriteString(s.From)
	b.WriteString("|to=")
	b.WriteString(s.To)
	return b.String()
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// SortYearLabels orders cleaned year labels numerically ("2" before "10"),
// falling back to lexical order for labels that fail to parse.
func SortYearLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, errA := strconv.Atoi(labels[i])
		b, errB := strconv.Atoi(labels[j])
		if errA == nil && errB == nil {
			return a < b
		}
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		return labels[i] < labels[j]
	})
}
