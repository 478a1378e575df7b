package domain

// KeyMetrics are the headline numbers of a dashboard snapshot.
type KeyMetrics struct {
	TotalRegistrations int    `json:"total_registrations"`
	CompletedProfiles  int    `json:"completed_profiles"`
	TopCollege         string `json:"top_college,omitempty"`
	TopCollegeCount    int    `json:"top_college_count,omitempty"`
}

// DateCount is one point of the daily registration timeline.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CategoryCount is a (category, occurrences) pair used by every breakdown
// view. Slices of CategoryCount are sorted descending by count with ties in
// first-seen order, so identical input always yields identical output.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// EventTeamSummary aggregates one event's participation.
type EventTeamSummary struct {
	Event        string `json:"event"`
	Participants int    `json:"participants"`
	UniqueTeams  int    `json:"unique_teams"`
}

// DashboardSnapshot holds every aggregation view computed over one filtered
// subset. Views are independent of each other; all are derived read-only
// from the same filtered record set.
type DashboardSnapshot struct {
	DatasetID string          `json:"dataset_id"`
	Filters   FilterSelection `json:"filters"`

	Metrics         KeyMetrics         `json:"metrics"`
	Timeline        []DateCount        `json:"timeline"`
	TopColleges     []CategoryCount    `json:"top_colleges"`
	TopDegrees      []CategoryCount    `json:"top_degrees"`
	YearBreakdown   []CategoryCount    `json:"year_breakdown"`
	GenderBreakdown []CategoryCount    `json:"gender_breakdown"`
	EventPopularity []CategoryCount    `json:"event_popularity"`
	EventTeams      []EventTeamSummary `json:"event_teams"`
}

// EventDrilldown is the per-event view: which colleges registered for one
// selected event.
type EventDrilldown struct {
	DatasetID    string          `json:"dataset_id"`
	Event        string          `json:"event"`
	Participants int             `json:"participants"`
	TopColleges  []CategoryCount `json:"top_colleges"`
}

// DatasetFacets describes the observed value space of a dataset so a
// presentation layer can build its default filter controls: all colleges,
// all year labels and the full date range.
type DatasetFacets struct {
	Colleges  []string `json:"colleges"`
	Years     []string `json:"years"`
	Events    []string `json:"events"`
	FirstDate string   `json:"first_date,omitempty"`
	LastDate  string   `json:"last_date,omitempty"`
}

// DatasetSummary is returned after a successful upload.
type DatasetSummary struct {
	ID          string        `json:"id"`
	RawRows     int           `json:"raw_rows"`
	Records     int           `json:"records"`
	DroppedRows int           `json:"dropped_rows"`
	Facets      DatasetFacets `json:"facets"`
}
