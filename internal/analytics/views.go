package analytics

import (
	"sort"

	apperrors "regpulse/internal/errors"
	"regpulse/pkg/contracts/domain"
)

// TopN is the cut-off used by the ranked breakdown views.
const TopN = 10

// Snapshot computes every dashboard view over one filtered record set. The
// views are independent read-only derivations; none mutates the records.
// An empty record set is a no-matching-data failure so callers can tell
// "nothing matched" apart from "nothing computed".
func Snapshot(ds *domain.Dataset, sel domain.FilterSelection, records []*domain.Registration) (*domain.DashboardSnapshot, error) {
	if len(records) == 0 {
		return nil, apperrors.ErrNoMatchingData
	}

	// Demographic views only consider completed profiles; the timeline and
	// year breakdown run over the whole filtered set.
	completed := completedSubset(records)

	snap := &domain.DashboardSnapshot{
		DatasetID:       ds.ID,
		Filters:         sel,
		Metrics:         keyMetrics(records, completed),
		Timeline:        timeline(records),
		TopColleges:     rankedField(completed, func(r *domain.Registration) string { return r.College }, TopN),
		TopDegrees:      rankedField(completed, func(r *domain.Registration) string { return r.Degree }, TopN),
		YearBreakdown:   yearBreakdown(records),
		GenderBreakdown: rankedField(completed, func(r *domain.Registration) string { return r.Gender }, 0),
	}

	entries := Explode(records)
	snap.EventPopularity = eventPopularity(entries)
	snap.EventTeams = eventTeams(entries)
	return snap, nil
}

func completedSubset(records []*domain.Registration) []*domain.Registration {
	out := make([]*domain.Registration, 0, len(records))
	for _, rec := range records {
		if rec.HasCompletedProfile() {
			out = append(out, rec)
		}
	}
	return out
}

// keyMetrics computes the headline numbers: total rows, completed profiles
// and the most common college among completed profiles.
func keyMetrics(records, completed []*domain.Registration) domain.KeyMetrics {
	metrics := domain.KeyMetrics{
		TotalRegistrations: len(records),
		CompletedProfiles:  len(completed),
	}

	colleges := newCounter()
	for _, rec := range completed {
		colleges.Add(rec.College)
	}
	metrics.TopCollege, metrics.TopCollegeCount = colleges.Top()
	return metrics
}

// timeline buckets records by calendar date, ascending.
func timeline(records []*domain.Registration) []domain.DateCount {
	buckets := newCounter()
	for _, rec := range records {
		buckets.Add(rec.Date.Format(domain.DateLayout))
	}

	dates := buckets.SortedKeys()
	out := make([]domain.DateCount, 0, len(dates))
	for _, d := range dates {
		out = append(out, domain.DateCount{Date: d, Count: buckets.counts[d]})
	}
	return out
}

// rankedField counts a single string field across records, skipping blanks,
// and returns the top entries.
func rankedField(records []*domain.Registration, field func(*domain.Registration) string, limit int) []domain.CategoryCount {
	c := newCounter()
	for _, rec := range records {
		if v := field(rec); v != "" {
			c.Add(v)
		}
	}
	return c.Ranked(limit)
}

// yearBreakdown counts records per year label, ordered by ascending year
// rather than by count.
func yearBreakdown(records []*domain.Registration) []domain.CategoryCount {
	c := newCounter()
	for _, rec := range records {
		c.Add(rec.Year)
	}

	years := c.Keys()
	domain.SortYearLabels(years)
	out := make([]domain.CategoryCount, 0, len(years))
	for _, y := range years {
		out = append(out, domain.CategoryCount{Name: y, Count: c.counts[y]})
	}
	return out
}

// Explode expands records into (record, event) entries, one per listed
// event name. Records with no events contribute nothing; a record listing
// an event twice contributes two entries.
func Explode(records []*domain.Registration) []domain.EventEntry {
	var entries []domain.EventEntry
	for _, rec := range records {
		for _, ev := range rec.Events {
			entries = append(entries, domain.EventEntry{Record: rec, Event: ev})
		}
	}
	return entries
}

// eventPopularity ranks events by number of registrations.
func eventPopularity(entries []domain.EventEntry) []domain.CategoryCount {
	c := newCounter()
	for _, e := range entries {
		c.Add(e.Event)
	}
	return c.Ranked(0)
}

// eventTeams summarizes each event's participant count and number of
// distinct non-blank team names, ordered by participants descending.
func eventTeams(entries []domain.EventEntry) []domain.EventTeamSummary {
	type agg struct {
		participants int
		teams        map[string]struct{}
	}
	byEvent := make(map[string]*agg)
	var order []string

	for _, e := range entries {
		a, ok := byEvent[e.Event]
		if !ok {
			a = &agg{teams: make(map[string]struct{})}
			byEvent[e.Event] = a
			order = append(order, e.Event)
		}
		a.participants++
		if e.Record.Team != "" {
			a.teams[e.Record.Team] = struct{}{}
		}
	}

	out := make([]domain.EventTeamSummary, 0, len(order))
	for _, ev := range order {
		a := byEvent[ev]
		out = append(out, domain.EventTeamSummary{
			Event:        ev,
			Participants: a.participants,
			UniqueTeams:  len(a.teams),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Participants > out[j].Participants
	})
	return out
}

// Drilldown computes the per-event view: participant count and which
// colleges those participants come from. An event absent from the filtered
// set is a no-matching-data failure.
func Drilldown(ds *domain.Dataset, event string, records []*domain.Registration) (*domain.EventDrilldown, error) {
	colleges := newCounter()
	participants := 0

	for _, e := range Explode(records) {
		if e.Event != event {
			continue
		}
		participants++
		if e.Record.College != "" {
			colleges.Add(e.Record.College)
		}
	}

	if participants == 0 {
		return nil, apperrors.ErrNoMatchingData
	}

	return &domain.EventDrilldown{
		DatasetID:    ds.ID,
		Event:        event,
		Participants: participants,
		TopColleges:  colleges.Ranked(TopN),
	}, nil
}
