package analytics

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "regpulse/internal/errors"
	"regpulse/pkg/contracts/domain"
)

func allRecords(ds *domain.Dataset) []*domain.Registration {
	recs := make([]*domain.Registration, len(ds.Records))
	for i := range ds.Records {
		recs[i] = &ds.Records[i]
	}
	return recs
}

func TestSnapshot_KeyMetrics(t *testing.T) {
	ds := mustDataset(t, sampleCSV)

	snap, err := Snapshot(ds, domain.FilterSelection{}, allRecords(ds))
	require.NoError(t, err)

	assert.Equal(t, 4, snap.Metrics.TotalRegistrations)
	assert.Equal(t, 4, snap.Metrics.CompletedProfiles)
	assert.Equal(t, "Alpha College", snap.Metrics.TopCollege)
	assert.Equal(t, 2, snap.Metrics.TopCollegeCount)
}

func TestSnapshot_IncompleteProfilesExcluded(t *testing.T) {
	csvText := "Created At,Year of Study,College Name,Gender,First Name\n" +
		"2024-01-15 10:00:00,1,Alpha,Female,Asha\n" +
		"2024-01-15 11:00:00,1,Alpha,Male,\n" + // no first name
		"2024-01-15 12:00:00,1,,Male,Ravi\n" // no college
	ds := mustDataset(t, csvText)

	snap, err := Snapshot(ds, domain.FilterSelection{}, allRecords(ds))
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Metrics.TotalRegistrations)
	assert.Equal(t, 1, snap.Metrics.CompletedProfiles)
	// Demographic views only count the completed profile.
	require.Len(t, snap.GenderBreakdown, 1)
	assert.Equal(t, domain.CategoryCount{Name: "Female", Count: 1}, snap.GenderBreakdown[0])
	assert.Equal(t, []domain.CategoryCount{{Name: "Alpha", Count: 1}}, snap.TopColleges)
	assert.Equal(t, "Alpha", snap.Metrics.TopCollege)
	assert.Equal(t, 1, snap.Metrics.TopCollegeCount)
}

func TestSnapshot_Timeline(t *testing.T) {
	ds := mustDataset(t, sampleCSV)

	snap, err := Snapshot(ds, domain.FilterSelection{}, allRecords(ds))
	require.NoError(t, err)

	want := []domain.DateCount{
		{Date: "2024-01-15", Count: 2},
		{Date: "2024-01-17", Count: 1},
		{Date: "2024-01-18", Count: 1},
	}
	assert.Equal(t, want, snap.Timeline)
}

func TestSnapshot_TopCollegesCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("Created At,Year of Study,College Name,Gender,First Name\n")
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "2024-01-15 10:00:00,1,College %02d,Female,Student\n", i)
	}
	// Push one college ahead of the rest.
	b.WriteString("2024-01-15 11:00:00,1,College 07,Male,Another\n")
	ds := mustDataset(t, b.String())

	snap, err := Snapshot(ds, domain.FilterSelection{}, allRecords(ds))
	require.NoError(t, err)

	require.Len(t, snap.TopColleges, TopN)
	assert.Equal(t, domain.CategoryCount{Name: "College 07", Count: 2}, snap.TopColleges[0])
	for i := 1; i < len(snap.TopColleges); i++ {
		assert.LessOrEqual(t, snap.TopColleges[i].Count, snap.TopColleges[i-1].Count)
	}
}

func TestSnapshot_DeterministicTieBreak(t *testing.T) {
	csvText := "Created At,Year of Study,College Name,Gender,First Name\n" +
		"2024-01-15 10:00:00,1,Zeta,Female,Asha\n" +
		"2024-01-15 11:00:00,1,Alpha,Male,Ravi\n"
	ds := mustDataset(t, csvText)

	var first []domain.CategoryCount
	for i := 0; i < 10; i++ {
		snap, err := Snapshot(ds, domain.FilterSelection{}, allRecords(ds))
		require.NoError(t, err)
		if first == nil {
			first = snap.TopColleges
			continue
		}
		assert.Equal(t, first, snap.TopColleges)
	}

	// Ties keep first-seen order.
	assert.Equal(t, "Zeta", first[0].Name)
	assert.Equal(t, "Alpha", first[1].Name)
}

func TestSnapshot_YearBreakdownAscending(t *testing.T) {
	csvText := "Created At,Year of Study\n" +
		"2024-01-15 10:00:00,10\n" +
		"2024-01-15 11:00:00,2\n" +
		"2024-01-15 12:00:00,2\n" +
		"2024-01-15 13:00:00,1\n"
	ds := mustDataset(t, csvText)

	snap, err := Snapshot(ds, domain.FilterSelection{}, allRecords(ds))
	require.NoError(t, err)

	want := []domain.CategoryCount{
		{Name: "1", Count: 1},
		{Name: "2", Count: 2},
		{Name: "10", Count: 1},
	}
	assert.Equal(t, want, snap.YearBreakdown)
}

func TestSnapshot_EmptySetFails(t *testing.T) {
	ds := mustDataset(t, sampleCSV)

	_, err := Snapshot(ds, domain.FilterSelection{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNoMatchingData))
}

func TestExplode(t *testing.T) {
	csvText := "Created At,Year of Study,Registered Events\n" +
		"2024-01-15 10:00:00,1,A;B; A\n" +
		"2024-01-15 11:00:00,1,\n" +
		"2024-01-15 12:00:00,1,C\n"
	ds := mustDataset(t, csvText)

	entries := Explode(allRecords(ds))

	require.Len(t, entries, 4)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Event
	}
	assert.Equal(t, []string{"A", "B", "A", "C"}, names)
}

func TestSnapshot_EventPopularityAndTeams(t *testing.T) {
	csvText := "Created At,Year of Study,Registered Events,Teams\n" +
		"2024-01-15 10:00:00,1,Hackathon;Quiz,Team A\n" +
		"2024-01-15 11:00:00,1,Hackathon,Team A\n" +
		"2024-01-15 12:00:00,1,Hackathon,Team B\n" +
		"2024-01-15 13:00:00,1,Quiz,\n"
	ds := mustDataset(t, csvText)

	snap, err := Snapshot(ds, domain.FilterSelection{}, allRecords(ds))
	require.NoError(t, err)

	wantPop := []domain.CategoryCount{
		{Name: "Hackathon", Count: 3},
		{Name: "Quiz", Count: 2},
	}
	assert.Equal(t, wantPop, snap.EventPopularity)

	wantTeams := []domain.EventTeamSummary{
		{Event: "Hackathon", Participants: 3, UniqueTeams: 2},
		{Event: "Quiz", Participants: 2, UniqueTeams: 1},
	}
	assert.Equal(t, wantTeams, snap.EventTeams)
}

func TestDrilldown(t *testing.T) {
	csvText := "Created At,Year of Study,College Name,Registered Events\n" +
		"2024-01-15 10:00:00,1,Alpha,Hackathon;Quiz\n" +
		"2024-01-15 11:00:00,1,Beta,Hackathon\n" +
		"2024-01-15 12:00:00,1,Alpha,Hackathon\n"
	ds := mustDataset(t, csvText)

	dd, err := Drilldown(ds, "Hackathon", allRecords(ds))
	require.NoError(t, err)

	assert.Equal(t, "Hackathon", dd.Event)
	assert.Equal(t, 3, dd.Participants)
	require.Len(t, dd.TopColleges, 2)
	assert.Equal(t, domain.CategoryCount{Name: "Alpha", Count: 2}, dd.TopColleges[0])
}

func TestDrilldown_UnknownEvent(t *testing.T) {
	ds := mustDataset(t, sampleCSV)

	_, err := Drilldown(ds, "Chess", allRecords(ds))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNoMatchingData))
}

func TestCounter_RankedStable(t *testing.T) {
	c := newCounter()
	for _, k := range []string{"b", "a", "c", "a", "c"} {
		c.Add(k)
	}

	ranked := c.Ranked(0)
	want := []domain.CategoryCount{
		{Name: "a", Count: 2},
		{Name: "c", Count: 2},
		{Name: "b", Count: 1},
	}
	assert.Equal(t, want, ranked)
}
