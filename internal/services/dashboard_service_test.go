package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "regpulse/internal/errors"
	"regpulse/pkg/contracts/domain"
)

const sampleCSV = `Created At,Year of Study,College Name,Gender,Degree,First Name,Registered Events,Teams
2024-01-15 10:30:00,2,Alpha College,Female,B.Tech,Asha,Hackathon;Quiz,Team Rocket
2024-01-15 18:00:00,2,Beta College,Male,B.Sc,Ravi,Hackathon,Team Rocket
2024-01-17 09:00:00,3,Alpha College,Female,B.Tech,Meera,Quiz,Solo
`

type stubNotifier struct {
	mu     sync.Mutex
	loaded []interface{}
}

func (n *stubNotifier) NotifyDatasetLoaded(payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loaded = append(n.loaded, payload)
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.loaded)
}

func newTestService(t *testing.T) (*DashboardService, *stubNotifier) {
	t.Helper()
	notifier := &stubNotifier{}
	svc := NewDashboardService(DashboardServiceConfig{Notifier: notifier})
	return svc, notifier
}

func mustLoad(t *testing.T, svc *DashboardService) *domain.DatasetSummary {
	t.Helper()
	summary, err := svc.Load(context.Background(), "registrations.csv", []byte(sampleCSV))
	require.NoError(t, err)
	return summary
}

func TestLoad(t *testing.T) {
	svc, notifier := newTestService(t)

	summary := mustLoad(t, svc)

	assert.Len(t, summary.ID, 64)
	assert.Equal(t, 3, summary.RawRows)
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 0, summary.DroppedRows)
	assert.Equal(t, []string{"Alpha College", "Beta College"}, summary.Facets.Colleges)
	assert.Equal(t, []string{"2", "3"}, summary.Facets.Years)
	assert.Equal(t, "2024-01-15", summary.Facets.FirstDate)
	assert.Equal(t, "2024-01-17", summary.Facets.LastDate)
	assert.Equal(t, 1, notifier.count())
}

func TestLoad_IdenticalContentIsCacheHit(t *testing.T) {
	svc, notifier := newTestService(t)

	first := mustLoad(t, svc)
	second := mustLoad(t, svc)

	assert.Equal(t, first.ID, second.ID)
	// The second upload is served from cache and not re-announced.
	assert.Equal(t, 1, notifier.count())
}

func TestLoad_EmptyContent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Load(context.Background(), "empty.csv", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyInput))
}

func TestLoad_UnparseableContent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Load(context.Background(), "junk.csv", []byte("College Name\nAlpha\n"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)

	snap, err := svc.Snapshot(context.Background(), summary.ID, domain.FilterSelection{})
	require.NoError(t, err)

	assert.Equal(t, summary.ID, snap.DatasetID)
	assert.Equal(t, 3, snap.Metrics.TotalRegistrations)
	assert.Equal(t, "Alpha College", snap.Metrics.TopCollege)
}

func TestSnapshot_Memoized(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)
	sel := domain.FilterSelection{Colleges: []string{"Alpha College"}}

	first, err := svc.Snapshot(context.Background(), summary.ID, sel)
	require.NoError(t, err)
	second, err := svc.Snapshot(context.Background(), summary.ID, sel)
	require.NoError(t, err)

	// Same pointer: the second call was a cache hit.
	assert.Same(t, first, second)

	// Equivalent selections with different slice order share the entry.
	third, err := svc.Snapshot(context.Background(), summary.ID,
		domain.FilterSelection{Colleges: []string{"Alpha College"}})
	require.NoError(t, err)
	assert.Same(t, first, third)
}

func TestSnapshot_UnknownDataset(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Snapshot(context.Background(), "deadbeef", domain.FilterSelection{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestSnapshot_NoMatchingData(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)

	_, err := svc.Snapshot(context.Background(), summary.ID,
		domain.FilterSelection{Colleges: []string{"Nonexistent College"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNoMatchingData))
}

func TestSnapshot_InvalidDateRejected(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)

	_, err := svc.Snapshot(context.Background(), summary.ID,
		domain.FilterSelection{From: "15-01-2024"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestDrilldown(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)

	dd, err := svc.Drilldown(context.Background(), summary.ID, "Hackathon", domain.FilterSelection{})
	require.NoError(t, err)

	assert.Equal(t, 2, dd.Participants)
	require.NotEmpty(t, dd.TopColleges)
	assert.Equal(t, "Alpha College", dd.TopColleges[0].Name)
}

func TestDrilldown_EmptyEvent(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)

	_, err := svc.Drilldown(context.Background(), summary.ID, "", domain.FilterSelection{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestDrilldown_UnknownEvent(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)

	_, err := svc.Drilldown(context.Background(), summary.ID, "Chess", domain.FilterSelection{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNoMatchingData))
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)

	data, filename, err := svc.Export(context.Background(), summary.ID,
		domain.FilterSelection{Colleges: []string{"Alpha College"}})
	require.NoError(t, err)

	assert.Equal(t, "filtered_registrations.csv", filename)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3) // header + 2 Alpha College rows
	assert.Contains(t, lines[0], "Created At")
	assert.Contains(t, lines[1], "Alpha College")
}

func TestExport_NoMatchingData(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)

	_, _, err := svc.Export(context.Background(), summary.ID,
		domain.FilterSelection{Years: []string{"9"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNoMatchingData))
}

func TestSummary_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	loaded := mustLoad(t, svc)

	summary, err := svc.Summary(context.Background(), loaded.ID)
	require.NoError(t, err)
	assert.Equal(t, loaded, summary)
}

func TestConcurrentSnapshots(t *testing.T) {
	svc, _ := newTestService(t)
	summary := mustLoad(t, svc)

	var wg sync.WaitGroup
	results := make([]*domain.DashboardSnapshot, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := svc.Snapshot(context.Background(), summary.ID, domain.FilterSelection{Years: []string{"2"}})
			require.NoError(t, err)
			results[i] = snap
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0], results[i])
	}
}
