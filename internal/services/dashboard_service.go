// Package services hosts the application service layer: the dashboard
// pipeline from uploaded bytes to aggregation snapshots, with memoization
// keyed by content identity so repeated requests never recompute.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"regpulse/internal/analytics"
	apperrors "regpulse/internal/errors"
	"regpulse/internal/exporter"
	"regpulse/internal/infrastructure"
	"regpulse/internal/ingest"
	"regpulse/pkg/contracts/domain"
)

// Notifier pushes dataset lifecycle events to interested listeners. The
// websocket hub satisfies it; tests use a stub.
type Notifier interface {
	NotifyDatasetLoaded(payload interface{})
}

// DashboardService implements the registration pipeline. All reads after
// Load are served from immutable in-memory state, so every method is safe
// for concurrent use.
type DashboardService struct {
	logger     *slog.Logger
	validate   *validator.Validate
	normalizer *analytics.Normalizer
	metrics    *infrastructure.BusinessMetrics
	notifier   Notifier

	mu        sync.RWMutex
	datasets  map[string]*domain.Dataset
	snapshots map[string]*domain.DashboardSnapshot

	group singleflight.Group
}

// DashboardServiceConfig collects the service's dependencies. Metrics and
// Notifier are optional.
type DashboardServiceConfig struct {
	Logger   *slog.Logger
	Metrics  *infrastructure.BusinessMetrics
	Notifier Notifier
}

// NewDashboardService creates the service.
func NewDashboardService(cfg DashboardServiceConfig) *DashboardService {
	logger := cfg.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "dashboard_service"))

	return &DashboardService{
		logger:     logger,
		validate:   validator.New(),
		normalizer: analytics.NewNormalizer(logger),
		metrics:    cfg.Metrics,
		notifier:   cfg.Notifier,
		datasets:   make(map[string]*domain.Dataset),
		snapshots:  make(map[string]*domain.DashboardSnapshot),
	}
}

// Load parses, normalizes and stores an upload, returning its summary. The
// dataset ID is the SHA-256 of the raw bytes, so re-uploading identical
// content is a cache hit and skips the whole pipeline.
func (s *DashboardService) Load(ctx context.Context, filename string, content []byte) (*domain.DatasetSummary, error) {
	if len(content) == 0 {
		return nil, apperrors.ErrEmptyInput
	}

	id := analytics.DatasetID(content)

	s.mu.RLock()
	ds, cached := s.datasets[id]
	s.mu.RUnlock()
	s.recordCacheLookup(ctx, "dataset", cached)
	if cached {
		s.logger.InfoContext(ctx, "dataset cache hit", slog.String("dataset_id", id))
		return s.summarize(ds), nil
	}

	format := ingest.DetectFormat(filename)

	v, err, _ := s.group.Do("load:"+id, func() (interface{}, error) {
		table, err := ingest.Parse(content, format)
		if err != nil {
			return nil, err
		}
		return s.normalizer.Normalize(content, table)
	})
	if err != nil {
		return nil, err
	}
	ds = v.(*domain.Dataset)

	s.mu.Lock()
	s.datasets[ds.ID] = ds
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, string(format), int64(len(ds.Records)), int64(ds.RawRows-len(ds.Records)))
	}

	summary := s.summarize(ds)
	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("dataset_id", ds.ID),
		slog.String("format", string(format)),
		slog.Int("raw_rows", summary.RawRows),
		slog.Int("records", summary.Records),
		slog.Int("dropped_rows", summary.DroppedRows))

	if s.notifier != nil {
		s.notifier.NotifyDatasetLoaded(summary)
	}
	return summary, nil
}

func (s *DashboardService) summarize(ds *domain.Dataset) *domain.DatasetSummary {
	return &domain.DatasetSummary{
		ID:          ds.ID,
		RawRows:     ds.RawRows,
		Records:     len(ds.Records),
		DroppedRows: ds.RawRows - len(ds.Records),
		Facets:      analytics.Facets(ds),
	}
}

// Summary returns the summary of a loaded dataset.
func (s *DashboardService) Summary(ctx context.Context, id string) (*domain.DatasetSummary, error) {
	ds, err := s.dataset(id)
	if err != nil {
		return nil, err
	}
	return s.summarize(ds), nil
}

// Snapshot computes (or recalls) the full dashboard for a dataset under a
// filter selection. Results are memoized per (dataset, selection) pair and
// concurrent identical requests share one computation.
func (s *DashboardService) Snapshot(ctx context.Context, id string, sel domain.FilterSelection) (*domain.DashboardSnapshot, error) {
	ds, err := s.dataset(id)
	if err != nil {
		return nil, err
	}
	if err := s.validateSelection(sel); err != nil {
		return nil, err
	}

	key := id + "|" + sel.CacheKey()

	s.mu.RLock()
	snap, cached := s.snapshots[key]
	s.mu.RUnlock()
	s.recordCacheLookup(ctx, "snapshot", cached)
	if cached {
		return snap, nil
	}

	v, err, _ := s.group.Do("snapshot:"+key, func() (interface{}, error) {
		timer := s.snapshotTimer(ctx)
		defer timer()

		records, err := analytics.Filter(ds, sel)
		if err != nil {
			return nil, err
		}
		return analytics.Snapshot(ds, sel, records)
	})
	if err != nil {
		return nil, err
	}
	snap = v.(*domain.DashboardSnapshot)

	s.mu.Lock()
	s.snapshots[key] = snap
	s.mu.Unlock()
	return snap, nil
}

// Drilldown computes the per-event view under a filter selection.
func (s *DashboardService) Drilldown(ctx context.Context, id, event string, sel domain.FilterSelection) (*domain.EventDrilldown, error) {
	if event == "" {
		return nil, apperrors.NewAppValidationError("event name must not be empty")
	}
	ds, err := s.dataset(id)
	if err != nil {
		return nil, err
	}
	if err := s.validateSelection(sel); err != nil {
		return nil, err
	}

	records, err := analytics.Filter(ds, sel)
	if err != nil {
		return nil, err
	}
	return analytics.Drilldown(ds, event, records)
}

// Export renders the filtered subset back to CSV bytes for download.
// Exporting an empty match is a no-matching-data failure, mirroring the
// dashboard views.
func (s *DashboardService) Export(ctx context.Context, id string, sel domain.FilterSelection) ([]byte, string, error) {
	ds, err := s.dataset(id)
	if err != nil {
		return nil, "", err
	}
	if err := s.validateSelection(sel); err != nil {
		return nil, "", err
	}

	records, err := analytics.Filter(ds, sel)
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", apperrors.ErrNoMatchingData
	}

	data, err := exporter.ExportCSV(ds.Headers, records)
	if err != nil {
		return nil, "", apperrors.NewStorageError("failed to serialize export", err)
	}

	s.logger.InfoContext(ctx, "export produced",
		slog.String("dataset_id", id),
		slog.Int("records", len(records)),
		slog.Int("bytes", len(data)))
	return data, exporter.ExportFilename, nil
}

func (s *DashboardService) dataset(id string) (*domain.Dataset, error) {
	if id == "" {
		return nil, apperrors.NewAppValidationError("dataset id must not be empty")
	}
	s.mu.RLock()
	ds, ok := s.datasets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("dataset %q", id))
	}
	return ds, nil
}

func (s *DashboardService) validateSelection(sel domain.FilterSelection) error {
	if err := s.validate.Struct(sel); err != nil {
		return apperrors.NewAppValidationError(
			fmt.Sprintf("invalid filter selection: dates must use %s", domain.DateLayout))
	}
	return nil
}

func (s *DashboardService) recordCacheLookup(ctx context.Context, cache string, hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(ctx, cache, hit)
	}
}

func (s *DashboardService) snapshotTimer(ctx context.Context) func() {
	if s.metrics == nil {
		return func() {}
	}
	return s.metrics.SnapshotTimer(ctx)
}
