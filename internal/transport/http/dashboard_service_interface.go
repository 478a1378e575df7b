// Package http contains the chi handlers exposing the dashboard pipeline:
// dataset upload, aggregation snapshots, per-event drilldown and CSV export.
package http

import (
	"context"

	"regpulse/pkg/contracts/domain"
)

// DashboardService is the service surface the handlers depend on. The
// concrete implementation lives in internal/services; tests substitute a
// mock.
type DashboardService interface {
	Load(ctx context.Context, filename string, content []byte) (*domain.DatasetSummary, error)
	Summary(ctx context.Context, id string) (*domain.DatasetSummary, error)
	Snapshot(ctx context.Context, id string, sel domain.FilterSelection) (*domain.DashboardSnapshot, error)
	Drilldown(ctx context.Context, id, event string, sel domain.FilterSelection) (*domain.EventDrilldown, error)
	Export(ctx context.Context, id string, sel domain.FilterSelection) ([]byte, string, error)
}
