// Package store persists runs, stage-boundary record-set snapshots, and
// report metadata. Snapshots are single-writer full-set overwrites: the
// pipeline persists only between stages, never mid-fan-out.
package store

import (
	"context"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Store defines the persistence interface for the lead-generation pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, businessType, location string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunOutcome(ctx context.Context, runID string, outcome *model.Outcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)

	// Stage-boundary snapshots
	SaveRecords(ctx context.Context, runID, stage string, set *model.RecordSet) error
	LoadRecords(ctx context.Context, runID, stage string) (*model.RecordSet, error)

	// Report metadata
	SaveReportMeta(ctx context.Context, runID string, meta model.ReportMeta) error
	LatestReportMeta(ctx context.Context) (*model.ReportMeta, error)
	ClearReportMeta(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
