package storage

import (
	"context"

	"spikesim/internal/model"
)

// Store persists completed sweeps: the run summary and the per-point records
// keyed by configuration-point identity.
type Store interface {
	Init(ctx context.Context) error
	SaveRunSummary(ctx context.Context, summary model.RunSummary) error
	GetRunSummary(ctx context.Context, runID string) (model.RunSummary, bool, error)
	ListRunSummaries(ctx context.Context) ([]model.RunSummary, error)
	SaveRecords(ctx context.Context, runID string, records map[string]model.Record) error
	GetRecords(ctx context.Context, runID string) (map[string]model.Record, bool, error)
}
