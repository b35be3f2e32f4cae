// Package spikesim is the embedding API for the simulation engine: load a
// sweep configuration, run every configuration point, and persist the
// results.
package spikesim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spikesim/internal/batch"
	"spikesim/internal/config"
	"spikesim/internal/lattice"
	"spikesim/internal/metrics"
	"spikesim/internal/model"
	"spikesim/internal/results"
	"spikesim/internal/storage"
	"spikesim/internal/sweep"
)

const (
	defaultResultsDir = "results"
	defaultExportsDir = "exports"
	defaultDBPath     = "spikesim.db"
	defaultWorkers    = 4
)

type Options struct {
	StoreKind  string
	DBPath     string
	ResultsDir string
	ExportsDir string
}

type Client struct {
	store      storage.Store
	resultsDir string
	exportsDir string
}

type RunRequest struct {
	ConfigPath string
	Workers    int
	// SeedOverride replaces the configuration seed when non-nil, shifting
	// the whole sweep deterministically.
	SeedOverride *int64
}

type RunResult struct {
	RunID        string
	OutputPath   string
	ArtifactsDir string
	Points       int
	FailedPoints int
	Records      map[string]model.Record
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Mode         model.Mode
	Filename     string
	Points       int
	FailedPoints int
	Trials       int
	Seed         int64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	resultsDir := opts.ResultsDir
	if resultsDir == "" {
		resultsDir = defaultResultsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		resultsDir: resultsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Validate loads and checks a configuration without running it.
func (c *Client) Validate(path string) (model.Configuration, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return model.Configuration{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return model.Configuration{}, err
	}
	return cfg, nil
}

// Run executes the full sweep described by the configuration file. Every
// configuration point produces a record in the output document; points whose
// trials all diverge are flagged invalid rather than aborting the run.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	cfg, err := c.Validate(req.ConfigPath)
	if err != nil {
		return RunResult{}, err
	}

	workers := req.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	runSeed := cfg.Scalars.Seed
	if req.SeedOverride != nil {
		runSeed = *req.SeedOverride
	}

	points := sweep.Expand(cfg)
	outcomes := sweep.Run(ctx, points, workers, func(ctx context.Context, point model.Point) (model.Record, error) {
		return evaluatePoint(ctx, cfg, point, runSeed)
	})
	if err := ctx.Err(); err != nil {
		return RunResult{}, fmt.Errorf("sweep cancelled: %w", err)
	}

	records := make(map[string]model.Record, len(outcomes))
	failed := 0
	for _, outcome := range outcomes {
		record := outcome.Record
		if outcome.Err != nil {
			record = model.Record{
				Trials:  cfg.Scalars.Trials,
				Invalid: true,
				Error:   outcome.Err.Error(),
			}
			failed++
		}
		records[outcome.Point.Key] = record
	}

	if err := results.WriteOutputDocument(cfg.Scalars.Filename, records); err != nil {
		return RunResult{}, err
	}

	runID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	summary := model.RunSummary{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		RunID:        runID,
		Mode:         cfg.Mode,
		Filename:     cfg.Scalars.Filename,
		Points:       len(points),
		FailedPoints: failed,
		Trials:       cfg.Scalars.Trials,
		Seed:         runSeed,
		CreatedAtUTC: now,
	}

	artifactsDir, err := results.WriteRunArtifacts(c.resultsDir, results.RunArtifacts{
		Summary:       summary,
		Configuration: cfg,
		Records:       records,
	})
	if err != nil {
		return RunResult{}, err
	}
	if err := results.AppendRunIndex(c.resultsDir, results.RunIndexEntry{
		RunID:        runID,
		Mode:         cfg.Mode,
		Filename:     cfg.Scalars.Filename,
		Points:       len(points),
		FailedPoints: failed,
		Trials:       cfg.Scalars.Trials,
		Seed:         runSeed,
		CreatedAtUTC: now,
	}); err != nil {
		return RunResult{}, err
	}

	if err := c.store.Init(ctx); err != nil {
		return RunResult{}, err
	}
	if err := c.store.SaveRunSummary(ctx, summary); err != nil {
		return RunResult{}, err
	}
	if err := c.store.SaveRecords(ctx, runID, records); err != nil {
		return RunResult{}, err
	}

	return RunResult{
		RunID:        runID,
		OutputPath:   cfg.Scalars.Filename,
		ArtifactsDir: artifactsDir,
		Points:       len(points),
		FailedPoints: failed,
		Records:      records,
	}, nil
}

// Runs lists completed sweeps, newest first.
func (c *Client) Runs(req RunsRequest) ([]RunItem, error) {
	entries, err := results.ListRunIndex(c.resultsDir)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	items := make([]RunItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, RunItem{
			RunID:        entry.RunID,
			CreatedAtUTC: entry.CreatedAtUTC,
			Mode:         entry.Mode,
			Filename:     entry.Filename,
			Points:       entry.Points,
			FailedPoints: entry.FailedPoints,
			Trials:       entry.Trials,
			Seed:         entry.Seed,
		})
	}
	return items, nil
}

// Export copies a run's artifacts into the exports directory.
func (c *Client) Export(req ExportRequest) (ExportSummary, error) {
	runID := req.RunID
	if req.Latest {
		entries, err := results.ListRunIndex(c.resultsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs recorded")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return ExportSummary{}, errors.New("run id is required")
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}

	dir, err := results.ExportRun(c.resultsDir, runID, outDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: dir}, nil
}

// evaluatePoint runs and aggregates all trials of one configuration point.
// Trial divergence is tolerated as long as at least one trial survives; a
// point with no surviving trials reports an error and shows up invalid.
func evaluatePoint(ctx context.Context, cfg model.Configuration, point model.Point, runSeed int64) (model.Record, error) {
	baseSeed := sweep.PointSeed(point.Key, runSeed)

	lat, err := lattice.Build(cfg.Scalars, point, baseSeed)
	if err != nil {
		return model.Record{}, fmt.Errorf("build lattice for %s: %w", point.Key, err)
	}

	executor := batch.ForPoint(cfg.Mode, cfg.Scalars)
	outcomes := executor.Execute(ctx, lat, cfg.Scalars, point, cfg.Scalars.Trials, baseSeed)

	survivors := make([]model.TrialResult, 0, len(outcomes))
	var firstErr error
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			if errors.Is(outcome.Err, context.Canceled) || errors.Is(outcome.Err, context.DeadlineExceeded) {
				return model.Record{}, outcome.Err
			}
			if firstErr == nil {
				firstErr = outcome.Err
			}
			continue
		}
		survivors = append(survivors, outcome.Result)
	}
	if len(survivors) == 0 {
		return model.Record{}, fmt.Errorf("all trials failed for %s: %w", point.Key, firstErr)
	}

	record, err := metrics.Aggregate(cfg.Mode, cfg.Scalars, survivors)
	if err != nil {
		return model.Record{}, err
	}
	record.Trials = len(survivors)
	if cfg.Mode == model.ModeBayesian {
		record.GPUBatch = cfg.Scalars.GPUBatch
	}
	return record, nil
}
