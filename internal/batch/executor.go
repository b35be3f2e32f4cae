// Package batch runs the trials of a single configuration point, either one
// at a time or spread over parallel lanes. Both executors derive per-trial
// seeds the same way, so a sweep produces identical results whichever one
// drives it.
package batch

import (
	"context"
	"sync"

	"spikesim/internal/engine"
	"spikesim/internal/lattice"
	"spikesim/internal/model"
)

// TrialOutcome carries one trial's result or its failure. A diverged trial
// reports through Err without disturbing its siblings.
type TrialOutcome struct {
	Index  int
	Result model.TrialResult
	Err    error
}

// Executor runs every trial of one point against a shared read-only lattice.
// Outcomes come back indexed by trial so callers can aggregate or report
// failures deterministically.
type Executor interface {
	Execute(ctx context.Context, lat *lattice.Lattice, scalars model.Scalars, point model.Point, trials int, baseSeed int64) []TrialOutcome
}

// Serial runs trials back to back on the calling goroutine.
type Serial struct{}

func (Serial) Execute(ctx context.Context, lat *lattice.Lattice, scalars model.Scalars, point model.Point, trials int, baseSeed int64) []TrialOutcome {
	outcomes := make([]TrialOutcome, trials)
	for trial := 0; trial < trials; trial++ {
		outcomes[trial] = runOne(ctx, lat, scalars, point, trial, baseSeed)
	}
	return outcomes
}

// Vectorized fans trials out over Lanes goroutines. Lane count affects only
// scheduling: each trial still seeds from baseSeed plus its own index, so the
// outcomes match Serial bit for bit.
type Vectorized struct {
	Lanes int
}

func (v Vectorized) Execute(ctx context.Context, lat *lattice.Lattice, scalars model.Scalars, point model.Point, trials int, baseSeed int64) []TrialOutcome {
	lanes := v.Lanes
	if lanes < 1 {
		lanes = 1
	}
	if lanes > trials {
		lanes = trials
	}

	outcomes := make([]TrialOutcome, trials)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for lane := 0; lane < lanes; lane++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for trial := range jobs {
				outcomes[trial] = runOne(ctx, lat, scalars, point, trial, baseSeed)
			}
		}()
	}
	for trial := 0; trial < trials; trial++ {
		jobs <- trial
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

func runOne(ctx context.Context, lat *lattice.Lattice, scalars model.Scalars, point model.Point, trial int, baseSeed int64) TrialOutcome {
	seed := baseSeed + int64(trial)
	result, err := engine.RunTrial(ctx, lat, scalars, point, trial, seed)
	return TrialOutcome{Index: trial, Result: result, Err: err}
}

// ForPoint picks the executor the configuration asks for: bayesian points
// with gpu_batch above one get lane parallelism, everything else runs serial.
func ForPoint(mode model.Mode, scalars model.Scalars) Executor {
	if mode == model.ModeBayesian && scalars.GPUBatch > 1 {
		return Vectorized{Lanes: scalars.GPUBatch}
	}
	return Serial{}
}
