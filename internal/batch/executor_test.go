package batch

import (
	"context"
	"reflect"
	"testing"

	"spikesim/internal/lattice"
	"spikesim/internal/model"
)

func bayesianFixture() (model.Scalars, model.Point) {
	scalars := model.Scalars{
		Trials:           6,
		Iterations1:      15,
		FirstWindow:      10,
		WeightsScalar:    0.2,
		InhWeightsScalar: 0.2,
		CM:               25,
		Skew:             1,
		GPUBatch:         3,
	}
	point := model.Point{
		Key:  "(bayesian)",
		Mode: model.ModeBayesian,
		Values: map[string]model.Value{
			"glutamate_clearance": {Scalar: 0.5},
			"gabaa_clearance":     {Scalar: 0.5},
			"bayesian_to_exc":     {Scalar: 0.5},
			"bayesian_distortion": {Scalar: 0.1},
		},
	}
	return scalars, point
}

func TestSerialAndVectorizedMatch(t *testing.T) {
	scalars, point := bayesianFixture()
	lat, err := lattice.Build(scalars, point, 21)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	ctx := context.Background()
	serial := Serial{}.Execute(ctx, lat, scalars, point, scalars.Trials, 21)
	vectorized := Vectorized{Lanes: scalars.GPUBatch}.Execute(ctx, lat, scalars, point, scalars.Trials, 21)

	if len(serial) != len(vectorized) {
		t.Fatalf("outcome counts differ: %d vs %d", len(serial), len(vectorized))
	}
	for i := range serial {
		if serial[i].Err != nil || vectorized[i].Err != nil {
			t.Fatalf("trial %d failed: serial=%v vectorized=%v", i, serial[i].Err, vectorized[i].Err)
		}
		if !reflect.DeepEqual(serial[i].Result, vectorized[i].Result) {
			t.Fatalf("trial %d differs between serial and vectorized execution", i)
		}
	}
}

func TestVectorizedLaneCountDoesNotChangeResults(t *testing.T) {
	scalars, point := bayesianFixture()
	lat, err := lattice.Build(scalars, point, 21)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	ctx := context.Background()
	narrow := Vectorized{Lanes: 2}.Execute(ctx, lat, scalars, point, scalars.Trials, 21)
	wide := Vectorized{Lanes: 16}.Execute(ctx, lat, scalars, point, scalars.Trials, 21)

	for i := range narrow {
		if !reflect.DeepEqual(narrow[i].Result, wide[i].Result) {
			t.Fatalf("trial %d differs across lane widths", i)
		}
	}
}

func TestForPointSelection(t *testing.T) {
	scalars, _ := bayesianFixture()
	if _, ok := ForPoint(model.ModeBayesian, scalars).(Vectorized); !ok {
		t.Fatal("bayesian with gpu_batch > 1 should run vectorized")
	}

	scalars.GPUBatch = 1
	if _, ok := ForPoint(model.ModeBayesian, scalars).(Serial); !ok {
		t.Fatal("gpu_batch 1 should run serial")
	}
	if _, ok := ForPoint(model.ModeDisease, scalars).(Serial); !ok {
		t.Fatal("disease mode should run serial")
	}
}

func TestSerialIsolatesDivergedTrials(t *testing.T) {
	scalars, point := bayesianFixture()
	// A huge stimulus gain blows up integration in every trial.
	point.Values["bayesian_to_exc"] = model.Value{Scalar: 1e12}

	lat, err := lattice.Build(scalars, point, 21)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	outcomes := Serial{}.Execute(context.Background(), lat, scalars, point, 2, 21)
	for i, outcome := range outcomes {
		if outcome.Err == nil {
			t.Fatalf("trial %d should diverge", i)
		}
	}
}
