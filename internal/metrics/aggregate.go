package metrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"spikesim/internal/model"
)

// restingPotential is the trace baseline return_to_baseline measures against.
// It matches the lattice membrane resting potential.
const restingPotential = -65.0

// Aggregate reduces the surviving trials of one configuration point into its
// Record. Scalar metrics average arithmetically across trials; the voltage
// trace is the elementwise mean, so peak detection sees the trial-averaged
// response.
func Aggregate(mode model.Mode, scalars model.Scalars, results []model.TrialResult) (model.Record, error) {
	if len(results) == 0 {
		return model.Record{}, errors.New("no trial results to aggregate")
	}

	record := model.Record{Trials: len(results)}
	trace := meanTrace(results)

	switch mode {
	case model.ModeManifold:
		values := make([]float64, 0, len(results))
		for _, result := range results {
			values = append(values, returnToBaseline(result.Trace, scalars))
		}
		rtb := stat.Mean(values, nil)
		record.ReturnToBaseline = &rtb
		record.Voltages = trace
	case model.ModeDisease, model.ModeBayesian:
		scorer, err := scorerFor(scalars)
		if err != nil {
			return model.Record{}, err
		}
		firstAcc, err := meanScore(scorer, results, false)
		if err != nil {
			return model.Record{}, err
		}
		record.FirstAcc = &firstAcc
		if scalars.SecondCue && scalars.Iterations2 > 0 {
			secondAcc, err := meanScore(scorer, results, true)
			if err != nil {
				return model.Record{}, err
			}
			record.SecondAcc = &secondAcc
		}
		if scalars.MeasureSNR {
			snr := meanSNR(results)
			record.SNR = &snr
		}
	}

	if scalars.PeaksOn {
		record.Peaks = DetectPeaks(trace, DefaultMinProminence, DefaultMinSpacing)
		if record.Peaks == nil {
			record.Peaks = []model.Peak{}
		}
	}
	return record, nil
}

func scorerFor(scalars model.Scalars) (ScoreFunc, error) {
	name := ScorerThreshold
	if scalars.UseCorrelationAsAccuracy {
		name = ScorerCorrelation
	}
	return GetScorer(name)
}

func meanScore(scorer ScoreFunc, results []model.TrialResult, second bool) (float64, error) {
	scores := make([]float64, 0, len(results))
	for _, result := range results {
		cued, other := result.CuedResponse, result.OtherResponse
		if second {
			cued, other = result.SecondCued, result.SecondOther
		}
		score, err := scorer(cued, other)
		if err != nil {
			return 0, err
		}
		scores = append(scores, score)
	}
	return stat.Mean(scores, nil), nil
}

// returnToBaseline is the fraction of off-phase steps whose trace sits within
// tolerance of the resting potential: 1.0 means full recovery.
func returnToBaseline(trace []float64, scalars model.Scalars) float64 {
	if scalars.OffPhase <= 0 || len(trace) <= scalars.OnPhase {
		return 0
	}
	tail := trace[scalars.OnPhase:]
	within := 0
	for _, v := range tail {
		if math.Abs(v-restingPotential) <= scalars.Tolerance {
			within++
		}
	}
	return float64(within) / float64(len(tail))
}

// meanSNR averages the per-trial variance ratio of the cued response over the
// uncued background.
func meanSNR(results []model.TrialResult) float64 {
	const epsilon = 1e-12
	ratios := make([]float64, 0, len(results))
	for _, result := range results {
		if len(result.CuedResponse) < 2 || len(result.OtherResponse) < 2 {
			continue
		}
		signal := stat.Variance(result.CuedResponse, nil)
		noise := stat.Variance(result.OtherResponse, nil)
		ratios = append(ratios, signal/(noise+epsilon))
	}
	if len(ratios) == 0 {
		return 0
	}
	return stat.Mean(ratios, nil)
}

func meanTrace(results []model.TrialResult) []float64 {
	length := len(results[0].Trace)
	for _, result := range results[1:] {
		if len(result.Trace) < length {
			length = len(result.Trace)
		}
	}
	if length == 0 {
		return nil
	}
	trace := make([]float64, length)
	for _, result := range results {
		for i := 0; i < length; i++ {
			trace[i] += result.Trace[i]
		}
	}
	for i := range trace {
		trace[i] /= float64(len(results))
	}
	return trace
}
