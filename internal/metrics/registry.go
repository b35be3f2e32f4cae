package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

const (
	ScorerThreshold   = "threshold"
	ScorerCorrelation = "correlation"

	// correlationCutoff is the documented default for the correlation
	// scorer: a trial scores correct when the cued and uncued responses are
	// correlated below this bound.
	correlationCutoff = 0.5
)

var (
	ErrScorerExists   = errors.New("accuracy scorer already registered")
	ErrScorerNotFound = errors.New("accuracy scorer not found")
)

// ScoreFunc judges one trial from the cued and uncued population responses,
// returning 1 for a correct classification and 0 otherwise.
type ScoreFunc func(cued, other []float64) (float64, error)

var scorerRegistry = struct {
	mu sync.RWMutex
	m  map[string]ScoreFunc
}{
	m: make(map[string]ScoreFunc),
}

func init() {
	initializeBuiltInScorers()
}

func initializeBuiltInScorers() {
	MustRegisterScorer(ScorerThreshold, thresholdScore)
	MustRegisterScorer(ScorerCorrelation, correlationScore)
}

func RegisterScorer(name string, fn ScoreFunc) error {
	if name == "" {
		return errors.New("scorer name is required")
	}
	if fn == nil {
		return errors.New("scorer function is required")
	}

	scorerRegistry.mu.Lock()
	defer scorerRegistry.mu.Unlock()

	if _, exists := scorerRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrScorerExists, name)
	}
	scorerRegistry.m[name] = fn
	return nil
}

func MustRegisterScorer(name string, fn ScoreFunc) {
	if err := RegisterScorer(name, fn); err != nil {
		panic(err)
	}
}

func GetScorer(name string) (ScoreFunc, error) {
	scorerRegistry.mu.RLock()
	fn, ok := scorerRegistry.m[name]
	scorerRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScorerNotFound, name)
	}
	return fn, nil
}

func ListScorers() []string {
	scorerRegistry.mu.RLock()
	defer scorerRegistry.mu.RUnlock()

	names := make([]string, 0, len(scorerRegistry.m))
	for name := range scorerRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// thresholdScore counts the trial correct when the cued population's mean
// response exceeds the uncued population's.
func thresholdScore(cued, other []float64) (float64, error) {
	if len(cued) == 0 || len(other) == 0 {
		return 0, errors.New("empty response window")
	}
	if stat.Mean(cued, nil) > stat.Mean(other, nil) {
		return 1, nil
	}
	return 0, nil
}

// correlationScore counts the trial correct when the cued response has
// decoupled from the uncued background. A degenerate (constant) window falls
// back to the threshold comparison.
func correlationScore(cued, other []float64) (float64, error) {
	if len(cued) != len(other) || len(cued) == 0 {
		return 0, errors.New("response windows must be equal length and non-empty")
	}
	r := stat.Correlation(cued, other, nil)
	if math.IsNaN(r) {
		return thresholdScore(cued, other)
	}
	if r < correlationCutoff {
		return 1, nil
	}
	return 0, nil
}
