package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects which experiment variant a configuration drives. Each mode has
// its own required scalar fields and its own output record shape.
type Mode string

const (
	ModeManifold Mode = "manifold"
	ModeDisease  Mode = "disease"
	ModeBayesian Mode = "bayesian"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Scalars holds the [simulation_parameters] section of a configuration.
// Fields not used by the active mode are left at their zero value.
type Scalars struct {
	Filename string `json:"filename"`
	Trials   int    `json:"trials"`
	Seed     int64  `json:"seed"`

	// Manifold phases.
	OnPhase        int     `json:"on_phase"`
	OffPhase       int     `json:"off_phase"`
	SettlingPeriod int     `json:"settling_period"`
	Tolerance      float64 `json:"tolerance"`
	ExcOnly        bool    `json:"exc_only"`

	// Disease / bayesian phases.
	Iterations1 int  `json:"iterations1"`
	Iterations2 int  `json:"iterations2"`
	FirstWindow int  `json:"first_window"`
	SecondCue   bool `json:"second_cue"`

	// Membrane parameters.
	WeightsScalar    float64 `json:"weights_scalar"`
	InhWeightsScalar float64 `json:"inh_weights_scalar"`
	Skew             float64 `json:"skew"`
	CM               float64 `json:"c_m"`
	A                float64 `json:"a"`
	B                float64 `json:"b"`

	// Metric selection.
	PeaksOn                  bool `json:"peaks_on"`
	UseCorrelationAsAccuracy bool `json:"use_correlation_as_accuracy"`
	MeasureSNR               bool `json:"measure_snr"`

	// Plasticity.
	PlasticityOn bool `json:"plasticity_on"`

	// Bayesian batching.
	BayesianIsNotMain bool `json:"bayesian_is_not_main"`
	GPUBatch          int  `json:"gpu_batch"`
}

// Value is one candidate value of a sweep variable: either a scalar or a
// square matrix (input weight tables).
type Value struct {
	Scalar float64     `json:"scalar,omitempty"`
	Matrix [][]float64 `json:"matrix,omitempty"`
}

func (v Value) IsMatrix() bool { return v.Matrix != nil }

// Encode renders the value canonically for identity keys. Scalars use the
// shortest round-trip float form so 1.0 and 1 collapse to the same key.
func (v Value) Encode() string {
	if !v.IsMatrix() {
		return strconv.FormatFloat(v.Scalar, 'g', -1, 64)
	}
	rows := make([]string, 0, len(v.Matrix))
	for _, row := range v.Matrix {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, strconv.FormatFloat(cell, 'g', -1, 64))
		}
		rows = append(rows, "["+strings.Join(cells, ", ")+"]")
	}
	return "[" + strings.Join(rows, ", ") + "]"
}

// Variable is one named sweep dimension with its ordered candidate values.
type Variable struct {
	Name   string  `json:"name"`
	Values []Value `json:"values"`
}

// Configuration is the validated input boundary of the engine: scalar
// simulation parameters plus the declared sweep variables, in file order.
type Configuration struct {
	Mode      Mode       `json:"mode"`
	Scalars   Scalars    `json:"scalars"`
	Variables []Variable `json:"variables"`
}

// Point is one concrete assignment of the sweep variables. Immutable after
// creation; Key is reconstructible from the values alone.
type Point struct {
	Key    string           `json:"key"`
	Values map[string]Value `json:"values"`
	Mode   Mode             `json:"mode"`
}

// Scalar returns the assigned scalar for name, or fallback when the variable
// is not part of the sweep.
func (p Point) Scalar(name string, fallback float64) float64 {
	v, ok := p.Values[name]
	if !ok || v.IsMatrix() {
		return fallback
	}
	return v.Scalar
}

// Matrix returns the assigned matrix for name.
func (p Point) Matrix(name string) ([][]float64, bool) {
	v, ok := p.Values[name]
	if !ok || !v.IsMatrix() {
		return nil, false
	}
	return v.Matrix, true
}

// TrialResult is the raw output of one trial: the measured voltage trace and
// the spike list for the recorded interval, plus the per-group responses the
// accuracy scorers consume.
type TrialResult struct {
	Trace  []float64 `json:"trace"`
	Spikes []Spike   `json:"spikes,omitempty"`

	// Cue bookkeeping: per-step mean potential of the cued and uncued
	// populations within the scoring windows.
	CuedGroup     int       `json:"cued_group"`
	CuedResponse  []float64 `json:"cued_response,omitempty"`
	OtherResponse []float64 `json:"other_response,omitempty"`
	SecondCued    []float64 `json:"second_cued,omitempty"`
	SecondOther   []float64 `json:"second_other,omitempty"`
}

// Spike is one threshold crossing. Channel tags the population the neuron
// belongs to (excitatory, inhibitory, bayesian input).
type Spike struct {
	Neuron  int    `json:"neuron"`
	Step    int    `json:"step"`
	Channel string `json:"channel,omitempty"`
}

// Peak is a detected local maximum in a voltage trace.
type Peak struct {
	Step      int     `json:"step"`
	Amplitude float64 `json:"amplitude"`
}

// Record is the per-point aggregate persisted to the output document. Field
// presence is mode-dependent; Invalid marks points whose trials all diverged.
type Record struct {
	ReturnToBaseline *float64  `json:"return_to_baseline,omitempty"`
	Voltages         []float64 `json:"voltages,omitempty"`
	FirstAcc         *float64  `json:"first_acc,omitempty"`
	SecondAcc        *float64  `json:"second_acc,omitempty"`
	Peaks            []Peak    `json:"peaks,omitempty"`
	SNR              *float64  `json:"snr,omitempty"`
	GPUBatch         int       `json:"gpu_batch,omitempty"`
	Trials           int       `json:"trials"`
	Invalid          bool      `json:"invalid,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// RunSummary describes one completed sweep for the run index and the store.
type RunSummary struct {
	VersionedRecord
	RunID        string `json:"run_id"`
	Mode         Mode   `json:"mode"`
	Filename     string `json:"filename"`
	Points       int    `json:"points"`
	FailedPoints int    `json:"failed_points"`
	Trials       int    `json:"trials"`
	Seed         int64  `json:"seed"`
	CreatedAtUTC string `json:"created_at_utc"`
}

func (m Mode) Valid() bool {
	switch m {
	case ModeManifold, ModeDisease, ModeBayesian:
		return true
	}
	return false
}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unsupported experiment mode: %s", s)
	}
	return m, nil
}
