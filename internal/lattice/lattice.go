package lattice

import (
	"fmt"
)

const (
	ChannelExcitatory = "exc"
	ChannelInhibitory = "inh"
)

// Stimulus channel indices. Builders populate only the channels the mode
// drives; the trial runner selects amplitudes per phase.
const (
	StimPrimary = iota
	StimSecondary
	StimBayesian
	stimChannels
)

// ConstructionError is a shape or dimension mismatch while building a
// lattice. It is fatal for the configuration point only; sibling points in
// the sweep still run.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("lattice construction: %s", e.Reason)
}

// Neuron carries the immutable membrane parameters of one cell. Dynamic
// state lives in engine.State and is trial-scoped.
type Neuron struct {
	ID              int
	Channel         string
	Group           int
	Resting         float64
	Reset           float64
	Threshold       float64
	Tau             float64
	Resistance      float64
	Capacitance     float64
	RefractorySteps int

	// Recovery coupling (disease and bayesian modes); zero disables it.
	A float64
	B float64
}

// Synapse is one directed connection. Weight is signed: inhibitory synapses
// carry negative weight. Clearance is the per-step exponential decay constant
// of the neurotransmitter concentration.
type Synapse struct {
	ID         int
	From       int
	To         int
	Weight     float64
	DelaySteps int
	Clearance  float64
	Release    float64
}

// Lattice is the immutable topology for one configuration point. It is built
// once, then shared read-only by every trial on that point.
type Lattice struct {
	Neurons  []Neuron
	Synapses []Synapse

	// Synapse indices grouped by endpoint, built once at construction.
	Incoming [][]int
	Outgoing [][]int

	// Stimulus[channel][neuron] is the external input weight of a neuron on
	// that stimulus channel.
	Stimulus [][]float64

	ExcCount int
	InhCount int
	Groups   int
}

func (l *Lattice) buildIndexes() {
	l.Incoming = make([][]int, len(l.Neurons))
	l.Outgoing = make([][]int, len(l.Neurons))
	for i, synapse := range l.Synapses {
		l.Incoming[synapse.To] = append(l.Incoming[synapse.To], i)
		l.Outgoing[synapse.From] = append(l.Outgoing[synapse.From], i)
	}
}

func (l *Lattice) newStimulus() {
	l.Stimulus = make([][]float64, stimChannels)
	for c := range l.Stimulus {
		l.Stimulus[c] = make([]float64, len(l.Neurons))
	}
}

// GroupNeurons returns the excitatory neuron ids belonging to a cue group.
func (l *Lattice) GroupNeurons(group int) []int {
	var ids []int
	for _, neuron := range l.Neurons {
		if neuron.Channel == ChannelExcitatory && neuron.Group == group {
			ids = append(ids, neuron.ID)
		}
	}
	return ids
}
