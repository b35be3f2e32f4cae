package lattice

import (
	"fmt"
	"math/rand"

	"spikesim/internal/model"
)

// Membrane defaults shared by all modes. Modes override capacitance and the
// recovery coupling from their scalar parameters.
const (
	defaultResting    = -65.0
	defaultReset      = -70.0
	defaultThreshold  = -55.0
	defaultTau        = 20.0
	defaultResistance = 10.0
	defaultRefractory = 5

	defaultDelaySteps = 1
	defaultRelease    = 1.0

	// Disease and bayesian population sizes: two cue groups of excitatory
	// cells plus a shared inhibitory pool.
	cueGroupSize = 10
	inhPoolSize  = 5
)

// Build constructs the lattice for one configuration point. Construction is
// deterministic: stochastic connectivity draws from a generator seeded by the
// caller (derived from the point key), so identical inputs produce identical
// topology.
func Build(scalars model.Scalars, point model.Point, seed int64) (*Lattice, error) {
	switch point.Mode {
	case model.ModeManifold:
		return buildManifold(scalars, point, seed)
	case model.ModeDisease, model.ModeBayesian:
		return buildCued(scalars, point, seed)
	default:
		return nil, &ConstructionError{Reason: fmt.Sprintf("unsupported mode: %s", point.Mode)}
	}
}

func buildManifold(scalars model.Scalars, point model.Point, seed int64) (*Lattice, error) {
	table, ok := point.Matrix("input_table")
	if !ok {
		return nil, &ConstructionError{Reason: "input_table value is not a matrix"}
	}
	n := len(table)
	for i, row := range table {
		if len(row) != n {
			return nil, &ConstructionError{
				Reason: fmt.Sprintf("input_table must be square: row %d has %d cells, want %d", i, len(row), n),
			}
		}
	}

	excClearance, err := clearance(point, "glutamate_clearance")
	if err != nil {
		return nil, err
	}
	inhClearance, err := clearance(point, "gabaa_clearance")
	if err != nil {
		return nil, err
	}
	connectivity := point.Scalar("spike_train_connectivity", 1)
	if connectivity < 0 || connectivity > 1 {
		return nil, &ConstructionError{Reason: fmt.Sprintf("spike_train_connectivity out of [0,1]: %g", connectivity)}
	}
	stimGain := point.Scalar("spike_train_to_exc", 1)

	lat := &Lattice{ExcCount: n * n, Groups: 1}
	for i := 0; i < n*n; i++ {
		lat.Neurons = append(lat.Neurons, excNeuron(i, 0, scalars))
	}
	if !scalars.ExcOnly {
		inhCount := n*n/4 + 1
		for i := 0; i < inhCount; i++ {
			lat.Neurons = append(lat.Neurons, inhNeuron(n*n+i, scalars))
		}
		lat.InhCount = inhCount
	}

	rng := rand.New(rand.NewSource(seed))
	excWeight := scalars.WeightsScalar
	inhWeight := -scalars.InhWeightsScalar

	// Recurrent excitatory connectivity across the pool, thinned by the
	// configured probability.
	for from := 0; from < lat.ExcCount; from++ {
		for to := 0; to < lat.ExcCount; to++ {
			if from == to {
				continue
			}
			if connectivity < 1 && rng.Float64() >= connectivity {
				continue
			}
			lat.addSynapse(from, to, excWeight, excClearance)
		}
	}
	for i := 0; i < lat.InhCount; i++ {
		inh := lat.ExcCount + i
		for to := 0; to < lat.ExcCount; to++ {
			lat.addSynapse(to, inh, excWeight, excClearance)
			lat.addSynapse(inh, to, inhWeight, inhClearance)
		}
	}

	lat.buildIndexes()
	lat.newStimulus()
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			lat.Stimulus[StimPrimary][row*n+col] = table[row][col] * stimGain
		}
	}
	return lat, nil
}

func buildCued(scalars model.Scalars, point model.Point, seed int64) (*Lattice, error) {
	excClearance, err := clearance(point, "glutamate_clearance")
	if err != nil {
		return nil, err
	}
	inhClearance, err := clearance(point, "gabaa_clearance")
	if err != nil {
		return nil, err
	}
	excToInh := point.Scalar("prob_of_exc_to_inh", 1)
	if excToInh < 0 || excToInh > 1 {
		return nil, &ConstructionError{Reason: fmt.Sprintf("prob_of_exc_to_inh out of [0,1]: %g", excToInh)}
	}
	stimGain := point.Scalar("spike_train_to_exc", 1)

	lat := &Lattice{ExcCount: 2 * cueGroupSize, InhCount: inhPoolSize, Groups: 2}
	for i := 0; i < cueGroupSize; i++ {
		lat.Neurons = append(lat.Neurons, excNeuron(i, 0, scalars))
	}
	for i := 0; i < cueGroupSize; i++ {
		lat.Neurons = append(lat.Neurons, excNeuron(cueGroupSize+i, 1, scalars))
	}
	for i := 0; i < inhPoolSize; i++ {
		lat.Neurons = append(lat.Neurons, inhNeuron(lat.ExcCount+i, scalars))
	}

	rng := rand.New(rand.NewSource(seed))
	excWeight := scalars.WeightsScalar
	inhWeight := -scalars.InhWeightsScalar

	// Within-group recurrent excitation.
	for group := 0; group < 2; group++ {
		base := group * cueGroupSize
		for from := base; from < base+cueGroupSize; from++ {
			for to := base; to < base+cueGroupSize; to++ {
				if from != to {
					lat.addSynapse(from, to, excWeight, excClearance)
				}
			}
		}
	}
	// Excitatory onto the inhibitory pool, thinned by prob_of_exc_to_inh;
	// inhibition projects back onto every excitatory cell.
	for exc := 0; exc < lat.ExcCount; exc++ {
		for i := 0; i < lat.InhCount; i++ {
			inh := lat.ExcCount + i
			if excToInh >= 1 || rng.Float64() < excToInh {
				lat.addSynapse(exc, inh, excWeight, excClearance)
			}
		}
	}
	for i := 0; i < lat.InhCount; i++ {
		inh := lat.ExcCount + i
		for exc := 0; exc < lat.ExcCount; exc++ {
			lat.addSynapse(inh, exc, inhWeight, inhClearance)
		}
	}

	lat.buildIndexes()
	lat.newStimulus()
	for i := 0; i < cueGroupSize; i++ {
		lat.Stimulus[StimPrimary][i] = stimGain
		lat.Stimulus[StimSecondary][cueGroupSize+i] = stimGain
	}
	if point.Mode == model.ModeBayesian {
		gain := point.Scalar("bayesian_to_exc", 0)
		for i := 0; i < lat.ExcCount; i++ {
			lat.Stimulus[StimBayesian][i] = gain
		}
	}
	return lat, nil
}

func (l *Lattice) addSynapse(from, to int, weight, clearanceRate float64) {
	l.Synapses = append(l.Synapses, Synapse{
		ID:         len(l.Synapses),
		From:       from,
		To:         to,
		Weight:     weight,
		DelaySteps: defaultDelaySteps,
		Clearance:  clearanceRate,
		Release:    defaultRelease,
	})
}

func excNeuron(id, group int, scalars model.Scalars) Neuron {
	return Neuron{
		ID:              id,
		Channel:         ChannelExcitatory,
		Group:           group,
		Resting:         defaultResting,
		Reset:           defaultReset,
		Threshold:       defaultThreshold,
		Tau:             defaultTau,
		Resistance:      defaultResistance,
		Capacitance:     scalars.CM,
		RefractorySteps: defaultRefractory,
		A:               scalars.A,
		B:               scalars.B,
	}
}

func inhNeuron(id int, scalars model.Scalars) Neuron {
	neuron := excNeuron(id, 0, scalars)
	neuron.Channel = ChannelInhibitory
	return neuron
}

func clearance(point model.Point, name string) (float64, error) {
	rate := point.Scalar(name, 0)
	if rate < 0 || rate > 1 {
		return 0, &ConstructionError{Reason: fmt.Sprintf("%s out of [0,1]: %g", name, rate)}
	}
	return rate, nil
}
