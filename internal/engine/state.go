package engine

import (
	"fmt"
	"math/rand"

	"spikesim/internal/lattice"
)

// DivergedError reports numeric blow-up during integration. It is a per-trial
// failure; the caller decides whether to retry or flag the point.
type DivergedError struct {
	Neuron int
	Step   int
	Value  float64
}

func (e *DivergedError) Error() string {
	return fmt.Sprintf("simulation diverged: neuron %d at step %d (potential %g)", e.Neuron, e.Step, e.Value)
}

// State is the trial-scoped dynamic state evolved by the integrator. Trials
// never share a State; only the immutable lattice is shared.
type State struct {
	lat *lattice.Lattice

	Potential  []float64
	Refractory []int
	LastSpike  []int

	// Per-synapse neurotransmitter concentration and plastic efficacy.
	Concentration []float64
	Efficacy      []float64

	// Delivery ring: ring[t % len(ring)] holds synapse ids whose release is
	// due at step t.
	ring    [][]int
	ringPos int

	plasticity *STDP
	currents   []float64
}

// NewState allocates fresh dynamic state for one trial. Initial potentials
// sit at the resting potential, jittered by skew through the trial generator
// so repeated seeds reproduce bit-identical trajectories.
func NewState(lat *lattice.Lattice, skew float64, rng *rand.Rand, plasticity *STDP) *State {
	n := len(lat.Neurons)
	maxDelay := 1
	for _, synapse := range lat.Synapses {
		if synapse.DelaySteps > maxDelay {
			maxDelay = synapse.DelaySteps
		}
	}
	ring := make([][]int, maxDelay+1)

	s := &State{
		lat:           lat,
		Potential:     make([]float64, n),
		Refractory:    make([]int, n),
		LastSpike:     make([]int, n),
		Concentration: make([]float64, len(lat.Synapses)),
		Efficacy:      make([]float64, len(lat.Synapses)),
		ring:          ring,
		plasticity:    plasticity,
		currents:      make([]float64, n),
	}
	for i, neuron := range lat.Neurons {
		s.Potential[i] = neuron.Resting
		if skew != 0 {
			s.Potential[i] += skew * rng.NormFloat64()
		}
		s.LastSpike[i] = -1
	}
	for i := range s.Efficacy {
		s.Efficacy[i] = 1
	}
	return s
}

func (s *State) schedule(synapse int, delay int) {
	slot := (s.ringPos + delay) % len(s.ring)
	s.ring[slot] = append(s.ring[slot], synapse)
}

func (s *State) deliverDue() {
	slot := s.ringPos % len(s.ring)
	for _, synapse := range s.ring[slot] {
		s.Concentration[synapse] += s.lat.Synapses[synapse].Release
	}
	s.ring[slot] = s.ring[slot][:0]
}
