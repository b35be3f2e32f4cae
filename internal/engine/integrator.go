package engine

import (
	"math"

	"spikesim/internal/model"
)

// divergenceLimit bounds the membrane potential; beyond it the trial is
// reported as diverged instead of producing NaN output.
const divergenceLimit = 1e6

// Step advances the network by one timestep. The update is synchronous:
// every neuron integrates against the concentrations left by step t-1, so a
// spike can only reach another neuron through the delayed propagation path.
//
// Order within a step: currents from previous state, integration and
// threshold detection, concentration decay, then delivery of the releases
// scheduled for this step. A spike emitted at t schedules its release at
// t+delay, which first contributes current at t+delay+1.
func (s *State) Step(t int, stimulus []float64) ([]model.Spike, error) {
	lat := s.lat

	for i := range s.currents {
		current := 0.0
		if stimulus != nil {
			current = stimulus[i]
		}
		for _, si := range lat.Incoming[i] {
			concentration := s.Concentration[si]
			if concentration == 0 {
				continue
			}
			synapse := lat.Synapses[si]
			current += synapse.Weight * s.Efficacy[si] * concentration
		}
		s.currents[i] = current
	}

	var spikes []model.Spike
	for i := range lat.Neurons {
		neuron := &lat.Neurons[i]

		if s.Refractory[i] > 0 {
			s.Refractory[i]--
			s.Potential[i] = neuron.Reset
			continue
		}

		v := s.Potential[i]
		input := s.currents[i] + neuron.A + neuron.B*(v-neuron.Resting)
		dv := (neuron.Resting-v)/neuron.Tau + input*neuron.Resistance/neuron.Capacitance
		v += dv
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > divergenceLimit {
			return nil, &DivergedError{Neuron: i, Step: t, Value: v}
		}
		s.Potential[i] = v

		if v >= neuron.Threshold {
			s.Potential[i] = neuron.Reset
			s.Refractory[i] = neuron.RefractorySteps
			spikes = append(spikes, model.Spike{Neuron: i, Step: t, Channel: neuron.Channel})
			for _, si := range lat.Outgoing[i] {
				s.schedule(si, lat.Synapses[si].DelaySteps)
			}
			if s.plasticity != nil {
				s.plasticity.OnSpike(s, i, t)
			}
			s.LastSpike[i] = t
		}
	}

	for si := range s.Concentration {
		rate := lat.Synapses[si].Clearance
		if rate == 0 {
			continue
		}
		c := s.Concentration[si] * (1 - rate)
		if c < 0 {
			c = 0
		}
		s.Concentration[si] = c
	}

	s.deliverDue()
	s.ringPos++
	return spikes, nil
}
