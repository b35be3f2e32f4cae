package engine

import "math"

// STDP adjusts synaptic efficacy from pre/post spike timing: pre-before-post
// within the window potentiates, post-before-pre depresses. Updates touch
// efficacy only, never topology, and are clamped to [EfficacyMin,
// EfficacyMax].
type STDP struct {
	APlus    float64
	AMinus   float64
	TauPlus  float64
	TauMinus float64
	Window   int

	EfficacyMin float64
	EfficacyMax float64
}

// DefaultSTDP returns the rule used when a configuration enables plasticity
// without overriding the timing constants.
func DefaultSTDP() *STDP {
	return &STDP{
		APlus:       0.01,
		AMinus:      0.012,
		TauPlus:     20,
		TauMinus:    20,
		Window:      50,
		EfficacyMin: 0,
		EfficacyMax: 2,
	}
}

// OnSpike applies the timing rule for every synapse touching the neuron that
// just spiked at step t. For incoming synapses the spiking neuron is the
// post-synaptic side (potentiation); for outgoing synapses it is the
// pre-synaptic side (depression of pairs where post fired first).
func (p *STDP) OnSpike(s *State, neuron, t int) {
	lat := s.lat
	for _, si := range lat.Incoming[neuron] {
		pre := lat.Synapses[si].From
		dt := sinceSpike(s, pre, t)
		if dt < 0 || dt > p.Window {
			continue
		}
		p.apply(s, si, p.APlus*math.Exp(-float64(dt)/p.TauPlus))
	}
	for _, si := range lat.Outgoing[neuron] {
		post := lat.Synapses[si].To
		dt := sinceSpike(s, post, t)
		if dt < 0 || dt > p.Window {
			continue
		}
		p.apply(s, si, -p.AMinus*math.Exp(-float64(dt)/p.TauMinus))
	}
}

func (p *STDP) apply(s *State, synapse int, delta float64) {
	next := s.Efficacy[synapse] + delta
	if next < p.EfficacyMin {
		next = p.EfficacyMin
	} else if next > p.EfficacyMax {
		next = p.EfficacyMax
	}
	s.Efficacy[synapse] = next
}

func sinceSpike(s *State, neuron, t int) int {
	last := s.LastSpike[neuron]
	if last < 0 {
		return -1
	}
	return t - last
}
