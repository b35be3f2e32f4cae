package engine

import (
	"context"
	"math/rand"

	"spikesim/internal/lattice"
	"spikesim/internal/model"
)

// RunTrial executes one full trial on a built lattice: fresh dynamic state,
// the mode's phase schedule, and the recorded trace for the measured
// interval. The lattice is read-only throughout; all mutation happens in the
// trial-local State. Identical seeds produce bit-identical results.
func RunTrial(ctx context.Context, lat *lattice.Lattice, scalars model.Scalars, point model.Point, trialIndex int, seed int64) (model.TrialResult, error) {
	rng := rand.New(rand.NewSource(seed))

	var plasticity *STDP
	if scalars.PlasticityOn {
		plasticity = DefaultSTDP()
	}
	state := NewState(lat, scalars.Skew, rng, plasticity)

	switch point.Mode {
	case model.ModeManifold:
		return runManifoldTrial(ctx, state, lat, scalars)
	default:
		return runCuedTrial(ctx, state, lat, scalars, point, trialIndex, rng)
	}
}

func runManifoldTrial(ctx context.Context, state *State, lat *lattice.Lattice, scalars model.Scalars) (model.TrialResult, error) {
	result := model.TrialResult{}
	t := 0

	// Settling steps are integrated but discarded from the output.
	for i := 0; i < scalars.SettlingPeriod; i++ {
		if err := ctx.Err(); err != nil {
			return model.TrialResult{}, err
		}
		if _, err := state.Step(t, nil); err != nil {
			return model.TrialResult{}, err
		}
		t++
	}

	stimulus := lat.Stimulus[lattice.StimPrimary]
	for i := 0; i < scalars.OnPhase; i++ {
		if err := ctx.Err(); err != nil {
			return model.TrialResult{}, err
		}
		spikes, err := state.Step(t, stimulus)
		if err != nil {
			return model.TrialResult{}, err
		}
		result.Spikes = append(result.Spikes, spikes...)
		result.Trace = append(result.Trace, meanExcPotential(state, lat))
		t++
	}
	for i := 0; i < scalars.OffPhase; i++ {
		if err := ctx.Err(); err != nil {
			return model.TrialResult{}, err
		}
		spikes, err := state.Step(t, nil)
		if err != nil {
			return model.TrialResult{}, err
		}
		result.Spikes = append(result.Spikes, spikes...)
		result.Trace = append(result.Trace, meanExcPotential(state, lat))
		t++
	}
	return result, nil
}

func runCuedTrial(ctx context.Context, state *State, lat *lattice.Lattice, scalars model.Scalars, point model.Point, trialIndex int, rng *rand.Rand) (model.TrialResult, error) {
	cued := trialIndex % lat.Groups
	result := model.TrialResult{CuedGroup: cued}

	cuedIDs := lat.GroupNeurons(cued)
	otherIDs := lat.GroupNeurons(1 - cued)

	stim := newCueStimulus(lat, point, cued)
	window := scalars.FirstWindow

	t := 0
	for i := 0; i < scalars.Iterations1; i++ {
		if err := ctx.Err(); err != nil {
			return model.TrialResult{}, err
		}
		spikes, err := state.Step(t, stim.vector(rng))
		if err != nil {
			return model.TrialResult{}, err
		}
		result.Spikes = append(result.Spikes, spikes...)
		result.Trace = append(result.Trace, meanExcPotential(state, lat))
		if i < window {
			result.CuedResponse = append(result.CuedResponse, meanPotential(state, cuedIDs))
			result.OtherResponse = append(result.OtherResponse, meanPotential(state, otherIDs))
		}
		t++
	}

	// The second phase always runs for its configured length; the swapped
	// cue and its response windows exist only when second_cue is set.
	if scalars.Iterations2 > 0 {
		var second *cueStimulus
		secondWindow := 0
		if scalars.SecondCue {
			second = newCueStimulus(lat, point, 1-cued)
			secondWindow = window
			if scalars.Iterations2 < secondWindow {
				secondWindow = scalars.Iterations2
			}
		}
		for i := 0; i < scalars.Iterations2; i++ {
			if err := ctx.Err(); err != nil {
				return model.TrialResult{}, err
			}
			var input []float64
			if second != nil {
				input = second.vector(rng)
			}
			spikes, err := state.Step(t, input)
			if err != nil {
				return model.TrialResult{}, err
			}
			result.Spikes = append(result.Spikes, spikes...)
			result.Trace = append(result.Trace, meanExcPotential(state, lat))
			if i < secondWindow {
				result.SecondCued = append(result.SecondCued, meanPotential(state, otherIDs))
				result.SecondOther = append(result.SecondOther, meanPotential(state, cuedIDs))
			}
			t++
		}
	}
	return result, nil
}

// cueStimulus assembles the per-step external input for the cued phases.
// Distortion bleeds a fraction of the cue onto the uncued population, the
// s_d terms add per-group bias currents, and the bayesian channel carries
// multiplicative noise when bayesian_distortion is nonzero.
type cueStimulus struct {
	base          []float64
	bayesian      []float64
	bayesianNoise float64
	scratch       []float64
}

func newCueStimulus(lat *lattice.Lattice, point model.Point, cued int) *cueStimulus {
	channels := []int{lattice.StimPrimary, lattice.StimSecondary}
	cuedChannel := lat.Stimulus[channels[cued%len(channels)]]
	otherChannel := lat.Stimulus[channels[(cued+1)%len(channels)]]

	distortion := point.Scalar("distortion", 0)
	sd := []float64{point.Scalar("s_d1", 0), point.Scalar("s_d2", 0)}

	base := make([]float64, len(lat.Neurons))
	for i := range base {
		base[i] = cuedChannel[i]*(1-distortion) + otherChannel[i]*distortion
	}
	for _, neuron := range lat.Neurons {
		if neuron.Channel != lattice.ChannelExcitatory {
			continue
		}
		base[neuron.ID] += sd[neuron.Group%len(sd)]
	}

	stim := &cueStimulus{base: base}
	if point.Mode == model.ModeBayesian {
		stim.bayesian = lat.Stimulus[lattice.StimBayesian]
		stim.bayesianNoise = point.Scalar("bayesian_distortion", 0)
		stim.scratch = make([]float64, len(base))
	}
	return stim
}

func (c *cueStimulus) vector(rng *rand.Rand) []float64 {
	if c.bayesian == nil {
		return c.base
	}
	for i := range c.base {
		gain := c.bayesian[i]
		if gain != 0 && c.bayesianNoise != 0 {
			gain *= 1 + c.bayesianNoise*rng.NormFloat64()
		}
		c.scratch[i] = c.base[i] + gain
	}
	return c.scratch
}

func meanExcPotential(state *State, lat *lattice.Lattice) float64 {
	sum := 0.0
	count := 0
	for _, neuron := range lat.Neurons {
		if neuron.Channel != lattice.ChannelExcitatory {
			continue
		}
		sum += state.Potential[neuron.ID]
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func meanPotential(state *State, ids []int) float64 {
	if len(ids) == 0 {
		return 0
	}
	sum := 0.0
	for _, id := range ids {
		sum += state.Potential[id]
	}
	return sum / float64(len(ids))
}
