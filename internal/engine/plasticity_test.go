package engine

import (
	"math"
	"math/rand"
	"testing"
)

func TestSTDPPotentiatesPreBeforePost(t *testing.T) {
	lat := pairLattice(0.5, 0.5)
	rule := DefaultSTDP()
	state := NewState(lat, 0, rand.New(rand.NewSource(1)), rule)

	state.LastSpike[0] = 0
	rule.OnSpike(state, 1, 5)

	want := 1 + rule.APlus*math.Exp(-5/rule.TauPlus)
	if math.Abs(state.Efficacy[0]-want) > 1e-12 {
		t.Fatalf("unexpected efficacy: got=%g want=%g", state.Efficacy[0], want)
	}
}

func TestSTDPDepressesPostBeforePre(t *testing.T) {
	lat := pairLattice(0.5, 0.5)
	rule := DefaultSTDP()
	state := NewState(lat, 0, rand.New(rand.NewSource(1)), rule)

	state.LastSpike[1] = 5
	rule.OnSpike(state, 0, 8)

	want := 1 - rule.AMinus*math.Exp(-3/rule.TauMinus)
	if math.Abs(state.Efficacy[0]-want) > 1e-12 {
		t.Fatalf("unexpected efficacy: got=%g want=%g", state.Efficacy[0], want)
	}
}

func TestSTDPIgnoresPairsOutsideWindow(t *testing.T) {
	lat := pairLattice(0.5, 0.5)
	rule := DefaultSTDP()
	state := NewState(lat, 0, rand.New(rand.NewSource(1)), rule)

	state.LastSpike[0] = 0
	rule.OnSpike(state, 1, rule.Window+1)

	if state.Efficacy[0] != 1 {
		t.Fatalf("pair outside the window changed efficacy: got=%g", state.Efficacy[0])
	}

	// A neuron that never spiked contributes nothing either.
	state.LastSpike[0] = -1
	rule.OnSpike(state, 1, 10)
	if state.Efficacy[0] != 1 {
		t.Fatalf("silent pre neuron changed efficacy: got=%g", state.Efficacy[0])
	}
}

func TestSTDPClampsEfficacy(t *testing.T) {
	lat := pairLattice(0.5, 0.5)
	rule := DefaultSTDP()
	state := NewState(lat, 0, rand.New(rand.NewSource(1)), rule)

	state.Efficacy[0] = rule.EfficacyMax - 0.001
	state.LastSpike[0] = 5
	rule.OnSpike(state, 1, 5)
	if state.Efficacy[0] != rule.EfficacyMax {
		t.Fatalf("expected clamp at max: got=%g want=%g", state.Efficacy[0], rule.EfficacyMax)
	}

	state.Efficacy[0] = rule.EfficacyMin + 0.001
	state.LastSpike[1] = 5
	rule.OnSpike(state, 0, 5)
	if state.Efficacy[0] != rule.EfficacyMin {
		t.Fatalf("expected clamp at min: got=%g want=%g", state.Efficacy[0], rule.EfficacyMin)
	}
}
