package metrics

import "spikesim/internal/model"

// Peak detection policy: local maxima filtered by minimum prominence and
// minimum spacing. Prominence is measured against the lowest valley on the
// shallower side within the spacing window; when two candidates fall inside
// one spacing window the higher peak wins, the earlier on equal amplitude.
const (
	DefaultMinProminence = 1.0
	DefaultMinSpacing    = 10
)

// DetectPeaks finds local maxima in a voltage trace.
func DetectPeaks(trace []float64, minProminence float64, minSpacing int) []model.Peak {
	if len(trace) < 3 {
		return nil
	}
	if minSpacing < 1 {
		minSpacing = 1
	}

	var candidates []model.Peak
	for i := 1; i < len(trace)-1; i++ {
		if trace[i] > trace[i-1] && trace[i] >= trace[i+1] {
			if prominence(trace, i, minSpacing) >= minProminence {
				candidates = append(candidates, model.Peak{Step: i, Amplitude: trace[i]})
			}
		}
	}

	var peaks []model.Peak
	for _, candidate := range candidates {
		if len(peaks) == 0 {
			peaks = append(peaks, candidate)
			continue
		}
		last := &peaks[len(peaks)-1]
		if candidate.Step-last.Step >= minSpacing {
			peaks = append(peaks, candidate)
			continue
		}
		if candidate.Amplitude > last.Amplitude {
			*last = candidate
		}
	}
	return peaks
}

func prominence(trace []float64, i, window int) float64 {
	left := trace[i]
	for j := i - 1; j >= 0 && j >= i-window; j-- {
		if trace[j] < left {
			left = trace[j]
		}
	}
	right := trace[i]
	for j := i + 1; j < len(trace) && j <= i+window; j++ {
		if trace[j] < right {
			right = trace[j]
		}
	}
	shallower := left
	if right > shallower {
		shallower = right
	}
	return trace[i] - shallower
}
