package beatr

import (
	"fmt"
	"math"
)

// ValidateTempo returns ErrInvalidTempo unless bpm is within [MinTempo,
// MaxTempo].
func ValidateTempo(bpm float64) error {
	if !(bpm >= MinTempo && bpm <= MaxTempo) {
		return fmt.Errorf("%w: %g bpm, expected %g..%g", ErrInvalidTempo, bpm, MinTempo, MaxTempo)
	}
	return nil
}

// StepDurationSamples returns the exact, fractional length of one sixteenth
// note step in samples.
func StepDurationSamples(sampleRate int, bpm float64) float64 {
	return float64(sampleRate) * 60 / (bpm * StepsPerBeat)
}

// StepDurations splits one pattern loop into integer step lengths. Step k
// covers samples [round(k*d), round((k+1)*d)) of the loop, where d is the
// exact step duration, so the lengths differ by at most one sample and the
// whole loop is within half a sample of its exact length.
func StepDurations(sampleRate int, bpm float64) (ret [PatternLength]int) {
	d := StepDurationSamples(sampleRate, bpm)
	prev := 0
	for k := range ret {
		next := int(math.Round(float64(k+1) * d))
		ret[k] = max(next-prev, 1)
		prev += ret[k]
	}
	return ret
}

// LoopDurationSamples returns the integer length of one pattern loop, equal
// to the sum of StepDurations.
func LoopDurationSamples(sampleRate int, bpm float64) int {
	d := StepDurations(sampleRate, bpm)
	sum := 0
	for _, n := range d {
		sum += n
	}
	return sum
}

// LoopDurationSeconds returns the length of one pattern loop in seconds.
func LoopDurationSeconds(bpm float64) float64 {
	return PatternLength * 60 / (bpm * StepsPerBeat)
}
