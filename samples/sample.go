// Package samples holds the drum sample buffers the engine plays. A Bank maps
// every voice to an immutable Sample; replacing a sample publishes a new
// buffer atomically, so the audio thread never observes a partially written
// buffer and never blocks on a reload.
package samples

import "time"

// Sample is a mono buffer of audio in the range [-1, 1]. A Sample must not be
// modified after it has been stored in a Bank; voices that are still playing
// it keep a reference.
type Sample struct {
	Data       []float32
	SampleRate int
}

// Len returns the length of the sample in frames.
func (s *Sample) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Data)
}

// Duration returns the playing time of the sample.
func (s *Sample) Duration() time.Duration {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Data)) * time.Second / time.Duration(s.SampleRate)
}

// Resample returns a copy of the sample converted to sampleRate with linear
// interpolation. If the rates already match, s is returned as is.
func (s *Sample) Resample(sampleRate int) *Sample {
	if s.SampleRate == sampleRate || s.SampleRate <= 0 || len(s.Data) == 0 {
		return s
	}
	ratio := float64(s.SampleRate) / float64(sampleRate)
	n := int(float64(len(s.Data)) / ratio)
	out := make([]float32, n)
	last := len(s.Data) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = s.Data[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = s.Data[j] + (s.Data[j+1]-s.Data[j])*frac
	}
	return &Sample{Data: out, SampleRate: sampleRate}
}
