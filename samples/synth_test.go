package samples_test

import (
	"math"
	"testing"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/samples"
)

func TestSynthesizeIsDeterministic(t *testing.T) {
	for i := 0; i < beatr.NumVoices; i++ {
		id := beatr.VoiceID(i)
		a := samples.Synthesize(id, 48000)
		b := samples.Synthesize(id, 48000)
		if len(a.Data) == 0 || len(a.Data) != len(b.Data) {
			t.Fatalf("%v: lengths %d and %d", id, len(a.Data), len(b.Data))
		}
		for j := range a.Data {
			if a.Data[j] != b.Data[j] {
				t.Fatalf("%v: sample %d differs between calls", id, j)
			}
		}
	}
}

func TestSynthesizeIsFiniteAndDoesNotClip(t *testing.T) {
	for _, rate := range []int{22050, 44100, 48000, 96000} {
		for i := 0; i < beatr.NumVoices; i++ {
			id := beatr.VoiceID(i)
			s := samples.Synthesize(id, rate)
			var peak float64
			for _, v := range s.Data {
				f := float64(v)
				if math.IsNaN(f) || math.IsInf(f, 0) {
					t.Fatalf("%v at %d Hz: non-finite sample", id, rate)
				}
				peak = math.Max(peak, math.Abs(f))
			}
			if peak > 1 {
				t.Fatalf("%v at %d Hz: peak %g", id, rate, peak)
			}
			if peak == 0 {
				t.Fatalf("%v at %d Hz: silent", id, rate)
			}
		}
	}
}

func TestSynthesizeLengths(t *testing.T) {
	cases := []struct {
		fn       func(int, float64) []float32
		duration float64
	}{
		{samples.SynthesizeKick, 0.5},
		{samples.SynthesizeSnare, 0.3},
		{samples.SynthesizeHiHat, 0.1},
	}
	for _, c := range cases {
		if got := len(c.fn(44100, c.duration)); got != int(44100*c.duration) {
			t.Fatalf("got %d samples, expected %d", got, int(44100*c.duration))
		}
	}
	if got := samples.SynthesizeKick(44100, 0); len(got) != 0 {
		t.Fatalf("zero duration gave %d samples", len(got))
	}
}

func TestKickStartsAtOnset(t *testing.T) {
	k := samples.SynthesizeKick(48000, 0.5)
	if k[0] == 0 {
		t.Fatal("the kick should be audible on its first sample")
	}
}
