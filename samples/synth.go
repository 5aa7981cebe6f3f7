package samples

import (
	"math"

	"github.com/beatr/beatr"
)

// Default lengths of the synthesized voices, in seconds.
var defaultDurations = [beatr.NumVoices]float64{
	beatr.Kick:      0.5,
	beatr.Snare:     0.3,
	beatr.HiHat:     0.1,
	beatr.OpenHiHat: 0.4,
	beatr.Clap:      0.2,
	beatr.Rimshot:   0.1,
	beatr.Tom:       0.6,
	beatr.Crash:     2.0,
}

// peakLimit is the largest absolute value a synthesized sample may have.
const peakLimit = 0.95

// Synthesize returns the default sound of a voice at sampleRate, or nil for
// an unknown voice. The result depends only on its arguments.
func Synthesize(id beatr.VoiceID, sampleRate int) *Sample {
	if !id.Valid() {
		return nil
	}
	d := defaultDurations[id]
	var data []float32
	switch id {
	case beatr.Kick:
		data = SynthesizeKick(sampleRate, d)
	case beatr.Snare:
		data = SynthesizeSnare(sampleRate, d)
	case beatr.HiHat:
		data = SynthesizeHiHat(sampleRate, d)
	case beatr.OpenHiHat:
		data = SynthesizeOpenHiHat(sampleRate, d)
	case beatr.Clap:
		data = SynthesizeClap(sampleRate, d)
	case beatr.Rimshot:
		data = SynthesizeRimshot(sampleRate, d)
	case beatr.Tom:
		data = SynthesizeTom(sampleRate, d)
	case beatr.Crash:
		data = SynthesizeCrash(sampleRate, d)
	}
	return &Sample{Data: data, SampleRate: sampleRate}
}

// noise is a xorshift32 white noise generator. Every synthesizer seeds its
// own, so the output does not depend on call order.
type noise uint32

func (n *noise) next() float32 {
	x := uint32(*n)
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	*n = noise(x)
	return float32(x)/math.MaxUint32*2 - 1
}

// voiceBuffer allocates the buffer for a sound of the given duration and
// returns it with the time step between samples.
func voiceBuffer(sampleRate int, duration float64) ([]float32, float64) {
	if sampleRate <= 0 || !(duration > 0) {
		return nil, 0
	}
	return make([]float32, int(float64(sampleRate)*duration)), 1 / float64(sampleRate)
}

// limit scales data down if its peak exceeds peakLimit and replaces
// non-finite values with silence.
func limit(data []float32) []float32 {
	var peak float64
	for i, v := range data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			data[i] = 0
			continue
		}
		peak = max(peak, math.Abs(f))
	}
	if peak > peakLimit {
		g := float32(peakLimit / peak)
		for i := range data {
			data[i] *= g
		}
	}
	return data
}

// SynthesizeKick renders a sine that sweeps down from 150 Hz to 45 Hz with an
// exponential decay and a short click at the onset.
func SynthesizeKick(sampleRate int, duration float64) []float32 {
	data, dt := voiceBuffer(sampleRate, duration)
	phase := 0.0
	for i := range data {
		t := float64(i) * dt
		freq := 45 + 105*math.Exp(-t*30)
		body := math.Sin(phase) * math.Exp(-t*8)
		click := 0.5 * math.Exp(-t*2000)
		data[i] = float32((body + click) * 0.8)
		phase += 2 * math.Pi * freq * dt
	}
	return limit(data)
}

// SynthesizeSnare renders a noise burst over a 200 Hz body.
func SynthesizeSnare(sampleRate int, duration float64) []float32 {
	data, dt := voiceBuffer(sampleRate, duration)
	n := noise(0x5eed0001)
	for i := range data {
		t := float64(i) * dt
		tone := math.Sin(2*math.Pi*200*t) * 0.3
		env := math.Exp(-t * 20)
		data[i] = float32((float64(n.next())*0.7 + tone) * env * 0.6)
	}
	return limit(data)
}

// highpass is a one-pole feedback filter: y[i] = x - a*y[i-1].
func highpass(x, prev float32, a float32) float32 {
	return x - a*prev
}

// SynthesizeHiHat renders high-passed noise with a very short decay.
func SynthesizeHiHat(sampleRate int, duration float64) []float32 {
	data, dt := voiceBuffer(sampleRate, duration)
	n := noise(0x5eed0002)
	var y float32
	for i := range data {
		t := float64(i) * dt
		y = highpass(n.next(), y, 0.9)
		data[i] = y * float32(math.Exp(-t*30)*0.3)
	}
	return limit(data)
}

// SynthesizeOpenHiHat renders high-passed noise with a medium decay.
func SynthesizeOpenHiHat(sampleRate int, duration float64) []float32 {
	data, dt := voiceBuffer(sampleRate, duration)
	n := noise(0x5eed0003)
	var y float32
	for i := range data {
		t := float64(i) * dt
		y = highpass(n.next(), y, 0.8)
		data[i] = y * float32(math.Exp(-t*8)*0.35)
	}
	return limit(data)
}

// SynthesizeClap renders three short noise bursts followed by a decaying
// tail.
func SynthesizeClap(sampleRate int, duration float64) []float32 {
	data, dt := voiceBuffer(sampleRate, duration)
	n := noise(0x5eed0004)
	var prev1, prev2 float32
	for i := range data {
		t := float64(i) * dt
		var env float64
		for _, start := range [...]float64{0, 0.015, 0.03} {
			if t >= start && t < start+0.01 {
				env += math.Exp(-(t - start) * 200)
			}
		}
		if t >= 0.045 {
			env += math.Exp(-(t - 0.045) * 15)
		}
		x := n.next()*0.8 - prev1*0.3 + prev2*0.1
		prev2, prev1 = prev1, x
		data[i] = x * float32(env*0.6)
	}
	return limit(data)
}

// SynthesizeRimshot renders a 2 kHz click with a little noise.
func SynthesizeRimshot(sampleRate int, duration float64) []float32 {
	data, dt := voiceBuffer(sampleRate, duration)
	n := noise(0x5eed0005)
	var y float32
	for i := range data {
		t := float64(i) * dt
		click := float32(math.Sin(2*math.Pi*2000*t) * 0.5)
		y = highpass(click+n.next()*0.3, y, 0.7)
		data[i] = y * float32(math.Exp(-t*40)*0.5)
	}
	return limit(data)
}

// SynthesizeTom renders a pitched drum sweeping down from 80 Hz with two
// overtones.
func SynthesizeTom(sampleRate int, duration float64) []float32 {
	data, dt := voiceBuffer(sampleRate, duration)
	n := noise(0x5eed0006)
	phase := 0.0
	for i := range data {
		t := float64(i) * dt
		freq := 80 * max(1-t*2, 0.3)
		tone := math.Sin(phase) + math.Sin(phase*1.5)*0.3 + math.Sin(phase*2.2)*0.15
		data[i] = float32((tone + float64(n.next())*0.1) * math.Exp(-t*6) * 0.5)
		phase += 2 * math.Pi * freq * dt
	}
	return limit(data)
}

// SynthesizeCrash renders bright noise with metallic partials and a long
// decay.
func SynthesizeCrash(sampleRate int, duration float64) []float32 {
	data, dt := voiceBuffer(sampleRate, duration)
	n := noise(0x5eed0007)
	var y1, y2 float32
	for i := range data {
		t := float64(i) * dt
		metal := math.Sin(2*math.Pi*5000*t)*0.1 + math.Sin(2*math.Pi*7000*t)*0.08 + math.Sin(2*math.Pi*9000*t)*0.06
		x := n.next() - y1*0.7 - y2*0.2
		y2, y1 = y1, x
		data[i] = float32((float64(x)*0.7 + metal) * math.Exp(-t*1.5) * 0.3)
	}
	return limit(data)
}
