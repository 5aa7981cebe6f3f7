package engine

import (
	"github.com/beatr/beatr"
	"github.com/beatr/beatr/samples"
	"github.com/viterin/vek/vek32"
)

// mixChunk is the size of the scratch buffer used when mixing a voice. Longer
// blocks are mixed in several passes.
const mixChunk = 256

type (
	// Voice is one sample being played back. A voice keeps a reference to the
	// sample it started with, so replacing the sample in the bank does not
	// affect it.
	Voice struct {
		sample   *samples.Sample
		voice    beatr.VoiceID
		position int     // next frame to read from the sample
		gain     float32 // velocity of the trigger
		active   bool
		serial   uint64 // allocation order, smaller is older
	}

	// VoicePool is a fixed set of voices. It never allocates after creation
	// and is owned by the audio callback; it is not safe for concurrent use.
	//
	// When every voice is busy, Allocate steals one: the quietest voice
	// playing the same sound if there is one, otherwise the oldest voice.
	VoicePool struct {
		voices  [beatr.MaxPolyphony]Voice
		serial  uint64
		scratch [mixChunk]float32
	}
)

// Capacity returns the number of voices in the pool.
func (p *VoicePool) Capacity() int { return len(p.voices) }

// Allocate starts playing s with the given gain and returns the slot used.
// stolen is true if a playing voice had to be cut. An empty sample is not
// played and -1 is returned.
func (p *VoicePool) Allocate(id beatr.VoiceID, s *samples.Sample, gain float32) (slot int, stolen bool) {
	if s == nil || len(s.Data) == 0 {
		return -1, false
	}
	slot = -1
	for i := range p.voices {
		if !p.voices[i].active {
			slot = i
			break
		}
	}
	if slot < 0 {
		slot = p.victim(id)
		stolen = true
	}
	p.serial++
	p.voices[slot] = Voice{sample: s, voice: id, gain: gain, active: true, serial: p.serial}
	return slot, stolen
}

// level estimates how loud a voice still is. Drum sounds decay, so the
// fraction of the sample left is a usable proxy for the envelope.
func (v *Voice) level() float32 {
	n := len(v.sample.Data)
	return v.gain * float32(n-v.position) / float32(n)
}

func (p *VoicePool) victim(id beatr.VoiceID) int {
	best := -1
	var bestLevel float32
	for i := range p.voices {
		v := &p.voices[i]
		if v.voice != id {
			continue
		}
		if l := v.level(); best < 0 || l < bestLevel {
			best, bestLevel = i, l
		}
	}
	if best >= 0 {
		return best
	}
	oldest := 0
	for i := range p.voices {
		if p.voices[i].serial < p.voices[oldest].serial {
			oldest = i
		}
	}
	return oldest
}

// RenderInto adds every active voice to buf and advances the voices by
// len(buf) frames. Voices reaching the end of their sample are freed.
func (p *VoicePool) RenderInto(buf []float32) {
	for i := range p.voices {
		v := &p.voices[i]
		out := buf
		for v.active && len(out) > 0 {
			n := min(len(out), len(v.sample.Data)-v.position, mixChunk)
			tmp := vek32.MulNumber_Into(p.scratch[:n], v.sample.Data[v.position:v.position+n], v.gain)
			vek32.Add_Inplace(out[:n], tmp)
			v.position += n
			out = out[n:]
			if v.position >= len(v.sample.Data) {
				v.active = false
				v.sample = nil
			}
		}
	}
}

// ActiveCount returns the number of voices currently playing.
func (p *VoicePool) ActiveCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// Reset silences every voice.
func (p *VoicePool) Reset() {
	for i := range p.voices {
		p.voices[i] = Voice{}
	}
}
