package engine

import "github.com/beatr/beatr"

type (
	// StepRenderer receives the output of a Sequencer. TriggerStep is called
	// when the playhead enters a step; RenderChunk is called with consecutive
	// pieces of the output buffer, none of which crosses a step boundary.
	StepRenderer interface {
		TriggerStep(step int)
		RenderChunk(chunk []float32)
	}

	// Sequencer tracks the playhead inside a pattern loop with sample
	// accuracy. Step lengths are latched from the tempo and sample rate at
	// block boundaries only.
	Sequencer struct {
		sampleRate int
		tempo      float64
		durations  [beatr.PatternLength]int
		step       int // current step, 0..PatternLength-1
		pos        int // samples played of the current step
	}
)

// Latch sets the tempo and sample rate used for the following blocks. It is
// cheap when neither changed.
func (s *Sequencer) Latch(sampleRate int, tempo float64) {
	if sampleRate == s.sampleRate && tempo == s.tempo {
		return
	}
	s.sampleRate, s.tempo = sampleRate, tempo
	if sampleRate <= 0 || !(tempo > 0) {
		s.durations = [beatr.PatternLength]int{}
		return
	}
	s.durations = beatr.StepDurations(sampleRate, tempo)
}

// Render advances the playhead by len(out) frames. Whenever the playhead is
// at the first sample of a step, the step is triggered before any audio of
// that step is rendered, so a trigger lands on the exact sample of the step
// boundary regardless of the block size.
func (s *Sequencer) Render(out []float32, r StepRenderer) {
	if s.durations[0] == 0 {
		r.RenderChunk(out)
		return
	}
	for len(out) > 0 {
		d := s.durations[s.step]
		if s.pos >= d {
			// the tempo went up and the step is already over
			s.advance()
			continue
		}
		if s.pos == 0 {
			r.TriggerStep(s.step)
		}
		n := min(len(out), d-s.pos)
		r.RenderChunk(out[:n])
		out = out[n:]
		s.pos += n
		if s.pos >= d {
			s.advance()
		}
	}
}

func (s *Sequencer) advance() {
	s.pos = 0
	s.step = (s.step + 1) % beatr.PatternLength
}

// Rephase moves the playhead to the given offset from the start of the loop.
// Offsets beyond one loop wrap around.
func (s *Sequencer) Rephase(offset int) {
	loop := 0
	for _, d := range s.durations {
		loop += d
	}
	if loop == 0 {
		s.Reset()
		return
	}
	offset %= loop
	if offset < 0 {
		offset += loop
	}
	for k, d := range s.durations {
		if offset < d {
			s.step, s.pos = k, offset
			return
		}
		offset -= d
	}
}

// Reset moves the playhead to the start of the first step.
func (s *Sequencer) Reset() {
	s.step, s.pos = 0, 0
}

// Step returns the step the playhead is in.
func (s *Sequencer) Step() int { return s.step }

// PositionInStep returns how many samples of the current step have been
// played.
func (s *Sequencer) PositionInStep() int { return s.pos }
