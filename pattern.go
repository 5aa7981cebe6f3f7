package beatr

import (
	"fmt"
	"strings"
)

type (
	// Step is one sixteenth-note slot of a track. When the playhead reaches an
	// active step, the voice assigned to the track is triggered with the
	// step's velocity as gain.
	Step struct {
		Active   bool
		Velocity float32
	}

	// Track is one row of a pattern: a voice and the sixteen steps that
	// trigger it. A track always has exactly PatternLength steps; the array
	// type makes that impossible to violate.
	Track struct {
		Voice VoiceID
		Steps [PatternLength]Step
	}

	// Pattern is a grid of MaxTracks tracks by PatternLength steps. Pattern is
	// plain data: assigning a Pattern copies it completely and never
	// allocates, so the engine can snapshot one inside the audio callback.
	Pattern struct {
		Name   string
		Tracks [MaxTracks]Track
	}
)

// NewPattern returns an empty pattern with the tracks assigned to the voices
// in VoiceID order and all velocities at full scale.
func NewPattern(name string) Pattern {
	p := Pattern{Name: name}
	for i := range p.Tracks {
		p.Tracks[i].Voice = VoiceID(i % NumVoices)
		for j := range p.Tracks[i].Steps {
			p.Tracks[i].Steps[j].Velocity = 1
		}
	}
	return p
}

// ClampVelocity limits v to the range [0, 1]. NaN becomes 0.
func ClampVelocity(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func checkIndex(track, step int) error {
	if track < 0 || track >= MaxTracks {
		return fmt.Errorf("%w: %d", ErrTrackOutOfRange, track)
	}
	if step < 0 || step >= PatternLength {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, step)
	}
	return nil
}

// Toggle flips the active flag of one step.
func (p *Pattern) Toggle(track, step int) error {
	if err := checkIndex(track, step); err != nil {
		return err
	}
	s := &p.Tracks[track].Steps[step]
	s.Active = !s.Active
	return nil
}

// SetStep overwrites one step. The velocity is clamped to [0, 1].
func (p *Pattern) SetStep(track, step int, s Step) error {
	if err := checkIndex(track, step); err != nil {
		return err
	}
	s.Velocity = ClampVelocity(s.Velocity)
	p.Tracks[track].Steps[step] = s
	return nil
}

// SetVoice assigns the voice a track triggers.
func (p *Pattern) SetVoice(track int, v VoiceID) error {
	if err := checkIndex(track, 0); err != nil {
		return err
	}
	if !v.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownVoice, uint8(v))
	}
	p.Tracks[track].Voice = v
	return nil
}

// ClearTrack deactivates every step of a track, keeping the velocities.
func (p *Pattern) ClearTrack(track int) error {
	if err := checkIndex(track, 0); err != nil {
		return err
	}
	for i := range p.Tracks[track].Steps {
		p.Tracks[track].Steps[i].Active = false
	}
	return nil
}

// Clear deactivates every step of the pattern.
func (p *Pattern) Clear() {
	for i := range p.Tracks {
		p.ClearTrack(i)
	}
}

// IsEmpty reports whether no step of the pattern is active.
func (p *Pattern) IsEmpty() bool {
	for _, t := range p.Tracks {
		for _, s := range t.Steps {
			if s.Active {
				return false
			}
		}
	}
	return true
}

// Grid renders the steps of a track as "|x---|x---|x---|x---|".
func (t *Track) Grid() string {
	var b strings.Builder
	for i, s := range t.Steps {
		if i%StepsPerBeat == 0 {
			b.WriteByte('|')
		}
		if s.Active {
			b.WriteByte('x')
		} else {
			b.WriteByte('-')
		}
	}
	b.WriteByte('|')
	return b.String()
}

func (p Pattern) String() string {
	var b strings.Builder
	if p.Name != "" {
		fmt.Fprintf(&b, "%s\n", p.Name)
	}
	for _, t := range p.Tracks {
		fmt.Fprintf(&b, "%-10s %s\n", t.Voice, t.Grid())
	}
	return b.String()
}
