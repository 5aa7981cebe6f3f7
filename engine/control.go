package engine

import (
	"fmt"
	"math"

	"github.com/beatr/beatr"
)

// MaxMasterVolume is the largest master gain SetMasterVolume accepts.
const MaxMasterVolume = 2

func checkSlot(slot int) error {
	if slot < 0 || slot >= beatr.NumPatternSlots {
		return fmt.Errorf("%w: %d", beatr.ErrSlotOutOfRange, slot)
	}
	return nil
}

// SetTempo changes the tempo. It returns ErrInvalidTempo, keeping the
// current tempo, if bpm is outside [MinTempo, MaxTempo]. The new tempo takes
// effect at the next block.
func (e *Engine) SetTempo(bpm float64) error {
	if err := beatr.ValidateTempo(bpm); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shared.tempo = bpm
	return nil
}

func (e *Engine) Tempo() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.tempo
}

// SetMasterVolume sets the gain applied to the whole mix, in [0,
// MaxMasterVolume].
func (e *Engine) SetMasterVolume(v float32) error {
	if !(v >= 0 && v <= MaxMasterVolume) {
		return fmt.Errorf("master volume %g out of range [0, %d]", v, MaxMasterVolume)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shared.masterVolume = v
	return nil
}

func (e *Engine) MasterVolume() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.masterVolume
}

// ToggleStep flips one step of the selected pattern slot.
func (e *Engine) ToggleStep(track, step int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.patterns[e.shared.slot].Toggle(track, step)
}

// SetStep overwrites one step of a pattern slot.
func (e *Engine) SetStep(slot, track, step int, s beatr.Step) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.patterns[slot].SetStep(track, step, s)
}

// SetTrackVoice assigns the voice a track of a pattern slot triggers.
func (e *Engine) SetTrackVoice(slot, track int, v beatr.VoiceID) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.patterns[slot].SetVoice(track, v)
}

// SetPatternSlot replaces a whole pattern. The audio callback sees either
// the old or the new pattern, never a mix. Velocities are clamped to [0, 1].
func (e *Engine) SetPatternSlot(slot int, p beatr.Pattern) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	for i := range p.Tracks {
		t := &p.Tracks[i]
		if !t.Voice.Valid() {
			return fmt.Errorf("track %d: %w: %d", i, beatr.ErrUnknownVoice, uint8(t.Voice))
		}
		for j := range t.Steps {
			t.Steps[j].Velocity = beatr.ClampVelocity(t.Steps[j].Velocity)
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shared.patterns[slot] = p
	return nil
}

// PatternSlot returns a copy of a pattern slot.
func (e *Engine) PatternSlot(slot int) (beatr.Pattern, error) {
	if err := checkSlot(slot); err != nil {
		return beatr.Pattern{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.patterns[slot], nil
}

// SelectSlot chooses the pattern slot played in ModeRegular and edited by
// ToggleStep. The playhead keeps its position.
func (e *Engine) SelectSlot(slot int) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shared.slot = slot
	return nil
}

func (e *Engine) CurrentSlot() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.slot
}

// LoadTimeline switches to ModeTimeline with a copy of t and rewinds the
// transport to the start of the timeline.
func (e *Engine) LoadTimeline(t beatr.Timeline) error {
	t = t.Copy()
	t.Sort()
	t.AssignIDs()
	if err := t.Validate(); err != nil {
		return fmt.Errorf("cannot load timeline: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shared.timeline = t
	e.shared.timelineLoaded = true
	e.shared.position = 0
	e.shared.rephase = true
	return nil
}

// UnloadTimeline returns to ModeRegular. The timeline is discarded.
func (e *Engine) UnloadTimeline() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shared.timeline = beatr.Timeline{}
	e.shared.timelineLoaded = false
}

// Timeline returns a copy of the loaded timeline; ok is false in
// ModeRegular.
func (e *Engine) Timeline() (t beatr.Timeline, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.timeline.Copy(), e.shared.timelineLoaded
}

// Mode returns the playback mode the next block will use.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shared.timelineLoaded {
		return ModeTimeline
	}
	return ModeRegular
}

// AddSegment inserts a segment into the timeline, switching to ModeTimeline
// if no timeline was loaded. It returns the id of the new segment.
func (e *Engine) AddSegment(s beatr.Segment) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.shared.timeline.Add(s)
	if err != nil {
		return 0, err
	}
	if !e.shared.timelineLoaded {
		// the position counted in ModeRegular means nothing on the timeline
		e.shared.position = 0
	}
	e.shared.timelineLoaded = true
	e.shared.rephase = true
	return id, nil
}

// RemoveSegment deletes a segment from the timeline.
func (e *Engine) RemoveSegment(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.shared.timeline.Remove(id) {
		return false
	}
	e.shared.rephase = true
	return true
}

// Seek moves the transport to t seconds, clamped to the timeline. In
// ModeRegular the pattern playhead is not affected.
func (e *Engine) Seek(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if e.shared.timelineLoaded {
		t = min(t, e.shared.timeline.TotalDuration())
	}
	e.shared.position = t
	e.shared.rephase = true
}

// Play starts or resumes playback at the next block.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shared.state = beatr.Playing
}

// Pause halts playback, keeping the position. Sounding voices ring out.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shared.state == beatr.Playing {
		e.shared.state = beatr.Paused
	}
}

// Stop halts playback, rewinds to the start and silences every voice.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shared.state = beatr.Stopped
	e.shared.position = 0
	e.shared.reset = true
}

// TogglePlay plays if the engine is not playing and pauses otherwise.
func (e *Engine) TogglePlay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shared.state == beatr.Playing {
		e.shared.state = beatr.Paused
	} else {
		e.shared.state = beatr.Playing
	}
}

func (e *Engine) State() beatr.PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.state
}

// Trigger plays a voice at the start of the next block, outside of the
// pattern. It returns false if the trigger queue is full.
func (e *Engine) Trigger(v beatr.VoiceID, velocity float32) bool {
	return TrySend(e.broker.ToEngine, LiveTrigger{Voice: v, Velocity: velocity})
}
