package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/samples"
)

type (
	// Mode tells what decides which pattern plays.
	Mode int

	// sharedState is the part of the engine edited by control goroutines. It
	// is guarded by Engine.mu and read by the audio callback once per block.
	// Pattern and transport edits hold the lock for O(1) work; timeline edits
	// are linear in the number of segments.
	sharedState struct {
		patterns       [beatr.NumPatternSlots]beatr.Pattern
		slot           int // pattern played in ModeRegular
		tempo          float64
		masterVolume   float32
		sampleRate     int
		timeline       beatr.Timeline
		timelineLoaded bool
		state          beatr.PlaybackState
		position       float64 // transport position in seconds
		reset          bool    // playhead and voices to be reset by the audio callback
		rephase        bool    // playhead to be derived again from position
	}

	// segmentView is what the audio callback needs to know about the
	// pattern that is playing. In ModeRegular id is -1 and covered is true.
	segmentView struct {
		covered bool
		id      int
		start   float64
		tempo   float64
		pattern beatr.Pattern
	}

	// snapshot is the audio callback's private copy of sharedState for one
	// block. If the lock cannot be taken, the previous snapshot is reused.
	snapshot struct {
		playing      bool
		mode         Mode
		sampleRate   int
		masterVolume float32
		position     float64 // transport position at the start of the block
		total        float64 // timeline length, 0 in ModeRegular
		cur          segmentView
		next         segmentView
		switchAt     int // frame where next takes over from cur, -1 if none
	}

	// audioState is owned by the audio callback. Nothing else touches it
	// while an output is running.
	audioState struct {
		snap        snapshot
		seq         Sequencer
		pool        VoicePool
		pattern     *beatr.Pattern // the pattern being rendered, points into snap
		lastSegment int            // segment the sequencer is phased to, -1 if none
		missed      int            // frames rendered without the lock since the last sync
		endPosition float64        // transport position at the end of the last block

		bank   *samples.Bank
		faults *faultCounters
		broker *Broker
	}

	// Status is a consistent copy of what the audio callback last reported.
	Status struct {
		Step         int
		Position     float64 // seconds
		ActiveVoices int
		Peak         float32 // largest absolute output value of the last block
		Playing      bool
		Mode         Mode
		Tempo        float64 // tempo in effect, including segment overrides
		Segment      int     // id of the segment playing, -1 if none
	}

	// status is written by the audio callback after every block and read
	// lock-free by everyone else.
	status struct {
		step     atomic.Int32
		position atomic.Uint64 // float64 bits
		voices   atomic.Int32
		peak     atomic.Uint32 // float32 bits
		playing  atomic.Bool
		mode     atomic.Int32
		tempo    atomic.Uint64 // float64 bits
		segment  atomic.Int64
	}
)

const (
	// ModeRegular loops the selected pattern slot.
	ModeRegular Mode = iota
	// ModeTimeline plays the segments of the loaded timeline.
	ModeTimeline
)

func (m Mode) String() string {
	switch m {
	case ModeRegular:
		return "regular"
	case ModeTimeline:
		return "timeline"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (s *status) load() Status {
	return Status{
		Step:         int(s.step.Load()),
		Position:     math.Float64frombits(s.position.Load()),
		ActiveVoices: int(s.voices.Load()),
		Peak:         math.Float32frombits(s.peak.Load()),
		Playing:      s.playing.Load(),
		Mode:         Mode(s.mode.Load()),
		Tempo:        math.Float64frombits(s.tempo.Load()),
		Segment:      int(s.segment.Load()),
	}
}

// TriggerStep implements StepRenderer: every track with the step active
// starts a voice.
func (a *audioState) TriggerStep(step int) {
	for i := range a.pattern.Tracks {
		t := &a.pattern.Tracks[i]
		if s := t.Steps[step]; s.Active && s.Velocity > 0 {
			a.trigger(t.Voice, s.Velocity)
		}
	}
}

// RenderChunk implements StepRenderer.
func (a *audioState) RenderChunk(chunk []float32) {
	a.pool.RenderInto(chunk)
}

func (a *audioState) trigger(id beatr.VoiceID, velocity float32) {
	s := a.bank.Load(id)
	if s == nil || len(s.Data) == 0 {
		a.faults.record(a.broker, Fault{Kind: FaultUnknownVoice, Voice: id})
		return
	}
	if _, stolen := a.pool.Allocate(id, s, velocity); stolen {
		a.faults.record(a.broker, Fault{Kind: FaultVoiceStolen, Voice: id})
	}
}

func (a *audioState) drainTriggers() {
	for i := 0; i < maxTriggersPerBlock; i++ {
		select {
		case t := <-a.broker.ToEngine:
			a.trigger(t.Voice, beatr.ClampVelocity(t.Velocity))
		default:
			return
		}
	}
}

// enter phases the sequencer to offset samples into the segment v.
func (a *audioState) enter(v *segmentView, offset int) {
	if !v.covered {
		a.lastSegment = -1
		return
	}
	a.seq.Latch(a.snap.sampleRate, v.tempo)
	a.seq.Rephase(offset)
	a.lastSegment = v.id
}

// render plays the pattern of v into buf, or only the voice tails if the
// transport is not playing or v is a gap of the timeline.
func (a *audioState) render(buf []float32, v *segmentView) {
	if len(buf) == 0 {
		return
	}
	a.pattern = &v.pattern
	if a.snap.playing && v.covered {
		a.seq.Latch(a.snap.sampleRate, v.tempo)
		a.seq.Render(buf, a)
		return
	}
	a.pool.RenderInto(buf)
}
