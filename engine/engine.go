// Package engine is the real-time part of the sequencer. An Engine owns the
// pattern slots, the timeline and the transport, and renders audio through
// Process, which an audio backend calls from its own thread.
//
// Control methods may be called from any goroutine. They take a mutex for a
// short, bounded time; the audio callback only ever tries that mutex and
// renders from its previous snapshot when it is busy. Process never
// allocates and never blocks.
package engine

import (
	"fmt"
	"math"
	"sync"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/samples"
	"github.com/viterin/vek/vek32"
)

// Engine is the drum machine: it sequences patterns and mixes the voices.
type Engine struct {
	mu     sync.Mutex
	shared sharedState

	audio audioState

	status status
	faults faultCounters
	broker *Broker
	bank   *samples.Bank

	devMu  sync.Mutex
	opener beatr.AudioOpener
	ctx    beatr.AudioContext
	output beatr.AudioOutput
	device beatr.DeviceConfig
}

// lockAttempts is how many times Process tries the state lock before falling
// back to the previous snapshot.
const lockAttempts = 4

// New returns a stopped engine in ModeRegular at DefaultTempo, with empty
// patterns in every slot.
func New(bank *samples.Bank, sampleRate int) *Engine {
	if sampleRate <= 0 {
		sampleRate = beatr.DefaultSampleRate
	}
	if bank == nil {
		bank = samples.NewBank()
	}
	e := &Engine{bank: bank, broker: NewBroker()}
	for i := range e.shared.patterns {
		e.shared.patterns[i] = beatr.NewPattern(fmt.Sprintf("Pattern %d", i+1))
	}
	e.shared.tempo = beatr.DefaultTempo
	e.shared.masterVolume = 1
	e.shared.sampleRate = sampleRate
	e.audio = audioState{bank: bank, faults: &e.faults, broker: e.broker, lastSegment: -1}
	e.audio.snap.switchAt = -1
	e.audio.snap.sampleRate = sampleRate
	e.audio.snap.masterVolume = 1
	e.audio.snap.cur.tempo = beatr.DefaultTempo
	e.status.tempo.Store(math.Float64bits(beatr.DefaultTempo))
	e.status.segment.Store(-1)
	return e
}

func (e *Engine) Broker() *Broker        { return e.broker }
func (e *Engine) Bank() *samples.Bank    { return e.bank }
func (e *Engine) Faults() FaultCounts    { return e.faults.snapshot() }
func (e *Engine) Status() Status         { return e.status.load() }
func (e *Engine) CurrentStep() int       { return int(e.status.step.Load()) }
func (e *Engine) ActiveVoices() int      { return int(e.status.voices.Load()) }
func (e *Engine) PlaybackPosition() float64 {
	return math.Float64frombits(e.status.position.Load())
}

// Process renders the next block of mono audio into out. It implements
// beatr.Processor and is meant to be called from the audio thread only.
func (e *Engine) Process(out []float32) {
	vek32.Zeros_Into(out, len(out))
	a := &e.audio
	e.sync(len(out))
	a.drainTriggers()
	if k := a.snap.switchAt; k >= 0 {
		a.render(out[:k], &a.snap.cur)
		a.enter(&a.snap.next, 0)
		a.render(out[k:], &a.snap.next)
	} else {
		a.render(out, &a.snap.cur)
	}
	if v := a.snap.masterVolume; v != 1 {
		vek32.MulNumber_Inplace(out, v)
	}
	e.publish(out)
}

// sync takes a snapshot of the shared state for a block of frames frames.
func (e *Engine) sync(frames int) {
	for i := 0; i < lockAttempts; i++ {
		if e.mu.TryLock() {
			e.syncLocked(frames)
			e.mu.Unlock()
			return
		}
	}
	a := &e.audio
	if a.snap.switchAt >= 0 {
		// the previous block already moved on to the next segment
		a.snap.cur = a.snap.next
		a.snap.switchAt = -1
	}
	a.snap.position = a.endPosition
	a.missed += frames
	e.faults.record(e.broker, Fault{Kind: FaultContention})
}

func (e *Engine) syncLocked(frames int) {
	s := &e.shared
	a := &e.audio
	if s.reset {
		a.seq.Reset()
		a.pool.Reset()
		a.lastSegment = -1
		s.reset = false
	}
	rephase := s.rephase || s.sampleRate != a.snap.sampleRate
	s.rephase = false
	a.snap.sampleRate = s.sampleRate
	a.snap.masterVolume = s.masterVolume
	a.snap.switchAt = -1
	sr := float64(s.sampleRate)
	if s.state == beatr.Playing && a.missed > 0 {
		s.position += float64(a.missed) / sr
	}
	a.missed = 0

	if !s.timelineLoaded {
		a.snap.mode = ModeRegular
		a.snap.total = 0
		a.snap.playing = s.state == beatr.Playing
		a.snap.position = s.position
		a.snap.cur.covered = true
		a.snap.cur.id = -1
		a.snap.cur.start = 0
		a.snap.cur.tempo = s.tempo
		a.snap.cur.pattern = s.patterns[s.slot]
		a.lastSegment = -1
		if a.snap.playing {
			s.position += float64(frames) / sr
		}
		return
	}

	a.snap.mode = ModeTimeline
	a.snap.total = s.timeline.TotalDuration()
	if b, ok := s.timeline.NextBoundary(s.position); ok && (b-s.position)*sr < 1e-6 {
		// a boundary this close to the block start belongs to this block
		s.position = b
	}
	if s.state == beatr.Playing && s.position >= s.timeline.TotalDuration() {
		s.state = beatr.Stopped
		s.position = 0
		a.seq.Reset()
		a.lastSegment = -1
	}
	a.snap.playing = s.state == beatr.Playing
	pos := s.position
	a.snap.position = pos
	e.resolve(&a.snap.cur, pos)
	if a.snap.cur.covered && (a.snap.cur.id != a.lastSegment || rephase) {
		a.enter(&a.snap.cur, int(math.Round((pos-a.snap.cur.start)*sr)))
	} else if !a.snap.cur.covered {
		a.lastSegment = -1
	}
	if !a.snap.playing {
		return
	}
	end := pos + float64(frames)/sr
	if b, ok := s.timeline.NextBoundary(pos); ok && b < end {
		if k := int(math.Ceil((b-pos)*sr - 1e-6)); k > 0 && k < frames {
			e.resolve(&a.snap.next, b)
			a.snap.switchAt = k
		}
	}
	s.position = min(end, a.snap.total)
}

// resolve fills v with the segment covering pos. Must hold e.mu.
func (e *Engine) resolve(v *segmentView, pos float64) {
	tl := &e.shared.timeline
	i := tl.Index(pos)
	if i < 0 {
		v.covered = false
		v.id = -1
		v.tempo = e.shared.tempo
		return
	}
	seg := &tl.Segments[i]
	v.covered = true
	v.id = seg.ID
	v.start = seg.Start
	v.tempo = seg.Tempo
	if v.tempo == 0 {
		v.tempo = e.shared.tempo
	}
	v.pattern = e.shared.patterns[seg.Pattern]
}

func (e *Engine) publish(out []float32) {
	a := &e.audio
	st := &e.status
	end := a.snap.position
	if a.snap.playing && a.snap.sampleRate > 0 {
		end += float64(len(out)) / float64(a.snap.sampleRate)
	}
	if a.snap.mode == ModeTimeline {
		end = min(end, a.snap.total)
	}
	a.endPosition = end
	var peak float32
	if len(out) > 0 {
		peak = max(vek32.Max(out), -vek32.Min(out))
	}
	seg := a.lastSegment
	if a.snap.mode == ModeRegular {
		seg = -1
	}
	tempo := a.snap.cur.tempo
	if a.snap.switchAt >= 0 {
		tempo = a.snap.next.tempo
	}
	st.step.Store(int32(a.seq.Step()))
	st.position.Store(math.Float64bits(end))
	st.voices.Store(int32(a.pool.ActiveCount()))
	st.peak.Store(math.Float32bits(peak))
	st.playing.Store(a.snap.playing)
	st.mode.Store(int32(a.snap.mode))
	st.tempo.Store(math.Float64bits(tempo))
	st.segment.Store(int64(seg))
}

// Render runs the engine offline: it calls Process in blocks of blockSize
// frames and returns frames frames of output.
func (e *Engine) Render(frames, blockSize int) []float32 {
	if blockSize <= 0 {
		blockSize = beatr.DefaultBufferSize
	}
	out := make([]float32, frames)
	for i := 0; i < frames; i += blockSize {
		e.Process(out[i:min(i+blockSize, frames)])
	}
	return out
}
