package engine

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/samples"
)

// clickBank returns a bank where every voice is a short burst of ones, which
// makes onsets easy to find in the output.
func clickBank(length int) *samples.Bank {
	b := samples.NewBank()
	for i := 0; i < beatr.NumVoices; i++ {
		b.Replace(beatr.VoiceID(i), constSample(length, 1))
	}
	return b
}

// onsets returns the frames where the output goes from silence to sound.
func onsets(buf []float32) []int {
	var ret []int
	prev := float32(0)
	for i, v := range buf {
		if v != 0 && prev == 0 {
			ret = append(ret, i)
		}
		prev = v
	}
	return ret
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEndToEndSingleKick(t *testing.T) {
	bank := samples.NewDefaultBank(48000)
	e := New(bank, 48000)
	if err := e.SetTempo(120); err != nil {
		t.Fatalf("SetTempo failed: %v", err)
	}
	if err := e.SetStep(0, 0, 0, beatr.Step{Active: true, Velocity: 1}); err != nil {
		t.Fatalf("SetStep failed: %v", err)
	}
	e.Play()
	out := e.Render(96000, 512)
	if out[0] == 0 {
		t.Fatal("the kick should sound on the very first sample")
	}
	kickLen := bank.Load(beatr.Kick).Len()
	if kickLen != 24000 {
		t.Fatalf("kick is %d samples, expected 24000", kickLen)
	}
	for i := kickLen; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("frame %d: expected silence after the kick decayed, got %g", i, out[i])
		}
	}
	next := e.Render(512, 512)
	if next[0] == 0 {
		t.Fatal("the kick should sound again at the start of the second loop")
	}
	if got := e.CurrentStep(); got != 0 {
		t.Fatalf("current step %d, expected 0", got)
	}
}

func TestTriggersAtStepBoundariesAnyBlockSize(t *testing.T) {
	want := make([]int, 0, beatr.PatternLength)
	for k := 0; k < beatr.PatternLength; k++ {
		want = append(want, k*6000)
	}
	for _, block := range []int{64, 333, 480, 4096} {
		e := New(clickBank(10), 48000)
		for k := 0; k < beatr.PatternLength; k++ {
			e.ToggleStep(2, k)
		}
		e.Play()
		if got := onsets(e.Render(96000, block)); !equalInts(got, want) {
			t.Fatalf("block %d: onsets %v, expected %v", block, got, want)
		}
	}
}

func TestTempoIsLatchedPerBlock(t *testing.T) {
	e := New(clickBank(10), 48000)
	e.ToggleStep(0, 0)
	e.ToggleStep(0, 1)
	e.Play()
	out := e.Render(4800, 4800)
	if err := e.SetTempo(60); err != nil {
		t.Fatalf("SetTempo failed: %v", err)
	}
	out = append(out, e.Render(48000, 4800)...)
	// step 0 is stretched to 12000 samples from the second block on
	if got := onsets(out); !equalInts(got, []int{0, 12000}) {
		t.Fatalf("onsets %v", got)
	}
}

func TestInvalidTempoKeepsPrevious(t *testing.T) {
	e := New(nil, 48000)
	e.SetTempo(90)
	for _, bpm := range []float64{0, 59, 201, math.NaN()} {
		if err := e.SetTempo(bpm); !errors.Is(err, beatr.ErrInvalidTempo) {
			t.Fatalf("SetTempo(%g): expected ErrInvalidTempo, got %v", bpm, err)
		}
	}
	if got := e.Tempo(); got != 90 {
		t.Fatalf("tempo %g, expected 90", got)
	}
}

func TestUncoveredTimelineIsSilent(t *testing.T) {
	e := New(clickBank(100), 48000)
	full := beatr.NewPattern("full")
	for tr := 0; tr < beatr.MaxTracks; tr++ {
		for k := 0; k < beatr.PatternLength; k++ {
			full.Toggle(tr, k)
		}
	}
	e.SetPatternSlot(3, full)
	e.SelectSlot(3) // would play in regular mode
	if _, err := e.AddSegment(beatr.Segment{Start: 1, End: 1.5, Pattern: 3}); err != nil {
		t.Fatalf("AddSegment failed: %v", err)
	}
	e.Play()
	out := e.Render(48000, 512)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("frame %d: got %g in a timeline gap", i, v)
		}
	}
	if e.Status().Segment != -1 {
		t.Fatalf("segment %d reported in a gap", e.Status().Segment)
	}
	out = e.Render(512, 512)
	if out[0] == 0 {
		t.Fatal("the segment should start sounding at 1 s")
	}
	e.Render(48000, 512)
	if got := e.State(); got != beatr.Stopped {
		t.Fatalf("state %v after the end of the timeline, expected stopped", got)
	}
	if got := e.PlaybackPosition(); got != 0 {
		t.Fatalf("position %g after the end of the timeline, expected 0", got)
	}
}

func TestSegmentStartsOnExactSample(t *testing.T) {
	for _, block := range []int{480, 512, 1000} {
		e := New(clickBank(10), 48000)
		e.SetStep(1, 0, 0, beatr.Step{Active: true, Velocity: 1})
		e.SetStep(1, 0, 4, beatr.Step{Active: true, Velocity: 1})
		if _, err := e.AddSegment(beatr.Segment{Start: 0.5, End: 1, Pattern: 1}); err != nil {
			t.Fatalf("AddSegment failed: %v", err)
		}
		e.Play()
		// 0.5 s segment at 120 bpm: step 0 at 24000 and step 4 at 48000
		if got := onsets(e.Render(60000, block)); !equalInts(got, []int{24000}) {
			t.Fatalf("block %d: onsets %v, expected [24000]", block, got)
		}
	}
}

func TestSegmentsSwitchPatternsAndTempo(t *testing.T) {
	e := New(clickBank(10), 48000)
	e.SetStep(0, 0, 0, beatr.Step{Active: true, Velocity: 1})
	e.SetStep(1, 0, 1, beatr.Step{Active: true, Velocity: 1})
	tl := beatr.Timeline{}
	tl.Add(beatr.Segment{Start: 0, End: 0.25, Pattern: 0})
	tl.Add(beatr.Segment{Start: 0.25, End: 1, Pattern: 1, Tempo: 60})
	if err := e.LoadTimeline(tl); err != nil {
		t.Fatalf("LoadTimeline failed: %v", err)
	}
	e.Play()
	// pattern 1 step 1 comes one 60 bpm step (12000 samples) after 12000
	if got := onsets(e.Render(48000, 256)); !equalInts(got, []int{0, 24000}) {
		t.Fatalf("onsets %v, expected [0 24000]", got)
	}
}

func TestSeekRephasesInsideSegment(t *testing.T) {
	e := New(clickBank(10), 48000)
	e.SetStep(0, 0, 2, beatr.Step{Active: true, Velocity: 1})
	e.SetStep(0, 0, 3, beatr.Step{Active: true, Velocity: 1})
	e.AddSegment(beatr.Segment{Start: 0, End: 2, Pattern: 0})
	e.Seek(0.25) // exactly step 2
	e.Play()
	if got := onsets(e.Render(12000, 500)); !equalInts(got, []int{0, 6000}) {
		t.Fatalf("onsets %v, expected [0 6000]", got)
	}
	e.Seek(100) // clamped to the end of the timeline
	e.Render(64, 64)
	if got := e.State(); got != beatr.Stopped {
		t.Fatalf("state %v after seeking past the end, expected stopped", got)
	}
}

func TestReplaceSampleDuringPlayback(t *testing.T) {
	bank := clickBank(1000)
	e := New(bank, 48000)
	e.Trigger(beatr.Snare, 1)
	first := e.Render(100, 100)
	bank.Replace(beatr.Snare, constSample(1000, 0.5))
	rest := e.Render(900, 100)
	for i, v := range append(first, rest...) {
		if v != 1 {
			t.Fatalf("frame %d: got %g, the playing voice should keep the old sample", i, v)
		}
	}
	e.Trigger(beatr.Snare, 1)
	if out := e.Render(10, 10); out[0] != 0.5 {
		t.Fatalf("new trigger played %g, expected the replaced sample", out[0])
	}
}

func TestUnknownVoiceIsSkippedAndReported(t *testing.T) {
	bank := clickBank(10)
	bank.Remove(beatr.Snare)
	e := New(bank, 48000)
	e.SetStep(0, 1, 0, beatr.Step{Active: true, Velocity: 1}) // snare
	e.SetStep(0, 0, 0, beatr.Step{Active: true, Velocity: 1}) // kick
	e.Play()
	out := e.Render(64, 64)
	if out[0] != 1 {
		t.Fatalf("the kick should still play, got %g", out[0])
	}
	if got := e.Faults().UnknownVoice; got != 1 {
		t.Fatalf("%d unknown voice faults, expected 1", got)
	}
	f, ok := TimeoutReceive(e.Broker().Faults, time.Second)
	if !ok || f.Kind != FaultUnknownVoice || f.Voice != beatr.Snare {
		t.Fatalf("got fault %v (%v), expected unknown voice snare", f, ok)
	}
}

func TestVoiceStealingIsReported(t *testing.T) {
	e := New(clickBank(100000), 48000)
	for tr := 0; tr < beatr.MaxTracks; tr++ {
		for k := 0; k < beatr.PatternLength; k++ {
			e.ToggleStep(tr, k)
		}
	}
	e.Play()
	e.Render(6000*5, 512) // 5 steps of 8 triggers each
	if got := e.ActiveVoices(); got != beatr.MaxPolyphony {
		t.Fatalf("%d active voices, expected %d", got, beatr.MaxPolyphony)
	}
	if got := e.Faults().VoiceStolen; got != 5*beatr.MaxTracks-beatr.MaxPolyphony {
		t.Fatalf("%d stolen voices, expected %d", got, 5*beatr.MaxTracks-beatr.MaxPolyphony)
	}
}

func TestContendedBlockUsesPreviousSnapshot(t *testing.T) {
	e := New(clickBank(10), 48000)
	e.AddSegment(beatr.Segment{Start: 0, End: 10, Pattern: 0})
	e.Play()
	e.Render(480, 480)
	e.mu.Lock()
	for i := 0; i < 10; i++ {
		e.Render(480, 480)
	}
	e.mu.Unlock()
	if got := e.Faults().Contention; got != 10 {
		t.Fatalf("%d contention faults, expected 10", got)
	}
	if got := e.PlaybackPosition(); math.Abs(got-0.11) > 1e-9 {
		t.Fatalf("position %g while contended, expected 0.11", got)
	}
	e.Render(480, 480)
	if got := e.PlaybackPosition(); math.Abs(got-0.12) > 1e-9 {
		t.Fatalf("position %g after the lock was released, expected 0.12", got)
	}
}

func TestStopResetsPlayheadAndVoices(t *testing.T) {
	e := New(clickBank(100000), 48000)
	e.ToggleStep(0, 0)
	e.Play()
	e.Render(20000, 500)
	if e.CurrentStep() != 3 || e.ActiveVoices() != 1 {
		t.Fatalf("step %d with %d voices", e.CurrentStep(), e.ActiveVoices())
	}
	e.Stop()
	e.Render(500, 500)
	if e.CurrentStep() != 0 || e.ActiveVoices() != 0 || e.Status().Playing {
		t.Fatalf("after Stop: %+v", e.Status())
	}
}

func TestPauseKeepsPosition(t *testing.T) {
	e := New(clickBank(10), 48000)
	e.AddSegment(beatr.Segment{Start: 0, End: 10, Pattern: 0})
	e.Play()
	e.Render(4800, 480)
	e.Pause()
	e.Render(4800, 480)
	if got := e.PlaybackPosition(); math.Abs(got-0.1) > 1e-9 {
		t.Fatalf("position %g while paused, expected 0.1", got)
	}
	e.TogglePlay()
	e.Render(4800, 480)
	if got := e.PlaybackPosition(); math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("position %g after resuming, expected 0.2", got)
	}
}

func TestLiveTriggerWhileStopped(t *testing.T) {
	e := New(clickBank(10), 48000)
	if !e.Trigger(beatr.Clap, 0.5) {
		t.Fatal("Trigger failed")
	}
	out := e.Render(64, 64)
	if out[0] != 0.5 || out[10] != 0 {
		t.Fatalf("unexpected output %v", out[:12])
	}
}

func TestMasterVolume(t *testing.T) {
	e := New(clickBank(10), 48000)
	if err := e.SetMasterVolume(3); err == nil {
		t.Fatal("expected an error for a volume above the maximum")
	}
	e.SetMasterVolume(0.5)
	e.Trigger(beatr.Kick, 1)
	if out := e.Render(64, 64); out[0] != 0.5 {
		t.Fatalf("got %g, expected 0.5", out[0])
	}
	if p := e.Status().Peak; p != 0.5 {
		t.Fatalf("peak %g, expected 0.5", p)
	}
}

func TestSlotSelection(t *testing.T) {
	e := New(clickBank(10), 48000)
	if err := e.SelectSlot(beatr.NumPatternSlots); !errors.Is(err, beatr.ErrSlotOutOfRange) {
		t.Fatalf("expected ErrSlotOutOfRange, got %v", err)
	}
	e.SelectSlot(2)
	e.ToggleStep(0, 0)
	p, _ := e.PatternSlot(2)
	if !p.Tracks[0].Steps[0].Active {
		t.Fatal("ToggleStep should edit the selected slot")
	}
	if p, _ := e.PatternSlot(0); !p.IsEmpty() {
		t.Fatal("slot 0 should be untouched")
	}
	e.Play()
	if out := e.Render(64, 64); out[0] != 1 {
		t.Fatal("the selected slot should play")
	}
	if e.Mode() != ModeRegular {
		t.Fatalf("mode %v, expected regular", e.Mode())
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	e := New(samples.NewDefaultBank(48000), 48000)
	for tr := 0; tr < beatr.MaxTracks; tr++ {
		for k := 0; k < beatr.PatternLength; k += tr + 1 {
			e.ToggleStep(tr, k)
		}
	}
	e.AddSegment(beatr.Segment{Start: 0, End: 1000, Pattern: 0})
	e.AddSegment(beatr.Segment{Start: 1000, End: 2000, Pattern: 0, Tempo: 90})
	e.Play()
	buf := make([]float32, 256)
	allocs := testing.AllocsPerRun(2000, func() {
		e.Trigger(beatr.Crash, 1)
		e.Process(buf)
	})
	if allocs != 0 {
		t.Fatalf("Process allocated %g times per call", allocs)
	}
}

// TestConcurrentEditsNeverTear replaces a pattern from another goroutine as
// fast as possible while rendering, and checks that every block sees a
// pattern that was written as a whole.
func TestConcurrentEditsNeverTear(t *testing.T) {
	e := New(clickBank(10), 48000)
	full := beatr.NewPattern("full")
	for tr := 0; tr < beatr.MaxTracks; tr++ {
		for k := 0; k < beatr.PatternLength; k++ {
			full.Toggle(tr, k)
		}
	}
	empty := beatr.NewPattern("empty")
	e.Play()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rnd := rand.New(rand.NewSource(1))
		for {
			select {
			case <-stop:
				return
			default:
			}
			if rnd.Intn(2) == 0 {
				e.SetPatternSlot(0, full)
			} else {
				e.SetPatternSlot(0, empty)
			}
			if rnd.Intn(4) == 0 {
				e.SetTempo(float64(60 + rnd.Intn(141)))
			}
		}
	}()
	buf := make([]float32, 64)
	for i := 0; i < 20000; i++ {
		e.Process(buf)
		p := &e.audio.snap.cur.pattern
		first := p.Tracks[0].Steps[0].Active
		if first != (p.Name == "full") {
			t.Fatalf("block %d: pattern %q with step 0 active = %v", i, p.Name, first)
		}
		for _, tr := range p.Tracks {
			for _, s := range tr.Steps {
				if s.Active != first {
					t.Fatalf("block %d: torn pattern %q", i, p.Name)
				}
			}
		}
	}
	close(stop)
	wg.Wait()
}

func TestFirstSegmentStartsTimelineFromZero(t *testing.T) {
	e := New(clickBank(10), 48000)
	e.ToggleStep(0, 0)
	e.Play()
	e.Render(20*48000, 4096) // regular mode counts the position up too
	if _, err := e.AddSegment(beatr.Segment{Start: 0, End: 10, Pattern: 0}); err != nil {
		t.Fatalf("AddSegment failed: %v", err)
	}
	out := e.Render(48000, 512)
	if got := e.State(); got != beatr.Playing {
		t.Fatalf("state %v after adding the first segment, expected playing", got)
	}
	if got := onsets(out); !equalInts(got, []int{0}) {
		t.Fatalf("onsets %v, expected [0]", got)
	}
	if got := e.PlaybackPosition(); math.Abs(got-1) > 1e-9 {
		t.Fatalf("position %g, expected 1", got)
	}
}

func TestPositionNeverPassesTimelineEnd(t *testing.T) {
	e := New(clickBank(10), 48000)
	e.AddSegment(beatr.Segment{Start: 0, End: 0.1, Pattern: 0})
	e.Play()
	highest := 0.0
	for i := 0; i < 20; i++ {
		e.Render(500, 500)
		pos := e.PlaybackPosition()
		if pos > 0.1 {
			t.Fatalf("block %d: position %g past the end of the timeline", i, pos)
		}
		e.mu.Lock()
		shared := e.shared.position
		e.mu.Unlock()
		if shared > 0.1 {
			t.Fatalf("block %d: transport position %g past the end of the timeline", i, shared)
		}
		highest = max(highest, pos)
	}
	if highest != 0.1 {
		t.Fatalf("highest position %g, expected the end of the timeline", highest)
	}
	if got := e.State(); got != beatr.Stopped {
		t.Fatalf("state %v, expected stopped", got)
	}
}

func TestSetPatternSlotClampsVelocity(t *testing.T) {
	e := New(clickBank(10), 48000)
	p := beatr.NewPattern("loud")
	p.Tracks[0].Steps[0] = beatr.Step{Active: true, Velocity: 8}
	p.Tracks[1].Steps[0] = beatr.Step{Active: true, Velocity: -3}
	if err := e.SetPatternSlot(0, p); err != nil {
		t.Fatalf("SetPatternSlot failed: %v", err)
	}
	got, _ := e.PatternSlot(0)
	if v := got.Tracks[0].Steps[0].Velocity; v != 1 {
		t.Fatalf("velocity %g stored, expected 1", v)
	}
	if v := got.Tracks[1].Steps[0].Velocity; v != 0 {
		t.Fatalf("velocity %g stored, expected 0", v)
	}
	e.Play()
	if out := e.Render(64, 64); out[0] != 1 {
		t.Fatalf("first sample %g, expected 1", out[0])
	}
}

func TestDrainFaults(t *testing.T) {
	e := New(clickBank(100000), 48000)
	for tr := 0; tr < beatr.MaxTracks; tr++ {
		for k := 0; k < beatr.PatternLength; k++ {
			e.ToggleStep(tr, k)
		}
	}
	e.Play()
	e.Render(6000*5, 512)
	faults := e.Broker().DrainFaults(time.Second)
	if len(faults) != 5*beatr.MaxTracks-beatr.MaxPolyphony {
		t.Fatalf("drained %d faults, expected %d", len(faults), 5*beatr.MaxTracks-beatr.MaxPolyphony)
	}
	for _, f := range faults {
		if f.Kind != FaultVoiceStolen {
			t.Fatalf("unexpected fault %v", f)
		}
	}
	if more := e.Broker().DrainFaults(10 * time.Millisecond); len(more) != 0 {
		t.Fatalf("%d faults left after draining", len(more))
	}
}
