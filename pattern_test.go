package beatr_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/beatr/beatr"
)

func TestNewPatternIsEmpty(t *testing.T) {
	p := beatr.NewPattern("a")
	if !p.IsEmpty() {
		t.Fatal("new pattern should have no active steps")
	}
	for i, tr := range p.Tracks {
		if tr.Voice != beatr.VoiceID(i%beatr.NumVoices) {
			t.Fatalf("track %d: voice %v", i, tr.Voice)
		}
		if tr.Steps[0].Velocity != 1 {
			t.Fatalf("track %d: velocity %g, expected 1", i, tr.Steps[0].Velocity)
		}
	}
}

func TestToggle(t *testing.T) {
	p := beatr.NewPattern("a")
	if err := p.Toggle(0, 4); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !p.Tracks[0].Steps[4].Active || p.IsEmpty() {
		t.Fatal("step 4 of track 0 should be active")
	}
	p.Toggle(0, 4)
	if !p.IsEmpty() {
		t.Fatal("toggling twice should leave the pattern empty")
	}
	if err := p.Toggle(0, beatr.PatternLength); !errors.Is(err, beatr.ErrStepOutOfRange) {
		t.Fatalf("expected ErrStepOutOfRange, got %v", err)
	}
	if err := p.Toggle(-1, 0); !errors.Is(err, beatr.ErrTrackOutOfRange) {
		t.Fatalf("expected ErrTrackOutOfRange, got %v", err)
	}
}

func TestSetStepClampsVelocity(t *testing.T) {
	p := beatr.NewPattern("a")
	p.SetStep(1, 2, beatr.Step{Active: true, Velocity: 3})
	if v := p.Tracks[1].Steps[2].Velocity; v != 1 {
		t.Fatalf("velocity %g, expected 1", v)
	}
	p.SetStep(1, 3, beatr.Step{Active: true, Velocity: -1})
	if v := p.Tracks[1].Steps[3].Velocity; v != 0 {
		t.Fatalf("velocity %g, expected 0", v)
	}
	if err := p.SetVoice(1, beatr.VoiceID(200)); !errors.Is(err, beatr.ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
}

func TestPatternCopyIsIndependent(t *testing.T) {
	a := beatr.NewPattern("a")
	b := a
	b.Toggle(2, 2)
	if !a.IsEmpty() {
		t.Fatal("modifying a copy changed the original")
	}
}

func TestPatternString(t *testing.T) {
	p := beatr.NewPattern("four on the floor")
	for _, s := range []int{0, 4, 8, 12} {
		p.Toggle(0, s)
	}
	s := p.String()
	if !strings.Contains(s, "kick       |x---|x---|x---|x---|") {
		t.Fatalf("unexpected rendering:\n%s", s)
	}
	p.Clear()
	if !p.IsEmpty() {
		t.Fatal("Clear left active steps")
	}
}
