package project

import (
	"fmt"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/engine"
)

// Apply validates the project and loads it into the engine: tempo, master
// volume, every pattern slot and the timeline. Slots the project does not
// define are cleared. Without a timeline the engine is left in
// ModeRegular.
func (p *Project) Apply(e *engine.Engine) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var patterns [beatr.NumPatternSlots]beatr.Pattern
	for i := range patterns {
		patterns[i] = beatr.NewPattern(fmt.Sprintf("Pattern %d", i+1))
	}
	for _, s := range p.Patterns {
		pat, _ := s.Pattern()
		if pat.Name == "" {
			pat.Name = patterns[s.Index].Name
		}
		patterns[s.Index] = pat
	}
	if err := e.SetTempo(p.Tempo); err != nil {
		return err
	}
	if err := e.SetMasterVolume(p.MasterVolume); err != nil {
		return err
	}
	for i, pat := range patterns {
		if err := e.SetPatternSlot(i, pat); err != nil {
			return err
		}
	}
	if len(p.Timeline) == 0 {
		e.UnloadTimeline()
		return nil
	}
	return e.LoadTimeline(beatr.Timeline{Segments: p.Timeline})
}

// Capture stores the state of the engine in the project, keeping the
// metadata. Empty slots are left out.
func (p *Project) Capture(e *engine.Engine) {
	p.Tempo = e.Tempo()
	p.MasterVolume = e.MasterVolume()
	p.Patterns = p.Patterns[:0]
	for i := 0; i < beatr.NumPatternSlots; i++ {
		pat, _ := e.PatternSlot(i)
		if pat.IsEmpty() {
			continue
		}
		p.Patterns = append(p.Patterns, SlotFromPattern(i, pat))
	}
	p.Timeline = nil
	if tl, ok := e.Timeline(); ok && len(tl.Segments) > 0 {
		p.Timeline = tl.Segments
	}
}
