package splice

import (
	"fmt"
	"strings"

	"github.com/beatr/beatr"
)

// nameVoices maps fragments of track names to voices. Earlier entries win,
// so "hh-open" is an open hihat rather than a hihat.
var nameVoices = []struct {
	fragment string
	voice    beatr.VoiceID
}{
	{"open", beatr.OpenHiHat},
	{"kick", beatr.Kick},
	{"bass", beatr.Kick},
	{"snare", beatr.Snare},
	{"clap", beatr.Clap},
	{"rim", beatr.Rimshot},
	{"stick", beatr.Rimshot},
	{"tom", beatr.Tom},
	{"crash", beatr.Crash},
	{"cymbal", beatr.Crash},
	{"ride", beatr.Crash},
	{"hh", beatr.HiHat},
	{"hat", beatr.HiHat},
}

// VoiceForName guesses the voice of a track from its name.
func VoiceForName(name string) (beatr.VoiceID, bool) {
	if v, err := beatr.ParseVoiceID(name); err == nil {
		return v, true
	}
	lower := strings.ToLower(name)
	for _, nv := range nameVoices {
		if strings.Contains(lower, nv.fragment) {
			return nv.voice, true
		}
	}
	return 0, false
}

// ToPattern converts the tracks with a known voice into a beatr pattern.
// Tracks that cannot be placed are described in skipped. The tempo is
// returned separately, as patterns do not carry one.
func (p *Pattern) ToPattern(name string) (pat beatr.Pattern, tempo float64, skipped []string) {
	pat = beatr.NewPattern(name)
	i := 0
	for _, t := range p.Tracks {
		v, ok := VoiceForName(t.Name)
		if !ok {
			skipped = append(skipped, fmt.Sprintf("track %d %q: no matching voice", t.ID, t.Name))
			continue
		}
		if i >= beatr.MaxTracks {
			skipped = append(skipped, fmt.Sprintf("track %d %q: more than %d tracks", t.ID, t.Name, beatr.MaxTracks))
			continue
		}
		pat.SetVoice(i, v)
		for k, active := range t.Steps {
			pat.SetStep(i, k, beatr.Step{Active: active, Velocity: 1})
		}
		i++
	}
	tempo = float64(p.Tempo)
	if beatr.ValidateTempo(tempo) != nil {
		tempo = beatr.DefaultTempo
		skipped = append(skipped, fmt.Sprintf("tempo %g out of range, using %g", p.Tempo, tempo))
	}
	return pat, tempo, skipped
}
