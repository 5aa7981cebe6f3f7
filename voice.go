package beatr

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// VoiceID identifies one of the drum sounds in the sample bank.
type VoiceID uint8

const (
	Kick VoiceID = iota
	Snare
	HiHat
	OpenHiHat
	Clap
	Rimshot
	Tom
	Crash

	// NumVoices is the number of voice ids; valid ids are [0, NumVoices).
	NumVoices = int(iota)
)

var voiceNames = [NumVoices]string{
	Kick:      "kick",
	Snare:     "snare",
	HiHat:     "hihat",
	OpenHiHat: "open_hihat",
	Clap:      "clap",
	Rimshot:   "rimshot",
	Tom:       "tom",
	Crash:     "crash",
}

// Valid reports whether v is one of the known voices.
func (v VoiceID) Valid() bool { return int(v) < NumVoices }

func (v VoiceID) String() string {
	if !v.Valid() {
		return fmt.Sprintf("voice(%d)", uint8(v))
	}
	return voiceNames[v]
}

// Title returns the name of the voice for display, e.g. "Open Hihat".
func (v VoiceID) Title() string {
	return cases.Title(language.English).String(strings.ReplaceAll(v.String(), "_", " "))
}

// ParseVoiceID parses a voice name. Matching ignores case; "-" and " " are
// accepted in place of "_".
func ParseVoiceID(s string) (VoiceID, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.NewReplacer("-", "_", " ", "_").Replace(n)
	for i, name := range voiceNames {
		if name == n {
			return VoiceID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVoice, s)
}

func (v VoiceID) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVoice, uint8(v))
	}
	return []byte(v.String()), nil
}

func (v *VoiceID) UnmarshalText(text []byte) error {
	id, err := ParseVoiceID(string(text))
	if err != nil {
		return err
	}
	*v = id
	return nil
}
