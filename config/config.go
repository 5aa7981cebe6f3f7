// Package config reads and writes the user settings file. The engine never
// sees this package; commands turn Settings into plain values.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/beatr/beatr"
)

type (
	Settings struct {
		Audio    AudioSettings   `yaml:"audio"`
		Defaults DefaultSettings `yaml:"defaults"`
		MIDI     MIDISettings    `yaml:"midi"`
	}

	AudioSettings struct {
		Device       string  `yaml:"device,omitempty"`
		SampleRate   int     `yaml:"samplerate"`
		BufferSize   int     `yaml:"buffersize"`
		MasterVolume float32 `yaml:"mastervolume"`
	}

	// DefaultSettings apply to new projects.
	DefaultSettings struct {
		Tempo         float64 `yaml:"tempo"`
		PatternLength int     `yaml:"patternlength"`
	}

	// MIDISettings selects the MIDI input. Input is matched as a prefix of
	// the port name; empty means no MIDI input.
	MIDISettings struct {
		Input string `yaml:"input"`
	}
)

const (
	dirName  = "Beatr"
	fileName = "settings.yml"
	// MaxMasterVolume matches the largest gain the engine accepts.
	MaxMasterVolume = 2
)

//go:embed settings.yml
var defaultSettingsYaml []byte

// Default returns the built-in settings.
func Default() Settings {
	var s Settings
	if err := yaml.Unmarshal(defaultSettingsYaml, &s); err != nil {
		panic(fmt.Errorf("failed to unmarshal default settings: %w", err))
	}
	return s
}

// Path returns where the settings file lives for the current user.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, dirName, fileName), nil
}

// Load reads the settings file at path over the defaults, so missing keys
// keep their default values. A missing file is not an error: the defaults
// are returned with exists false.
func Load(path string) (s Settings, exists bool, err error) {
	s = Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, false, nil
	}
	if err != nil {
		return s, false, fmt.Errorf("cannot read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), true, fmt.Errorf("cannot parse settings %v: %w", path, err)
	}
	return s, true, nil
}

// Save writes the settings to path, creating the directory if needed.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("cannot marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write settings: %w", err)
	}
	return nil
}

// DeviceConfig returns the audio device part of the settings.
func (s Settings) DeviceConfig() beatr.DeviceConfig {
	return beatr.DeviceConfig{
		DeviceID:   s.Audio.Device,
		SampleRate: s.Audio.SampleRate,
		BufferSize: s.Audio.BufferSize,
	}
}

func (a AudioSettings) validate() error {
	var errs []error
	if err := (beatr.DeviceConfig{SampleRate: a.SampleRate, BufferSize: a.BufferSize}).Validate(); err != nil {
		errs = append(errs, err)
	}
	if !(a.MasterVolume >= 0 && a.MasterVolume <= MaxMasterVolume) {
		errs = append(errs, fmt.Errorf("master volume %g out of range [0, %d]", a.MasterVolume, MaxMasterVolume))
	}
	return errors.Join(errs...)
}

// Validate returns every problem of the settings joined into one error, or
// nil.
func (s Settings) Validate() error {
	var errs []error
	if err := s.Audio.validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if err := beatr.ValidateTempo(s.Defaults.Tempo); err != nil {
		errs = append(errs, fmt.Errorf("default tempo: %w", err))
	}
	if s.Defaults.PatternLength != beatr.PatternLength {
		errs = append(errs, fmt.Errorf("default pattern length %d, only %d is supported", s.Defaults.PatternLength, beatr.PatternLength))
	}
	return errors.Join(errs...)
}

// Sanitize corrects invalid values in place and describes each correction.
// Invalid audio settings are reset as a whole.
func (s *Settings) Sanitize() []string {
	var corrections []string
	def := Default()
	if s.Audio.validate() != nil {
		corrections = append(corrections, "audio settings were invalid and reset to defaults")
		s.Audio = def.Audio
	}
	switch t := s.Defaults.Tempo; {
	case math.IsNaN(t) || math.IsInf(t, 0):
		corrections = append(corrections, fmt.Sprintf("default tempo %g is invalid, changed to %g", t, def.Defaults.Tempo))
		s.Defaults.Tempo = def.Defaults.Tempo
	case t < beatr.MinTempo:
		corrections = append(corrections, fmt.Sprintf("default tempo %g is too slow, changed to %g", t, beatr.MinTempo))
		s.Defaults.Tempo = beatr.MinTempo
	case t > beatr.MaxTempo:
		corrections = append(corrections, fmt.Sprintf("default tempo %g is too fast, changed to %g", t, beatr.MaxTempo))
		s.Defaults.Tempo = beatr.MaxTempo
	}
	if s.Defaults.PatternLength != beatr.PatternLength {
		corrections = append(corrections, fmt.Sprintf("default pattern length %d is not supported, changed to %d", s.Defaults.PatternLength, beatr.PatternLength))
		s.Defaults.PatternLength = beatr.PatternLength
	}
	return corrections
}
