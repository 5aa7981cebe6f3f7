// Package project reads and writes project files: the tempo, the master
// volume, the pattern slots and the timeline of a session. Files are YAML;
// JSON is accepted when reading and written for paths ending in ".json".
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/engine"
)

type (
	Project struct {
		Metadata     Metadata        `yaml:"metadata" json:"metadata"`
		Tempo        float64         `yaml:"tempo" json:"tempo"`
		MasterVolume float32         `yaml:"mastervolume" json:"mastervolume"`
		Patterns     []Slot          `yaml:"patterns,omitempty" json:"patterns,omitempty"`
		Timeline     []beatr.Segment `yaml:"timeline,omitempty" json:"timeline,omitempty"`
	}

	Metadata struct {
		Name        string    `yaml:"name" json:"name"`
		Author      string    `yaml:"author,omitempty" json:"author,omitempty"`
		Description string    `yaml:"description,omitempty" json:"description,omitempty"`
		Created     time.Time `yaml:"created" json:"created"`
		Modified    time.Time `yaml:"modified" json:"modified"`
	}

	// Slot is a pattern stored in one of the pattern slots. Tracks not listed
	// are empty.
	Slot struct {
		Index  int     `yaml:"slot" json:"slot"`
		Name   string  `yaml:"name,omitempty" json:"name,omitempty"`
		Tracks []Track `yaml:"tracks,omitempty" json:"tracks,omitempty"`
	}

	// Track stores the steps as a grid string such as "|x---|x---|x---|x---|",
	// where x is an active step and - or . an inactive one. Velocities is
	// either empty, meaning full velocity, or has one value per step.
	Track struct {
		Voice      beatr.VoiceID `yaml:"voice" json:"voice"`
		Steps      string        `yaml:"steps" json:"steps"`
		Velocities []float32     `yaml:"velocities,omitempty,flow" json:"velocities,omitempty"`
	}
)

// Extension is the file extension of project files.
const Extension = ".beatr"

var ErrInvalidProject = errors.New("invalid project")

// New returns an empty project.
func New(name string, tempo float64) *Project {
	now := time.Now().UTC().Truncate(time.Second)
	return &Project{
		Metadata:     Metadata{Name: name, Created: now, Modified: now},
		Tempo:        tempo,
		MasterVolume: 1,
	}
}

// IsProjectFile reports whether path has a project file extension.
func IsProjectFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// Read parses a project, trying JSON first and YAML second.
func Read(r io.Reader) (*Project, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read project: %w", err)
	}
	var p Project
	if errJSON := json.Unmarshal(b, &p); errJSON != nil {
		p = Project{}
		if errYaml := yaml.Unmarshal(b, &p); errYaml != nil {
			return nil, fmt.Errorf("cannot unmarshal project: %v / %v", errYaml, errJSON)
		}
	}
	tl := beatr.Timeline{Segments: p.Timeline}
	tl.Sort()
	tl.AssignIDs()
	p.Timeline = tl.Segments
	return &p, nil
}

// Load reads and validates the project file at path.
func Load(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return p, nil
}

// Write marshals the project as YAML, or as JSON if asJSON is set.
func (p *Project) Write(w io.Writer, asJSON bool) error {
	var contents []byte
	var err error
	if asJSON {
		contents, err = json.MarshalIndent(p, "", "  ")
	} else {
		contents, err = yaml.Marshal(p)
	}
	if err != nil {
		return fmt.Errorf("cannot marshal project: %w", err)
	}
	if _, err := w.Write(contents); err != nil {
		return fmt.Errorf("cannot write project: %w", err)
	}
	return nil
}

// Save updates the modification time and writes the project to path. Paths
// ending in ".json" are written as JSON.
func (p *Project) Save(path string) error {
	p.Metadata.Modified = time.Now().UTC().Truncate(time.Second)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Write(f, strings.EqualFold(filepath.Ext(path), ".json")); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Validate checks the whole project and returns every problem found.
func (p *Project) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Metadata.Name) == "" {
		errs = append(errs, errors.New("project name cannot be empty"))
	}
	if err := beatr.ValidateTempo(p.Tempo); err != nil {
		errs = append(errs, err)
	}
	if !(p.MasterVolume >= 0 && p.MasterVolume <= engine.MaxMasterVolume) {
		errs = append(errs, fmt.Errorf("master volume %g out of range [0, %d]", p.MasterVolume, engine.MaxMasterVolume))
	}
	seen := map[int]bool{}
	for _, s := range p.Patterns {
		if seen[s.Index] {
			errs = append(errs, fmt.Errorf("slot %d is defined twice", s.Index))
		}
		seen[s.Index] = true
		if _, err := s.Pattern(); err != nil {
			errs = append(errs, err)
		}
	}
	tl := beatr.Timeline{Segments: p.Timeline}
	if err := tl.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("timeline: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProject, errors.Join(errs...))
	}
	return nil
}

// Duration returns the length of the timeline in seconds, or of one pattern
// loop if there is no timeline.
func (p *Project) Duration() float64 {
	if len(p.Timeline) > 0 {
		tl := beatr.Timeline{Segments: p.Timeline}
		return tl.TotalDuration()
	}
	return beatr.LoopDurationSeconds(p.Tempo)
}

// Pattern decodes the slot into a beatr.Pattern.
func (s Slot) Pattern() (beatr.Pattern, error) {
	if s.Index < 0 || s.Index >= beatr.NumPatternSlots {
		return beatr.Pattern{}, fmt.Errorf("%w: %d", beatr.ErrSlotOutOfRange, s.Index)
	}
	if len(s.Tracks) > beatr.MaxTracks {
		return beatr.Pattern{}, fmt.Errorf("slot %d: %w: %d tracks", s.Index, beatr.ErrTrackOutOfRange, len(s.Tracks))
	}
	p := beatr.NewPattern(s.Name)
	for i, t := range s.Tracks {
		if err := p.SetVoice(i, t.Voice); err != nil {
			return beatr.Pattern{}, fmt.Errorf("slot %d track %d: %w", s.Index, i, err)
		}
		active, err := ParseGrid(t.Steps)
		if err != nil {
			return beatr.Pattern{}, fmt.Errorf("slot %d track %d: %w", s.Index, i, err)
		}
		if len(t.Velocities) != 0 && len(t.Velocities) != beatr.PatternLength {
			return beatr.Pattern{}, fmt.Errorf("slot %d track %d: %d velocities, expected %d", s.Index, i, len(t.Velocities), beatr.PatternLength)
		}
		for k, a := range active {
			step := beatr.Step{Active: a, Velocity: 1}
			if len(t.Velocities) > 0 {
				step.Velocity = t.Velocities[k]
			}
			p.SetStep(i, k, step)
		}
	}
	return p, nil
}

// SlotFromPattern encodes a pattern for storing in slot index. Trailing
// tracks without active steps are left out.
func SlotFromPattern(index int, p beatr.Pattern) Slot {
	s := Slot{Index: index, Name: p.Name}
	n := 0
	for i := range p.Tracks {
		if !trackEmpty(&p.Tracks[i]) {
			n = i + 1
		}
	}
	for i := 0; i < n; i++ {
		t := &p.Tracks[i]
		tr := Track{Voice: t.Voice, Steps: t.Grid()}
		for _, st := range t.Steps {
			if st.Velocity != 1 {
				tr.Velocities = make([]float32, beatr.PatternLength)
				for k := range t.Steps {
					tr.Velocities[k] = t.Steps[k].Velocity
				}
				break
			}
		}
		s.Tracks = append(s.Tracks, tr)
	}
	return s
}

func trackEmpty(t *beatr.Track) bool {
	for _, s := range t.Steps {
		if s.Active {
			return false
		}
	}
	return true
}

// ParseGrid reads a step grid: x or X for an active step, - or . for an
// inactive one. Bars and spaces are ignored.
func ParseGrid(grid string) (ret [beatr.PatternLength]bool, err error) {
	n := 0
	for _, c := range grid {
		var active bool
		switch c {
		case '|', ' ':
			continue
		case 'x', 'X':
			active = true
		case '-', '.':
		default:
			return ret, fmt.Errorf("invalid character %q in step grid %q", c, grid)
		}
		if n >= beatr.PatternLength {
			return ret, fmt.Errorf("step grid %q has more than %d steps", grid, beatr.PatternLength)
		}
		ret[n] = active
		n++
	}
	if n != beatr.PatternLength {
		return ret, fmt.Errorf("step grid %q has %d steps, expected %d", grid, n, beatr.PatternLength)
	}
	return ret, nil
}
