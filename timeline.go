package beatr

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

type (
	// Segment places a resident pattern on the timeline. It covers the
	// half-open interval [Start, End) in seconds. While the playhead is inside
	// the segment, the pattern in slot Pattern is played, starting from its
	// first step at Start. If Tempo is non-zero, it overrides the engine tempo
	// for the duration of the segment.
	Segment struct {
		ID      int     `yaml:"id" json:"id"`
		Name    string  `yaml:"name,omitempty" json:"name,omitempty"`
		Start   float64 `yaml:"start" json:"start"`
		End     float64 `yaml:"end" json:"end"`
		Pattern int     `yaml:"pattern" json:"pattern"`
		Tempo   float64 `yaml:"tempo,omitempty" json:"tempo,omitempty"`
	}

	// Timeline is an ordered list of non-overlapping segments. Segments are
	// kept sorted by Start; gaps between segments are silence. The zero value
	// is an empty timeline.
	Timeline struct {
		Segments []Segment
		nextID   int
	}

	// PlaybackState is the transport state of the engine.
	PlaybackState int
)

const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("PlaybackState(%d)", int(s))
}

// NewSegment returns a segment that plays the pattern in slot for the given
// number of whole loops at bpm. The ID is assigned when the segment is added
// to a timeline.
func NewSegment(start float64, slot, loops int, bpm float64) Segment {
	return Segment{
		Start:   start,
		End:     start + float64(max(loops, 1))*LoopDurationSeconds(bpm),
		Pattern: slot,
		Tempo:   bpm,
	}
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// Contains reports whether t is inside [Start, End).
func (s Segment) Contains(t float64) bool { return t >= s.Start && t < s.End }

// Validate checks the bounds, slot and tempo of a single segment.
func (s Segment) Validate() error {
	if math.IsNaN(s.Start) || math.IsInf(s.End, 0) || s.Start < 0 || !(s.End > s.Start) {
		return fmt.Errorf("%w: bounds [%g, %g)", ErrInvalidSegment, s.Start, s.End)
	}
	if s.Pattern < 0 || s.Pattern >= NumPatternSlots {
		return fmt.Errorf("%w: %w: %d", ErrInvalidSegment, ErrSlotOutOfRange, s.Pattern)
	}
	if s.Tempo != 0 {
		if err := ValidateTempo(s.Tempo); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSegment, err)
		}
	}
	return nil
}

// Index returns the index of the segment covering t, or -1 if t falls into a
// gap or outside the timeline. The lookup is a binary search.
func (t *Timeline) Index(pos float64) int {
	// first segment that ends after pos
	i := sort.Search(len(t.Segments), func(i int) bool { return t.Segments[i].End > pos })
	if i < len(t.Segments) && t.Segments[i].Contains(pos) {
		return i
	}
	return -1
}

// At returns the segment covering pos.
func (t *Timeline) At(pos float64) (Segment, bool) {
	if i := t.Index(pos); i >= 0 {
		return t.Segments[i], true
	}
	return Segment{}, false
}

// NextBoundary returns the first segment start or end after pos, i.e. the
// next time the segment covering the playhead changes.
func (t *Timeline) NextBoundary(pos float64) (float64, bool) {
	i := sort.Search(len(t.Segments), func(i int) bool { return t.Segments[i].End > pos })
	if i == len(t.Segments) {
		return 0, false
	}
	if s := t.Segments[i]; s.Start > pos {
		return s.Start, true
	}
	return t.Segments[i].End, true
}

// TotalDuration returns the end of the last segment, or 0 for an empty
// timeline.
func (t *Timeline) TotalDuration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

func (t *Timeline) find(id int) int {
	for i, s := range t.Segments {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// insertionPoint returns where a segment with the given bounds would go, or
// an error if it overlaps a neighbour.
func (t *Timeline) insertionPoint(s Segment) (int, error) {
	i := sort.Search(len(t.Segments), func(i int) bool { return t.Segments[i].Start >= s.Start })
	for _, j := range [...]int{i - 1, i} {
		if j < 0 || j >= len(t.Segments) {
			continue
		}
		o := t.Segments[j]
		if s.Start < o.End && o.Start < s.End {
			return 0, fmt.Errorf("%w: [%g, %g) and segment %d [%g, %g)", ErrSegmentOverlap, s.Start, s.End, o.ID, o.Start, o.End)
		}
	}
	return i, nil
}

func (t *Timeline) allocID() int {
	if t.nextID == 0 {
		for _, s := range t.Segments {
			t.nextID = max(t.nextID, s.ID)
		}
	}
	t.nextID++
	return t.nextID
}

// Add inserts a segment, keeping the segments sorted. The segment gets a new
// ID, which is returned.
func (t *Timeline) Add(s Segment) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	i, err := t.insertionPoint(s)
	if err != nil {
		return 0, err
	}
	s.ID = t.allocID()
	t.Segments = slices.Insert(t.Segments, i, s)
	return s.ID, nil
}

// Remove deletes the segment with the given ID. It returns false if there is
// no such segment.
func (t *Timeline) Remove(id int) bool {
	i := t.find(id)
	if i < 0 {
		return false
	}
	t.Segments = slices.Delete(t.Segments, i, i+1)
	return true
}

// Move shifts a segment so that it starts at start, keeping its duration.
func (t *Timeline) Move(id int, start float64) error {
	i := t.find(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}
	s := t.Segments[i]
	moved := s
	moved.End = start + s.Duration()
	moved.Start = start
	if err := moved.Validate(); err != nil {
		return err
	}
	t.Segments = slices.Delete(t.Segments, i, i+1)
	j, err := t.insertionPoint(moved)
	if err != nil {
		t.Segments = slices.Insert(t.Segments, i, s)
		return err
	}
	t.Segments = slices.Insert(t.Segments, j, moved)
	return nil
}

// Split cuts a segment in two at time at. The first half keeps the ID; the ID
// of the second half is returned.
func (t *Timeline) Split(id int, at float64) (int, error) {
	i := t.find(id)
	if i < 0 {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}
	s := t.Segments[i]
	if !(at > s.Start && at < s.End) {
		return 0, fmt.Errorf("%w: split point %g outside (%g, %g)", ErrInvalidSegment, at, s.Start, s.End)
	}
	second := s
	second.Start = at
	second.ID = t.allocID()
	t.Segments[i].End = at
	t.Segments = slices.Insert(t.Segments, i+1, second)
	return second.ID, nil
}

// Duplicate copies a segment to start at start and returns the ID of the copy.
func (t *Timeline) Duplicate(id int, start float64) (int, error) {
	i := t.find(id)
	if i < 0 {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSegment, id)
	}
	s := t.Segments[i]
	s.End = start + s.Duration()
	s.Start = start
	return t.Add(s)
}

// Validate checks every segment and that the segments are sorted and do not
// overlap.
func (t *Timeline) Validate() error {
	for i, s := range t.Segments {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", s.ID, err)
		}
		if i > 0 && t.Segments[i-1].End > s.Start {
			return fmt.Errorf("segment %d: %w", s.ID, ErrSegmentOverlap)
		}
	}
	return nil
}

// AssignIDs gives a fresh ID to every segment whose ID is not positive or
// is used by an earlier segment. Timelines read from files may omit IDs.
func (t *Timeline) AssignIDs() {
	seen := make(map[int]bool, len(t.Segments))
	for _, s := range t.Segments {
		t.nextID = max(t.nextID, s.ID)
	}
	for i := range t.Segments {
		s := &t.Segments[i]
		if s.ID <= 0 || seen[s.ID] {
			t.nextID++
			s.ID = t.nextID
		}
		seen[s.ID] = true
	}
}

// Sort orders the segments by start time. Loaders call it before Validate, as
// files may list segments in any order.
func (t *Timeline) Sort() {
	slices.SortStableFunc(t.Segments, func(a, b Segment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
}

// Copy returns a deep copy of the timeline.
func (t Timeline) Copy() Timeline {
	t.Segments = slices.Clone(t.Segments)
	return t
}
