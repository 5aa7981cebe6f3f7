package beatr

import "errors"

var (
	// ErrUnknownVoice is returned when a voice id has no sample buffer or is
	// out of range.
	ErrUnknownVoice = errors.New("unknown voice")
	// ErrInvalidTempo is returned when a tempo is outside [MinTempo,
	// MaxTempo]. The previous tempo stays in effect.
	ErrInvalidTempo = errors.New("invalid tempo")
	// ErrDeviceUnavailable is returned when the requested output device
	// cannot be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrStreamConfig is returned when the output stream cannot be opened with
	// the requested sample rate or buffer size.
	ErrStreamConfig = errors.New("invalid audio stream configuration")

	ErrSegmentOverlap  = errors.New("segment overlaps an existing segment")
	ErrInvalidSegment  = errors.New("invalid segment")
	ErrUnknownSegment  = errors.New("unknown segment")
	ErrSlotOutOfRange  = errors.New("pattern slot out of range")
	ErrTrackOutOfRange = errors.New("track out of range")
	ErrStepOutOfRange  = errors.New("step out of range")
)
