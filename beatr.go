// Package beatr holds the data model of the drum sequencer: patterns of
// sixteen steps, the voices they trigger, timelines arranging patterns over
// time, and the tempo arithmetic shared by the engine and the tools.
//
// Everything in this package is plain data and pure functions. The real-time
// engine lives in package engine; sample buffers live in package samples.
package beatr

const (
	// PatternLength is the number of steps in every pattern track. Steps are
	// sixteenth notes, so one pattern is one 4/4 bar.
	PatternLength = 16
	// StepsPerBeat is the number of steps in one quarter note.
	StepsPerBeat = 4
	// MaxTracks is the number of tracks (rows) in a pattern.
	MaxTracks = 8
	// NumPatternSlots is the number of resident patterns an engine holds.
	NumPatternSlots = 16
	// MaxPolyphony is the number of voices that can sound at once.
	MaxPolyphony = 32

	MinTempo     = 60.0
	MaxTempo     = 200.0
	DefaultTempo = 120.0

	DefaultSampleRate = 44100
	DefaultBufferSize = 512
)
