// Package midiin plays drum voices from MIDI note-on messages. With cgo the
// notes come from an input port opened through rtmidi; without cgo no port
// can be opened, but Handler still works with messages from anywhere.
package midiin

import (
	"errors"
	"sync/atomic"

	"github.com/beatr/beatr"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// Triggerer plays a voice as soon as possible. *engine.Engine is one.
	Triggerer interface {
		Trigger(v beatr.VoiceID, velocity float32) bool
	}

	// Handler turns note-on messages into triggers.
	Handler struct {
		target  Triggerer
		notes   map[uint8]beatr.VoiceID
		channel int // -1 accepts every channel

		unmapped atomic.Uint64
		dropped  atomic.Uint64
	}
)

// AnyChannel makes a Handler accept notes on every channel.
const AnyChannel = -1

var ErrNoDriver = errors.New("no MIDI driver available")

// GeneralMIDIDrums maps the General MIDI percussion keys to voices.
var GeneralMIDIDrums = map[uint8]beatr.VoiceID{
	35: beatr.Kick, // acoustic bass drum
	36: beatr.Kick,
	37: beatr.Rimshot, // side stick
	38: beatr.Snare,
	39: beatr.Clap,
	40: beatr.Snare, // electric snare
	41: beatr.Tom,
	42: beatr.HiHat,
	43: beatr.Tom,
	44: beatr.HiHat, // pedal hihat
	45: beatr.Tom,
	46: beatr.OpenHiHat,
	47: beatr.Tom,
	48: beatr.Tom,
	49: beatr.Crash,
	50: beatr.Tom,
	57: beatr.Crash,
}

// NewHandler returns a handler using the General MIDI drum map on every
// channel.
func NewHandler(target Triggerer) *Handler {
	return &Handler{target: target, notes: GeneralMIDIDrums, channel: AnyChannel}
}

// SetChannel restricts the handler to one channel, 0..15, or AnyChannel.
func (h *Handler) SetChannel(channel int) { h.channel = channel }

// SetNoteMap replaces the note to voice mapping.
func (h *Handler) SetNoteMap(notes map[uint8]beatr.VoiceID) { h.notes = notes }

// HandleMessage has the signature midi.ListenTo expects. Note-ons with a
// mapped key trigger the voice with the velocity scaled to [0, 1]; every
// other message is ignored.
func (h *Handler) HandleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	if !msg.GetNoteOn(&channel, &key, &velocity) || velocity == 0 {
		return
	}
	if h.channel != AnyChannel && int(channel) != h.channel {
		return
	}
	v, ok := h.notes[key]
	if !ok {
		h.unmapped.Add(1)
		return
	}
	if !h.target.Trigger(v, float32(velocity)/127) {
		h.dropped.Add(1)
	}
}

// Unmapped returns how many note-ons had no voice.
func (h *Handler) Unmapped() uint64 { return h.unmapped.Load() }

// Dropped returns how many triggers the target did not accept.
func (h *Handler) Dropped() uint64 { return h.dropped.Load() }
