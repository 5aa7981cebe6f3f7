package samples

import (
	"fmt"
	"sync/atomic"

	"github.com/beatr/beatr"
)

// Bank maps voice ids to samples. All methods are safe for concurrent use;
// Load is additionally wait-free and allocation-free, for use in the audio
// callback.
type Bank struct {
	slots [beatr.NumVoices]atomic.Pointer[Sample]
}

// NewBank returns an empty bank. Get returns ErrUnknownVoice for every voice
// until samples are stored.
func NewBank() *Bank {
	return &Bank{}
}

// NewDefaultBank returns a bank with every voice synthesized at sampleRate.
func NewDefaultBank(sampleRate int) *Bank {
	b := NewBank()
	b.LoadDefaults(sampleRate)
	return b
}

// LoadDefaults replaces every voice with its synthesized default.
func (b *Bank) LoadDefaults(sampleRate int) {
	for i := range b.slots {
		b.slots[i].Store(Synthesize(beatr.VoiceID(i), sampleRate))
	}
}

// Load returns the sample of a voice or nil. It never blocks.
func (b *Bank) Load(id beatr.VoiceID) *Sample {
	if !id.Valid() {
		return nil
	}
	return b.slots[id].Load()
}

// Get returns the sample of a voice, or ErrUnknownVoice if the id is out of
// range or no sample is stored for it.
func (b *Bank) Get(id beatr.VoiceID) (*Sample, error) {
	s := b.Load(id)
	if s == nil || len(s.Data) == 0 {
		return nil, fmt.Errorf("%w: %v", beatr.ErrUnknownVoice, id)
	}
	return s, nil
}

// Replace publishes a new sample for a voice and returns the previous one.
// Voices already playing the previous sample finish playing it.
func (b *Bank) Replace(id beatr.VoiceID, s *Sample) (*Sample, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %v", beatr.ErrUnknownVoice, id)
	}
	return b.slots[id].Swap(s), nil
}

// Remove clears a voice. Triggers of the voice are skipped afterwards.
func (b *Bank) Remove(id beatr.VoiceID) (*Sample, error) {
	return b.Replace(id, nil)
}

// Voices returns the ids that currently have a sample.
func (b *Bank) Voices() []beatr.VoiceID {
	var ret []beatr.VoiceID
	for i := range b.slots {
		if s := b.slots[i].Load(); s != nil && len(s.Data) > 0 {
			ret = append(ret, beatr.VoiceID(i))
		}
	}
	return ret
}

// Retune converts every sample not recorded at sampleRate. It is called
// after the output sample rate changes; the conversion happens in the
// calling goroutine and the results are published one voice at a time.
func (b *Bank) Retune(sampleRate int) {
	for i := range b.slots {
		s := b.slots[i].Load()
		if s == nil || s.SampleRate == sampleRate {
			continue
		}
		// a concurrent Replace wins over the retuned copy
		b.slots[i].CompareAndSwap(s, s.Resample(sampleRate))
	}
}
