package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/beatr/beatr"
)

type (
	// FaultKind classifies the problems the audio callback can run into. None
	// of them interrupts playback.
	FaultKind int

	// Fault is one report from the audio callback. Voice is set for
	// FaultUnknownVoice and FaultVoiceStolen.
	Fault struct {
		Kind  FaultKind
		Voice beatr.VoiceID
	}

	// FaultCounts is a snapshot of the fault counters. Dropped counts reports
	// that did not fit in Broker.Faults; they are still included in the
	// per-kind counts.
	FaultCounts struct {
		UnknownVoice uint64
		VoiceStolen  uint64
		Contention   uint64
		Dropped      uint64
	}

	faultCounters struct {
		counts  [numFaultKinds]atomic.Uint64
		dropped atomic.Uint64
	}
)

const (
	// FaultUnknownVoice: a step or live trigger named a voice with no sample.
	// The trigger was skipped.
	FaultUnknownVoice FaultKind = iota
	// FaultVoiceStolen: all voices were busy and a playing voice was cut.
	FaultVoiceStolen
	// FaultContention: the shared state was locked by a control goroutine and
	// the block was rendered from the previous snapshot.
	FaultContention

	numFaultKinds
)

func (k FaultKind) String() string {
	switch k {
	case FaultUnknownVoice:
		return "unknown voice"
	case FaultVoiceStolen:
		return "voice stolen"
	case FaultContention:
		return "lock contention"
	}
	return fmt.Sprintf("FaultKind(%d)", int(k))
}

func (f Fault) String() string {
	if f.Kind == FaultContention {
		return f.Kind.String()
	}
	return fmt.Sprintf("%v: %v", f.Kind, f.Voice)
}

// record counts a fault and forwards it to the broker without blocking.
func (c *faultCounters) record(b *Broker, f Fault) {
	c.counts[f.Kind].Add(1)
	if !TrySend(b.Faults, f) {
		c.dropped.Add(1)
	}
}

func (c *faultCounters) snapshot() FaultCounts {
	return FaultCounts{
		UnknownVoice: c.counts[FaultUnknownVoice].Load(),
		VoiceStolen:  c.counts[FaultVoiceStolen].Load(),
		Contention:   c.counts[FaultContention].Load(),
		Dropped:      c.dropped.Load(),
	}
}
