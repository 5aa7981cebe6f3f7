package engine

import (
	"time"

	"github.com/beatr/beatr"
)

type (
	// Broker carries messages between the control goroutines and the audio
	// callback. Every channel is buffered and the audio callback only uses
	// non-blocking sends and receives, so a slow or absent reader can never
	// stall audio: messages that do not fit are dropped and counted.
	//
	// ToEngine carries live triggers (pads, MIDI notes) to the audio
	// callback, which drains it at the start of every block. Faults carries
	// fault reports from the audio callback to whoever monitors the engine,
	// typically the UI or a logger.
	Broker struct {
		ToEngine chan LiveTrigger
		Faults   chan Fault
	}

	// LiveTrigger asks the engine to play a voice at the start of the next
	// block, independent of the pattern.
	LiveTrigger struct {
		Voice    beatr.VoiceID
		Velocity float32
	}
)

const (
	brokerBufferSize = 1024
	// maxTriggersPerBlock bounds the work done draining ToEngine in one
	// block; remaining triggers wait for the next block.
	maxTriggersPerBlock = beatr.MaxPolyphony
)

func NewBroker() *Broker {
	return &Broker{
		ToEngine: make(chan LiveTrigger, brokerBufferSize),
		Faults:   make(chan Fault, brokerBufferSize),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive waits at most t for a value from c. ok is false on timeout
// or when c is closed. Only control goroutines may call it.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	timer := time.NewTimer(t)
	defer timer.Stop()
	select {
	case v, ok = <-c:
	case <-timer.C:
	}
	return v, ok
}

// DrainFaults empties the fault channel. It waits up to wait for the first
// report, then takes only what is already queued.
func (b *Broker) DrainFaults(wait time.Duration) []Fault {
	f, ok := TimeoutReceive(b.Faults, wait)
	if !ok {
		return nil
	}
	ret := []Fault{f}
	for {
		select {
		case f := <-b.Faults:
			ret = append(ret, f)
		default:
			return ret
		}
	}
}
