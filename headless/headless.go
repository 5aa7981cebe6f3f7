// Package headless is an audio backend without a device. It calls the
// processor from a goroutine at the pace a real device would, which keeps the
// engine running on machines without sound hardware and in tests.
package headless

import (
	"sync"
	"time"

	"github.com/beatr/beatr"
)

type (
	// Context pretends to be a device running at a fixed sample rate.
	Context struct {
		sampleRate int
		bufferSize int
		sink       func([]float32)
	}

	// Output is the goroutine pulling blocks from a processor.
	Output struct {
		stop chan struct{}
		done chan struct{}
		once sync.Once
	}
)

// Open is a beatr.AudioOpener. Every device id is accepted.
func Open(cfg beatr.DeviceConfig) (beatr.AudioContext, error) {
	c, err := NewContext(cfg, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewContext returns a context for cfg. If sink is not nil, it receives
// every rendered block; the slice is reused for the next block.
func NewContext(cfg beatr.DeviceConfig, sink func([]float32)) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Context{sampleRate: cfg.SampleRate, bufferSize: cfg.BufferSize, sink: sink}, nil
}

func (c *Context) SampleRate() int { return c.sampleRate }
func (c *Context) Close() error    { return nil }

// Period returns the time one block takes to play.
func (c *Context) Period() time.Duration {
	return time.Duration(c.bufferSize) * time.Second / time.Duration(c.sampleRate)
}

func (c *Context) Play(p beatr.Processor) (beatr.AudioOutput, error) {
	o := &Output{stop: make(chan struct{}), done: make(chan struct{})}
	go c.run(p, o)
	return o, nil
}

func (c *Context) run(p beatr.Processor, o *Output) {
	defer close(o.done)
	buf := make([]float32, c.bufferSize)
	ticker := time.NewTicker(c.Period())
	defer ticker.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
		}
		p.Process(buf)
		if c.sink != nil {
			c.sink(buf)
		}
	}
}

// Close stops the goroutine and waits for the block being rendered, if any.
func (o *Output) Close() error {
	o.once.Do(func() { close(o.stop) })
	<-o.done
	return nil
}
