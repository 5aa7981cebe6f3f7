// Package oto plays an engine through the system default audio device using
// github.com/ebitengine/oto/v3.
package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/beatr/beatr"
	"github.com/ebitengine/oto/v3"
)

type (
	// Context is an opened oto device. oto allows one context per process,
	// so every Context shares it; Close suspends the device instead of
	// releasing it.
	Context struct {
		ctx        *oto.Context
		sampleRate int
		bufferSize int
	}

	// Output is a stream playing a processor.
	Output struct {
		player *oto.Player
	}
)

const (
	channelCount   = 2
	bytesPerSample = 4
	bytesPerFrame  = channelCount * bytesPerSample
)

var (
	sharedMu   sync.Mutex
	shared     *oto.Context
	sharedRate int
)

// Open is a beatr.AudioOpener. Only the default device is supported; the
// sample rate cannot change once the first device has been opened.
func Open(cfg beatr.DeviceConfig) (beatr.AudioContext, error) {
	if !cfg.IsDefaultDevice() {
		return nil, fmt.Errorf("%w: oto can only open the default device, not %q", beatr.ErrDeviceUnavailable, cfg.DeviceID)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		op := &oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: channelCount,
			Format:       oto.FormatFloat32LE,
			BufferSize:   time.Duration(cfg.BufferSize) * time.Second / time.Duration(cfg.SampleRate),
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot create oto context: %w", beatr.ErrDeviceUnavailable, err)
		}
		<-ready
		shared, sharedRate = ctx, cfg.SampleRate
	} else if cfg.SampleRate != sharedRate {
		return nil, fmt.Errorf("%w: the device is already running at %d Hz", beatr.ErrStreamConfig, sharedRate)
	} else if err := shared.Resume(); err != nil {
		return nil, fmt.Errorf("%w: cannot resume oto context: %w", beatr.ErrDeviceUnavailable, err)
	}
	return &Context{ctx: shared, sampleRate: cfg.SampleRate, bufferSize: cfg.BufferSize}, nil
}

func (c *Context) SampleRate() int { return c.sampleRate }

// Play starts pulling audio from p.
func (c *Context) Play(p beatr.Processor) (beatr.AudioOutput, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", beatr.ErrDeviceUnavailable, err)
	}
	player := c.ctx.NewPlayer(NewReader(p, c.bufferSize))
	player.SetBufferSize(c.bufferSize * bytesPerFrame)
	player.Play()
	return &Output{player: player}, nil
}

func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Close stops the stream. The processor is not called after Close returns.
func (o *Output) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
