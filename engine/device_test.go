package engine

import (
	"errors"
	"testing"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/samples"
)

type fakeContext struct {
	rate    int
	played  beatr.Processor
	closed  bool
	stopped bool
}

type fakeOutput struct{ ctx *fakeContext }

func (c *fakeContext) Play(p beatr.Processor) (beatr.AudioOutput, error) {
	c.played = p
	return fakeOutput{c}, nil
}

func (c *fakeContext) SampleRate() int { return c.rate }

func (c *fakeContext) Close() error {
	c.closed = true
	return nil
}

func (o fakeOutput) Close() error {
	o.ctx.stopped = true
	return nil
}

func fakeOpener(opened *[]*fakeContext) beatr.AudioOpener {
	return func(cfg beatr.DeviceConfig) (beatr.AudioContext, error) {
		if !cfg.IsDefaultDevice() {
			return nil, beatr.ErrDeviceUnavailable
		}
		c := &fakeContext{rate: cfg.SampleRate}
		*opened = append(*opened, c)
		return c, nil
	}
}

func TestConfigureAudioDeviceRetunes(t *testing.T) {
	bank := samples.NewDefaultBank(44100)
	e := New(bank, 44100)
	var opened []*fakeContext
	e.SetOpener(fakeOpener(&opened))
	cfg := beatr.DefaultDeviceConfig()
	cfg.SampleRate = 48000
	if err := e.ConfigureAudioDevice(cfg); err != nil {
		t.Fatalf("ConfigureAudioDevice failed: %v", err)
	}
	if len(opened) != 1 || opened[0].played != e {
		t.Fatal("the engine should be playing on the opened context")
	}
	if got := e.SampleRate(); got != 48000 {
		t.Fatalf("sample rate %d, expected 48000", got)
	}
	if got := bank.Load(beatr.Kick).SampleRate; got != 48000 {
		t.Fatalf("kick sample rate %d, expected 48000", got)
	}
	if d, ok := e.Device(); !ok || d.SampleRate != 48000 {
		t.Fatalf("Device() = %+v, %v", d, ok)
	}
	cfg.BufferSize = 256
	if err := e.ConfigureAudioDevice(cfg); err != nil {
		t.Fatalf("reconfiguring failed: %v", err)
	}
	if !opened[0].stopped || !opened[0].closed {
		t.Fatal("the previous output should be closed")
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, ok := e.Device(); ok {
		t.Fatal("no device should be running after Close")
	}
}

func TestConfigureAudioDeviceErrors(t *testing.T) {
	e := New(nil, 48000)
	if err := e.ConfigureAudioDevice(beatr.DefaultDeviceConfig()); !errors.Is(err, beatr.ErrDeviceUnavailable) {
		t.Fatalf("without a backend: expected ErrDeviceUnavailable, got %v", err)
	}
	var opened []*fakeContext
	e.SetOpener(fakeOpener(&opened))
	cfg := beatr.DefaultDeviceConfig()
	cfg.DeviceID = "hw:7"
	if err := e.ConfigureAudioDevice(cfg); !errors.Is(err, beatr.ErrDeviceUnavailable) {
		t.Fatalf("unknown device: expected ErrDeviceUnavailable, got %v", err)
	}
	cfg = beatr.DefaultDeviceConfig()
	cfg.BufferSize = 1000
	if err := e.ConfigureAudioDevice(cfg); !errors.Is(err, beatr.ErrStreamConfig) {
		t.Fatalf("bad buffer size: expected ErrStreamConfig, got %v", err)
	}
	if len(opened) != 0 {
		t.Fatal("no context should have been opened")
	}
	if got := e.SampleRate(); got != 48000 {
		t.Fatalf("sample rate changed to %d after failures", got)
	}
}
