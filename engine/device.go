package engine

import (
	"errors"
	"fmt"

	"github.com/beatr/beatr"
)

// SetOpener sets the backend used by ConfigureAudioDevice.
func (e *Engine) SetOpener(o beatr.AudioOpener) {
	e.devMu.Lock()
	defer e.devMu.Unlock()
	e.opener = o
}

// Device returns the configuration of the running output and whether one is
// running.
func (e *Engine) Device() (beatr.DeviceConfig, bool) {
	e.devMu.Lock()
	defer e.devMu.Unlock()
	return e.device, e.output != nil
}

// SampleRate returns the sample rate the engine renders at.
func (e *Engine) SampleRate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.sampleRate
}

// ConfigureAudioDevice stops the current output, if any, and starts
// rendering to the device described by cfg. If the new device runs at a
// different sample rate, the sample bank is converted and step lengths are
// recomputed from the next block on.
//
// On failure the engine is left without an output; the error wraps
// beatr.ErrDeviceUnavailable or beatr.ErrStreamConfig, and the caller may
// try another configuration.
func (e *Engine) ConfigureAudioDevice(cfg beatr.DeviceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.devMu.Lock()
	defer e.devMu.Unlock()
	if e.opener == nil {
		return fmt.Errorf("%w: no audio backend", beatr.ErrDeviceUnavailable)
	}
	if err := e.closeLocked(); err != nil {
		return fmt.Errorf("cannot close the previous audio device: %w", err)
	}
	ctx, err := e.opener(cfg)
	if err != nil {
		return fmt.Errorf("cannot open audio device %q: %w", cfg.DeviceID, err)
	}
	rate := ctx.SampleRate()
	e.mu.Lock()
	changed := rate != e.shared.sampleRate
	e.mu.Unlock()
	if changed {
		e.bank.Retune(rate)
		e.mu.Lock()
		e.shared.sampleRate = rate
		e.shared.rephase = true
		e.mu.Unlock()
	}
	out, err := ctx.Play(e)
	if err != nil {
		ctx.Close()
		return fmt.Errorf("cannot start audio stream: %w", err)
	}
	e.ctx, e.output, e.device = ctx, out, cfg
	return nil
}

func (e *Engine) closeLocked() error {
	var errs []error
	if e.output != nil {
		errs = append(errs, e.output.Close())
		e.output = nil
	}
	if e.ctx != nil {
		errs = append(errs, e.ctx.Close())
		e.ctx = nil
	}
	return errors.Join(errs...)
}

// Close stops the audio output. The engine can be given a new device with
// ConfigureAudioDevice afterwards.
func (e *Engine) Close() error {
	e.devMu.Lock()
	defer e.devMu.Unlock()
	return e.closeLocked()
}
