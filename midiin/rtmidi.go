//go:build cgo

package midiin

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Context owns the MIDI driver and at most one open input port.
type Context struct {
	driver    *rtmididrv.Driver
	currentIn drivers.In
	stop      func()
}

// NewContext opens the driver. If that fails, the context has no driver
// and every Open fails with ErrNoDriver.
func NewContext() *Context {
	c := &Context{}
	c.driver, _ = rtmididrv.New()
	return c
}

// Inputs lists the names of the input ports.
func (c *Context) Inputs() []string {
	if c.driver == nil {
		return nil
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil
	}
	ret := make([]string, 0, len(ins))
	for _, in := range ins {
		ret = append(ret, in.String())
	}
	return ret
}

// OpenByPrefix opens the first input whose name starts with prefix and sends
// its messages to h, closing the port open before.
func (c *Context) OpenByPrefix(prefix string, h *Handler) (string, error) {
	if c.driver == nil {
		return "", ErrNoDriver
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return "", fmt.Errorf("cannot list MIDI inputs: %w", err)
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), prefix) {
			continue
		}
		c.closeInput()
		if err := in.Open(); err != nil {
			return "", fmt.Errorf("opening MIDI input failed: %w", err)
		}
		stop, err := midi.ListenTo(in, h.HandleMessage)
		if err != nil {
			in.Close()
			return "", fmt.Errorf("cannot listen to MIDI input: %w", err)
		}
		c.currentIn, c.stop = in, stop
		return in.String(), nil
	}
	return "", fmt.Errorf("could not find a MIDI input starting with %q", prefix)
}

func (c *Context) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

func (c *Context) Close() {
	if c.driver == nil {
		return
	}
	c.closeInput()
	c.driver.Close()
}
