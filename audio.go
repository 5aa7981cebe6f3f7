package beatr

import "fmt"

type (
	// Processor renders mono audio. Process fills the whole buffer; it is
	// called from the audio thread of an AudioContext and must not block.
	Processor interface {
		Process(buffer []float32)
	}

	// AudioOutput is a running stream pulling audio from a Processor. Close
	// stops the stream; after Close returns, the Processor is not called
	// again.
	AudioOutput interface {
		Close() error
	}

	// AudioContext is an opened audio device. Play starts a stream that pulls
	// from p until the returned output is closed.
	AudioContext interface {
		Play(p Processor) (AudioOutput, error)
		SampleRate() int
		Close() error
	}

	// DeviceConfig selects an output device and the stream parameters.
	// DeviceID "" or "default" means the system default device.
	DeviceConfig struct {
		DeviceID   string `yaml:"device,omitempty"`
		SampleRate int    `yaml:"samplerate"`
		BufferSize int    `yaml:"buffersize"`
	}

	// AudioOpener opens an AudioContext for a configuration. Backends
	// provide one; the engine uses it when the device is reconfigured.
	AudioOpener func(cfg DeviceConfig) (AudioContext, error)

	// ProcessorFunc adapts a function to the Processor interface.
	ProcessorFunc func(buffer []float32)
)

const (
	MinSampleRate = 22050
	MaxSampleRate = 192000
	MinBufferSize = 64
	MaxBufferSize = 4096
)

func (f ProcessorFunc) Process(buffer []float32) { f(buffer) }

// DefaultDeviceConfig returns the configuration used when nothing else is
// specified.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{DeviceID: "default", SampleRate: DefaultSampleRate, BufferSize: DefaultBufferSize}
}

// IsDefaultDevice reports whether the configuration names the system default
// device.
func (c DeviceConfig) IsDefaultDevice() bool {
	return c.DeviceID == "" || c.DeviceID == "default"
}

// Validate returns ErrStreamConfig if the sample rate or the buffer size is
// out of range. Buffer sizes must be powers of two.
func (c DeviceConfig) Validate() error {
	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: sample rate %d, expected %d..%d", ErrStreamConfig, c.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.BufferSize < MinBufferSize || c.BufferSize > MaxBufferSize || c.BufferSize&(c.BufferSize-1) != 0 {
		return fmt.Errorf("%w: buffer size %d, expected a power of two in %d..%d", ErrStreamConfig, c.BufferSize, MinBufferSize, MaxBufferSize)
	}
	return nil
}
