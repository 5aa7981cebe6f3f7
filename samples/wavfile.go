package samples

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"

	"github.com/beatr/beatr"
)

var ErrInvalidWav = errors.New("invalid wav file")

// LoadWav decodes an integer PCM .wav stream into a mono Sample at
// sampleRate. Multi-channel files are downmixed by averaging the channels.
func LoadWav(r io.ReadSeeker, sampleRate int) (*Sample, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWav
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: audio format %d, only integer PCM is supported", ErrInvalidWav, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not decode wav data: %w", err)
	}
	channels := buf.Format.NumChannels
	bitDepth := int(dec.BitDepth)
	if channels <= 0 || bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: %d channels, %d bits", ErrInvalidWav, channels, bitDepth)
	}
	scale := 1 / float32(int64(1)<<(bitDepth-1))
	frames := len(buf.Data) / channels
	data := make([]float32, frames)
	for i := range data {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		data[i] = float32(sum) / float32(channels) * scale
	}
	s := &Sample{Data: data, SampleRate: buf.Format.SampleRate}
	return s.Resample(sampleRate), nil
}

// LoadWavFile is LoadWav for a file on disk.
func LoadWavFile(path string, sampleRate int) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open sample: %w", err)
	}
	defer f.Close()
	s, err := LoadWav(f, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadDir replaces the sample of every voice that has a file named after it
// in dir, such as "kick.wav" or "open_hihat.wav". It returns the voices
// replaced. Voices without a file keep their sample; a file that fails to
// load stops the scan.
func (b *Bank) LoadDir(dir string, sampleRate int) ([]beatr.VoiceID, error) {
	var loaded []beatr.VoiceID
	for i := 0; i < beatr.NumVoices; i++ {
		id := beatr.VoiceID(i)
		path := filepath.Join(dir, id.String()+".wav")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		s, err := LoadWavFile(path, sampleRate)
		if err != nil {
			return loaded, err
		}
		b.Replace(id, s)
		loaded = append(loaded, id)
	}
	return loaded, nil
}
