package beatr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWav encodes a mono buffer as an integer PCM .wav file. bitDepth is 16
// or 24.
func WriteWav(w io.WriteSeeker, buffer []float32, sampleRate, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("WriteWav: unsupported bit depth %d", bitDepth)
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)
	scale := float64(int(1)<<(bitDepth-1) - 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(buffer)),
		SourceBitDepth: bitDepth,
	}
	for i, v := range buffer {
		buf.Data[i] = int(math.Round(float64(clamp(v, -1, 1)) * scale))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("could not encode wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not finish wav file: %w", err)
	}
	return nil
}

// Raw returns the buffer as headerless little-endian samples, either float32
// or, if pcm16 is set, signed 16-bit integers.
func Raw(buffer []float32, pcm16 bool) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if pcm16 {
		int16data := make([]int16, len(buffer))
		for i, v := range buffer {
			int16data[i] = int16(clamp(v, -1, 1) * math.MaxInt16)
		}
		err = binary.Write(&buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(&buf, binary.LittleEndian, buffer)
	}
	if err != nil {
		return nil, fmt.Errorf("could not binary write data to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func clamp(value, min, max float32) float32 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
