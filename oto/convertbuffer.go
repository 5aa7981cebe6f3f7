package oto

import (
	"encoding/binary"
	"math"

	"github.com/beatr/beatr"
)

// Reader is an io.Reader rendering a processor as interleaved stereo
// float32 little-endian frames, the format the oto player is opened with.
type Reader struct {
	processor beatr.Processor
	mono      []float32
}

// NewReader returns a Reader with room for blockSize frames per Read. Larger
// reads grow the buffer once.
func NewReader(p beatr.Processor, blockSize int) *Reader {
	return &Reader{processor: p, mono: make([]float32, max(blockSize, 1))}
}

// Read fills p with as many whole frames as fit.
func (r *Reader) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if frames > cap(r.mono) {
		r.mono = make([]float32, frames)
	}
	mono := r.mono[:frames]
	r.processor.Process(mono)
	n := FloatBufferToStereoLE(mono, p)
	return n, nil
}

// FloatBufferToStereoLE writes each mono sample twice as float32
// little-endian into dst, clamping to [-1, 1] and replacing NaN with
// silence. It returns the number of bytes written; dst must hold
// 8*len(buffer) bytes.
func FloatBufferToStereoLE(buffer []float32, dst []byte) int {
	for i, v := range buffer {
		switch {
		case v != v:
			v = 0
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		bits := math.Float32bits(v)
		binary.LittleEndian.PutUint32(dst[i*bytesPerFrame:], bits)
		binary.LittleEndian.PutUint32(dst[i*bytesPerFrame+bytesPerSample:], bits)
	}
	return len(buffer) * bytesPerFrame
}
