// Package splice imports patterns from .splice drum machine files.
//
// A file starts with the magic "SPLICE", followed by the big-endian length of
// the rest of the file, a zero-padded 32-byte hardware version string and the
// tempo as a little-endian float32. Each track is then a little-endian
// uint32 id, a one-byte name length, the name and 16 step bytes, where any
// non-zero byte is an active step.
package splice

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beatr/beatr"
)

type (
	// Pattern is the content of one .splice file.
	Pattern struct {
		Version string
		Tempo   float32
		Tracks  []Track
	}

	// Track is one instrument row of a .splice pattern.
	Track struct {
		ID    int
		Name  string
		Steps [beatr.PatternLength]bool
	}

	header struct {
		Magic   [6]byte
		Length  [8]byte // big endian, unlike everything else
		Version [versionLen]byte
		Tempo   float32
	}

	trackHeader struct {
		ID      uint32
		NameLen uint8
	}
)

const (
	versionLen = 32
	// headerTail is the part of the header counted by the length field.
	headerTail = versionLen + 4
)

var magic = [6]byte{'S', 'P', 'L', 'I', 'C', 'E'}

var (
	ErrIllegalFiletype = errors.New("not a .splice file")
	ErrShortRead       = errors.New("truncated .splice file")
)

// DecodeFile decodes the .splice file at path.
func DecodeFile(path string) (*Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return p, nil
}

// Decode reads a pattern. Anything after the length given in the header is
// ignored.
func Decode(in io.Reader) (*Pattern, error) {
	var h header
	if err := binary.Read(in, binary.LittleEndian, &h); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortRead
		}
		return nil, err
	}
	if h.Magic != magic {
		return nil, ErrIllegalFiletype
	}
	length := binary.BigEndian.Uint64(h.Length[:])
	if length < headerTail {
		return nil, fmt.Errorf("%w: length %d is shorter than the header", ErrShortRead, length)
	}
	p := &Pattern{Version: string(h.Version[:]), Tempo: h.Tempo}
	if i := bytes.IndexByte(h.Version[:], 0); i != -1 {
		p.Version = p.Version[:i]
	}
	in = io.LimitReader(in, int64(length-headerTail))
	for {
		var th trackHeader
		err := binary.Read(in, binary.LittleEndian, &th)
		if errors.Is(err, io.EOF) {
			return p, nil
		}
		if err != nil {
			return nil, shortRead(err)
		}
		t := Track{ID: int(th.ID)}
		name := make([]byte, th.NameLen)
		if _, err := io.ReadFull(in, name); err != nil {
			return nil, shortRead(err)
		}
		t.Name = string(name)
		var steps [beatr.PatternLength]byte
		if _, err := io.ReadFull(in, steps[:]); err != nil {
			return nil, shortRead(err)
		}
		for i, s := range steps {
			t.Steps[i] = s != 0
		}
		p.Tracks = append(p.Tracks, t)
	}
}

func shortRead(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrShortRead
	}
	return err
}

// Encode writes p in the .splice format. Versions longer than 32 bytes and
// names longer than 255 bytes are truncated.
func Encode(w io.Writer, p *Pattern) error {
	var body bytes.Buffer
	for _, t := range p.Tracks {
		name := t.Name
		if len(name) > 255 {
			name = name[:255]
		}
		binary.Write(&body, binary.LittleEndian, trackHeader{ID: uint32(t.ID), NameLen: uint8(len(name))})
		body.WriteString(name)
		for _, s := range t.Steps {
			if s {
				body.WriteByte(1)
			} else {
				body.WriteByte(0)
			}
		}
	}
	h := header{Magic: magic, Tempo: p.Tempo}
	binary.BigEndian.PutUint64(h.Length[:], uint64(headerTail+body.Len()))
	copy(h.Version[:], p.Version)
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	_, err := body.WriteTo(w)
	return err
}

func (t Track) String() string {
	var b strings.Builder
	for i, s := range t.Steps {
		if i%beatr.StepsPerBeat == 0 {
			b.WriteByte('|')
		}
		if s {
			b.WriteByte('x')
		} else {
			b.WriteByte('-')
		}
	}
	b.WriteByte('|')
	return fmt.Sprintf("(%d) %s\t%s", t.ID, t.Name, b.String())
}

func (p Pattern) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "Saved with HW Version:", p.Version)
	fmt.Fprintln(&b, "Tempo:", p.Tempo)
	for _, t := range p.Tracks {
		fmt.Fprintln(&b, t)
	}
	return b.String()
}
