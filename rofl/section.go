package rofl

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Configuration byte bits. A set bit selects the narrow encoding of its
// field; the type bit removes the field entirely.
const (
	flagRelativeTime = 0x80 // time is a 1-byte ms delta instead of f32 seconds
	flagSameType     = 0x40 // type is absent, reuse the previous section's
	flagByteParams   = 0x20 // params is 1 byte instead of 4
	flagByteLength   = 0x10 // data length is 1 byte instead of 4
)

// PacketTime is a section's timestamp. Seconds is always the resolved
// absolute time; when the section encoded a relative delta, Relative is
// true and Delta holds the raw millisecond value.
type PacketTime struct {
	Seconds  float32 `json:"seconds"`
	Delta    uint8   `json:"delta,omitempty"`
	Relative bool    `json:"relative,omitempty"`
}

// Section is one decoded event record of a segment's stream.
type Section struct {
	Time   PacketTime `json:"time"`
	Type   uint16     `json:"type"`
	Params uint32     `json:"params"`
	Data   []byte     `json:"data,omitempty"` // nil in headers-only mode
}

// SectionScanner decodes a flat segment buffer into its ordered sequence
// of sections. Sections reuse the previous section's type and accumulate
// relative time deltas, so the scanner carries that state and must be
// driven in order; state never leaks across scanners.
//
// In headers-only mode the data bytes are skipped without being retained,
// which makes enumerating section boundaries cheap. Both modes consume
// identical byte counts.
type SectionScanner struct {
	buf      []byte
	off      int
	withData bool

	lastType uint16
	haveType bool
	lastTime float32

	cur Section
	err error
}

// NewSectionScanner scans the decoded event stream in buf. withData
// selects whether section data bytes are retained (borrowed from buf) or
// skipped.
func NewSectionScanner(buf []byte, withData bool) *SectionScanner {
	return &SectionScanner{buf: buf, withData: withData}
}

// need consumes n bytes for the named field, recording a truncation error
// if the buffer falls short.
func (s *SectionScanner) need(field string, n int) ([]byte, bool) {
	if len(s.buf)-s.off < n {
		s.err = fmt.Errorf("section %s needs %d bytes at offset %d, have %d: %w",
			field, n, s.off, len(s.buf)-s.off, ErrTruncated)
		return nil, false
	}
	b := s.buf[s.off : s.off+n]
	s.off += n
	return b, true
}

// Next decodes one section. It returns false at the end of the buffer or
// on a decode error; distinguish the two with Err. The scanner does not
// resynchronize after an error.
func (s *SectionScanner) Next() bool {
	if s.err != nil || s.off >= len(s.buf) {
		return false
	}
	start := s.off
	h := s.buf[s.off]
	s.off++
	var sec Section

	if h&flagRelativeTime == 0 {
		b, ok := s.need("time", 4)
		if !ok {
			return false
		}
		t := math.Float32frombits(binary.LittleEndian.Uint32(b))
		s.lastTime = t
		sec.Time = PacketTime{Seconds: t}
	} else {
		b, ok := s.need("time delta", 1)
		if !ok {
			return false
		}
		t := s.lastTime + float32(b[0])/1000
		s.lastTime = t
		sec.Time = PacketTime{Seconds: t, Delta: b[0], Relative: true}
	}

	var length uint32
	if h&flagByteLength == 0 {
		b, ok := s.need("length", 4)
		if !ok {
			return false
		}
		length = binary.LittleEndian.Uint32(b)
	} else {
		b, ok := s.need("length", 1)
		if !ok {
			return false
		}
		length = uint32(b[0])
	}

	if h&flagSameType == 0 {
		b, ok := s.need("type", 2)
		if !ok {
			return false
		}
		sec.Type = binary.LittleEndian.Uint16(b)
		s.lastType = sec.Type
		s.haveType = true
	} else {
		if !s.haveType {
			s.err = fmt.Errorf("section at offset %d: %w", start, ErrMissingInitialType)
			return false
		}
		sec.Type = s.lastType
	}

	if h&flagByteParams == 0 {
		b, ok := s.need("params", 4)
		if !ok {
			return false
		}
		sec.Params = binary.LittleEndian.Uint32(b)
	} else {
		b, ok := s.need("params", 1)
		if !ok {
			return false
		}
		sec.Params = uint32(b[0])
	}

	if uint64(length) > uint64(len(s.buf)-s.off) {
		s.err = fmt.Errorf("section data needs %d bytes at offset %d, have %d: %w",
			length, s.off, len(s.buf)-s.off, ErrTruncated)
		return false
	}
	if s.withData {
		sec.Data = s.buf[s.off : s.off+int(length)]
	}
	s.off += int(length)

	s.cur = sec
	return true
}

// Section returns the section decoded by the last successful call to
// Next.
func (s *SectionScanner) Section() Section { return s.cur }

// Err returns the error that stopped the scanner, or nil if the stream
// was exhausted cleanly.
func (s *SectionScanner) Err() error { return s.err }

// Offset is the scanner's byte position in the segment buffer. Useful
// for locating a failure after Next returns false with a non-nil Err.
func (s *SectionScanner) Offset() int { return s.off }
