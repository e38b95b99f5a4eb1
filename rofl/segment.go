package rofl

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blowfish"
)

// segmentHeaderLen is the fixed size of one entry in the segment header
// table at the start of the payload.
const segmentHeaderLen = 17

type SegmentKind uint8

const (
	Chunk    SegmentKind = 1
	Keyframe SegmentKind = 2
)

func (k SegmentKind) String() string {
	switch k {
	case Chunk:
		return "Chunk"
	case Keyframe:
		return "Keyframe"
	}
	return fmt.Sprintf("SegmentKind(%d)", uint8(k))
}

type kindIntMarshal struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

func (k SegmentKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(kindIntMarshal{
		Name: k.String(),
		ID:   int(k),
	})
}

func (k *SegmentKind) UnmarshalJSON(data []byte) (err error) {
	var x kindIntMarshal
	if err = json.Unmarshal(data, &x); err != nil {
		return
	}
	*k = SegmentKind(x.ID)
	return
}

// SegmentHeader is one 17-byte entry of the segment header table.
type SegmentHeader struct {
	ID      uint32      `json:"id"`
	Kind    SegmentKind `json:"kind"`
	Len     uint32      `json:"len"`
	ChunkID uint32      `json:"chunkId"` // associated chunk, 0 unless Kind is Keyframe
	Offset  uint32      `json:"offset"`  // data offset from the end of the table
}

// Segment is one chunk or keyframe. Raw borrows the encrypted bytes from
// the payload; Data holds the decrypted, decompressed event stream and is
// only set when the scanner was opened with data decoding enabled.
type Segment struct {
	SegmentHeader
	Raw  []byte `json:"-"`
	Data []byte `json:"-"`
}

// Sections returns a section scanner over the segment's decoded event
// stream. The segment must have been decoded (Data set).
func (s *Segment) Sections(withData bool) *SectionScanner {
	return NewSectionScanner(s.Data, withData)
}

func (s Segment) String() string {
	return fmt.Sprintf("%s %d (len: %d, chunk: %d, offset: %d, decoded: %t)",
		s.Kind, s.ID, s.Len, s.ChunkID, s.Offset, s.Data != nil)
}

// parseSegmentHeader decodes one table entry. buf must hold at least
// segmentHeaderLen bytes.
func parseSegmentHeader(buf []byte) (SegmentHeader, error) {
	h := SegmentHeader{
		ID:      binary.LittleEndian.Uint32(buf[0:4]),
		Kind:    SegmentKind(buf[4]),
		Len:     binary.LittleEndian.Uint32(buf[5:9]),
		ChunkID: binary.LittleEndian.Uint32(buf[9:13]),
		Offset:  binary.LittleEndian.Uint32(buf[13:17]),
	}
	if h.Kind != Chunk && h.Kind != Keyframe {
		return SegmentHeader{}, fmt.Errorf("segment %d has kind byte %d: %w", h.ID, uint8(h.Kind), ErrUnknownSegmentKind)
	}
	return h, nil
}

// SegmentScanner walks the segment header table in on-disk order and
// frames each segment's encrypted data within the payload. With data
// decoding enabled it also runs the decrypt/decompress pipeline per
// segment. A decode failure is terminal for the scanner; callers that
// want to skip bad segments should restart a new scanner or use
// Replay.DecodeSegments.
type SegmentScanner struct {
	payload []byte
	count   int
	index   int
	cipher  *blowfish.Cipher // nil in headers-only mode
	cur     Segment
	err     error
}

// NewSegmentScanner frames segments inside payload as described by head.
// The whole header table must fit inside the payload; a shortfall means
// the file's segment counts and its table disagree.
func NewSegmentScanner(payload []byte, head PayloadHeader, withData bool) (*SegmentScanner, error) {
	count := head.SegmentCount()
	if tableLen := count * segmentHeaderLen; len(payload) < tableLen {
		return nil, fmt.Errorf("segment table needs %d bytes for %d entries, payload has %d: %w",
			tableLen, count, len(payload), ErrTruncated)
	}
	s := &SegmentScanner{payload: payload, count: count}
	if withData {
		key, err := DeriveSegmentKey(head.MatchID, head.EncryptionKey)
		if err != nil {
			return nil, err
		}
		cipher, err := blowfish.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("segment cipher key: %w", err)
		}
		s.cipher = cipher
	}
	return s, nil
}

// Next advances to the next segment. It returns false when the table is
// exhausted or an error occurred; distinguish the two with Err.
func (s *SegmentScanner) Next() bool {
	if s.err != nil || s.index >= s.count {
		return false
	}
	head, err := parseSegmentHeader(s.payload[s.index*segmentHeaderLen:])
	if err != nil {
		s.err = err
		return false
	}
	dataStart := uint64(s.count)*segmentHeaderLen + uint64(head.Offset)
	dataEnd := dataStart + uint64(head.Len)
	if dataEnd > uint64(len(s.payload)) {
		s.err = fmt.Errorf("%s %d data [%d:%d] exceeds payload %d: %w",
			head.Kind, head.ID, dataStart, dataEnd, len(s.payload), ErrTruncated)
		return false
	}
	seg := Segment{
		SegmentHeader: head,
		Raw:           s.payload[dataStart:dataEnd],
	}
	if s.cipher != nil {
		data, err := decodeSegmentData(s.cipher, seg.Raw)
		if err != nil {
			log.Debug().Uint32("id", head.ID).Stringer("kind", head.Kind).Err(err).Msg("segment decode failed")
			s.err = fmt.Errorf("%s %d: %w", head.Kind, head.ID, err)
			return false
		}
		seg.Data = data
	}
	s.index++
	s.cur = seg
	return true
}

// Segment returns the segment read by the last successful call to Next.
func (s *SegmentScanner) Segment() Segment { return s.cur }

// Err returns the error that stopped the scanner, or nil after a clean
// exhaustion of the table.
func (s *SegmentScanner) Err() error { return s.err }
