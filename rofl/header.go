package rofl

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Magic is the first four bytes of every ROFL file.
var Magic = []byte("RIOT")

// HeaderLen is the fixed size of the file header in bytes.
const HeaderLen = 288

// Fixed field offsets within the file header.
const (
	sigOffset           = 6
	sigLen              = 256
	headerLenOffset     = 262
	fileLenOffset       = 264
	metadataOffOffset   = 268
	metadataLenOffset   = 272
	payloadHdrOffOffset = 276
	payloadHdrLenOffset = 280
	payloadOffOffset    = 284
)

// Header is the decoded 288-byte file header. It locates every other
// region of the file; offsets are from the start of the file.
type Header struct {
	Signature           []byte
	HeaderLen           uint16
	FileLen             uint32
	MetadataOffset      uint32
	MetadataLen         uint32
	PayloadHeaderOffset uint32
	PayloadHeaderLen    uint32
	PayloadOffset       uint32
}

// parseHeader decodes the fixed file header and validates that every
// region it declares fits inside buf.
func parseHeader(buf []byte) (Header, error) {
	if len(buf) < len(Magic) || !bytes.Equal(buf[:len(Magic)], Magic) {
		return Header{}, fmt.Errorf("first bytes are not %q: %w", Magic, ErrBadMagic)
	}
	if len(buf) < HeaderLen {
		return Header{}, fmt.Errorf("file header needs %d bytes, have %d: %w", HeaderLen, len(buf), ErrTruncated)
	}
	h := Header{
		Signature:           buf[sigOffset : sigOffset+sigLen],
		HeaderLen:           binary.LittleEndian.Uint16(buf[headerLenOffset:]),
		FileLen:             binary.LittleEndian.Uint32(buf[fileLenOffset:]),
		MetadataOffset:      binary.LittleEndian.Uint32(buf[metadataOffOffset:]),
		MetadataLen:         binary.LittleEndian.Uint32(buf[metadataLenOffset:]),
		PayloadHeaderOffset: binary.LittleEndian.Uint32(buf[payloadHdrOffOffset:]),
		PayloadHeaderLen:    binary.LittleEndian.Uint32(buf[payloadHdrLenOffset:]),
		PayloadOffset:       binary.LittleEndian.Uint32(buf[payloadOffOffset:]),
	}
	if len(buf) < int(h.HeaderLen) {
		return Header{}, fmt.Errorf("declared header size %d exceeds buffer %d: %w", h.HeaderLen, len(buf), ErrTruncated)
	}
	for _, r := range []struct {
		name      string
		off, size uint32
	}{
		{"metadata", h.MetadataOffset, h.MetadataLen},
		{"payload header", h.PayloadHeaderOffset, h.PayloadHeaderLen},
		{"payload", h.PayloadOffset, 0},
	} {
		end := uint64(r.off) + uint64(r.size)
		if end > uint64(len(buf)) {
			return Header{}, fmt.Errorf("%s region [%d:%d] exceeds buffer %d: %w", r.name, r.off, end, len(buf), ErrTruncated)
		}
	}
	return h, nil
}

func (h Header) String() string {
	return fmt.Sprintf(
		"Header size: %d\nFile size: %d\nMetadata offset: %d\nMetadata length: %d\nPayload header offset: %d\nPayload header length: %d\nPayload offset: %d",
		h.HeaderLen, h.FileLen,
		h.MetadataOffset, h.MetadataLen,
		h.PayloadHeaderOffset, h.PayloadHeaderLen,
		h.PayloadOffset,
	)
}
