package rofl

import (
	"fmt"
	"unicode/utf8"
)

// Replay is a parsed ROFL file. It borrows the caller's buffer; nothing
// is copied until segment data is decoded.
type Replay struct {
	head Header
	buf  []byte
}

// Parse validates the file header and every region it declares. The
// buffer must hold the complete file; Replay keeps a reference to it.
func Parse(buf []byte) (*Replay, error) {
	head, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	return &Replay{head: head, buf: buf}, nil
}

// Header returns the fixed file header.
func (r *Replay) Header() Header { return r.head }

// Metadata returns the game metadata region as its raw JSON string. The
// string is not parsed here; hand it to a JSON decoder.
func (r *Replay) Metadata() (string, error) {
	b := r.buf[r.head.MetadataOffset : uint64(r.head.MetadataOffset)+uint64(r.head.MetadataLen)]
	if !utf8.Valid(b) {
		return "", ErrInvalidEncoding
	}
	return string(b), nil
}

// Payload returns the decoded payload header.
func (r *Replay) Payload() (PayloadHeader, error) {
	return parsePayloadHeader(r.buf[r.head.PayloadHeaderOffset : uint64(r.head.PayloadHeaderOffset)+uint64(r.head.PayloadHeaderLen)])
}

// payloadRegion bounds the payload by the header's declared file length.
func (r *Replay) payloadRegion() ([]byte, error) {
	if uint64(r.head.FileLen) > uint64(len(r.buf)) {
		return nil, fmt.Errorf("declared file size %d exceeds buffer %d: %w", r.head.FileLen, len(r.buf), ErrTruncated)
	}
	if r.head.PayloadOffset > r.head.FileLen {
		return nil, fmt.Errorf("payload offset %d exceeds declared file size %d: %w", r.head.PayloadOffset, r.head.FileLen, ErrTruncated)
	}
	return r.buf[r.head.PayloadOffset:r.head.FileLen], nil
}

// Segments returns a scanner over the payload's segments in on-disk
// order. With withData set, each segment is decrypted and decompressed
// as it is scanned; otherwise only headers and encrypted ranges are
// produced.
func (r *Replay) Segments(withData bool) (*SegmentScanner, error) {
	payload, err := r.payloadRegion()
	if err != nil {
		return nil, err
	}
	head, err := r.Payload()
	if err != nil {
		return nil, err
	}
	return NewSegmentScanner(payload, head, withData)
}
