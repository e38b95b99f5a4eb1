package rofl

import "errors"

// Decode failures are wrapped with position context at the failure site;
// match them with errors.Is.
var (
	// ErrBadMagic means the buffer does not start with "RIOT".
	ErrBadMagic = errors.New("rofl: bad magic")
	// ErrTruncated means a read would run past the end of the buffer or a
	// declared region.
	ErrTruncated = errors.New("rofl: truncated")
	// ErrInvalidEncoding means the metadata region is not valid UTF-8.
	ErrInvalidEncoding = errors.New("rofl: metadata is not valid UTF-8")
	// ErrUnknownSegmentKind means a segment header's kind byte is neither
	// chunk (1) nor keyframe (2).
	ErrUnknownSegmentKind = errors.New("rofl: unknown segment kind")
	// ErrBadPadding means a decrypted buffer's trailing padding count
	// exceeds the buffer length or the cipher block size.
	ErrBadPadding = errors.New("rofl: bad cipher padding")
	// ErrDecompression means a segment's compressed stream is corrupt or
	// truncated.
	ErrDecompression = errors.New("rofl: segment decompression failed")
	// ErrMissingInitialType means the first section of a segment omits its
	// type, so there is no previous type to reuse.
	ErrMissingInitialType = errors.New("rofl: first section has no explicit type")
)
