package rofl

import (
	"encoding/binary"
	"fmt"
)

// payloadHeaderFixedLen is the size of the payload header before the
// variable-length encryption key string.
const payloadHeaderFixedLen = 34

// PayloadHeader describes the payload region: match identity, segment
// counts, and the encrypted key string used to derive the segment cipher
// key. The key bytes are borrowed from the file buffer.
type PayloadHeader struct {
	MatchID          uint64
	Duration         uint32 // milliseconds
	KeyframeCount    uint32
	ChunkCount       uint32
	LastChunkID      uint32 // last chunk loaded before the game starts
	FirstChunkID     uint32 // first chunk containing game data
	KeyframeInterval uint32 // milliseconds covered by one keyframe
	EncryptionKey    []byte // base64 text, still encrypted with the match id
}

// SegmentCount is the number of entries expected in the segment header
// table at the start of the payload.
func (p PayloadHeader) SegmentCount() int {
	return int(p.ChunkCount) + int(p.KeyframeCount)
}

// parsePayloadHeader decodes the payload header from its declared region.
// buf must be exactly the region's bytes.
func parsePayloadHeader(buf []byte) (PayloadHeader, error) {
	if len(buf) < payloadHeaderFixedLen {
		return PayloadHeader{}, fmt.Errorf("payload header needs %d bytes, have %d: %w", payloadHeaderFixedLen, len(buf), ErrTruncated)
	}
	keyLen := int(binary.LittleEndian.Uint16(buf[32:34]))
	if payloadHeaderFixedLen+keyLen > len(buf) {
		return PayloadHeader{}, fmt.Errorf("encryption key of %d bytes exceeds payload header of %d: %w", keyLen, len(buf), ErrTruncated)
	}
	return PayloadHeader{
		MatchID:          binary.LittleEndian.Uint64(buf[0:8]),
		Duration:         binary.LittleEndian.Uint32(buf[8:12]),
		KeyframeCount:    binary.LittleEndian.Uint32(buf[12:16]),
		ChunkCount:       binary.LittleEndian.Uint32(buf[16:20]),
		LastChunkID:      binary.LittleEndian.Uint32(buf[20:24]),
		FirstChunkID:     binary.LittleEndian.Uint32(buf[24:28]),
		KeyframeInterval: binary.LittleEndian.Uint32(buf[28:32]),
		EncryptionKey:    buf[payloadHeaderFixedLen : payloadHeaderFixedLen+keyLen],
	}, nil
}

func (p PayloadHeader) String() string {
	return fmt.Sprintf(
		"Match ID: %d\nMatch length: %d ms\nKeyframe count: %d\nChunk count: %d\nLast loading chunk: %d\nFirst game chunk: %d\nKeyframe interval: %d ms\nEncryption key (%d chars): %s",
		p.MatchID, p.Duration,
		p.KeyframeCount, p.ChunkCount,
		p.LastChunkID, p.FirstChunkID,
		p.KeyframeInterval,
		len(p.EncryptionKey), p.EncryptionKey,
	)
}
