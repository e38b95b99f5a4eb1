package rofl

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"math"
	"strconv"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blowfish"
)

// The helpers below run the cipher pipeline in the encrypt direction so
// tests can build byte-exact synthetic replay files.

// padTrailer appends padding so the buffer is a whole number of blocks,
// with the final byte holding the padding count.
func padTrailer(plain []byte) []byte {
	pad := blowfish.BlockSize - len(plain)%blowfish.BlockSize
	if pad == 0 {
		pad = blowfish.BlockSize
	}
	out := make([]byte, len(plain), len(plain)+pad)
	copy(out, plain)
	for i := 0; i < pad; i++ {
		out = append(out, byte(pad))
	}
	return out
}

func encryptBlocks(t *testing.T, key, plain []byte) []byte {
	t.Helper()
	require.Zero(t, len(plain)%blowfish.BlockSize)
	cipher, err := blowfish.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(plain))
	for i := 0; i < len(plain); i += blowfish.BlockSize {
		cipher.Encrypt(out[i:i+blowfish.BlockSize], plain[i:i+blowfish.BlockSize])
	}
	return out
}

func encryptPad(t *testing.T, key, plain []byte) []byte {
	t.Helper()
	return encryptBlocks(t, key, padTrailer(plain))
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// encodeSegmentData compresses and encrypts a flat event stream the way
// it is stored in the payload.
func encodeSegmentData(t *testing.T, key, stream []byte) []byte {
	t.Helper()
	return encryptPad(t, key, gzipBytes(t, stream))
}

// encodeKeyString produces the payload header's key field: the data key
// encrypted under the match id and base64 encoded.
func encodeKeyString(t *testing.T, matchID uint64, dataKey []byte) []byte {
	t.Helper()
	enc := encryptPad(t, []byte(strconv.FormatUint(matchID, 10)), dataKey)
	return []byte(base64.StdEncoding.EncodeToString(enc))
}

// secSpec describes one section record for encodeSection.
type secSpec struct {
	absTime    float32 // used when relative is false
	delta      uint8   // used when relative is true
	relative   bool
	typ        uint16
	sameType   bool
	params     uint32
	byteParams bool
	byteLen    bool
	data       []byte
}

func encodeSection(s secSpec) []byte {
	var h byte
	if s.relative {
		h |= flagRelativeTime
	}
	if s.sameType {
		h |= flagSameType
	}
	if s.byteParams {
		h |= flagByteParams
	}
	if s.byteLen {
		h |= flagByteLength
	}
	out := []byte{h}
	if s.relative {
		out = append(out, s.delta)
	} else {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(s.absTime))
	}
	if s.byteLen {
		out = append(out, byte(len(s.data)))
	} else {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s.data)))
	}
	if !s.sameType {
		out = binary.LittleEndian.AppendUint16(out, s.typ)
	}
	if s.byteParams {
		out = append(out, byte(s.params))
	} else {
		out = binary.LittleEndian.AppendUint32(out, s.params)
	}
	return append(out, s.data...)
}

func encodeSections(specs ...secSpec) []byte {
	var out []byte
	for _, s := range specs {
		out = append(out, encodeSection(s)...)
	}
	return out
}

// segSpec describes one segment for buildFile.
type segSpec struct {
	id      uint32
	kind    SegmentKind
	chunkID uint32
	data    []byte // already encrypted/compressed
}

// buildFile assembles a complete synthetic replay: fixed header, metadata,
// payload header, segment table, segment data. Segment data is laid out
// back to back after the table in the given order.
func buildFile(t *testing.T, metadata string, matchID uint64, keyString []byte, chunkCount, keyframeCount uint32, segs []segSpec) []byte {
	t.Helper()

	payloadHeader := binary.LittleEndian.AppendUint64(nil, matchID)
	payloadHeader = binary.LittleEndian.AppendUint32(payloadHeader, 91722) // duration ms
	payloadHeader = binary.LittleEndian.AppendUint32(payloadHeader, keyframeCount)
	payloadHeader = binary.LittleEndian.AppendUint32(payloadHeader, chunkCount)
	payloadHeader = binary.LittleEndian.AppendUint32(payloadHeader, 5) // last loading chunk
	payloadHeader = binary.LittleEndian.AppendUint32(payloadHeader, 6) // first game chunk
	payloadHeader = binary.LittleEndian.AppendUint32(payloadHeader, 60000)
	payloadHeader = binary.LittleEndian.AppendUint16(payloadHeader, uint16(len(keyString)))
	payloadHeader = append(payloadHeader, keyString...)

	var table, blob []byte
	for _, s := range segs {
		entry := binary.LittleEndian.AppendUint32(nil, s.id)
		entry = append(entry, byte(s.kind))
		entry = binary.LittleEndian.AppendUint32(entry, uint32(len(s.data)))
		entry = binary.LittleEndian.AppendUint32(entry, s.chunkID)
		entry = binary.LittleEndian.AppendUint32(entry, uint32(len(blob)))
		table = append(table, entry...)
		blob = append(blob, s.data...)
	}
	payload := append(table, blob...)

	metaOff := uint32(HeaderLen)
	phOff := metaOff + uint32(len(metadata))
	payloadOff := phOff + uint32(len(payloadHeader))
	fileLen := payloadOff + uint32(len(payload))

	head := make([]byte, HeaderLen)
	copy(head, Magic)
	binary.LittleEndian.PutUint16(head[headerLenOffset:], HeaderLen)
	binary.LittleEndian.PutUint32(head[fileLenOffset:], fileLen)
	binary.LittleEndian.PutUint32(head[metadataOffOffset:], metaOff)
	binary.LittleEndian.PutUint32(head[metadataLenOffset:], uint32(len(metadata)))
	binary.LittleEndian.PutUint32(head[payloadHdrOffOffset:], phOff)
	binary.LittleEndian.PutUint32(head[payloadHdrLenOffset:], uint32(len(payloadHeader)))
	binary.LittleEndian.PutUint32(head[payloadOffOffset:], payloadOff)

	file := head
	file = append(file, metadata...)
	file = append(file, payloadHeader...)
	file = append(file, payload...)
	return file
}
