package rofl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blowfish"
)

func TestDecryptDepad(t *testing.T) {
	key := []byte("test key")
	cipher, err := blowfish.NewCipher(key)
	require.NoError(t, err)

	t.Run("round-trip", func(t *testing.T) {
		for _, plain := range [][]byte{
			[]byte("a"),
			[]byte("exactly8"), // forces a full extra padding block
			[]byte("spans multiple blocks of data"),
		} {
			got, err := decryptDepad(cipher, encryptPad(t, key, plain))
			require.NoError(t, err)
			assert.Equal(t, plain, got)
		}
	})

	t.Run("padding count exceeds block size", func(t *testing.T) {
		// A crafted block whose decrypted trailer claims 9 padding bytes.
		block := []byte{0, 0, 0, 0, 0, 0, 0, 9}
		_, err := decryptDepad(cipher, encryptBlocks(t, key, block))
		assert.ErrorIs(t, err, ErrBadPadding)
	})

	t.Run("partial block", func(t *testing.T) {
		_, err := decryptDepad(cipher, make([]byte, 12))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := decryptDepad(cipher, nil)
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func TestDeriveSegmentKey(t *testing.T) {
	matchID := uint64(2234167791)
	dataKey := []byte("0123456789abcdef")

	t.Run("round-trip", func(t *testing.T) {
		got, err := DeriveSegmentKey(matchID, encodeKeyString(t, matchID, dataKey))
		require.NoError(t, err)
		assert.Equal(t, dataKey, got)
	})

	t.Run("wrong match id yields a different key", func(t *testing.T) {
		got, err := DeriveSegmentKey(matchID+1, encodeKeyString(t, matchID, dataKey))
		if err == nil {
			assert.NotEqual(t, dataKey, got)
		}
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := DeriveSegmentKey(matchID, []byte("!!not base64!!"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})
}

func TestDecodeSegmentData(t *testing.T) {
	key := []byte("0123456789abcdef")
	stream := encodeSections(secSpec{absTime: 2.5, typ: 0x12, params: 7, data: []byte("payload")})

	t.Run("round-trip", func(t *testing.T) {
		got, err := DecodeSegmentData(key, encodeSegmentData(t, key, stream))
		require.NoError(t, err)
		assert.Equal(t, stream, got)
	})

	t.Run("not a gzip stream", func(t *testing.T) {
		_, err := DecodeSegmentData(key, encryptPad(t, key, []byte("plainly not compressed")))
		assert.ErrorIs(t, err, ErrDecompression)
	})

	t.Run("truncated gzip stream", func(t *testing.T) {
		z := gzipBytes(t, stream)
		_, err := DecodeSegmentData(key, encryptPad(t, key, z[:len(z)-4]))
		assert.ErrorIs(t, err, ErrDecompression)
	})
}
