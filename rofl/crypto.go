package rofl

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/blowfish"
)

// Segment data is protected twice with the same primitive: the payload
// header's key string decrypts under the match id to yield the data key,
// and each segment's bytes decrypt under that data key. Both stages use
// blowfish over independent 8-byte blocks, with the last decrypted byte
// giving the number of trailing padding bytes to strip.

// decryptDepad decrypts ciphertext block by block and strips the trailing
// padding announced by the final byte.
func decryptDepad(cipher *blowfish.Cipher, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%blowfish.BlockSize != 0 {
		return nil, fmt.Errorf("cipher text of %d bytes is not a whole number of %d-byte blocks: %w",
			len(ciphertext), blowfish.BlockSize, ErrTruncated)
	}
	plain := make([]byte, len(ciphertext))
	for i := 0; i < len(plain); i += blowfish.BlockSize {
		cipher.Decrypt(plain[i:i+blowfish.BlockSize], ciphertext[i:i+blowfish.BlockSize])
	}
	pad := int(plain[len(plain)-1])
	if pad > blowfish.BlockSize || pad > len(plain) {
		return nil, fmt.Errorf("padding count %d with %d decrypted bytes: %w", pad, len(plain), ErrBadPadding)
	}
	return plain[:len(plain)-pad], nil
}

// DeriveSegmentKey recovers the per-match data key: the payload header's
// key string is base64 text whose decoded bytes decrypt under the match
// id rendered as its base-10 ASCII string.
func DeriveSegmentKey(matchID uint64, encryptionKey []byte) ([]byte, error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(encryptionKey)))
	n, err := base64.StdEncoding.Decode(raw, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", ErrInvalidEncoding)
	}
	cipher, err := blowfish.NewCipher([]byte(strconv.FormatUint(matchID, 10)))
	if err != nil {
		return nil, fmt.Errorf("match id cipher key: %w", err)
	}
	return decryptDepad(cipher, raw[:n])
}

// decodeSegmentData turns one segment's encrypted bytes into its flat
// event stream: decrypt, strip padding, gzip inflate.
func decodeSegmentData(cipher *blowfish.Cipher, raw []byte) ([]byte, error) {
	compressed, err := decryptDepad(cipher, raw)
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return data, nil
}

// DecodeSegmentData decrypts and decompresses one segment's raw bytes
// with an already derived data key. Prefer a data-decoding
// SegmentScanner when walking a whole payload; this is for callers that
// framed the segment themselves.
func DecodeSegmentData(key, raw []byte) ([]byte, error) {
	cipher, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("segment cipher key: %w", err)
	}
	return decodeSegmentData(cipher, raw)
}
