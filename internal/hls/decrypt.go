package hls

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// segmentIV produces the 16-byte AES IV for a segment: the EXT-X-KEY IV
// attribute when present, otherwise the segment's media sequence number in
// big-endian per RFC 8216.
func segmentIV(ivHex string, seqID uint64) ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	ivHex = strings.TrimSpace(ivHex)
	if len(ivHex) >= 2 && (ivHex[:2] == "0x" || ivHex[:2] == "0X") {
		ivHex = ivHex[2:]
	}
	if ivHex == "" {
		binary.BigEndian.PutUint64(iv[8:], seqID)
		return iv, nil
	}
	decoded, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("parse iv: %w", err)
	}
	if len(decoded) != aes.BlockSize {
		return nil, fmt.Errorf("iv is %d bytes, want %d", len(decoded), aes.BlockSize)
	}
	copy(iv, decoded)
	return iv, nil
}

// decryptAES128 decrypts one whole segment with AES-128 in CBC mode and
// strips the PKCS#7 padding.
func decryptAES128(data, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("segment length %d is not a multiple of the block size", len(data))
	}

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)

	pad := int(plain[len(plain)-1])
	if pad < 1 || pad > aes.BlockSize || pad > len(plain) {
		return nil, fmt.Errorf("invalid padding length %d", pad)
	}
	return plain[:len(plain)-pad], nil
}
