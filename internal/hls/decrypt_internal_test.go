package hls

import (
	"bytes"
	"testing"
)

func TestSegmentIVFromAttribute(t *testing.T) {
	iv, err := segmentIV("0x000102030405060708090A0B0C0D0E0F", 99)
	if err != nil {
		t.Fatalf("failed to parse iv: %v", err)
	}
	want := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	if !bytes.Equal(iv, want) {
		t.Errorf("unexpected iv %x", iv)
	}
}

func TestSegmentIVFromSequenceNumber(t *testing.T) {
	iv, err := segmentIV("", 7)
	if err != nil {
		t.Fatalf("failed to derive iv: %v", err)
	}
	want := make([]byte, 16)
	want[15] = 7
	if !bytes.Equal(iv, want) {
		t.Errorf("unexpected iv %x", iv)
	}
}

func TestSegmentIVRejectsShortAttribute(t *testing.T) {
	if _, err := segmentIV("0xABCD", 0); err == nil {
		t.Fatal("expected short iv to be rejected")
	}
}

func TestDecryptRejectsRaggedSegment(t *testing.T) {
	key := []byte("0123456789abcdef")
	if _, err := decryptAES128(make([]byte, 17), key, make([]byte, 16)); err == nil {
		t.Fatal("expected non-block-aligned segment to be rejected")
	}
}
