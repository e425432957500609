package crc64

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestChecksumMatchesJonesVector checks the CRC-64/Jones test vector the
// RDB checksum trailer is built against: Checksum("123456789") must equal
// 0xe9c6d914c4b8d9ca (16845390139448941002 in decimal).
func TestChecksumMatchesJonesVector(t *testing.T) {
	assert.Equal(t, uint64(16845390139448941002), Checksum([]byte("123456789")))
}

func TestWriteIncrementallyMatchesOneShot(t *testing.T) {
	h := New()
	_, _ = h.Write([]byte("123"))
	_, _ = h.Write([]byte("456789"))
	assert.Equal(t, Checksum([]byte("123456789")), h.Sum64())
}

func TestChecksumOfEmptyInputIsZero(t *testing.T) {
	assert.Equal(t, uint64(0), Checksum(nil))
}
