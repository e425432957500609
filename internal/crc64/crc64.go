// Package crc64 implements the CRC-64 variant used by the RDB file format's
// trailing checksum: the Jones polynomial (0xad93d23594c935a9), reflected
// input and output, zero initial value and zero xorout — matching what
// redis-server computes over an RDB payload.
package crc64

// polyReflected is the bit-reflection of the Jones polynomial
// 0xad93d23594c935a9, precomputed once since reflection only depends on the
// constant, not on input data.
const polyReflected = 0x95ac9329ac4bc9b5

var table [256]uint64

func init() {
	for i := 0; i < 256; i++ {
		crc := uint64(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ polyReflected
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
}

// Hash64 is an incremental CRC-64 accumulator. The zero value is an empty
// accumulator, the same state New returns.
type Hash64 struct {
	crc uint64
}

// New returns a Hash64 ready to accumulate bytes.
func New() *Hash64 {
	return &Hash64{}
}

// Write feeds p into the running checksum. It never returns an error.
func (h *Hash64) Write(p []byte) (int, error) {
	crc := h.crc
	for _, b := range p {
		crc = table[byte(crc)^b] ^ (crc >> 8)
	}
	h.crc = crc
	return len(p), nil
}

// Sum64 returns the checksum of all bytes written so far.
func (h *Hash64) Sum64() uint64 {
	return h.crc
}

// Checksum is a convenience one-shot form of New().Write(data).Sum64().
func Checksum(data []byte) uint64 {
	h := New()
	_, _ = h.Write(data)
	return h.Sum64()
}
