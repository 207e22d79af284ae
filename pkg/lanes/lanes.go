// Package lanes converts between byte buffers and the 64-bit words ("lanes")
// that make up HighwayHash keys and digests. The layout is little-endian,
// word after word, on every host.
package lanes

import (
	"encoding/binary"
	"errors"
)

// WordSize is the byte length of one lane.
const WordSize = 8

// KeySize is the byte length of a full four-lane key.
const KeySize = 4 * WordSize

var (
	// ErrShortBuffer is returned when a buffer cannot hold the lanes asked for.
	ErrShortBuffer = errors.New("lanes: buffer too short")
	// ErrSizeMismatch is returned when a destination is not exactly 8*N bytes.
	ErrSizeMismatch = errors.New("lanes: buffer size mismatch")
)

// FromBytes reads four little-endian lanes at offsets 0, 8, 16 and 24.
// Bytes past the first 32 are ignored.
func FromBytes(b []byte) ([4]uint64, error) {
	var out [4]uint64
	if len(b) < KeySize {
		return out, ErrShortBuffer
	}
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(b[i*WordSize:])
	}
	return out, nil
}

// ToBytes returns a fresh buffer of exactly 8*len(words) bytes.
func ToBytes(words []uint64) []byte {
	out := make([]byte, len(words)*WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint64(out[i*WordSize:], w)
	}
	return out
}

// PutWords writes words into dst, which must be exactly 8*len(words) bytes.
// Nothing is written on a size mismatch.
func PutWords(dst []byte, words []uint64) error {
	if len(dst) != len(words)*WordSize {
		return ErrSizeMismatch
	}
	for i, w := range words {
		binary.LittleEndian.PutUint64(dst[i*WordSize:], w)
	}
	return nil
}

// Words decodes a buffer whose length is a whole number of lanes.
func Words(b []byte) ([]uint64, error) {
	if len(b)%WordSize != 0 {
		return nil, ErrSizeMismatch
	}
	out := make([]uint64, len(b)/WordSize)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(b[i*WordSize:])
	}
	return out, nil
}
