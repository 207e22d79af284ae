// Package highway wraps the HighwayHash accumulator with the key handling,
// digest widths and single-use session rules shared by every host surface.
package highway

import (
	"encoding/hex"
	"fmt"
	"strings"

	"edu/highwayhasher/pkg/lanes"
)

// Key is the four-lane HighwayHash key.
type Key [4]uint64

// DefaultKey is used whenever a caller supplies no key bytes.
var DefaultKey = Key{}

// DeriveKey normalizes a key buffer. An empty buffer yields DefaultKey; any
// other buffer must hold at least 32 bytes, of which the first 32 are used.
func DeriveKey(b []byte) (Key, error) {
	if len(b) == 0 {
		return DefaultKey, nil
	}
	l, err := lanes.FromBytes(b)
	if err != nil {
		return Key{}, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyLength, len(b))
	}
	return Key(l), nil
}

// ParseKey decodes a hex key as typed on a command line or query string.
// Hosts accept either no key or exactly 32 bytes.
func ParseKey(s string) (Key, error) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "0x")
	if s == "" {
		return DefaultKey, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(b) != lanes.KeySize {
		return Key{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(b), lanes.KeySize)
	}
	return DeriveKey(b)
}

// Bytes returns the 32-byte little-endian wire form.
func (k Key) Bytes() []byte { return lanes.ToBytes(k[:]) }

func (k Key) String() string { return hex.EncodeToString(k.Bytes()) }
