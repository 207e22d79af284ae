package hashes

import (
	"bytes"
	"encoding/hex"
	"strings"

	"edu/highwayhasher/internal/highway"
)

// highwayHasher exposes one HighwayHash width through the registry.
type highwayHasher struct{ width highway.Width }

func (h highwayHasher) Name() string { return "highway" + h.width.String() }

func (h highwayHasher) Size() int { return h.width.Size() }

func (h highwayHasher) Hash(data []byte, p Params) ([]byte, error) {
	return highway.Sum(p.Key, data, h.width)
}

func (h highwayHasher) Compare(target string, data []byte, p Params) (bool, error) {
	th, ok := decodeTargetHex(target, h.Size())
	if !ok {
		return false, nil
	}
	sum, err := h.Hash(data, p)
	if err != nil {
		return false, err
	}
	return bytes.Equal(sum, th), nil
}

// HighwayName returns the registry name for a width.
func HighwayName(w highway.Width) string { return highwayHasher{w}.Name() }

// IsHighway reports whether name is one of the HighwayHash entries.
func IsHighway(name string) bool { return strings.HasPrefix(name, "highway") }

// Decode hex target, accepting an optional 0x prefix, when it has the expected length.
func decodeTargetHex(target string, size int) ([]byte, bool) {
	t := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(target)), "0x")
	if size == 0 || len(t) != size*2 { return nil, false }
	out := make([]byte, size)
	if _, err := hex.Decode(out, []byte(t)); err != nil { return nil, false }
	return out, true
}

func init() {
	for _, w := range highway.Widths {
		Register(highwayHasher{w})
	}
}
