package highway

import (
	"fmt"
	"strconv"
	"strings"
)

// Width is a digest width in bits.
type Width int

const (
	Width64  Width = 64
	Width128 Width = 128
	Width256 Width = 256
)

// Widths lists the supported widths, narrowest first.
var Widths = []Width{Width64, Width128, Width256}

// Valid reports whether w is one of the supported widths.
func (w Width) Valid() bool {
	return w == Width64 || w == Width128 || w == Width256
}

// Size is the digest length in bytes, or 0 for an invalid width.
func (w Width) Size() int {
	if !w.Valid() {
		return 0
	}
	return int(w) / 8
}

// Lanes is the number of 64-bit words in the digest.
func (w Width) Lanes() int { return w.Size() / 8 }

func (w Width) String() string { return strconv.Itoa(int(w)) }

// ParseWidth accepts "64", "128", "256" with an optional "highway" prefix.
func ParseWidth(s string) (Width, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "highway")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWidth, s)
	}
	w := Width(n)
	if !w.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWidth, n)
	}
	return w, nil
}

// WidthForSize maps a digest byte length back to its width.
func WidthForSize(n int) (Width, bool) {
	for _, w := range Widths {
		if w.Size() == n {
			return w, true
		}
	}
	return 0, false
}
