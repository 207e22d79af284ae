package hashes

import (
	"fmt"
	"regexp"
	"strings"
)

var reHex = regexp.MustCompile(`^(0x)?[0-9a-fA-F]+$`)

// Validate checks that target looks like a digest of algo: hex, of the
// algorithm's digest length. The message explains a mismatch.
func Validate(algo, target string) (bool, string) {
	t := strings.TrimSpace(target)
	a := strings.ToLower(strings.TrimSpace(algo))
	h, err := Get(a)
	if err != nil {
		return false, err.Error()
	}
	if !reHex.MatchString(t) {
		return false, a + " digest must be hex"
	}
	want := h.Size() * 2
	if n := len(strings.TrimPrefix(strings.ToLower(t), "0x")); n != want {
		return false, fmt.Sprintf("%s must be %d hex chars, got %d", a, want, n)
	}
	return true, ""
}
