package hashes

import (
	"fmt"
	"sort"
)

// Params carries the per-call inputs that are not the data itself.
type Params struct {
	// Key is the raw key buffer. Unkeyed algorithms ignore it.
	Key []byte
}

type Hasher interface {
	Name() string
	// Size is the digest length in bytes.
	Size() int
	Hash(data []byte, p Params) ([]byte, error)
	Compare(target string, data []byte, p Params) (bool, error)
}

var registry = map[string]Hasher{}

func Register(h Hasher) { registry[h.Name()] = h }

func Get(name string) (Hasher, error) {
	if h, ok := registry[name]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("unknown algorithm: %s", name)
}

func List() []string {
	out := make([]string, 0, len(registry))
	for k := range registry { out = append(out, k) }
	sort.Strings(out)
	return out
}
