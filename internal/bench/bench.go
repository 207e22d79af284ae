// Package bench measures HighwayHash throughput, one-shot, streaming and
// through the arena, next to the reference algorithms in the registry.
package bench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"edu/highwayhasher/internal/arena"
	"edu/highwayhasher/internal/hashes"
	"edu/highwayhasher/internal/highway"
)

// DefaultSizes are the input lengths exercised when Options.Sizes is empty.
var DefaultSizes = []int{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000}

type Options struct {
	Sizes      []int
	Algorithms []string
	Key        []byte
	Width      highway.Width
	// Budget is roughly how many bytes each measurement hashes.
	Budget int
}

type Measurement struct {
	Name       string
	Size       int
	Iterations int
	Elapsed    time.Duration
}

// MBPerSec is the throughput in decimal megabytes per second.
func (m Measurement) MBPerSec() float64 {
	if m.Elapsed <= 0 {
		return 0
	}
	return float64(m.Size) * float64(m.Iterations) / m.Elapsed.Seconds() / 1e6
}

// iterations keeps small inputs from finishing too fast to time and large
// inputs from taking forever.
func iterations(size, budget int) int {
	n := budget / max(size, 1)
	return min(max(n, 10), 10000)
}

func timeIt(name string, size, n int, fn func() ([]byte, error)) (Measurement, []byte, error) {
	var out []byte
	start := time.Now()
	for i := 0; i < n; i++ {
		var err error
		if out, err = fn(); err != nil {
			return Measurement{}, nil, fmt.Errorf("%s, size %d: %w", name, size, err)
		}
	}
	return Measurement{Name: name, Size: size, Iterations: n, Elapsed: time.Since(start)}, out, nil
}

// Run measures every size. It fails if the one-shot, streaming and arena
// paths disagree on any digest.
func Run(ctx context.Context, opts Options) ([]Measurement, error) {
	sizes := opts.Sizes
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}
	if opts.Budget <= 0 {
		opts.Budget = 1000000
	}
	w := opts.Width
	if w == 0 {
		w = highway.Width64
	}
	key, err := highway.DeriveKey(opts.Key)
	if err != nil {
		return nil, err
	}
	refs := make([]hashes.Hasher, 0, len(opts.Algorithms))
	for _, name := range opts.Algorithms {
		h, err := hashes.Get(name)
		if err != nil {
			return nil, err
		}
		refs = append(refs, h)
	}

	ar := arena.New()
	var out []Measurement
	for _, size := range sizes {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		data := bytes.Repeat([]byte{1}, size)
		n := iterations(size, opts.Budget)

		m, oneShot, err := timeIt("highway"+w.String(), size, n, func() ([]byte, error) {
			return highway.Sum(opts.Key, data, w)
		})
		if err != nil {
			return out, err
		}
		out = append(out, m)

		m, streamed, err := timeIt("highway"+w.String()+" streaming", size, n, func() ([]byte, error) {
			s := highway.NewSession(key)
			if err := s.Append(data); err != nil {
				return nil, err
			}
			return s.Finalize(w)
		})
		if err != nil {
			return out, err
		}
		out = append(out, m)

		dst := make([]byte, w.Size())
		m, slotted, err := timeIt("highway"+w.String()+" arena", size, n, func() ([]byte, error) {
			if err := ar.Create(0, opts.Key); err != nil {
				return nil, err
			}
			if err := ar.Append(0, data); err != nil {
				return nil, err
			}
			return dst, ar.Finalize(0, w, dst)
		})
		if err != nil {
			return out, err
		}
		out = append(out, m)

		if !bytes.Equal(oneShot, streamed) || !bytes.Equal(oneShot, slotted) {
			return out, fmt.Errorf("size %d: one-shot %x, streaming %x and arena %x digests disagree", size, oneShot, streamed, slotted)
		}

		for _, h := range refs {
			m, _, err := timeIt(h.Name(), size, n, func() ([]byte, error) {
				return h.Hash(data, hashes.Params{Key: opts.Key})
			})
			if err != nil {
				return out, err
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// Render prints measurements as a table.
func Render(w io.Writer, ms []Measurement) {
	p := message.NewPrinter(language.English)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"size", "algorithm", "iterations", "MB/s"})
	for _, m := range ms {
		t.AppendRow(table.Row{
			humanize.Bytes(uint64(m.Size)),
			m.Name,
			p.Sprintf("%d", m.Iterations),
			p.Sprintf("%.2f", m.MBPerSec()),
		})
	}
	t.Render()
}
