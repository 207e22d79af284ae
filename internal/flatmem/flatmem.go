// Package flatmem exposes the session arena through a flat, pointer-free ABI:
// every argument is an int32 handle or a uint32 offset into one fixed page
// of linear memory owned by the Module, and every result is an int32 code.
// It is the surface a runtime-less WebAssembly host links against.
package flatmem

import (
	"errors"

	"edu/highwayhasher/internal/arena"
	"edu/highwayhasher/internal/highway"
)

// MemorySize is the size of the linear memory shared with the host.
const MemorySize = arena.PageSize

// Result codes. Non-negative results are successes.
const (
	OK                int32 = 0
	CodeInvalidHandle int32 = -1
	CodeSlotEmpty     int32 = -2
	CodeInvalidKey    int32 = -3
	CodeOutOfBounds   int32 = -4
	CodeDigestSize    int32 = -5
	CodeFinalized     int32 = -6
	CodeInvalidWidth  int32 = -7
	CodeUnknown       int32 = -127
)

// ErrOutOfBounds is returned when an offset range leaves linear memory.
var ErrOutOfBounds = errors.New("flatmem: range outside linear memory")

var codes = []struct {
	err  error
	code int32
}{
	{arena.ErrInvalidHandle, CodeInvalidHandle},
	{arena.ErrSlotEmpty, CodeSlotEmpty},
	{highway.ErrInvalidKeyLength, CodeInvalidKey},
	{ErrOutOfBounds, CodeOutOfBounds},
	{highway.ErrDigestSize, CodeDigestSize},
	{highway.ErrSessionFinalized, CodeFinalized},
	{highway.ErrInvalidWidth, CodeInvalidWidth},
}

// CodeOf maps an error to its result code.
func CodeOf(err error) int32 {
	if err == nil {
		return OK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// ErrorOf maps a result code back to its sentinel error; nil for successes.
func ErrorOf(code int32) error {
	if code >= 0 {
		return nil
	}
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return errors.New("flatmem: unknown result code")
}

// Config selects how failures are reported.
type Config struct {
	// Strict reports every failure as a negative code. When false, Append
	// and Finalize return OK on failure and leave memory untouched, matching
	// hosts that have no error channel; Create still returns a negative code
	// because its result doubles as the handle.
	Strict bool
}

// Module is one instance of the linear-memory binding. Like the arena it
// wraps, it is single-threaded.
type Module struct {
	cfg   Config
	mem   [MemorySize]byte
	arena *arena.Arena
}

// New returns a module with zeroed memory and an empty arena.
func New(cfg Config) *Module {
	return &Module{cfg: cfg, arena: arena.New()}
}

// Memory is the linear memory the host reads and writes through offsets.
func (m *Module) Memory() []byte { return m.mem[:] }

// Capacity returns the number of arena slots.
func (m *Module) Capacity() int32 { return int32(arena.Capacity) }

func (m *Module) span(ptr, n uint32) ([]byte, error) {
	if uint64(ptr)+uint64(n) > MemorySize {
		return nil, ErrOutOfBounds
	}
	return m.mem[ptr : ptr+n], nil
}

func (m *Module) report(err error) int32 {
	if err == nil || m.cfg.Strict {
		return CodeOf(err)
	}
	return OK
}

// Create starts a session in slot h keyed by the keyLen bytes at keyPtr
// (zero length selects the default key). It returns h on success.
func (m *Module) Create(h int32, keyPtr, keyLen uint32) int32 {
	key, err := m.span(keyPtr, keyLen)
	if err != nil {
		return CodeOf(err)
	}
	if err := m.arena.Create(int(h), key); err != nil {
		return CodeOf(err)
	}
	return h
}

// Append feeds the n bytes at ptr into slot h.
func (m *Module) Append(h int32, ptr, n uint32) int32 {
	data, err := m.span(ptr, n)
	if err != nil {
		return m.report(err)
	}
	return m.report(m.arena.Append(int(h), data))
}

// Finalize64 writes the 8-byte digest of slot h at out and empties the slot.
func (m *Module) Finalize64(h int32, out uint32) int32 {
	return m.finalize(h, highway.Width64, out)
}

// Finalize128 writes the 16-byte digest of slot h at out.
func (m *Module) Finalize128(h int32, out uint32) int32 {
	return m.finalize(h, highway.Width128, out)
}

// Finalize256 writes the 32-byte digest of slot h at out.
func (m *Module) Finalize256(h int32, out uint32) int32 {
	return m.finalize(h, highway.Width256, out)
}

func (m *Module) finalize(h int32, w highway.Width, out uint32) int32 {
	dst, err := m.span(out, uint32(w.Size()))
	if err != nil {
		return m.report(err)
	}
	return m.report(m.arena.Finalize(int(h), w, dst))
}

// Release empties slot h without producing a digest.
func (m *Module) Release(h int32) int32 {
	return m.report(m.arena.Release(int(h)))
}
