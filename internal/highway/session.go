package highway

import (
	"fmt"
	"hash"

	"github.com/minio/highwayhash"

	"edu/highwayhasher/pkg/lanes"
)

// State is the lifecycle position of a Session.
type State uint8

const (
	// Active sessions accept Append and one Finalize.
	Active State = iota + 1
	// Finalized sessions have produced their digest and reject further use.
	Finalized
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Finalized:
		return "finalized"
	}
	return "unset"
}

// Session is one streaming hash computation. The output width is picked at
// Finalize, and highwayhash binds the finalization rounds to the digest size
// at construction, so a session feeds one accumulator per width.
//
// The zero value rejects every call until Reset.
// A Session is not safe for concurrent use.
type Session struct {
	h64   hash.Hash64
	h128  hash.Hash
	h256  hash.Hash
	n     uint64
	state State
}

// NewSession starts a session keyed with k.
func NewSession(k Key) *Session {
	s := new(Session)
	s.init(k)
	return s
}

// init (re)initializes s in place; the key is only used to seed the
// accumulators and is not kept.
func (s *Session) init(k Key) {
	kb := k.Bytes()
	// kb is always 32 bytes, the only size highwayhash rejects.
	s.h64, _ = highwayhash.New64(kb)
	s.h128, _ = highwayhash.New128(kb)
	s.h256, _ = highwayhash.New(kb)
	s.n = 0
	s.state = Active
}

// Reset re-keys s and makes it Active again, whatever its previous state.
func (s *Session) Reset(k Key) { s.init(k) }

// State reports whether s can still be appended to.
func (s *Session) State() State { return s.state }

// Len is the number of bytes appended so far.
func (s *Session) Len() uint64 { return s.n }

// Append feeds p into the session. Empty input is allowed.
func (s *Session) Append(p []byte) error {
	if s.state != Active {
		return ErrSessionFinalized
	}
	// hash.Hash writes never fail.
	_, _ = s.h64.Write(p)
	_, _ = s.h128.Write(p)
	_, _ = s.h256.Write(p)
	s.n += uint64(len(p))
	return nil
}

// Write implements io.Writer on top of Append.
func (s *Session) Write(p []byte) (int, error) {
	if err := s.Append(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Finalize returns the digest of width w and consumes the session.
func (s *Session) Finalize(w Width) ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, int(w))
	}
	out := make([]byte, w.Size())
	if err := s.FinalizeInto(w, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FinalizeInto writes the digest of width w into dst, which must be exactly
// w.Size() bytes. The session is left untouched when validation fails.
func (s *Session) FinalizeInto(w Width, dst []byte) error {
	if s.state != Active {
		return ErrSessionFinalized
	}
	if !w.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, int(w))
	}
	if len(dst) != w.Size() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrDigestSize, len(dst), w.Size())
	}
	switch w {
	case Width64:
		if err := lanes.PutWords(dst, []uint64{s.h64.Sum64()}); err != nil {
			return err
		}
	case Width128:
		copy(dst, s.h128.Sum(nil))
	case Width256:
		copy(dst, s.h256.Sum(nil))
	}
	s.state = Finalized
	s.h64, s.h128, s.h256 = nil, nil, nil
	return nil
}

// Sum hashes data in one shot under the key derived from keyBuf.
func Sum(keyBuf, data []byte, w Width) ([]byte, error) {
	k, err := DeriveKey(keyBuf)
	if err != nil {
		return nil, err
	}
	switch w {
	case Width64:
		return lanes.ToBytes([]uint64{Sum64(k, data)}), nil
	case Width128:
		d := Sum128(k, data)
		return d[:], nil
	case Width256:
		d := Sum256(k, data)
		return d[:], nil
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, int(w))
}

// Sum64 returns the 64-bit digest as a lane value.
func Sum64(k Key, data []byte) uint64 {
	return highwayhash.Sum64(data, k.Bytes())
}

// Sum128 returns the 16-byte digest.
func Sum128(k Key, data []byte) [16]byte {
	return highwayhash.Sum128(data, k.Bytes())
}

// Sum256 returns the 32-byte digest.
func Sum256(k Key, data []byte) [32]byte {
	return highwayhash.Sum(data, k.Bytes())
}
