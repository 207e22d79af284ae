// Package arena is a fixed table of hash sessions addressed by integer
// handles, for hosts that cannot allocate or destroy objects on their own.
//
// The table is sized once at build time to fill a single memory page and is
// never resized. Handles carry no generation: once a slot is finalized or
// released, a copy of its old handle refers to whatever the slot holds next.
// Keeping handles straight is the caller's job.
//
// An Arena is not safe for concurrent use; callers that share one across
// goroutines must serialize access themselves.
package arena

import (
	"errors"
	"fmt"
	"unsafe"

	"edu/highwayhasher/internal/highway"
)

// PageSize is the allocation unit the table is sized against: one
// WebAssembly linear-memory page.
const PageSize = 64 * 1024

type slot struct {
	occupied bool
	sess     highway.Session
}

// SlotSize is the byte size of one slot.
const SlotSize = int(unsafe.Sizeof(slot{}))

// Capacity is the number of slots that fit in one page.
const Capacity = PageSize / SlotSize

var (
	// ErrInvalidHandle is returned for a handle outside [0, Capacity).
	ErrInvalidHandle = errors.New("arena: invalid handle")
	// ErrSlotEmpty is returned when a handle points at an empty slot.
	ErrSlotEmpty = errors.New("arena: slot not occupied")
	// ErrArenaFull is returned by Acquire when every slot is occupied.
	ErrArenaFull = errors.New("arena: no free slot")
)

// Arena holds Capacity slots.
type Arena struct {
	slots [Capacity]slot
	used  int
}

// New returns an arena with every slot empty.
func New() *Arena { return new(Arena) }

// Cap returns Capacity.
func (a *Arena) Cap() int { return Capacity }

// Len returns the number of occupied slots.
func (a *Arena) Len() int { return a.used }

func (a *Arena) slot(h int) (*slot, error) {
	if h < 0 || h >= Capacity {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidHandle, h, Capacity)
	}
	return &a.slots[h], nil
}

// Occupied reports whether h names a slot holding a live session.
func (a *Arena) Occupied(h int) bool {
	s, err := a.slot(h)
	return err == nil && s.occupied
}

// Create starts a new session in slot h, replacing whatever the slot held.
// The slot is left as it was if the handle or key is rejected.
func (a *Arena) Create(h int, keyBuf []byte) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	k, err := highway.DeriveKey(keyBuf)
	if err != nil {
		return err
	}
	s.sess.Reset(k)
	if !s.occupied {
		s.occupied = true
		a.used++
	}
	return nil
}

// Acquire creates a session in the lowest empty slot and returns its handle.
func (a *Arena) Acquire(keyBuf []byte) (int, error) {
	k, err := highway.DeriveKey(keyBuf)
	if err != nil {
		return -1, err
	}
	for h := range a.slots {
		s := &a.slots[h]
		if s.occupied {
			continue
		}
		s.sess.Reset(k)
		s.occupied = true
		a.used++
		return h, nil
	}
	return -1, ErrArenaFull
}

// Append feeds p into the session in slot h.
func (a *Arena) Append(h int, p []byte) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	if !s.occupied {
		return fmt.Errorf("%w: %d", ErrSlotEmpty, h)
	}
	return s.sess.Append(p)
}

// Finalize writes the digest of width w for slot h into dst and empties the
// slot. dst must be exactly w.Size() bytes. Nothing is written and the slot
// keeps its session when any check fails.
func (a *Arena) Finalize(h int, w highway.Width, dst []byte) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	if !s.occupied {
		return fmt.Errorf("%w: %d", ErrSlotEmpty, h)
	}
	if err := s.sess.FinalizeInto(w, dst); err != nil {
		return err
	}
	a.clear(s)
	return nil
}

// Release empties slot h without producing a digest. Releasing an empty
// slot is a no-op.
func (a *Arena) Release(h int) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	if s.occupied {
		a.clear(s)
	}
	return nil
}

func (a *Arena) clear(s *slot) {
	s.sess = highway.Session{}
	s.occupied = false
	a.used--
}
