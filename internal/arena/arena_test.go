package arena

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"edu/highwayhasher/internal/highway"
)

func key(fill byte) []byte { return bytes.Repeat([]byte{fill}, 32) }

func TestCapacity(t *testing.T) {
	require.Positive(t, Capacity)
	require.LessOrEqual(t, Capacity*SlotSize, PageSize)
	require.Greater(t, (Capacity+1)*SlotSize, PageSize)
	require.Equal(t, Capacity, New().Cap())
}

func TestCreateBounds(t *testing.T) {
	a := New()
	require.ErrorIs(t, a.Create(Capacity, nil), ErrInvalidHandle)
	require.ErrorIs(t, a.Create(-1, nil), ErrInvalidHandle)
	require.Zero(t, a.Len())

	require.NoError(t, a.Create(Capacity-1, nil))
	require.True(t, a.Occupied(Capacity-1))
	require.Equal(t, 1, a.Len())
}

func TestEveryEntryPointChecksHandle(t *testing.T) {
	a := New()
	for _, h := range []int{-1, Capacity, Capacity + 100} {
		require.ErrorIs(t, a.Append(h, []byte("x")), ErrInvalidHandle)
		require.ErrorIs(t, a.Finalize(h, highway.Width64, make([]byte, 8)), ErrInvalidHandle)
		require.ErrorIs(t, a.Release(h), ErrInvalidHandle)
		require.False(t, a.Occupied(h))
	}
}

func TestEmptySlot(t *testing.T) {
	a := New()
	require.ErrorIs(t, a.Append(0, []byte("x")), ErrSlotEmpty)

	dst := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.ErrorIs(t, a.Finalize(0, highway.Width64, dst), ErrSlotEmpty)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, dst)
}

func TestMatchesSession(t *testing.T) {
	a := New()
	for _, w := range highway.Widths {
		require.NoError(t, a.Create(3, key(7)))
		require.NoError(t, a.Append(3, []byte("abcd")))
		require.NoError(t, a.Append(3, []byte("efgh")))
		dst := make([]byte, w.Size())
		require.NoError(t, a.Finalize(3, w, dst))

		want, err := highway.Sum(key(7), []byte("abcdefgh"), w)
		require.NoError(t, err)
		require.Equal(t, want, dst)
		require.False(t, a.Occupied(3))
	}
}

func TestFinalizeIsDestructive(t *testing.T) {
	a := New()
	require.NoError(t, a.Create(0, nil))
	require.NoError(t, a.Finalize(0, highway.Width64, make([]byte, 8)))
	require.ErrorIs(t, a.Finalize(0, highway.Width64, make([]byte, 8)), ErrSlotEmpty)
	require.ErrorIs(t, a.Append(0, []byte("x")), ErrSlotEmpty)
	require.Zero(t, a.Len())
}

func TestFinalizeSizeMismatchKeepsSlot(t *testing.T) {
	a := New()
	require.NoError(t, a.Create(1, nil))
	require.ErrorIs(t, a.Finalize(1, highway.Width256, make([]byte, 16)), highway.ErrDigestSize)
	require.ErrorIs(t, a.Finalize(1, highway.Width(7), make([]byte, 8)), highway.ErrInvalidWidth)
	require.True(t, a.Occupied(1))
	require.NoError(t, a.Finalize(1, highway.Width256, make([]byte, 32)))
}

func TestReuseScenario(t *testing.T) {
	a := New()
	d1 := make([]byte, 8)
	require.NoError(t, a.Create(0, key(1)))
	require.NoError(t, a.Append(0, []byte("x")))
	require.NoError(t, a.Finalize(0, highway.Width64, d1))

	d2 := make([]byte, 8)
	require.NoError(t, a.Create(0, key(2)))
	require.NoError(t, a.Append(0, []byte("x")))
	require.NoError(t, a.Finalize(0, highway.Width64, d2))

	require.NotEqual(t, d1, d2)

	want, err := highway.Sum(key(2), []byte("x"), highway.Width64)
	require.NoError(t, err)
	require.Equal(t, want, d2)
}

func TestCreateOverwritesOccupied(t *testing.T) {
	a := New()
	require.NoError(t, a.Create(5, key(1)))
	require.NoError(t, a.Append(5, []byte("stale")))
	require.NoError(t, a.Create(5, key(1)))
	require.Equal(t, 1, a.Len())

	dst := make([]byte, 16)
	require.NoError(t, a.Finalize(5, highway.Width128, dst))
	want, err := highway.Sum(key(1), nil, highway.Width128)
	require.NoError(t, err)
	require.Equal(t, want, dst)
}

func TestCreateBadKeyLeavesSlot(t *testing.T) {
	a := New()
	require.NoError(t, a.Create(2, nil))
	require.NoError(t, a.Append(2, []byte("kept")))
	require.ErrorIs(t, a.Create(2, make([]byte, 10)), highway.ErrInvalidKeyLength)

	dst := make([]byte, 8)
	require.NoError(t, a.Finalize(2, highway.Width64, dst))
	want, err := highway.Sum(nil, []byte("kept"), highway.Width64)
	require.NoError(t, err)
	require.Equal(t, want, dst)
}

func TestInterleavedSlots(t *testing.T) {
	a := New()
	require.NoError(t, a.Create(0, nil))
	require.NoError(t, a.Create(1, key(9)))
	require.NoError(t, a.Append(1, []byte{1}))
	require.NoError(t, a.Append(0, []byte{2}))

	d0, d1 := make([]byte, 8), make([]byte, 8)
	require.NoError(t, a.Finalize(0, highway.Width64, d0))
	require.NoError(t, a.Finalize(1, highway.Width64, d1))

	w0, _ := highway.Sum(nil, []byte{2}, highway.Width64)
	w1, _ := highway.Sum(key(9), []byte{1}, highway.Width64)
	require.Equal(t, w0, d0)
	require.Equal(t, w1, d1)
}

func TestAcquireRelease(t *testing.T) {
	a := New()
	h0, err := a.Acquire(nil)
	require.NoError(t, err)
	require.Equal(t, 0, h0)
	h1, err := a.Acquire(key(3))
	require.NoError(t, err)
	require.Equal(t, 1, h1)

	require.NoError(t, a.Release(h0))
	require.False(t, a.Occupied(h0))
	require.NoError(t, a.Release(h0))
	require.Equal(t, 1, a.Len())

	again, err := a.Acquire(nil)
	require.NoError(t, err)
	require.Equal(t, h0, again)

	_, err = a.Acquire([]byte{1, 2})
	require.ErrorIs(t, err, highway.ErrInvalidKeyLength)
}

func TestAcquireFull(t *testing.T) {
	a := New()
	for i := 0; i < Capacity; i++ {
		h, err := a.Acquire(nil)
		require.NoError(t, err)
		require.Equal(t, i, h)
	}
	_, err := a.Acquire(nil)
	require.ErrorIs(t, err, ErrArenaFull)
	require.Equal(t, Capacity, a.Len())
}
