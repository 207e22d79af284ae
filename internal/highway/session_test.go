package highway

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	k, err := DeriveKey(testKey())
	require.NoError(t, err)
	return NewSession(k)
}

func TestKnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		width Width
		want  []byte
	}{
		{"dataless 64", nil, Width64, []byte{83, 110, 194, 34, 222, 86, 122, 144}},
		{"dataless 128", nil, Width128, []byte{199, 254, 143, 157, 143, 38, 237, 15, 111, 62, 9, 127, 118, 94, 86, 51}},
		{"dataless 256", nil, Width256, []byte{
			245, 116, 200, 194, 42, 72, 68, 221, 31, 53, 199, 19, 115, 1, 70, 217,
			255, 20, 135, 185, 204, 190, 174, 179, 244, 29, 117, 69, 49, 35, 218, 65,
		}},
		{"64", []byte{0}, Width64, []byte{120, 221, 205, 199, 170, 67, 171, 126}},
		{"128", []byte{0}, Width128, []byte{168, 231, 129, 54, 137, 168, 176, 214, 180, 220, 156, 235, 249, 29, 41, 220}},
		{"256", []byte{0}, Width256, []byte{
			84, 130, 95, 228, 188, 65, 185, 237, 15, 198, 202, 61, 239, 68, 13, 226,
			71, 74, 50, 203, 155, 27, 101, 114, 132, 228, 117, 178, 76, 98, 115, 32,
		}},
		{"one", []byte{1}, Width64, []byte{85, 188, 95, 74, 133, 192, 47, 84}},
		{"two bytes", []byte{0, 1}, Width64, []byte{98, 61, 181, 176, 154, 86, 208, 184}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			require.NoError(t, s.Append(tt.data))
			got, err := s.Finalize(tt.width)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			oneShot, err := Sum(testKey(), tt.data, tt.width)
			require.NoError(t, err)
			require.Equal(t, tt.want, oneShot)
		})
	}
}

func TestAppendMultipleTimes(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Append([]byte{0}))
	require.NoError(t, s.Append([]byte{1}))
	got, err := s.Finalize(Width64)
	require.NoError(t, err)
	require.Equal(t, []byte{98, 61, 181, 176, 154, 86, 208, 184}, got)
}

func TestChunkingInvariance(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i * 7)
	}
	for _, w := range Widths {
		want, err := Sum(testKey(), data, w)
		require.NoError(t, err)

		for _, chunk := range []int{1, 3, 31, 32, 33, 64, 299} {
			s := newTestSession(t)
			for i := 0; i < len(data); i += chunk {
				end := min(i+chunk, len(data))
				require.NoError(t, s.Append(data[i:end]))
			}
			require.NoError(t, s.Append(nil))
			got, err := s.Finalize(w)
			require.NoError(t, err)
			require.Equal(t, want, got, "width %d chunk %d", w, chunk)
		}
	}

	a := newTestSession(t)
	require.NoError(t, a.Append([]byte("abcdefgh")))
	b := newTestSession(t)
	require.NoError(t, b.Append([]byte("abcd")))
	require.NoError(t, b.Append([]byte("efgh")))
	da, err := a.Finalize(Width64)
	require.NoError(t, err)
	db, err := b.Finalize(Width64)
	require.NoError(t, err)
	require.Equal(t, da, db)
}

func TestWidthLengths(t *testing.T) {
	for _, w := range Widths {
		s := NewSession(DefaultKey)
		require.NoError(t, s.Append([]byte("payload")))
		d, err := s.Finalize(w)
		require.NoError(t, err)
		require.Len(t, d, w.Size())

		empty, err := Sum(nil, nil, w)
		require.NoError(t, err)
		require.Len(t, empty, w.Size())
	}
}

func TestEmptyInputDeterministic(t *testing.T) {
	a, err := Sum(testKey(), nil, Width256)
	require.NoError(t, err)
	b, err := Sum(testKey(), []byte{}, Width256)
	require.NoError(t, err)
	require.Len(t, a, 32)
	require.Equal(t, a, b)
}

func TestDefaultKeyDeterministic(t *testing.T) {
	k1, err := DeriveKey(nil)
	require.NoError(t, err)
	k2, err := DeriveKey([]byte{})
	require.NoError(t, err)
	require.Equal(t, k1, k2)
	require.Equal(t, DefaultKey, k1)

	a, err := Sum(nil, []byte("data"), Width64)
	require.NoError(t, err)
	b, err := Sum(nil, []byte("data"), Width64)
	require.NoError(t, err)
	require.Equal(t, a, b)

	keyed, err := Sum(testKey(), []byte("data"), Width64)
	require.NoError(t, err)
	require.NotEqual(t, a, keyed)
}

func TestFinalizeTwice(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Finalize(Width64)
	require.NoError(t, err)
	require.Equal(t, Finalized, s.State())

	_, err = s.Finalize(Width64)
	require.ErrorIs(t, err, ErrSessionFinalized)
	_, err = s.Finalize(Width256)
	require.ErrorIs(t, err, ErrSessionFinalized)
	require.ErrorIs(t, s.Append([]byte("x")), ErrSessionFinalized)

	n, err := s.Write([]byte("x"))
	require.ErrorIs(t, err, ErrSessionFinalized)
	require.Zero(t, n)
}

func TestFinalizeIntoSizeMismatch(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Append([]byte{0}))

	err := s.FinalizeInto(Width128, make([]byte, 8))
	require.ErrorIs(t, err, ErrDigestSize)
	require.Equal(t, Active, s.State())

	dst := make([]byte, 16)
	require.NoError(t, s.FinalizeInto(Width128, dst))
	require.Equal(t, []byte{168, 231, 129, 54, 137, 168, 176, 214, 180, 220, 156, 235, 249, 29, 41, 220}, dst)
}

func TestInvalidWidth(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Finalize(Width(32))
	require.ErrorIs(t, err, ErrInvalidWidth)
	require.Equal(t, Active, s.State())

	_, err = Sum(nil, nil, Width(512))
	require.ErrorIs(t, err, ErrInvalidWidth)
}

func TestResetReusesSession(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Append([]byte("first")))
	_, err := s.Finalize(Width64)
	require.NoError(t, err)

	k, err := DeriveKey(testKey())
	require.NoError(t, err)
	s.Reset(k)
	require.Equal(t, Active, s.State())
	require.Zero(t, s.Len())
	require.NoError(t, s.Append([]byte{0}))
	got, err := s.Finalize(Width64)
	require.NoError(t, err)
	require.Equal(t, []byte{120, 221, 205, 199, 170, 67, 171, 126}, got)
}

func TestWriterInterface(t *testing.T) {
	s := newTestSession(t)
	n, err := bytes.NewReader([]byte("abcdefgh")).WriteTo(s)
	require.NoError(t, err)
	require.EqualValues(t, 8, n)
	require.EqualValues(t, 8, s.Len())

	want, err := Sum(testKey(), []byte("abcdefgh"), Width128)
	require.NoError(t, err)
	got, err := s.Finalize(Width128)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
