package ssh

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripPrimitives(t *testing.T) {
	w := newBuffer(0)
	require.NoError(t, w.WriteUint8(0x42))
	require.NoError(t, w.WriteUint32(0xdeadbeef))
	require.NoError(t, w.WriteString([]byte("hello")))
	require.NoError(t, w.WriteNameList([]string{"a", "bb", "ccc"}))

	r := newReader(w.Bytes())

	b, err := r.Uint8()
	require.NoError(t, err)
	require.Equal(t, byte(0x42), b)

	u, err := r.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), u)

	s, err := r.String()
	require.NoError(t, err)
	require.Equal(t, "hello", string(s))

	names, err := r.NameList()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "bb", "ccc"}, names)
}

func TestNameListEmpty(t *testing.T) {
	w := newBuffer(0)
	require.NoError(t, w.WriteNameList(nil))
	r := newReader(w.Bytes())
	names, err := r.NameList()
	require.NoError(t, err)
	require.Nil(t, names)
}

func TestMPIntRoundTrip(t *testing.T) {
	cases := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(127),
		big.NewInt(128), // needs leading 0x00
		big.NewInt(255),
		big.NewInt(-1),
		big.NewInt(-128),
		new(big.Int).Lsh(big.NewInt(1), 1023), // near group1 prime size
	}
	for _, n := range cases {
		w := newBuffer(0)
		require.NoError(t, w.WriteMPInt(n))
		r := newReader(w.Bytes())
		got, err := r.MPInt()
		require.NoError(t, err)
		require.Equal(t, n.String(), got.String())
	}
}

func TestMPIntRejectsNonMinimalPositive(t *testing.T) {
	// 0x00 0x01: superfluous leading zero byte (0x01's high bit isn't set).
	w := newBuffer(0)
	require.NoError(t, w.WriteString([]byte{0x00, 0x01}))
	r := newReader(w.Bytes())
	_, err := r.MPInt()
	require.ErrorIs(t, err, ErrMalformed)
}

func TestMPIntRejectsNonMinimalNegative(t *testing.T) {
	// 0xff 0x80: superfluous leading 0xff (0x80's high bit is already set).
	w := newBuffer(0)
	require.NoError(t, w.WriteString([]byte{0xff, 0x80}))
	r := newReader(w.Bytes())
	_, err := r.MPInt()
	require.ErrorIs(t, err, ErrMalformed)
}

func TestReaderTruncation(t *testing.T) {
	r := newReader([]byte{0x00, 0x00, 0x00, 0x05, 'a', 'b'})
	_, err := r.String()
	require.ErrorIs(t, err, ErrMalformed)
}

func TestWriteTooLarge(t *testing.T) {
	w := newBuffer(4)
	err := w.WriteString([]byte("hello"))
	require.ErrorIs(t, err, ErrTooLarge)
}
