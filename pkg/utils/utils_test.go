package utils

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedAlignTo(t *testing.T) {
	for _, tc := range []struct {
		val, align, want uint64
	}{
		{0, 0x1000, 0},
		{1, 0x1000, 0x1000},
		{0x1000, 0x1000, 0x1000},
		{0x1001, 0x1000, 0x2000},
		{0x2000, 0, 0x2000},
		{7, 8, 8},
	} {
		got, ok := CheckedAlignTo(tc.val, tc.align)
		assert.True(t, ok)
		assert.Equal(t, tc.want, got, "CheckedAlignTo(%#x, %#x)", tc.val, tc.align)
	}
}

func TestCheckedAlignToOverflow(t *testing.T) {
	_, ok := CheckedAlignTo(math.MaxUint64-10, 0x1000)
	assert.False(t, ok)

	got, ok := CheckedAlignTo(math.MaxUint64-0xfff, 0x1000)
	require.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64-0xfff), got)
}

func TestCheckedAdd(t *testing.T) {
	sum, ok := CheckedAdd(1, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), sum)

	_, ok = CheckedAdd(math.MaxUint64, 1)
	assert.False(t, ok)
}

func TestHasSingleBit(t *testing.T) {
	assert.True(t, HasSingleBit(1))
	assert.True(t, HasSingleBit(0x1000))
	assert.False(t, HasSingleBit(0))
	assert.False(t, HasSingleBit(0x1800))
}

type pair struct {
	A uint32
	B uint64
}

func TestReadWrite(t *testing.T) {
	buf := make([]byte, 12)
	require.NoError(t, Write(buf, pair{A: 0xdeadbeef, B: 0x0102030405060708}))
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde, 8, 7, 6, 5, 4, 3, 2, 1}, buf)

	got, err := Read[pair](buf)
	require.NoError(t, err)
	assert.Equal(t, pair{A: 0xdeadbeef, B: 0x0102030405060708}, got)

	_, err = Read[pair](buf[:5])
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	assert.ErrorIs(t, Write(buf[:4], pair{}), io.ErrShortBuffer)
}
