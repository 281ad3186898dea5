package stream

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_RoundTrip(t *testing.T) {
	testCases := []Header{
		{Version: 0, DataOffset: 0},
		{Version: 1, DataOffset: 30},
		{Version: 0xBEEF, DataOffset: 1 << 40},
		{Version: math.MaxUint16, DataOffset: math.MaxUint64},
	}

	for _, want := range testCases {
		got, err := ReadHeader(bytes.NewReader(EncodeHeader(want)))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestReadHeader_BigEndian(t *testing.T) {
	buf := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0xAA}
	h, err := ReadHeader(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, uint16(2), h.Version)
	assert.Equal(t, uint64(256), h.DataOffset)
}

func TestReadHeader_Truncated(t *testing.T) {
	for _, n := range []int{0, 1, 9} {
		_, err := ReadHeader(bytes.NewReader(make([]byte, n)))
		var truncErr *TruncatedInputError
		require.True(t, errors.As(err, &truncErr), "len %d", n)
		assert.Equal(t, int64(HeaderSize), truncErr.Need)
		assert.Equal(t, int64(n), truncErr.Have)
	}

	_, err := ParseHeader([]byte{1, 2, 3})
	var truncErr *TruncatedInputError
	assert.True(t, errors.As(err, &truncErr))
}
