package fit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_EncodeDecode(t *testing.T) {
	testCases := []struct {
		name string
		size uint8
	}{
		{name: "legacy 12 byte header", size: MinHeaderSize},
		{name: "14 byte header", size: HeaderSizeWithCRC},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHeader(tc.size, 0x10, 2093, 1234)
			encoded := h.Encode()
			require.Len(t, encoded, int(tc.size))

			decoded, err := DecodeHeader(encoded)
			require.NoError(t, err)

			assert.Equal(t, tc.size, decoded.Size)
			assert.Equal(t, uint8(0x10), decoded.ProtocolVersion)
			assert.Equal(t, uint16(2093), decoded.ProfileVersion)
			assert.Equal(t, uint32(1234), decoded.DataSize)
			assert.Equal(t, DataType, decoded.DataType)
			assert.Equal(t, int(tc.size)+1234, decoded.PayloadEnd())
			assert.NoError(t, decoded.Verify(encoded))
		})
	}
}

func TestNewHeader_Defaults(t *testing.T) {
	h := NewHeader(0, 0, 0, 0)

	assert.Equal(t, uint8(HeaderSizeWithCRC), h.Size)
	assert.Equal(t, DefaultProtocolVersion, h.ProtocolVersion)
	assert.Equal(t, DefaultProfileVersion, h.ProfileVersion)
}

func TestDecodeHeader_Errors(t *testing.T) {
	valid := NewHeader(HeaderSizeWithCRC, 0, 0, 10).Encode()

	testCases := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: ErrTruncated},
		{name: "size below minimum", data: []byte{11, 0, 0, 0}, want: ErrMalformed},
		{name: "shorter than declared size", data: valid[:10], want: ErrTruncated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeHeader(tc.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestHeader_Verify(t *testing.T) {
	t.Run("bad data type", func(t *testing.T) {
		encoded := NewHeader(HeaderSizeWithCRC, 0, 0, 10).Encode()
		copy(encoded[8:12], "JUNK")

		h, err := DecodeHeader(encoded)
		require.NoError(t, err)
		assert.ErrorIs(t, h.Verify(encoded), ErrDataType)
	})

	t.Run("header crc mismatch", func(t *testing.T) {
		encoded := NewHeader(HeaderSizeWithCRC, 0, 0, 10).Encode()
		encoded[4]++ // change the data size without resealing

		h, err := DecodeHeader(encoded)
		require.NoError(t, err)
		assert.ErrorIs(t, h.Verify(encoded), ErrHeaderCRC)
	})

	t.Run("zero header crc is accepted", func(t *testing.T) {
		encoded := NewHeader(HeaderSizeWithCRC, 0, 0, 10).Encode()
		encoded[12], encoded[13] = 0, 0

		h, err := DecodeHeader(encoded)
		require.NoError(t, err)
		assert.NoError(t, h.Verify(encoded))
	})
}
