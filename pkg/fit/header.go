package fit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

const (
	// MinHeaderSize is the smallest header able to hold every declared field
	MinHeaderSize = 12
	// HeaderSizeWithCRC is the header size that carries a header checksum
	HeaderSizeWithCRC = 14

	// DefaultProtocolVersion is written into synthetic headers (2.0)
	DefaultProtocolVersion uint8 = 0x20
	// DefaultProfileVersion is written into synthetic headers (21.32)
	DefaultProfileVersion uint16 = 2132
)

// DataType is the tag every FIT header carries at offset 8
var DataType = [4]byte{'.', 'F', 'I', 'T'}

var (
	ErrTruncated = errors.New("truncated")
	ErrMalformed = errors.New("malformed")

	ErrDataType  = errors.New("header data type is not .FIT")
	ErrHeaderCRC = errors.New("header checksum mismatch")
)

// Header is the fixed leading structure of a capture
type Header struct {
	Size            uint8   // Header length in bytes
	ProtocolVersion uint8   // Protocol version
	ProfileVersion  uint16  // Profile version
	DataSize        uint32  // Declared payload size in bytes
	DataType        [4]byte // Expected to be ".FIT"
	CRC             uint16  // Header checksum (14-byte headers only)
}

// HasCRC reports whether the header is large enough to carry a checksum
func (h Header) HasCRC() bool {
	return h.Size >= HeaderSizeWithCRC
}

// PayloadEnd returns the offset just past the declared payload, which is
// where the checksum footer starts
func (h Header) PayloadEnd() int {
	return int(h.Size) + int(h.DataSize)
}

// DecodeHeader reads the header at the start of buf
func DecodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) == 0 {
		return h, fmt.Errorf("%w: empty capture", ErrTruncated)
	}
	if buf[0] < MinHeaderSize {
		return h, fmt.Errorf("%w: header size %d is below %d", ErrMalformed, buf[0], MinHeaderSize)
	}
	if len(buf) < int(buf[0]) {
		return h, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, buf[0], len(buf))
	}

	ks := kaitai.NewStream(bytes.NewReader(buf[:buf[0]]))

	var err error
	if h.Size, err = ks.ReadU1(); err != nil {
		return h, fmt.Errorf("%w: header size: %v", ErrTruncated, err)
	}
	if h.ProtocolVersion, err = ks.ReadU1(); err != nil {
		return h, fmt.Errorf("%w: protocol version: %v", ErrTruncated, err)
	}
	if h.ProfileVersion, err = ks.ReadU2le(); err != nil {
		return h, fmt.Errorf("%w: profile version: %v", ErrTruncated, err)
	}
	if h.DataSize, err = ks.ReadU4le(); err != nil {
		return h, fmt.Errorf("%w: data size: %v", ErrTruncated, err)
	}
	tag, err := ks.ReadBytes(len(h.DataType))
	if err != nil {
		return h, fmt.Errorf("%w: data type: %v", ErrTruncated, err)
	}
	copy(h.DataType[:], tag)

	if h.HasCRC() {
		if h.CRC, err = ks.ReadU2le(); err != nil {
			return h, fmt.Errorf("%w: header crc: %v", ErrTruncated, err)
		}
	}

	return h, nil
}

// Verify checks the data type tag and, when present and set, the header
// checksum. buf must start with the header h was decoded from.
func (h Header) Verify(buf []byte) error {
	if h.DataType != DataType {
		return fmt.Errorf("%w: %q", ErrDataType, h.DataType[:])
	}
	if h.HasCRC() && h.CRC != 0 && len(buf) >= MinHeaderSize {
		if crc := CRC16(buf[:MinHeaderSize]); crc != h.CRC {
			return fmt.Errorf("%w: stored %#04x, computed %#04x", ErrHeaderCRC, h.CRC, crc)
		}
	}
	return nil
}

// Encode serializes the header. Headers of 14 bytes or more get a freshly
// computed header checksum; bytes past the checksum are zero.
func (h Header) Encode() []byte {
	size := int(h.Size)
	if size < MinHeaderSize {
		size = MinHeaderSize
	}

	buf := make([]byte, size)
	buf[0] = byte(size)
	buf[1] = h.ProtocolVersion
	binary.LittleEndian.PutUint16(buf[2:], h.ProfileVersion)
	binary.LittleEndian.PutUint32(buf[4:], h.DataSize)
	copy(buf[8:12], h.DataType[:])

	if size >= HeaderSizeWithCRC {
		binary.LittleEndian.PutUint16(buf[12:], CRC16(buf[:MinHeaderSize]))
	}

	return buf
}

// NewHeader returns a header of the given size declaring dataSize payload
// bytes. Zero versions are replaced by the defaults.
func NewHeader(size uint8, protocol uint8, profile uint16, dataSize uint32) Header {
	if size == 0 {
		size = HeaderSizeWithCRC
	}
	if protocol == 0 {
		protocol = DefaultProtocolVersion
	}
	if profile == 0 {
		profile = DefaultProfileVersion
	}
	return Header{
		Size:            size,
		ProtocolVersion: protocol,
		ProfileVersion:  profile,
		DataSize:        dataSize,
		DataType:        DataType,
	}
}
