package repair

import (
	"encoding/binary"
	"fmt"

	"github.com/ssargent/fitfix/pkg/fit"
	"github.com/ssargent/fitfix/pkg/stream"
)

// AddHeader prepends a synthetic header declaring the whole of buf as
// payload. Use FixHeader afterwards to account for a checksum footer.
func AddHeader(buf []byte, spec HeaderSpec) []byte {
	h := fit.NewHeader(spec.Size, spec.ProtocolVersion, spec.ProfileVersion, uint32(len(buf)))
	out := h.Encode()
	return append(out, buf...)
}

// FixHeader rewrites the header at the start of buf: versions (when set
// in the HeaderSpec), the data type tag, the declared payload size and the header
// checksum. Payload bytes are copied unchanged. The payload size is the
// number of bytes after the header, less a checksum footer if the records
// stop two bytes short of the end.
func FixHeader(buf []byte, spec HeaderSpec) ([]byte, error) {
	size, err := headerSize(buf)
	if err != nil {
		return nil, err
	}

	h, err := fit.DecodeHeader(buf)
	if err != nil {
		return nil, &Error{Kind: KindRecovery, Err: err}
	}
	if spec.ProtocolVersion != 0 {
		h.ProtocolVersion = spec.ProtocolVersion
	}
	if spec.ProfileVersion != 0 {
		h.ProfileVersion = spec.ProfileVersion
	}
	h.DataType = fit.DataType
	h.DataSize = uint32(payloadSize(buf, size))

	out := make([]byte, len(buf))
	copy(out, h.Encode())
	copy(out[size:], buf[size:])
	return out, nil
}

// payloadSize works out how many bytes after the header are records
func payloadSize(buf []byte, size int) int {
	n := len(buf) - size
	res := stream.Parse(buf, stream.Options{Start: size, Headerless: true, Limit: len(buf)})
	switch {
	case res.OK():
		return n
	case res.End == len(buf)-fit.CRCSize:
		return n - fit.CRCSize
	case n >= fit.CRCSize:
		// unparseable: assume the footer is present
		return n - fit.CRCSize
	default:
		return n
	}
}

// FixChecksum replaces whatever follows the declared payload with a freshly
// computed checksum. A payload declared longer than buf is checksummed up to
// the end of buf.
func FixChecksum(buf []byte) ([]byte, error) {
	if _, err := headerSize(buf); err != nil {
		return nil, err
	}
	h, err := fit.DecodeHeader(buf)
	if err != nil {
		return nil, &Error{Kind: KindRecovery, Err: err}
	}

	end := min(h.PayloadEnd(), len(buf))
	out := make([]byte, end, end+fit.CRCSize)
	copy(out, buf[:end])
	return binary.LittleEndian.AppendUint16(out, fit.CRC16(out)), nil
}

func headerSize(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, recoveryError("empty buffer has no header")
	}
	size := int(buf[0])
	if size < fit.MinHeaderSize {
		return 0, recoveryError("header size %d is below %d", size, fit.MinHeaderSize)
	}
	if len(buf) < size {
		return 0, recoveryError("buffer of %d bytes is shorter than its %d byte header", len(buf), size)
	}
	return size, nil
}

// HeaderSummary is a one-line description of the header at the start of buf
func HeaderSummary(buf []byte) string {
	h, err := fit.DecodeHeader(buf)
	if err != nil {
		return fmt.Sprintf("no header (%v)", err)
	}
	return fmt.Sprintf("size=%d protocol=%#02x profile=%d data=%d type=%q crc=%#04x",
		h.Size, h.ProtocolVersion, h.ProfileVersion, h.DataSize, h.DataType[:], h.CRC)
}
