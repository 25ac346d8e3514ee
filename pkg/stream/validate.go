package stream

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ssargent/fitfix/pkg/fit"
)

var (
	ErrChecksumMissing  = errors.New("checksum footer missing")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrTrailingBytes    = errors.New("trailing bytes after checksum")
	ErrPayloadOverrun   = errors.New("declared payload extends past end of capture")
)

// ValidateOptions selects how strict a validation pass is
type ValidateOptions struct {
	// Strict turns header integrity problems and trailing bytes into
	// failures; otherwise they are reported as warnings
	Strict    bool
	MaxDeltaT float64
}

// Verdict is the result of a full validation pass over a capture
type Verdict struct {
	*Result
	ChecksumOK bool
	Stored     uint16
	Computed   uint16
	Trailing   int // bytes after the checksum footer; negative when it is missing
	Warnings   []string
	err        error
}

// OK reports whether the capture is complete and checksum-valid
func (v *Verdict) OK() bool {
	return v.err == nil
}

// Err describes the first problem found, or nil
func (v *Verdict) Err() error {
	return v.err
}

// Validate parses buf as a complete capture: header, records filling exactly
// the declared payload, and a matching checksum footer.
func Validate(buf []byte, opts ValidateOptions) *Verdict {
	v := &Verdict{}
	v.Result = Parse(buf, Options{MaxDeltaT: opts.MaxDeltaT})

	if v.Header == nil {
		v.err = fmt.Errorf("%s header: %w", v.Outcome, v.Result.Err)
		return v
	}
	h := *v.Header

	if err := h.Verify(buf); err != nil {
		if opts.Strict {
			v.err = err
			return v
		}
		v.Warnings = append(v.Warnings, err.Error())
	}

	end := h.PayloadEnd()
	if end > len(buf) {
		v.Trailing = len(buf) - end - fit.CRCSize
		v.err = fmt.Errorf("%w: payload ends at %d, capture is %d bytes", ErrPayloadOverrun, end, len(buf))
		return v
	}
	if !v.Result.OK() {
		v.err = fmt.Errorf("%s at offset %d: %w", v.Outcome, v.End, v.Result.Err)
		return v
	}

	v.Computed = fit.CRC16(buf[:end])
	v.Trailing = len(buf) - end - fit.CRCSize
	if v.Trailing < 0 {
		v.err = fmt.Errorf("%w: %d bytes after payload", ErrChecksumMissing, len(buf)-end)
		return v
	}
	v.Stored = binary.LittleEndian.Uint16(buf[end:])
	v.ChecksumOK = v.Stored == v.Computed
	if !v.ChecksumOK {
		v.err = fmt.Errorf("%w: stored %#04x, computed %#04x", ErrChecksumMismatch, v.Stored, v.Computed)
		return v
	}

	if v.Trailing > 0 {
		msg := fmt.Errorf("%w: %d", ErrTrailingBytes, v.Trailing)
		if opts.Strict {
			v.err = msg
			return v
		}
		v.Warnings = append(v.Warnings, msg.Error())
	}

	return v
}
