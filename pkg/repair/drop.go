package repair

import (
	"encoding/binary"

	"github.com/ssargent/fitfix/pkg/fit"
	"github.com/ssargent/fitfix/pkg/stream"
)

// Window is a span excised by drop recovery, in the coordinates of the
// buffer it was removed from
type Window struct {
	Start  int
	Length int
}

// End returns the offset just past the window
func (w Window) End() int {
	return w.Start + w.Length
}

// Report summarizes a recovery
type Report struct {
	Drops   []Window
	Records int // Records in the recovered buffer
}

// Dropped returns the total number of bytes excised
func (r Report) Dropped() int {
	n := 0
	for _, w := range r.Drops {
		n += w.Length
	}
	return n
}

// Recover removes corrupt spans from buf until every byte after the header
// parses as records, optionally followed by a two byte checksum footer.
//
// The search is greedy. At the failure offset O it tries resync offsets c
// from O to O+MaxFwdLen in turn, and for each c drop starts at O and then at
// the MaxBackCnt record boundaries before O. The first (start, c) pair after
// which MinSyncCnt records parse, or where c is the end of the buffer, is
// excised. buf is never modified; each drop produces a new snapshot.
//
// A buffer whose records fill the declared payload and whose checksum footer
// matches is returned as is.
func Recover(buf []byte, plan *Plan) ([]byte, Report, error) {
	var report Report
	b := plan.Bounds()

	h, err := fit.DecodeHeader(buf)
	if err != nil {
		return nil, report, recoveryError("cannot recover without a header: %w", err)
	}
	body := int(h.Size)

	if n, ok := sealed(buf, h, b); ok {
		report.Records = n
		return buf, report, nil
	}

	work := buf
	for {
		res := stream.Parse(work, stream.Options{
			Start:        body,
			Headerless:   true,
			Limit:        len(work),
			MaxRecordLen: b.MaxRecordLen,
			MaxDeltaT:    b.MaxDeltaT,
			Checkpoints:  b.MaxBackCnt + 1,
		})
		if parsedToEnd(res, len(work)) {
			report.Records = len(res.Records)
			return work, report, nil
		}

		if len(report.Drops) >= b.MaxDropCnt {
			return nil, report, recoveryError("%s at offset %d after %d drops (max %d): %v",
				res.Outcome, res.End, len(report.Drops), b.MaxDropCnt, res.Err)
		}

		w, ok := findSync(work, res, b)
		if !ok {
			return nil, report, recoveryError("no sync point within %d bytes of offset %d (%s: %v)",
				b.MaxFwdLen, res.End, res.Outcome, res.Err)
		}

		work = excise(work, w)
		report.Drops = append(report.Drops, w)
	}
}

// sealed reports whether records fill exactly the payload declared by h and
// are followed by a matching checksum footer, returning the record count
func sealed(buf []byte, h fit.Header, b Bounds) (int, bool) {
	end := h.PayloadEnd()
	if end+fit.CRCSize != len(buf) {
		return 0, false
	}
	res := stream.Parse(buf, stream.Options{
		Start:        int(h.Size),
		Headerless:   true,
		Limit:        end,
		MaxRecordLen: b.MaxRecordLen,
		MaxDeltaT:    b.MaxDeltaT,
	})
	if !res.OK() || res.End != end {
		return 0, false
	}
	if binary.LittleEndian.Uint16(buf[end:]) != fit.CRC16(buf[:end]) {
		return 0, false
	}
	return len(res.Records), true
}

// parsedToEnd reports whether the records run to the end of the buffer or
// stop where a checksum footer would start
func parsedToEnd(res *stream.Result, n int) bool {
	if res.OK() {
		return true
	}
	return res.End == n-fit.CRCSize && res.Outcome != stream.TimeAnomaly
}

func findSync(work []byte, res *stream.Result, b Bounds) (Window, bool) {
	fail := res.End
	last := min(fail+b.MaxFwdLen, len(work))

	for c := fail; c <= last; c++ {
		for _, cp := range res.Checkpoints {
			s := cp.Offset
			if s == c {
				continue
			}
			if syncsAt(work, c, cp.State, b) {
				return Window{Start: s, Length: c - s}, true
			}
		}
	}
	return Window{}, false
}

func syncsAt(work []byte, c int, st fit.State, b Bounds) bool {
	if c == len(work) {
		return true
	}
	res := stream.Parse(work, stream.Options{
		Start:        c,
		Headerless:   true,
		Limit:        len(work),
		State:        st,
		MaxRecords:   b.MinSyncCnt,
		MaxRecordLen: b.MaxRecordLen,
		MaxDeltaT:    b.MaxDeltaT,
	})
	return len(res.Records) >= b.MinSyncCnt
}

func excise(buf []byte, w Window) []byte {
	out := make([]byte, 0, len(buf)-w.Length)
	out = append(out, buf[:w.Start]...)
	return append(out, buf[w.End():]...)
}
