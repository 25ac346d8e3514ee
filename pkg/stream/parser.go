// Package stream parses a FIT capture into a record stream without
// modifying it. The parser is the oracle every repair strategy uses to
// test a candidate buffer.
package stream

import (
	"errors"
	"fmt"

	"github.com/ssargent/fitfix/pkg/fit"
)

// Outcome describes why a parse stopped
type Outcome int

const (
	// Complete means the records exactly fill the payload
	Complete Outcome = iota
	// Truncated means the buffer ended inside a record
	Truncated
	// Malformed means a record is structurally impossible
	Malformed
	// TimeAnomaly means a timestamp regressed or jumped too far
	TimeAnomaly
	// Stopped means MaxRecords was reached before the payload end
	Stopped
)

func (o Outcome) String() string {
	switch o {
	case Complete:
		return "complete"
	case Truncated:
		return "truncated"
	case Malformed:
		return "malformed"
	case TimeAnomaly:
		return "time anomaly"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

var (
	ErrTimeRegress = errors.New("timestamp regressed")
	ErrTimeJump    = errors.New("timestamp jumped")
	ErrRecordLen   = errors.New("record exceeds maximum length")
)

// Options controls a single parse
type Options struct {
	Start        int       // Offset of the header, or of the first record when Headerless
	Headerless   bool      // Start is already past a header
	Limit        int       // Payload end; 0 derives it from the header or the buffer length
	State        fit.State // Decoding context to resume from
	MaxRecords   int       // Stop after this many records (0 = no limit)
	MaxRecordLen int       // Longest acceptable record in bytes (0 = no limit)
	MaxDeltaT    float64   // Largest forward timestamp step in seconds (0 = unchecked)
	Checkpoints  int       // Number of trailing record boundaries to keep
}

// Checkpoint is a record boundary together with the state in force there
type Checkpoint struct {
	Offset int
	State  fit.State
}

// RecordStream is the ordered run of records decoded from a buffer
type RecordStream struct {
	Header  *fit.Header // nil for headerless parses
	Records []fit.Record
	End     int // Offset just past the last decoded record
}

// Result is the outcome of a parse
type Result struct {
	RecordStream
	Outcome Outcome
	Err     error     // Cause of a non-complete outcome
	Limit   int       // Payload end the parse ran against
	State   fit.State // State after the last decoded record

	// Checkpoints holds up to Options.Checkpoints record boundaries, nearest
	// to End first. The first entry is End itself.
	Checkpoints []Checkpoint
}

// Parse decodes a header (unless Headerless) and then records until the
// payload end, a structural error or a time anomaly. It never modifies buf.
func Parse(buf []byte, opts Options) *Result {
	res := &Result{State: opts.State}
	off := opts.Start
	if off < 0 {
		off = 0
	}
	res.End = off

	limit := opts.Limit
	if !opts.Headerless {
		h, err := fit.DecodeHeader(buf[min(off, len(buf)):])
		if err != nil {
			res.fail(err)
			return res
		}
		res.Header = &h
		off += int(h.Size)
		res.End = off
		if limit == 0 {
			limit = off + int(h.DataSize)
		}
	}
	if limit == 0 || limit > len(buf) {
		limit = len(buf)
	}
	res.Limit = limit
	payload := buf[:limit]

	st := opts.State
	for off < limit {
		res.checkpoint(off, st, opts.Checkpoints)

		if opts.MaxRecords > 0 && len(res.Records) >= opts.MaxRecords {
			res.Outcome = Stopped
			res.State = st
			res.reverseCheckpoints()
			return res
		}

		rec, next, err := fit.DecodeRecord(payload, off, st)
		if err != nil {
			res.State = st
			res.fail(err)
			res.reverseCheckpoints()
			return res
		}
		if opts.MaxRecordLen > 0 && rec.Length > opts.MaxRecordLen {
			res.State = st
			res.fail(fmt.Errorf("%w: %d > %d at offset %d", ErrRecordLen, rec.Length, opts.MaxRecordLen, off))
			res.reverseCheckpoints()
			return res
		}
		if err := checkTime(st, rec, opts.MaxDeltaT); err != nil {
			res.State = st
			res.Outcome, res.Err = TimeAnomaly, err
			res.reverseCheckpoints()
			return res
		}

		res.Records = append(res.Records, rec)
		st = next
		off = rec.End()
		res.End = off
	}

	res.checkpoint(off, st, opts.Checkpoints)
	res.reverseCheckpoints()
	res.State = st
	res.Outcome = Complete
	return res
}

// fail classifies a decoding error
func (r *Result) fail(err error) {
	r.Err = err
	switch {
	case errors.Is(err, fit.ErrTruncated):
		r.Outcome = Truncated
	default:
		r.Outcome = Malformed
	}
}

func (r *Result) checkpoint(off int, st fit.State, keep int) {
	if keep <= 0 {
		return
	}
	if n := len(r.Checkpoints); n > 0 && r.Checkpoints[n-1].Offset == off {
		return
	}
	if len(r.Checkpoints) == keep {
		copy(r.Checkpoints, r.Checkpoints[1:])
		r.Checkpoints = r.Checkpoints[:keep-1]
	}
	r.Checkpoints = append(r.Checkpoints, Checkpoint{Offset: off, State: st})
}

func (r *Result) reverseCheckpoints() {
	cps := r.Checkpoints
	for i, j := 0, len(cps)-1; i < j; i, j = i+1, j-1 {
		cps[i], cps[j] = cps[j], cps[i]
	}
}

func checkTime(st fit.State, rec fit.Record, maxDeltaT float64) error {
	if maxDeltaT <= 0 || !st.HasTimestamp || !rec.HasTimestamp {
		return nil
	}
	if rec.Timestamp < st.LastTimestamp {
		return fmt.Errorf("%w: %d before %d at offset %d", ErrTimeRegress, rec.Timestamp, st.LastTimestamp, rec.Offset)
	}
	if delta := float64(rec.Timestamp - st.LastTimestamp); delta > maxDeltaT {
		return fmt.Errorf("%w: %.0fs after %d at offset %d", ErrTimeJump, delta, st.LastTimestamp, rec.Offset)
	}
	return nil
}

// OK reports whether the records exactly fill the payload
func (r *Result) OK() bool {
	return r.Outcome == Complete
}
