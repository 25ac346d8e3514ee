//go:build fuzz
// +build fuzz

package repair

import (
	"testing"

	"github.com/ssargent/fitfix/pkg/fit"
	"github.com/ssargent/fitfix/pkg/fit/fittest"
	"github.com/ssargent/fitfix/pkg/stream"
)

// FuzzRecover checks that recovery never panics, stays inside its bounds and
// only ever returns sealed buffers or buffers that parse to the end
func FuzzRecover(f *testing.F) {
	f.Add(fittest.New().Records(5).Bytes())
	f.Add(fittest.New().Records(5).Unsealed())
	f.Add(append(fittest.New().Records(8).Unsealed(), fittest.Garbage(20, 1)...))
	f.Add(fittest.New().Records(4).Raw(fittest.Garbage(9, 2)).Records(6).Bytes())
	f.Add([]byte{14, 0x20})

	plan, err := NewPlan(Options{Drop: true, Bounds: DefaultBounds()})
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, buf []byte) {
		if len(buf) > 1<<16 {
			t.Skip("input too large")
		}
		in := append([]byte(nil), buf...)

		out, report, err := Recover(buf, plan)
		if string(in) != string(buf) {
			t.Fatal("input was modified")
		}
		if err != nil {
			if KindOf(err) != KindRecovery {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}

		if len(report.Drops) > plan.Bounds().MaxDropCnt {
			t.Errorf("dropped %d spans, bound is %d", len(report.Drops), plan.Bounds().MaxDropCnt)
		}
		if got, want := len(out), len(buf)-report.Dropped(); got != want {
			t.Errorf("output is %d bytes, want %d", got, want)
		}

		if h, err := fit.DecodeHeader(out); err == nil {
			if _, ok := sealed(out, h, plan.Bounds()); ok {
				return
			}
		}
		res := stream.Parse(out, stream.Options{
			Start:        int(out[0]),
			Headerless:   true,
			Limit:        len(out),
			MaxRecordLen: plan.Bounds().MaxRecordLen,
			MaxDeltaT:    plan.Bounds().MaxDeltaT,
		})
		if !parsedToEnd(res, len(out)) {
			t.Errorf("recovered buffer stops at %d of %d", res.End, len(out))
		}
	})
}
