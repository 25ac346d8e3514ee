package repair

import (
	"github.com/sirupsen/logrus"

	"github.com/ssargent/fitfix/pkg/logging"
	"github.com/ssargent/fitfix/pkg/stream"
)

// Result is the outcome of running a plan over one capture
type Result struct {
	Data    []byte
	Report  Report
	Verdict *stream.Verdict // nil unless the plan validates
}

// Fix runs plan over buf: start offset, add-header, slices or drop
// recovery, fix-header, fix-checksum and finally validation. buf is not
// modified. A nil log discards log output.
func Fix(buf []byte, plan *Plan, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logging.Discard()
	}
	res := &Result{Data: buf}
	data := buf

	if start := plan.Start(); start > 0 {
		if start > len(data) {
			return nil, recoveryError("start offset %d is past the end of a %d byte capture", start, len(data))
		}
		log.Debugf("skipping %d leading bytes", start)
		data = data[start:]
	}

	if plan.AddHeader() {
		data = AddHeader(data, plan.Header())
		log.WithField("header", HeaderSummary(data)).Info("added header")
	}

	switch plan.Strategy() {
	case StrategySlices:
		before := len(data)
		data = Extract(data, plan.Slices())
		log.WithFields(logrus.Fields{
			"slices": FormatSlices(plan.Slices()),
			"before": before,
			"after":  len(data),
		}).Info("extracted slices")

	case StrategyDrop:
		recovered, report, err := Recover(data, plan)
		res.Report = report
		if err != nil {
			return res, err
		}
		for _, w := range report.Drops {
			log.WithFields(logrus.Fields{"offset": w.Start, "length": w.Length}).Info("dropped bytes")
		}
		log.WithFields(logrus.Fields{
			"drops":   len(report.Drops),
			"dropped": report.Dropped(),
			"records": report.Records,
		}).Info("recovered record stream")
		data = recovered
	}

	if plan.FixHeader() {
		fixed, err := FixHeader(data, plan.Header())
		if err != nil {
			return res, err
		}
		data = fixed
		log.WithField("header", HeaderSummary(data)).Info("fixed header")
	}

	if plan.FixChecksum() {
		fixed, err := FixChecksum(data)
		if err != nil {
			return res, err
		}
		data = fixed
		log.Info("fixed checksum")
	}

	res.Data = data

	if plan.Validate() {
		opts := stream.ValidateOptions{Strict: plan.Force()}
		if plan.Force() {
			opts.MaxDeltaT = plan.Bounds().MaxDeltaT
		}
		v := stream.Validate(data, opts)
		res.Verdict = v
		for _, w := range v.Warnings {
			log.Warn(w)
		}
		if !v.OK() {
			return res, &Error{Kind: KindValidation, Err: v.Err()}
		}
		log.WithField("records", len(v.Records)).Debug("validated")
	}

	return res, nil
}
