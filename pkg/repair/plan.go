package repair

import (
	"strings"

	"github.com/ssargent/fitfix/pkg/fit"
)

// Strategy is the byte-selection strategy of a plan
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategySlices
	StrategyDrop
)

func (s Strategy) String() string {
	switch s {
	case StrategySlices:
		return "slices"
	case StrategyDrop:
		return "drop"
	default:
		return "none"
	}
}

// Bounds limits the drop-recovery search
type Bounds struct {
	MinSyncCnt   int     // Records that must parse after a sync point
	MaxRecordLen int     // Longest record accepted while syncing
	MaxDropCnt   int     // Most spans that may be excised
	MaxBackCnt   int     // Records a drop may start before the failure
	MaxFwdLen    int     // Bytes a sync point may lie past the failure
	MaxDeltaT    float64 // Largest timestamp step in seconds (0 = unchecked)
}

// DefaultBounds returns the bounds used when none are configured
func DefaultBounds() Bounds {
	return Bounds{
		MinSyncCnt:   3,
		MaxRecordLen: 2000,
		MaxDropCnt:   3,
		MaxBackCnt:   3,
		MaxFwdLen:    200,
		MaxDeltaT:    86400,
	}
}

// HeaderSpec describes the header written by add-header and fix-header.
// Zero versions keep the existing value (fix-header) or use the format
// defaults (add-header).
type HeaderSpec struct {
	Size            uint8
	ProtocolVersion uint8
	ProfileVersion  uint16
}

// Options are the caller-supplied parameters a Plan is built from
type Options struct {
	Slices      []Span
	Drop        bool
	Start       int
	AddHeader   bool
	FixHeader   bool
	FixChecksum bool
	Force       bool
	Validate    bool
	Check       bool
	Header      HeaderSpec
	Bounds      Bounds
}

// Plan is a validated, immutable repair configuration
type Plan struct {
	opts Options
}

// NewPlan validates opts and freezes them into a plan
func NewPlan(opts Options) (*Plan, error) {
	if opts.Drop && len(opts.Slices) > 0 {
		return nil, configError("slices and drop are mutually exclusive")
	}
	if opts.Check {
		if mods := modifications(opts); len(mods) > 0 {
			return nil, configError("cannot check and modify at the same time (%s)", strings.Join(mods, ", "))
		}
		if !opts.Validate {
			return nil, configError("check without validate makes no sense")
		}
	}
	if opts.Start < 0 {
		return nil, configError("start must not be negative, got %d", opts.Start)
	}
	if opts.Header.Size != 0 && opts.Header.Size < fit.MinHeaderSize {
		return nil, configError("header size must be at least %d, got %d", fit.MinHeaderSize, opts.Header.Size)
	}
	b := opts.Bounds
	if opts.Drop && b.MinSyncCnt < 1 {
		return nil, configError("min sync count must be at least 1, got %d", b.MinSyncCnt)
	}
	if b.MaxRecordLen < 0 || b.MaxDropCnt < 0 || b.MaxBackCnt < 0 || b.MaxFwdLen < 0 || b.MaxDeltaT < 0 {
		return nil, configError("search bounds must not be negative")
	}

	opts.Slices = append([]Span(nil), opts.Slices...)
	return &Plan{opts: opts}, nil
}

func modifications(opts Options) []string {
	var mods []string
	if opts.AddHeader {
		mods = append(mods, "add-header")
	}
	if opts.Drop {
		mods = append(mods, "drop")
	}
	if len(opts.Slices) > 0 {
		mods = append(mods, "slices")
	}
	if opts.Start != 0 {
		mods = append(mods, "start")
	}
	if opts.FixHeader {
		mods = append(mods, "fix-header")
	}
	if opts.FixChecksum {
		mods = append(mods, "fix-checksum")
	}
	return mods
}

// Strategy returns the byte-selection strategy
func (p *Plan) Strategy() Strategy {
	switch {
	case p.opts.Drop:
		return StrategyDrop
	case len(p.opts.Slices) > 0:
		return StrategySlices
	default:
		return StrategyNone
	}
}

// Slices returns a copy of the explicit slice list
// Slices returns a copy of the spans to keep
func (p *Plan) Slices() []Span { return append([]Span(nil), p.opts.Slices...) }

// Start returns the number of leading bytes skipped before repair
func (p *Plan) Start() int { return p.opts.Start }

// AddHeader reports whether a synthetic header is prepended
func (p *Plan) AddHeader() bool { return p.opts.AddHeader }

// FixHeader reports whether the header is rewritten to match the payload
func (p *Plan) FixHeader() bool { return p.opts.FixHeader }

// FixChecksum reports whether the checksum footer is recomputed
func (p *Plan) FixChecksum() bool { return p.opts.FixChecksum }

// Force reports whether strict validation is requested
func (p *Plan) Force() bool { return p.opts.Force }

// Validate reports whether the result is validated after repair
func (p *Plan) Validate() bool { return p.opts.Validate }

// Check reports whether the plan only classifies captures
func (p *Plan) Check() bool { return p.opts.Check }

// Header returns the values used for synthetic or rewritten headers
func (p *Plan) Header() HeaderSpec { return p.opts.Header }

// Bounds returns the recovery limits
func (p *Plan) Bounds() Bounds { return p.opts.Bounds }

// Options returns a copy of the options the plan was built from
func (p *Plan) Options() Options { o := p.opts; o.Slices = p.Slices(); return o }

// Modifies reports whether the plan changes any bytes
func (p *Plan) Modifies() bool { return len(modifications(p.opts)) > 0 }

// Modifications names the enabled repairs that change bytes
func (p *Plan) Modifications() []string { return modifications(p.opts) }
