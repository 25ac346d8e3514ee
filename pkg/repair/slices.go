package repair

import (
	"math"
	"strconv"
	"strings"
)

// End marks an open upper bound in a Span
const End = math.MaxInt

// Span is a half-open byte range [From, To). Negative offsets count back
// from the end of the buffer; To == End runs to the end.
type Span struct {
	From int
	To   int
}

func (s Span) String() string {
	from, to := "", ""
	if s.From != 0 {
		from = strconv.Itoa(s.From)
	}
	if s.To != End {
		to = strconv.Itoa(s.To)
	}
	return from + ":" + to
}

// Resolve clamps the span to a buffer of length n
func (s Span) Resolve(n int) (from, to int) {
	from, to = clampOffset(s.From, n), clampOffset(s.To, n)
	if to < from {
		to = from
	}
	return from, to
}

func clampOffset(off, n int) int {
	if off < 0 {
		off += n
	}
	return max(0, min(off, n))
}

// Extract concatenates the given spans of buf in order. Spans may overlap
// or appear out of order. The result is not validated.
func Extract(buf []byte, spans []Span) []byte {
	total := 0
	for _, s := range spans {
		from, to := s.Resolve(len(buf))
		total += to - from
	}

	out := make([]byte, 0, total)
	for _, s := range spans {
		from, to := s.Resolve(len(buf))
		out = append(out, buf[from:to]...)
	}
	return out
}

// ParseSlices parses a comma separated list of spans such as "14:,:-2" or
// "0:14,28:100"
func ParseSlices(s string) ([]Span, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var spans []Span
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		from, to, ok := strings.Cut(part, ":")
		if !ok {
			return nil, configError("slice %q has no ':'", part)
		}

		span := Span{To: End}
		var err error
		if from = strings.TrimSpace(from); from != "" {
			if span.From, err = strconv.Atoi(from); err != nil {
				return nil, configError("slice %q: bad start: %w", part, err)
			}
		}
		if to = strings.TrimSpace(to); to != "" {
			if span.To, err = strconv.Atoi(to); err != nil {
				return nil, configError("slice %q: bad end: %w", part, err)
			}
		}
		spans = append(spans, span)
	}
	return spans, nil
}

// FormatSlices is the inverse of ParseSlices
func FormatSlices(spans []Span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
