package repair

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	buf := []byte("0123456789")

	testCases := []struct {
		name  string
		spans []Span
		want  string
	}{
		{name: "single", spans: []Span{{From: 2, To: 5}}, want: "234"},
		{name: "non adjacent", spans: []Span{{From: 0, To: 2}, {From: 6, To: 8}}, want: "0167"},
		{name: "out of order", spans: []Span{{From: 7, To: End}, {From: 0, To: 3}}, want: "789012"},
		{name: "overlapping", spans: []Span{{From: 1, To: 5}, {From: 3, To: 6}}, want: "1234345"},
		{name: "open start", spans: []Span{{From: 0, To: 4}}, want: "0123"},
		{name: "negative", spans: []Span{{From: -3, To: End}, {From: 0, To: -8}}, want: "78901"},
		{name: "clamped", spans: []Span{{From: 8, To: 50}, {From: 5, To: 2}}, want: "89"},
		{name: "none", spans: nil, want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := Extract(buf, tc.spans)

			assert.Equal(t, tc.want, string(out))

			total := 0
			for _, s := range tc.spans {
				from, to := s.Resolve(len(buf))
				total += to - from
			}
			assert.Len(t, out, total)
		})
	}

	assert.Equal(t, "0123456789", string(buf))
}

func TestParseSlices(t *testing.T) {
	testCases := []struct {
		in   string
		want []Span
	}{
		{in: "", want: nil},
		{in: "1000:", want: []Span{{From: 1000, To: End}}},
		{in: ":14,28:", want: []Span{{From: 0, To: 14}, {From: 28, To: End}}},
		{in: "0:10, 20:30 ,-2:", want: []Span{{From: 0, To: 10}, {From: 20, To: 30}, {From: -2, To: End}}},
		{in: ":", want: []Span{{From: 0, To: End}}},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSlices(tc.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseSlices(%q) mismatch (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func TestParseSlices_Errors(t *testing.T) {
	for _, in := range []string{"12", "a:b", "1:x", "1:2,3"} {
		_, err := ParseSlices(in)
		assert.ErrorIs(t, err, ErrConfiguration, in)
	}
}

func TestFormatSlices(t *testing.T) {
	spans := []Span{{From: 0, To: 14}, {From: 28, To: End}, {From: -2, To: End}}

	s := FormatSlices(spans)
	assert.Equal(t, ":14,28:,-2:", s)

	back, err := ParseSlices(s)
	require.NoError(t, err)
	assert.Equal(t, spans, back)
}
