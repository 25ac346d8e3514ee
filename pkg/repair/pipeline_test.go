package repair

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fitfix/pkg/fit"
	"github.com/ssargent/fitfix/pkg/fit/fittest"
	"github.com/ssargent/fitfix/pkg/stream"
)

func mustPlan(t *testing.T, opts Options) *Plan {
	t.Helper()
	if opts.Bounds == (Bounds{}) {
		opts.Bounds = DefaultBounds()
	}
	plan, err := NewPlan(opts)
	require.NoError(t, err)
	return plan
}

func TestFix_TrailingGarbageWithoutChecksum(t *testing.T) {
	records := fittest.New().Records(50)
	capture := append(records.Unsealed(), fittest.Garbage(200, 42)...)
	plan := mustPlan(t, Options{Drop: true, FixChecksum: true, Validate: true, Force: true})

	res, err := Fix(capture, plan, nil)

	require.NoError(t, err)
	assert.Equal(t, records.Bytes(), res.Data)
	require.NotNil(t, res.Verdict)
	assert.True(t, res.Verdict.ChecksumOK)
	assert.Equal(t, stream.Complete, res.Verdict.Outcome)
	assert.Len(t, res.Verdict.Records, 51)
	assert.Len(t, res.Report.Drops, 1)
}

func TestFix_MissingHeader(t *testing.T) {
	full := fittest.New().Records(20).Bytes()
	stripped := full[hdrLen:]

	t.Run("add and fix header", func(t *testing.T) {
		plan := mustPlan(t, Options{AddHeader: true, FixHeader: true, Header: HeaderSpec{Size: 14}})

		res, err := Fix(stripped, plan, nil)
		require.NoError(t, err)

		h, err := fit.DecodeHeader(res.Data)
		require.NoError(t, err)
		assert.Equal(t, uint8(14), h.Size)
		assert.Equal(t, uint32(len(stripped)-fit.CRCSize), h.DataSize)
		assert.Equal(t, stripped, res.Data[14:])
	})

	t.Run("then validate", func(t *testing.T) {
		plan := mustPlan(t, Options{AddHeader: true, FixHeader: true, FixChecksum: true, Validate: true, Force: true})

		res, err := Fix(stripped, plan, nil)
		require.NoError(t, err)
		assert.Equal(t, full, res.Data)
	})
}

func TestFix_ReplaceHeaderWithSlices(t *testing.T) {
	full := fittest.New().Records(20).Bytes()
	damaged := append([]byte(nil), full...)
	copy(damaged[:hdrLen], []byte{0xDE, 0xAD, 0xBE, 0xEF})

	plan := mustPlan(t, Options{
		AddHeader:   true,
		Header:      HeaderSpec{Size: 14},
		Slices:      []Span{{From: 0, To: 14}, {From: 28, To: End}},
		FixHeader:   true,
		FixChecksum: true,
		Validate:    true,
		Force:       true,
	})

	res, err := Fix(damaged, plan, nil)

	require.NoError(t, err)
	assert.Equal(t, full, res.Data)
}

func TestFix_Start(t *testing.T) {
	full := fittest.New().Records(5).Bytes()
	capture := append([]byte{1, 2, 3, 4, 5}, full...)

	res, err := Fix(capture, mustPlan(t, Options{Start: 5, Validate: true, Force: true}), nil)
	require.NoError(t, err)
	assert.Equal(t, full, res.Data)

	_, err = Fix(capture, mustPlan(t, Options{Start: len(capture) + 1}), nil)
	assert.ErrorIs(t, err, ErrRecovery)
}

func TestFix_ValidationFailure(t *testing.T) {
	capture := fittest.New().Records(10).Raw(fittest.Garbage(8, 9)).Records(3).Bytes()

	res, err := Fix(capture, mustPlan(t, Options{Validate: true}), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, fit.ErrMalformed)
	require.NotNil(t, res)
	require.NotNil(t, res.Verdict)
	assert.Equal(t, stream.Malformed, res.Verdict.Outcome)
}

func TestFix_RecoveryFailure(t *testing.T) {
	capture := fittest.New().Records(3).Raw(fittest.Garbage(300, 9)).Records(3).Bytes()

	_, err := Fix(capture, mustPlan(t, Options{Drop: true, Validate: true}), nil)

	assert.ErrorIs(t, err, ErrRecovery)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestFix_LenientVersusStrict(t *testing.T) {
	capture := append(fittest.New().Records(3).Bytes(), 0, 0)
	logger, hook := test.NewNullLogger()

	_, err := Fix(capture, mustPlan(t, Options{Validate: true}), logger)
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "trailing bytes")

	_, err = Fix(capture, mustPlan(t, Options{Validate: true, Force: true}), logger)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, stream.ErrTrailingBytes)
}

func TestFix_NoOpPlan(t *testing.T) {
	capture := fittest.New().Records(4).Bytes()

	res, err := Fix(capture, mustPlan(t, Options{}), nil)

	require.NoError(t, err)
	assert.Equal(t, capture, res.Data)
	assert.Nil(t, res.Verdict)
}
