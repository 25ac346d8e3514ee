package repair

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fitfix/pkg/fit/fittest"
)

func checkPlanFor(t *testing.T, force bool) *Plan {
	t.Helper()
	plan, err := NewPlan(Options{Check: true, Validate: true, Force: force, Bounds: DefaultBounds()})
	require.NoError(t, err)
	return plan
}

func mixedCaptures() []Capture {
	truncated := fittest.New().Records(8).Bytes()
	return []Capture{
		{Name: "a.fit", Data: fittest.New().Records(5).Bytes()},
		{Name: "b.fit", Data: fittest.New().Records(10).Raw(fittest.Garbage(12, 1)).Records(4).Bytes()},
		{Name: "c.fit", Data: fittest.New().Records(20).Bytes()},
		{Name: "d.fit", Data: truncated[:len(truncated)-9]},
		{Name: "e.fit", Data: fittest.New().Records(1).Bytes()},
	}
}

func TestClassify_Mixed(t *testing.T) {
	c, err := Classify(context.Background(), mixedCaptures(), checkPlanFor(t, false))

	require.NoError(t, err)
	assert.Equal(t, []string{"a.fit", "c.fit", "e.fit"}, c.Good)
	assert.Equal(t, []string{"b.fit", "d.fit"}, c.Bad)
	assert.ErrorIs(t, c.Reasons["b.fit"], ErrValidation)
	assert.NotContains(t, c.Reasons, "a.fit")
}

func TestClassify_CompleteCapturesAreGood(t *testing.T) {
	var inputs []Capture
	for _, n := range []int{1, 7, 100} {
		inputs = append(inputs, Capture{Name: fmt.Sprintf("ride-%d.fit", n), Data: fittest.New().Records(n).Bytes()})
	}

	for _, force := range []bool{false, true} {
		c, err := Classify(context.Background(), inputs, checkPlanFor(t, force))
		require.NoError(t, err)
		assert.Len(t, c.Good, len(inputs))
		assert.Empty(t, c.Bad)
	}
}

func TestClassify_ForceIsStrict(t *testing.T) {
	inputs := []Capture{{Name: "tail.fit", Data: append(fittest.New().Records(3).Bytes(), 0xFF)}}

	lenient, err := Classify(context.Background(), inputs, checkPlanFor(t, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"tail.fit"}, lenient.Good)

	strict, err := Classify(context.Background(), inputs, checkPlanFor(t, true))
	require.NoError(t, err)
	assert.Equal(t, []string{"tail.fit"}, strict.Bad)
}

func TestClassify_RejectsModifyingPlans(t *testing.T) {
	_, err := NewPlan(Options{Check: true, Validate: true, Drop: true, Bounds: DefaultBounds()})
	assert.ErrorIs(t, err, ErrConfiguration)

	// a repair plan handed to the classifier is rejected before any file is read
	repair := mustPlan(t, Options{Drop: true, Validate: true})
	missing := []string{filepath.Join(t.TempDir(), "missing.fit")}

	c, err := ClassifyFiles(context.Background(), missing, repair, BatchOptions{})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, c.Good)
	assert.Empty(t, c.Bad)

	_, err = Classify(context.Background(), mixedCaptures(), mustPlan(t, Options{}))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestClassifyFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, in := range mixedCaptures() {
		paths = append(paths, writeCapture(t, dir, in.Name, in.Data))
	}
	paths = append(paths, filepath.Join(dir, "missing.fit"))

	c, err := ClassifyFiles(context.Background(), paths, checkPlanFor(t, false), BatchOptions{Workers: 2})

	require.NoError(t, err)
	assert.Equal(t, []string{paths[0], paths[2], paths[4]}, c.Good)
	assert.Equal(t, []string{paths[1], paths[3], paths[5]}, c.Bad)
	assert.ErrorIs(t, c.Reasons[paths[5]], ErrRead)
}
