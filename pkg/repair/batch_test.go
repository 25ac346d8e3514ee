package repair

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fitfix/pkg/fit/fittest"
)

func writeCapture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	good := fittest.New().Records(12).Bytes()
	paths := []string{
		writeCapture(t, dir, "good.fit", good),
		writeCapture(t, dir, "garbage.fit", append(fittest.New().Records(12).Unsealed(), fittest.Garbage(40, 4)...)),
		filepath.Join(dir, "missing.fit"),
		writeCapture(t, dir, "hopeless.fit", fittest.New().Records(3).Raw(fittest.Garbage(300, 8)).Records(3).Unsealed()),
	}
	plan := mustPlan(t, Options{Drop: true, FixChecksum: true, Validate: true})

	var seen []string
	results, err := Batch(context.Background(), paths, plan, BatchOptions{
		Workers:  3,
		RunID:    "run-1",
		OnResult: func(r FileResult) { seen = append(seen, r.Path) },
	})

	require.NoError(t, err)
	require.Len(t, results, len(paths))
	assert.ElementsMatch(t, paths, seen)
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}

	assert.True(t, results[0].OK())
	assert.Equal(t, good, results[0].Result.Data)

	assert.True(t, results[1].OK(), "%v", results[1].Err)
	assert.Equal(t, good, results[1].Result.Data)
	assert.Len(t, results[1].Result.Report.Drops, 1)

	assert.ErrorIs(t, results[2].Err, ErrRead)
	assert.Nil(t, results[2].Result)

	assert.ErrorIs(t, results[3].Err, ErrRecovery)
	assert.Contains(t, results[3].Err.Error(), "hopeless.fit")
}

func TestBatch_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeCapture(t, dir, "ride.fit", fittest.New().Records(3).Bytes())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Batch(ctx, []string{path, path}, mustPlan(t, Options{Validate: true}), BatchOptions{})

	assert.ErrorIs(t, err, context.Canceled)
}
