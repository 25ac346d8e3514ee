package journal

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fitfix/pkg/repair"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "journal")
	j, err := Open(dir)
	require.NoError(t, err)
	return j, dir
}

func TestJournal_AppendAndGet(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	entry := Entry{
		RunID:      "run-1",
		Path:       "/rides/8CS90646.FIT",
		Mode:       "fix",
		OK:         true,
		Drops:      []repair.Window{{Start: 4096, Length: 37}},
		Records:    1200,
		OutputSize: 18000,
		Duration:   3 * time.Millisecond,
	}

	id, err := j.Append(entry)
	require.NoError(t, err)
	assert.False(t, id.IsNil())

	got, err := j.Get(id)
	require.NoError(t, err)
	entry.ID = id
	assert.Equal(t, entry, got)
	assert.WithinDuration(t, time.Now(), got.Time(), time.Minute)
}

func TestJournal_GetMissing(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	_, err := j.Get(ksuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJournal_ListNewestFirst(t *testing.T) {
	j, dir := openTemp(t)

	for i := 0; i < 5; i++ {
		_, err := j.Append(Entry{RunID: "run-a", Path: fmt.Sprintf("ride-%d.fit", i)})
		require.NoError(t, err)
	}
	require.NoError(t, j.Close())

	// ordering survives a reopen
	j, err := Open(dir)
	require.NoError(t, err)
	defer j.Close()
	_, err = j.Append(Entry{RunID: "run-b", Path: "later.fit"})
	require.NoError(t, err)

	all, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "later.fit", all[0].Path)
	assert.Equal(t, "ride-4.fit", all[1].Path)
	assert.Equal(t, "ride-0.fit", all[5].Path)

	top, err := j.List(2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	run, err := j.ListRun("run-a")
	require.NoError(t, err)
	require.Len(t, run, 5)
	assert.Equal(t, "ride-0.fit", run[0].Path)
}

func TestFromFileResult(t *testing.T) {
	ok := repair.FileResult{
		Path: "a.fit",
		Result: &repair.Result{
			Data:   make([]byte, 100),
			Report: repair.Report{Drops: []repair.Window{{Start: 1, Length: 2}}, Records: 9},
		},
		Duration: time.Second,
	}
	e := FromFileResult("run", "fix", ok)
	assert.True(t, e.OK)
	assert.Equal(t, 100, e.OutputSize)
	assert.Equal(t, 9, e.Records)
	assert.Empty(t, e.Error)

	failed := repair.FileResult{Path: "b.fit", Err: &repair.Error{Kind: repair.KindRead, Path: "b.fit", Err: fmt.Errorf("gone")}}
	e = FromFileResult("run", "check", failed)
	assert.False(t, e.OK)
	assert.Equal(t, "b.fit: read error: gone", e.Error)
}
