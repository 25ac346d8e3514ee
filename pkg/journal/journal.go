// Package journal keeps a persistent log of repair runs in a pebble store.
// Entries are keyed by KSUID, so key order is creation order.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/fitfix/pkg/repair"
)

var ErrNotFound = errors.New("journal entry not found")

// Entry records what happened to one capture
type Entry struct {
	ID         ksuid.KSUID     `json:"id"`
	RunID      string          `json:"run_id"`
	Path       string          `json:"path"`
	Mode       string          `json:"mode"`
	OK         bool            `json:"ok"`
	Error      string          `json:"error,omitempty"`
	Drops      []repair.Window `json:"drops,omitempty"`
	Records    int             `json:"records"`
	OutputSize int             `json:"output_size"`
	Duration   time.Duration   `json:"duration"`
}

// Time returns the creation time embedded in the entry ID
func (e Entry) Time() time.Time {
	return e.ID.Time()
}

// FromFileResult builds an entry for a batch result
func FromFileResult(runID, mode string, r repair.FileResult) Entry {
	e := Entry{
		RunID:    runID,
		Path:     r.Path,
		Mode:     mode,
		OK:       r.OK(),
		Duration: r.Duration,
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	if r.Result != nil {
		e.Drops = r.Result.Report.Drops
		e.Records = r.Result.Report.Records
		e.OutputSize = len(r.Result.Data)
	}
	return e
}

// Journal is an append-only store of entries. It is safe for concurrent use.
type Journal struct {
	db *pebble.DB

	mu   sync.Mutex
	last ksuid.KSUID
}

// Open opens or creates a journal in dir
func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	j := &Journal{db: db}

	iter, err := db.NewIter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	if iter.Last() {
		j.last, err = ksuid.FromBytes(iter.Key())
	}
	if cerr := iter.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return j, nil
}

// nextID returns a KSUID greater than every ID written so far. Plain KSUIDs
// only order by second.
func (j *Journal) nextID() ksuid.KSUID {
	id := ksuid.New()
	if ksuid.Compare(id, j.last) <= 0 {
		id = j.last.Next()
	}
	j.last = id
	return id
}

// Append stores e under a new ID and returns it
func (j *Journal) Append(e Entry) (ksuid.KSUID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.ID = j.nextID()
	data, err := json.Marshal(e)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("failed to encode journal entry: %w", err)
	}
	if err := j.db.Set(e.ID.Bytes(), data, pebble.Sync); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to write journal entry: %w", err)
	}
	return e.ID, nil
}

// Get reads the entry with the given ID
func (j *Journal) Get(id ksuid.KSUID) (Entry, error) {
	data, closer, err := j.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, err
	}
	defer closer.Close()

	return decode(data)
}

// List returns up to limit entries, newest first. A limit of 0 returns all.
func (j *Journal) List(limit int) ([]Entry, error) {
	iter, err := j.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []Entry
	for valid := iter.Last(); valid; valid = iter.Prev() {
		e, err := decode(iter.Value())
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, iter.Error()
}

// ListRun returns the entries of one run in the order they were written
func (j *Journal) ListRun(runID string) ([]Entry, error) {
	all, err := j.List(0)
	if err != nil {
		return nil, err
	}
	var run []Entry
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].RunID == runID {
			run = append(run, all[i])
		}
	}
	return run, nil
}

// Close closes the underlying store
func (j *Journal) Close() error {
	return j.db.Close()
}

func decode(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("failed to decode journal entry: %w", err)
	}
	return e, nil
}
