package repair

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/fitfix/pkg/fit"
	"github.com/ssargent/fitfix/pkg/logging"
)

// FileResult is the outcome of running a plan over one file
type FileResult struct {
	Path     string
	Result   *Result // nil when the file could not be read
	Err      error
	Duration time.Duration
}

// OK reports whether the file was repaired (and validated, if requested)
func (r FileResult) OK() bool {
	return r.Err == nil
}

// BatchOptions tunes a batch run
type BatchOptions struct {
	Workers  int                // Files processed concurrently (0 = GOMAXPROCS)
	Logger   logrus.FieldLogger // Receives per-file entries tagged with path and run
	RunID    string
	OnResult func(FileResult) // Called once per file as it finishes, never concurrently
}

// Batch reads and repairs each path independently. Results are returned in
// the order of paths whatever order they finish in. A failing file never
// stops the others; the returned error is only set when ctx is cancelled.
func Batch(ctx context.Context, paths []string, plan *Plan, opts BatchOptions) ([]FileResult, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	if opts.RunID != "" {
		log = log.WithField("run", opts.RunID)
	}

	results := make([]FileResult, len(paths))
	var mu sync.Mutex

	err := forEach(ctx, len(paths), opts.Workers, func(i int) {
		r := fixFile(paths[i], plan, log.WithField("path", paths[i]))
		results[i] = r
		if opts.OnResult != nil {
			mu.Lock()
			opts.OnResult(r)
			mu.Unlock()
		}
	})
	return results, err
}

func fixFile(path string, plan *Plan, log logrus.FieldLogger) FileResult {
	started := time.Now()
	r := FileResult{Path: path}

	data, err := fit.ReadFile(path)
	if err != nil {
		r.Err = &Error{Kind: KindRead, Path: path, Err: err}
		r.Duration = time.Since(started)
		log.WithError(err).Error("cannot read capture")
		return r
	}
	log.Debugf("read %d bytes", len(data))

	r.Result, err = Fix(data, plan, log)
	r.Err = withPath(err, path)
	r.Duration = time.Since(started)
	if err != nil {
		log.WithError(err).Warn("repair failed")
	}
	return r
}

// forEach calls fn for 0..n-1 on at most workers goroutines
func forEach(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
