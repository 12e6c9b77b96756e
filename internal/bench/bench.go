// Package bench implements §5's "independent compilations may run in a
// thread pool" concurrency contract: a fixed-size worker pool that compiles
// a corpus of inputs in parallel and reports per-input wall time, with a
// live progress indicator. Grounded on vovakirdan-surge's
// internal/driver/parallel.go errgroup-with-limit worker pool (index-keyed
// result slice, no mutex needed) and on tinyrange-cc's
// internal/cmd/benchmark/main.go progressbar.Default loop.
package bench

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// CompileFunc runs one input through whatever pipeline stages the caller
// wants timed (parse/lower/convert/optimize/schedule) and reports the
// resulting stage count, for the report's register-pressure column.
type CompileFunc func(ctx context.Context, path string) (numStages int, err error)

// Result is one corpus entry's outcome.
type Result struct {
	Path      string
	Duration  time.Duration
	NumStages int
	Err       error
}

// Options configures a Run.
type Options struct {
	// Jobs caps concurrency; zero (or a negative value) means one worker
	// per input path.
	Jobs int
	// Progress, if non-nil, receives a one-line bar as paths complete.
	Progress io.Writer
}

// Run compiles every path in paths by calling compile, fanning out across
// opts.Jobs workers. Results preserve the input order (index-keyed, not
// append-keyed) so a flaky ordering never makes two runs of the same
// corpus look different. Run itself never returns an error: a single
// input's failure is recorded in its Result.Err instead of aborting the
// whole corpus, since one malformed benchmark fixture should not hide the
// timings of every other fixture in the run.
func Run(ctx context.Context, paths []string, compile CompileFunc, opts Options) []Result {
	results := make([]Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = len(paths)
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions64(int64(len(paths)), progressbar.OptionSetWriter(opts.Progress))
		defer bar.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = Result{Path: path, Err: gctx.Err()}
				return nil
			default:
			}

			start := time.Now()
			stages, err := compile(gctx, path)
			results[i] = Result{
				Path:      path,
				Duration:  time.Since(start),
				NumStages: stages,
				Err:       err,
			}
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return a non-nil error; per-input failures live in Result.Err

	return results
}

// Summary aggregates a Run's results into the handful of numbers a
// benchmark report actually wants: pass/fail counts and min/median/max
// wall time over the successful runs.
type Summary struct {
	Total, Failed int
	Min, Median, Max time.Duration
}

func Summarize(results []Result) Summary {
	var s Summary
	s.Total = len(results)
	durations := make([]time.Duration, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		durations = append(durations, r.Duration)
	}
	if len(durations) == 0 {
		return s
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	s.Min = durations[0]
	s.Max = durations[len(durations)-1]
	s.Median = durations[len(durations)/2]
	return s
}
