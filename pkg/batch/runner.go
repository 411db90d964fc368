// Package batch runs the patching pipeline over whole datasets. Fragments are
// independent, so they are patched in parallel; each output row still
// corresponds to its own input row.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/dataset"
	"github.com/fumiya-kume/secpatch/pkg/logger"
	"github.com/fumiya-kume/secpatch/pkg/metrics"
)

// Patcher patches one fragment without ever failing past its own boundary
type Patcher interface {
	PatchFragment(f types.Fragment) types.PatchResult
	Families() []types.Family
}

// ProgressFunc is called after every finished fragment. Calls are serialized.
type ProgressFunc func(done, total int)

// Options configures a Runner
type Options struct {
	Workers      int
	InputColumn  string
	OutputColumn string
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
	Progress     ProgressFunc
}

// Runner drives a Patcher over many fragments
type Runner struct {
	patcher Patcher
	opts    Options
	log     *logger.Logger
}

// NewRunner creates a runner. Workers below one means one.
func NewRunner(p Patcher, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.InputColumn == "" {
		opts.InputColumn = "Code Snippet"
	}
	if opts.OutputColumn == "" {
		opts.OutputColumn = "code_fix"
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Runner{patcher: p, opts: opts, log: log.WithPrefix("batch")}
}

// SetProgress replaces the progress callback. It must not be called while a
// run is in flight.
func (r *Runner) SetProgress(fn ProgressFunc) {
	r.opts.Progress = fn
}

// Run patches every fragment. Failed fragments are counted and passed through
// unchanged; only cancellation of ctx aborts the run.
func (r *Runner) Run(ctx context.Context, fragments []types.Fragment) (*types.Report, error) {
	report := &types.Report{
		RunID:    uuid.NewString(),
		Families: r.patcher.Families(),
		Rows:     len(fragments),
		Results:  make([]types.PatchResult, len(fragments)),
	}
	start := time.Now()
	log := r.log.WithField("run", report.RunID)
	log.Info("patching %d fragments with %d workers", len(fragments), r.opts.Workers)

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, f := range fragments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			began := time.Now()
			res := r.patcher.PatchFragment(f)
			r.opts.Metrics.ObserveResult(res, time.Since(began))
			report.Results[i] = res

			mu.Lock()
			done++
			if r.opts.Progress != nil {
				r.opts.Progress(done, len(fragments))
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, res := range report.Results {
		if res.Failed() {
			report.Failed++
		}
		if res.Modified {
			report.Modified++
		}
	}
	report.Duration = time.Since(start)
	r.opts.Metrics.ObserveBatch()

	log.Info("done: %d rows, %d modified (%.2f%%), %d failed in %v",
		report.Rows, report.Modified, report.Coverage(), report.Failed, report.Duration.Round(time.Millisecond))
	return report, nil
}

// RunDataset reads in, patches the input column and writes the dataset with
// the output column to out. Any dataset error aborts before out is written.
func (r *Runner) RunDataset(ctx context.Context, in, out string) (*types.Report, error) {
	d, err := dataset.Read(in, r.opts.InputColumn)
	if err != nil {
		return nil, err
	}

	report, err := r.Run(ctx, d.Fragments())
	if err != nil {
		return nil, err
	}

	if err := d.SetColumn(r.opts.OutputColumn, report.Patched()); err != nil {
		return nil, err
	}
	if err := d.Write(out); err != nil {
		return nil, err
	}

	r.log.Info("wrote %s", out)
	return report, nil
}
