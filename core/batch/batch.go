// Package batch decodes many TYCHO model files in parallel. Every file gets
// its own result, so one malformed dump never aborts the rest of the batch.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/tychomodel/core/cache"
	"github.com/FocuswithJustin/tychomodel/core/tycho"
	"github.com/FocuswithJustin/tychomodel/internal/logging"
	"github.com/FocuswithJustin/tychomodel/internal/source"
)

// Options configures a batch decode.
type Options struct {
	// Workers is the number of files decoded at once (0 = DefaultWorkers).
	Workers int

	// IsotopeWidth is passed to the decoder (0 = tycho.DefaultIsotopeWidth).
	IsotopeWidth int

	// Cache, if set, is consulted by content hash before decoding.
	Cache *cache.ModelCache
}

// Result is the outcome of decoding one file.
type Result struct {
	Index    int // position in the input list
	Path     string
	Model    *tycho.Model
	Err      error
	Cached   bool
	Duration time.Duration
}

// Report collects the results of a batch in input order.
type Report struct {
	RunID    string
	Results  []Result
	Failed   int
	Cached   int
	Duration time.Duration
}

// Models returns the successfully decoded models in input order.
func (r *Report) Models() []*tycho.Model {
	var out []*tycho.Model
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res.Model)
		}
	}
	return out
}

// Err returns the first per-file error in input order, or nil.
func (r *Report) Err() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

type job struct {
	index int
	path  string
}

// Decode decodes paths in parallel. Cancelling ctx stops files that have not
// started yet; their results carry ctx's error.
func Decode(ctx context.Context, paths []string, opts Options) *Report {
	start := time.Now()
	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)

	width := opts.IsotopeWidth
	if width <= 0 {
		width = tycho.DefaultIsotopeWidth
	}

	p := newPool[job, Result](opts.Workers, len(paths))
	p.start(func(j job) Result {
		return decodeOne(ctx, j, width, opts.Cache)
	})
	for i, path := range paths {
		p.submit(job{index: i, path: path})
	}
	p.close()

	report := &Report{RunID: runID, Results: make([]Result, len(paths))}
	for res := range p.resultsChan() {
		report.Results[res.Index] = res
		if res.Err != nil {
			report.Failed++
		}
		if res.Cached {
			report.Cached++
		}
	}
	report.Duration = time.Since(start)

	logging.BatchSummary(ctx, len(paths), report.Failed, report.Cached, report.Duration,
		"workers", p.numWorkers)
	return report
}

func decodeOne(ctx context.Context, j job, width int, mc *cache.ModelCache) (res Result) {
	res = Result{Index: j.index, Path: j.path}
	if err := ctx.Err(); err != nil {
		res.Err = err
		logging.WarnContext(ctx, "decode_skipped", "path", j.path, "error", err.Error())
		return res
	}

	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	f, err := source.ReadFile(j.path)
	if err != nil {
		res.Err = err
		logging.DecodeFailed(j.path, err, "run_id", logging.GetRunID(ctx))
		return res
	}

	key := cache.Key(f.Hash, width)
	if mc != nil {
		if m, ok := mc.Get(key, j.path); ok {
			logging.DebugContext(ctx, "decode_cache_hit", "path", j.path, "hash", f.Hash)
			res.Model, res.Cached = m, true
			return res
		}
	}

	m, err := tycho.DecodeFile(f, tycho.WithIsotopeWidth(width))
	if err != nil {
		res.Err = err
		logging.DecodeFailed(j.path, err, "run_id", logging.GetRunID(ctx))
		return res
	}
	if mc != nil {
		mc.Put(key, m)
	}
	res.Model = m
	return res
}
