// Package convert drives batch conversion of steal headers across whole
// JavaScript trees: discovery, parallel rewriting, in-place writes and
// dry-run previews.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"amdify/internal/config"
	"amdify/internal/diff"
	"amdify/internal/transform"
)

// Outcome classifies what happened to one file.
type Outcome int

const (
	// OutcomeConverted means the header was rewritten (or would be,
	// in a dry run).
	OutcomeConverted Outcome = iota
	// OutcomeSkipped means the file has no steal header.
	OutcomeSkipped
	// OutcomeFailed means the file could not be converted.
	OutcomeFailed
)

// Result records what one run did to one file.
type Result struct {
	Path    string
	Outcome Outcome
	Err     error
	Diff    *diff.FileDiff
}

// Stats sums outcomes across a run. Ignored counts files excluded by
// the configured ignore prefixes before any scanning happened.
type Stats struct {
	Scanned   int
	Converted int
	Skipped   int
	Ignored   int
	Failed    int
}

// Options control a single run beyond the static configuration.
type Options struct {
	// DryRun computes every rewrite but writes nothing to disk.
	DryRun bool
	// ShowDiff prints a diff of each rewritten file.
	ShowDiff bool
	// Color enables styled diff output.
	Color bool
}

// Runner executes conversion runs.
type Runner struct {
	cfg      *config.Config
	opts     Options
	rewriter *transform.Rewriter
	engine   *diff.Engine
	log      *zap.Logger
	out      io.Writer
}

// NewRunner builds a Runner. Diff previews are written to out.
func NewRunner(cfg *config.Config, opts Options, log *zap.Logger, out io.Writer) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		opts:     opts,
		rewriter: transform.NewRewriter(cfg.Mapping, log),
		engine:   diff.NewEngine(),
		log:      log,
		out:      out,
	}
}

// Run converts every file under the given paths. Per-file failures are
// recorded and do not stop the run; only discovery failures and context
// cancellation abort it.
func (r *Runner) Run(ctx context.Context, paths []string) (*Stats, error) {
	files, ignored, err := Discover(ctx, paths, r.cfg.Convert.Ignores, r.cfg.Convert.Limit)
	if err != nil {
		return nil, err
	}

	jobs := r.cfg.Convert.Jobs
	if jobs < 1 {
		jobs = 1
	}
	r.log.Info("conversion run starting",
		zap.Int("files", len(files)),
		zap.Int("ignored", ignored),
		zap.Int("jobs", jobs),
		zap.Bool("dry_run", r.opts.DryRun))

	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = r.processFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{Scanned: len(files), Ignored: ignored}
	for _, res := range results {
		switch res.Outcome {
		case OutcomeConverted:
			stats.Converted++
			if res.Diff != nil && !res.Diff.Empty() {
				fmt.Fprint(r.out, res.Diff.Render(r.opts.Color))
			}
			if r.opts.DryRun {
				r.log.Info("would convert", zap.String("path", res.Path))
			} else {
				r.log.Info("converted", zap.String("path", res.Path))
			}
		case OutcomeSkipped:
			stats.Skipped++
			r.log.Info("no steal header", zap.String("path", res.Path))
		case OutcomeFailed:
			stats.Failed++
			r.log.Error("conversion failed", zap.Error(res.Err))
		}
	}
	return stats, nil
}

// processFile rewrites one file. An error leaves the file untouched.
func (r *Runner) processFile(ctx context.Context, path string) Result {
	src, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Outcome: OutcomeFailed, Err: err}
	}

	out, changed, err := r.rewriter.Rewrite(ctx, path, src)
	if err != nil {
		return Result{Path: path, Outcome: OutcomeFailed, Err: err}
	}
	if !changed {
		return Result{Path: path, Outcome: OutcomeSkipped}
	}

	res := Result{Path: path, Outcome: OutcomeConverted}
	if r.opts.ShowDiff {
		res.Diff = r.engine.Compute(path, string(src), string(out))
	}
	if !r.opts.DryRun {
		if err := replaceFile(path, out); err != nil {
			return Result{Path: path, Outcome: OutcomeFailed, Err: fmt.Errorf("writing %s: %w", path, err)}
		}
	}
	return res
}

// Check lists the files under the given paths that still carry a steal
// header, alongside the total number of files examined. Files that do
// not parse are logged and excluded.
func (r *Runner) Check(ctx context.Context, paths []string) ([]string, int, error) {
	files, _, err := Discover(ctx, paths, r.cfg.Convert.Ignores, r.cfg.Convert.Limit)
	if err != nil {
		return nil, 0, err
	}

	jobs := r.cfg.Convert.Jobs
	if jobs < 1 {
		jobs = 1
	}
	flags := make([]bool, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			src, err := os.ReadFile(path)
			if err != nil {
				r.log.Warn("check skipped a file", zap.Error(err))
				return nil
			}
			found, err := transform.Scan(gctx, path, src)
			if err != nil {
				r.log.Warn("check skipped a file", zap.Error(err))
				return nil
			}
			flags[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var stale []string
	for i, found := range flags {
		if found {
			stale = append(stale, files[i])
		}
	}
	return stale, len(files), nil
}
