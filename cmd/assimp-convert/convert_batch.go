package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	assimp "github.com/alnah/go-assimp"
	"github.com/alnah/go-assimp/internal/fileutil"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Sentinel errors for batch operations.
var (
	ErrWriteOutput   = errors.New("failed to write output file")
	ErrOutputIsInput = errors.New("output would overwrite its input")
)

// maxAutoWorkers caps the automatic worker count.
const maxAutoWorkers = 8

// jobResult holds the outcome of a single conversion.
type jobResult struct {
	InputPath  string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// resolveWorkers determines the number of parallel conversions.
// Priority: explicit value > GOMAXPROCS-based calculation.
func resolveWorkers(n, jobs int) int {
	if n <= 0 {
		// GOMAXPROCS is adjusted by automaxprocs for containers.
		n = min(max(runtime.GOMAXPROCS(0)/2, 1), maxAutoWorkers)
	}
	return max(min(n, jobs), 1)
}

// convertBatch converts jobs concurrently through one shared converter.
// A failing job never stops the others; results keep job order.
func convertBatch(ctx context.Context, conv CLIConverter, jobs []job, s *settings) []jobResult {
	results := make([]jobResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(resolveWorkers(s.workers, len(jobs)))
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = jobResult{InputPath: j.Input, Err: err}
				return nil
			}
			results[i] = convertJob(ctx, conv, j, s)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// convertJob converts one model and writes the output beside it or into
// its output directory.
func convertJob(ctx context.Context, conv CLIConverter, j job, s *settings) jobResult {
	start := time.Now()
	result := jobResult{InputPath: j.Input}
	done := func(err error) jobResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	src, err := sourceFor(j.Input)
	if err != nil {
		return done(err)
	}

	res := conv.TryConvert(ctx, src, s.format, &assimp.ConvertOptions{Name: s.name})
	if !res.OK() {
		return done(res.Err)
	}

	result.OutputPath = filepath.Join(j.OutDir, res.Name)
	if sameFile(result.OutputPath, j.Input) {
		return done(fmt.Errorf("%w: %s", ErrOutputIsInput, j.Input))
	}
	if err := os.MkdirAll(j.OutDir, dirPermissions); err != nil {
		return done(fmt.Errorf("%w: creating %s: %v", ErrWriteOutput, j.OutDir, err))
	}
	if err := fileutil.WriteFileAtomic(result.OutputPath, res.Data, filePermissions); err != nil {
		return done(fmt.Errorf("%w: %v", ErrWriteOutput, err))
	}
	return done(nil)
}

// sameFile reports whether a and b name the same local path.
func sameFile(a, b string) bool {
	if fileutil.IsURL(b) {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// resultSummary holds the count of succeeded and failed conversions.
type resultSummary struct {
	Succeeded int
	Failed    int
	FirstErr  error
}

// countResults tallies succeeded and failed conversions.
func countResults(results []jobResult) resultSummary {
	var summary resultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			if summary.FirstErr == nil {
				summary.FirstErr = r.Err
			}
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults writes per-file lines and the batch summary.
func printResults(stdout, stderr io.Writer, results []jobResult, opts *rootOptions) resultSummary {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}
		if opts.quiet {
			continue
		}
		if opts.verbose {
			fmt.Fprintf(stdout, "%s -> %s (%v)\n", r.InputPath, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !opts.quiet && len(results) > 1 {
		fmt.Fprintf(stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}
	return summary
}
