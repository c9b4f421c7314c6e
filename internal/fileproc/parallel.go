// Package fileproc provides concurrent file fetching utilities.
package fileproc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while fetching a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// FetchFunc retrieves the content of one path.
type FetchFunc func(ctx context.Context, path string) ([]byte, error)

// StopFunc reports whether err must halt every outstanding fetch.
type StopFunc func(err error) bool

// File is one successfully fetched path.
type File struct {
	Path    string
	Content []byte
}

// Result is the outcome of a Fetch call.
type Result struct {
	// Files holds successful fetches in input order.
	Files []File
	// Errors holds per-file failures, excluding fetches abandoned after a halt.
	Errors *ProcessingErrors
	// Skipped counts paths that were not fetched for any reason.
	Skipped int
	// Halted is the error that stopped the run, if any.
	Halted error
}

type fetchOptions struct {
	workers    int
	stop       StopFunc
	onProgress ProgressFunc
}

// Option configures Fetch.
type Option func(*fetchOptions)

// WithWorkers bounds concurrent fetches. Values <= 0 use 2x NumCPU.
func WithWorkers(n int) Option {
	return func(o *fetchOptions) {
		o.workers = n
	}
}

// WithStop sets the predicate that halts the run.
func WithStop(fn StopFunc) Option {
	return func(o *fetchOptions) {
		o.stop = fn
	}
}

// WithProgress sets a callback invoked once per path.
func WithProgress(fn ProgressFunc) Option {
	return func(o *fetchOptions) {
		o.onProgress = fn
	}
}

// Fetch retrieves paths concurrently. A failed fetch excludes that path
// only. When the stop predicate matches, the shared context is cancelled:
// in-flight fetches are abandoned and queued paths are never attempted.
// Parent cancellation behaves the same way; callers check ctx.Err().
func Fetch(ctx context.Context, paths []string, fn FetchFunc, opts ...Option) *Result {
	o := fetchOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	result := &Result{Errors: &ProcessingErrors{}}
	if len(paths) == 0 {
		return result
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		haltOnce sync.Once
		fetched  = make([]*File, len(paths))
	)

	p := pool.New().WithMaxGoroutines(o.workers)
	for i, path := range paths {
		p.Go(func() {
			if o.onProgress != nil {
				defer o.onProgress()
			}
			if ctx.Err() != nil {
				return
			}

			content, err := fn(ctx, path)
			if err != nil {
				if o.stop != nil && o.stop(err) {
					haltOnce.Do(func() {
						result.Halted = err
						cancel()
					})
					return
				}
				if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
					return
				}
				result.Errors.Add(path, err)
				return
			}
			fetched[i] = &File{Path: path, Content: content}
		})
	}
	p.Wait()

	for _, f := range fetched {
		if f != nil {
			result.Files = append(result.Files, *f)
		}
	}
	result.Skipped = len(paths) - len(result.Files)
	return result
}
