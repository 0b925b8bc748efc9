// internal/jobs/run.go
package jobs

import (
	"errors"
	"fmt"
	"sync"
)

// Run is the memoization arena for one job execution. Step results are cached
// by name for the lifetime of the run, so a retry of the whole run skips the
// steps that already completed and re-executes only what failed.
type Run struct {
	ID string

	mu      sync.Mutex
	results map[string]any
}

// NewRun creates an empty run for the given id.
func NewRun(id string) *Run {
	return &Run{ID: id, results: make(map[string]any)}
}

// Step executes fn at most once per run for the given name. A successful
// result is cached; a failure is not, so the step runs again on the next
// attempt.
func Step[T any](r *Run, name string, fn func() (T, error)) (T, error) {
	r.mu.Lock()
	cached, ok := r.results[name]
	r.mu.Unlock()
	if ok {
		res, ok := cached.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("step %q: cached result has unexpected type %T", name, cached)
		}
		return res, nil
	}

	res, err := fn()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("step %q: %w", name, err)
	}

	r.mu.Lock()
	r.results[name] = res
	r.mu.Unlock()
	return res, nil
}

// fatalError marks a failure that retrying cannot fix, e.g. a missing
// provider token.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal wraps err so the worker gives up instead of retrying.
func Fatal(err error) error {
	return &fatalError{err: err}
}

// IsFatal reports whether err came through Fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
