// Package fallback runs ordered candidates until one succeeds.
package fallback

import (
	"context"
	"errors"
)

// ErrNoCandidates is returned when First is called with an empty list
var ErrNoCandidates = errors.New("fallback: no candidates")

// First calls fn for each candidate in order and returns the first result
// produced without error. When every candidate fails, the returned error joins
// the individual failures in candidate order. A cancelled context stops the
// iteration before the next candidate.
func First[C, R any](ctx context.Context, candidates []C, fn func(context.Context, C) (R, error)) (R, error) {
	var zero R
	if len(candidates) == 0 {
		return zero, ErrNoCandidates
	}

	errs := make([]error, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := fn(ctx, c)
		if err == nil {
			return result, nil
		}
		errs = append(errs, err)
	}
	return zero, errors.Join(errs...)
}
