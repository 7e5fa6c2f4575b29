package handler

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// mathTimeoutCache tracks evaluations currently in flight, keyed by a
// fresh id per call. It plays the role the original engine gave its
// subprocess table: a short-TTL ledger of work that might outlive its
// deadline, reaped automatically if a caller forgets to clean up.
var mathTimeoutCache = cache.New(time.Minute, 10*time.Minute)

var errMathTimeout = errors.New("execution timed out before terminating")

// runMathTimeout runs fn and returns its result, aborting with
// errMathTimeout if fn has not finished within limit. fn is expected
// to be pure arithmetic with no side effects worth waiting for; an
// aborted fn is left to run to completion on its own goroutine and its
// result is discarded.
func runMathTimeout(limit time.Duration, fn func() (float64, error)) (float64, error) {
	type result struct {
		value float64
		err   error
	}
	done := make(chan result, 1)

	id := uuid.NewString()
	mathTimeoutCache.SetDefault(id, true)
	defer mathTimeoutCache.Delete(id)

	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-time.After(limit):
		return 0, errMathTimeout
	}
}

// boolToFloat renders a comparison result the way both math engines
// represent booleans: 1 for true, 0 for false.
func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
