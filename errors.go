package apportion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput rejects a table, seat count or parameter before any work is done.
	ErrInvalidInput = errors.New("invalid input")

	// ErrKeyMismatch means two allocations are defined over different regions.
	ErrKeyMismatch = errors.New("allocation key mismatch")

	// ErrComputation marks a failed trial batch.
	ErrComputation = errors.New("computation error")

	// ErrInvalidEpsilon is returned for epsilon <= 0, NaN or ±Inf.
	// It also matches ErrInvalidInput.
	ErrInvalidEpsilon = fmt.Errorf("%w: epsilon must be positive and finite", ErrInvalidInput)
)

// ComputationError reports the trial that aborted an epsilon batch.
// Trial is -1 when the failure was not tied to a single trial.
type ComputationError struct {
	Epsilon float64
	Trial   int
	Err     error
}

func (e *ComputationError) Error() string {
	if e.Trial < 0 {
		return fmt.Sprintf("computation error at epsilon=%g: %v", e.Epsilon, e.Err)
	}
	return fmt.Sprintf("computation error at epsilon=%g trial=%d: %v", e.Epsilon, e.Trial, e.Err)
}

// Unwrap lets errors.Is match both ErrComputation and the cause.
func (e *ComputationError) Unwrap() []error {
	return []error{ErrComputation, e.Err}
}
