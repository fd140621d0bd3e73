package plasma

import (
	"errors"
	"fmt"
)

// Domain errors for the stepping core.
var (
	// ErrStepRejected indicates the solve produced an invalid state; the
	// step must be retried with a smaller dt.
	ErrStepRejected = errors.New("plasma: step rejected (non-finite or non-positive profiles)")

	// ErrNonConverged indicates the nonlinear solver exhausted its
	// iteration budget without meeting tolerance.
	ErrNonConverged = errors.New("plasma: nonlinear solver did not converge")

	// ErrSingularSystem indicates the assembled linear system could not be
	// factorized.
	ErrSingularSystem = errors.New("plasma: singular or ill-conditioned linear system")

	// ErrStepTooSmall indicates dt shrank below the configured minimum
	// while retrying rejected steps.
	ErrStepTooSmall = errors.New("plasma: time step below minimum without recovery")

	// ErrInvalidConfig indicates inconsistent configuration or geometry
	// input data.
	ErrInvalidConfig = errors.New("plasma: invalid configuration")
)

// StepError wraps an error with the step context it occurred in.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
