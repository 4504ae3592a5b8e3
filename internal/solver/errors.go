package solver

import (
	"errors"
	"fmt"
)

// SolverError reports a problem the solver cannot accept (a variable
// unbounded below, a term pointing past the variable list). It is never a
// verdict on a well-formed model.
type SolverError struct {
	Op  string
	Err error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver %s: %v", e.Op, e.Err)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}

func IsSolverError(err error) bool {
	var target *SolverError
	return errors.As(err, &target)
}

var (
	errLPInfeasible = errors.New("lp relaxation infeasible")
	errLPUnbounded  = errors.New("lp relaxation unbounded")
	// errLPInterrupted means the clock or the caller stopped a relaxation
	// between pivots.
	errLPInterrupted = errors.New("lp relaxation interrupted")
	// errLPStalled means the pivot budget ran out before optimality.
	errLPStalled = errors.New("lp relaxation stalled")
)

var (
	errFreeVariable = errors.New("variable has no finite lower bound")
	errBadTerm      = errors.New("constraint term references an unknown variable")
)
