package solver

import (
	"errors"
	"fmt"

	"github.com/kurtamohler/LiveSPICE/pkg/symbolic"
)

// Sentinel errors for the compiler.
var (
	// ErrSingularJacobian indicates a required Newton update variable has
	// no pivot and no row with a nonzero coefficient in its column.
	ErrSingularJacobian = errors.New("singular jacobian")

	// ErrInvalidTimeStep indicates a non-positive timestep.
	ErrInvalidTimeStep = errors.New("timestep must be positive")

	// ErrNotDifferential indicates an integrand arrow whose left-hand side
	// is not a derivative term.
	ErrNotDifferential = errors.New("left-hand side is not a derivative")
)

// SingularError reports which unknown's update variable could not be
// solved from the Jacobian.
type SingularError struct {
	Unknown symbolic.Expr
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("%v: no usable row for %s", ErrSingularJacobian, e.Unknown)
}

func (e *SingularError) Unwrap() error { return ErrSingularJacobian }
