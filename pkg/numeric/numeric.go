// package numeric holds the error taxonomy and outcome tags shared by the
// iterative solvers.

package numeric

import (
	"errors"
	"math"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDegenerate       = errors.New("degenerate computation")
	ErrNonConvergence   = errors.New("iteration cap reached before convergence")
)

// Status tags how an iteration terminated.
type Status int

const (
	Converged Status = iota
	Exhausted
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "converged":
		return Converged, nil
	case "exhausted":
		return Exhausted, nil
	}
	return 0, errors.New("unknown status: " + s)
}

// OpenUnit reports whether v lies strictly between 0 and 1.
func OpenUnit(v float64) bool {
	return v > 0 && v < 1
}

// ClosedUnit reports whether v lies in [0, 1].
func ClosedUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
