package exchange

import (
	"fmt"
	"math"

	"github.com/domino14/econsim/pkg/numeric"
)

const (
	DefaultTolerance = 1e-6
	DefaultMaxIter   = 500
	DefaultKappa     = 0.1
)

// Step is the solver state at one iteration, before the price is adjusted.
type Step struct {
	Iteration int
	P1        float64
	E1        float64
	E2        float64
}

// Options controls the tâtonnement. Observer, if set, sees every step.
type Options struct {
	Tolerance float64
	MaxIter   int
	Kappa     float64
	Observer  func(Step)
}

func DefaultOptions() Options {
	return Options{
		Tolerance: DefaultTolerance,
		MaxIter:   DefaultMaxIter,
		Kappa:     DefaultKappa,
	}
}

func (o Options) Validate() error {
	if !(o.Tolerance > 0) {
		return fmt.Errorf("tolerance %v must be positive: %w", o.Tolerance, numeric.ErrInvalidParameter)
	}
	if o.MaxIter <= 0 {
		return fmt.Errorf("maxiter %d must be positive: %w", o.MaxIter, numeric.ErrInvalidParameter)
	}
	if !(o.Kappa > 0) || !numeric.Finite(o.Kappa) {
		return fmt.Errorf("kappa %v must be positive: %w", o.Kappa, numeric.ErrInvalidParameter)
	}
	return nil
}

// Result is the outcome of FindEquilibrium. When Status is Exhausted the
// fields describe the last price tried, not an equilibrium.
type Result struct {
	Status     numeric.Status
	P1         float64
	E1         float64
	E2         float64
	A          Allocation
	B          Allocation
	Iterations int
}

func (r Result) Converged() bool {
	return r.Status == numeric.Converged
}

// Err is nil for a converged result and wraps numeric.ErrNonConvergence
// otherwise.
func (r Result) Err() error {
	if r.Converged() {
		return nil
	}
	return fmt.Errorf("tâtonnement stopped at p1=%v with e1=%v after %d iterations: %w",
		r.P1, r.E1, r.Iterations, numeric.ErrNonConvergence)
}

// FindEquilibrium adjusts the price of good 1 in proportion to its excess
// demand until the market clears or the iteration cap is hit.
func FindEquilibrium(params Params, initialP1 float64, opts Options) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if !(initialP1 > 0) || !numeric.Finite(initialP1) {
		return Result{}, fmt.Errorf("initial price %v must be positive: %w", initialP1, numeric.ErrDegenerate)
	}

	p1 := initialP1
	var e1, e2 float64
	for t := 0; t < opts.MaxIter; t++ {
		var err error
		e1, e2, err = params.ExcessDemand(p1)
		if err != nil {
			return Result{}, err
		}
		if opts.Observer != nil {
			opts.Observer(Step{Iteration: t, P1: p1, E1: e1, E2: e2})
		}
		if math.Abs(e1) < opts.Tolerance {
			return settle(params, numeric.Converged, p1, e1, e2, t)
		}
		// the step is shared between the two agents
		p1 += opts.Kappa * e1 / 2
		if !(p1 > 0) || !numeric.Finite(p1) {
			return Result{}, fmt.Errorf("price left the positive axis (p1=%v) at iteration %d: %w",
				p1, t, numeric.ErrDegenerate)
		}
	}
	e1, e2, err := params.ExcessDemand(p1)
	if err != nil {
		return Result{}, err
	}
	return settle(params, numeric.Exhausted, p1, e1, e2, opts.MaxIter)
}

func settle(params Params, status numeric.Status, p1, e1, e2 float64, iterations int) (Result, error) {
	a, err := params.DemandA(p1)
	if err != nil {
		return Result{}, err
	}
	b, err := params.DemandB(p1)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Status:     status,
		P1:         p1,
		E1:         e1,
		E2:         e2,
		A:          a,
		B:          b,
		Iterations: iterations,
	}, nil
}
