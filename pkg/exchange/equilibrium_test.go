package exchange

import (
	"errors"
	"math"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/econsim/pkg/numeric"
)

func TestFindEquilibrium(t *testing.T) {
	is := is.New(t)
	p := DefaultParams()
	res, err := FindEquilibrium(p, 1.0, DefaultOptions())
	is.NoErr(err)
	is.True(res.Converged())
	is.NoErr(res.Err())
	is.True(res.Iterations > 0)
	is.True(res.Iterations < DefaultMaxIter)
	is.True(math.Abs(res.E1) < DefaultTolerance)
	is.True(math.Abs(res.P1-p.AnalyticPrice()) < 1e-5)

	e1, e2, err := p.ExcessDemand(res.P1)
	is.NoErr(err)
	is.True(math.Abs(e1) < DefaultTolerance)
	// Walras' law
	is.True(math.Abs(e2) < 1e-5)

	// markets clear
	is.True(math.Abs(res.A.X1+res.B.X1-1) < 1e-5)
	is.True(math.Abs(res.A.X2+res.B.X2-1) < 1e-5)
}

func TestFindEquilibriumIdempotent(t *testing.T) {
	is := is.New(t)
	p := DefaultParams()
	first, err := FindEquilibrium(p, 1.0, DefaultOptions())
	is.NoErr(err)
	second, err := FindEquilibrium(p, first.P1, DefaultOptions())
	is.NoErr(err)
	is.True(second.Converged())
	is.Equal(second.Iterations, 0)
	is.Equal(second.P1, first.P1)
	is.Equal(second.A, first.A)
}

func TestFindEquilibriumFromAbove(t *testing.T) {
	is := is.New(t)
	p := DefaultParams()
	res, err := FindEquilibrium(p, 2.5, DefaultOptions())
	is.NoErr(err)
	is.True(res.Converged())
	is.True(math.Abs(res.P1-p.AnalyticPrice()) < 1e-5)
}

func TestFindEquilibriumObserver(t *testing.T) {
	is := is.New(t)
	steps := []Step{}
	opts := DefaultOptions()
	opts.Observer = func(s Step) { steps = append(steps, s) }
	res, err := FindEquilibrium(DefaultParams(), 1.0, opts)
	is.NoErr(err)
	is.Equal(len(steps), res.Iterations+1)
	is.Equal(steps[0].P1, 1.0)
	for i, s := range steps {
		is.Equal(s.Iteration, i)
	}
	last := steps[len(steps)-1]
	is.Equal(last.P1, res.P1)
	is.True(math.Abs(last.E1) < DefaultTolerance)
}

func TestFindEquilibriumExhausted(t *testing.T) {
	is := is.New(t)
	opts := DefaultOptions()
	opts.MaxIter = 5
	res, err := FindEquilibrium(DefaultParams(), 1.0, opts)
	is.NoErr(err)
	is.Equal(res.Status, numeric.Exhausted)
	is.True(!res.Converged())
	is.Equal(res.Iterations, 5)
	is.True(errors.Is(res.Err(), numeric.ErrNonConvergence))
	is.True(math.Abs(res.E1) >= DefaultTolerance)
}

func TestFindEquilibriumNonPositivePrice(t *testing.T) {
	is := is.New(t)
	for _, p1 := range []float64{0, -1, math.NaN()} {
		_, err := FindEquilibrium(DefaultParams(), p1, DefaultOptions())
		is.True(errors.Is(err, numeric.ErrDegenerate))
	}
}

func TestFindEquilibriumOvershoot(t *testing.T) {
	is := is.New(t)
	opts := DefaultOptions()
	// e1 is about -0.033 at p1=1, so this step lands far below zero
	opts.Kappa = 1000
	_, err := FindEquilibrium(DefaultParams(), 1.0, opts)
	is.True(errors.Is(err, numeric.ErrDegenerate))
}

func TestFindEquilibriumBadOptions(t *testing.T) {
	is := is.New(t)
	for _, opts := range []Options{
		{Tolerance: 0, MaxIter: 10, Kappa: 0.1},
		{Tolerance: 1e-6, MaxIter: 0, Kappa: 0.1},
		{Tolerance: 1e-6, MaxIter: 10, Kappa: -0.1},
	} {
		_, err := FindEquilibrium(DefaultParams(), 1.0, opts)
		is.True(errors.Is(err, numeric.ErrInvalidParameter))
	}
	_, err := FindEquilibrium(Params{Alpha: 2, Beta: 0.5}, 1.0, DefaultOptions())
	is.True(errors.Is(err, numeric.ErrInvalidParameter))
}
