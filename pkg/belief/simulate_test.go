package belief

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/econsim/pkg/numeric"
)

func TestSimulate(t *testing.T) {
	is := is.New(t)
	p := DefaultParams()
	for _, n := range []int{1, 2, 25, 200} {
		path, err := Simulate(p, n, rand.NewPCG(1, 2), nil)
		is.NoErr(err)
		is.Equal(len(path.Values), n)
		is.Equal(len(path.Signals), n)
		for _, v := range path.Values {
			is.True(v >= 0 && v <= 1)
		}
	}
}

func TestSimulateEmpty(t *testing.T) {
	is := is.New(t)
	path, err := Simulate(DefaultParams(), 0, rand.NewPCG(1, 2), nil)
	is.NoErr(err)
	is.Equal(len(path.Values), 0)
	is.Equal(len(path.Signals), 0)
}

func TestSimulateNegative(t *testing.T) {
	is := is.New(t)
	_, err := Simulate(DefaultParams(), -1, nil, nil)
	is.True(errors.Is(err, numeric.ErrInvalidParameter))
}

func TestSimulateDeterministicWithSeed(t *testing.T) {
	is := is.New(t)
	a, err := Simulate(DefaultParams(), 50, rand.NewPCG(7, 11), nil)
	is.NoErr(err)
	b, err := Simulate(DefaultParams(), 50, rand.NewPCG(7, 11), nil)
	is.NoErr(err)
	is.Equal(a, b)
}

func TestSimulateReplaysForecast(t *testing.T) {
	is := is.New(t)
	p := DefaultParams()
	steps := []Step{}
	path, err := Simulate(p, 30, rand.NewPCG(3, 4), func(s Step) { steps = append(steps, s) })
	is.NoErr(err)
	is.Equal(len(steps), 30)

	old, q := Up, p.QIni
	for i, sig := range path.Signals {
		is.True(sig == Up || sig == Down)
		want, err := p.Forecast(old, sig, q)
		is.NoErr(err)
		is.Equal(path.Values[i], want)
		is.Equal(steps[i].OldSignal, old)
		is.Equal(steps[i].NewSignal, sig)
		old, q = sig, want
	}
}

func TestSimulateAmbientSource(t *testing.T) {
	is := is.New(t)
	path, err := Simulate(DefaultParams(), 10, nil, nil)
	is.NoErr(err)
	is.Equal(len(path.Values), 10)
}

func TestMonteCarlo(t *testing.T) {
	is := is.New(t)
	s, err := MonteCarlo(DefaultParams(), 20, 500, rand.NewPCG(5, 6))
	is.NoErr(err)
	is.Equal(s.Paths, 500)
	is.Equal(len(s.Mean), 20)
	is.Equal(len(s.StdDev), 20)
	for t := range s.Mean {
		is.True(s.Mean[t] >= 0 && s.Mean[t] <= 1)
		is.True(s.StdDev[t] >= 0)
	}
	// the first period has only two possible outcomes, 0.4 and 0.6
	is.True(s.Mean[0] > 0.4 && s.Mean[0] < 0.6)
	is.True(s.P05 <= s.P50)
	is.True(s.P50 <= s.P95)
	is.True(s.P05 >= 0 && s.P95 <= 1)
}

func TestMonteCarloInvalid(t *testing.T) {
	is := is.New(t)
	_, err := MonteCarlo(DefaultParams(), 0, 10, nil)
	is.True(errors.Is(err, numeric.ErrInvalidParameter))
	_, err = MonteCarlo(DefaultParams(), 10, 1, nil)
	is.True(errors.Is(err, numeric.ErrInvalidParameter))
}
