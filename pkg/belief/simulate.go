package belief

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/domino14/econsim/pkg/numeric"
)

// Path is one simulated sample path. Signals[i] is the shock drawn in
// period i+1 and Values[i] the belief after observing it.
type Path struct {
	Signals []Signal
	Values  []float64
}

// Simulate draws n shocks uniformly from {Down, Up} and updates the belief
// after each one. The previous shock is taken to be Up before the first
// period. A nil src falls back to the global generator.
func Simulate(params Params, n int, src rand.Source, observer func(Step)) (Path, error) {
	if err := params.Validate(); err != nil {
		return Path{}, err
	}
	if n < 0 {
		return Path{}, fmt.Errorf("period count %d is negative: %w", n, numeric.ErrInvalidParameter)
	}
	draw := rand.IntN
	if src != nil {
		draw = rand.New(src).IntN
	}

	path := Path{Signals: make([]Signal, 0, n), Values: make([]float64, 0, n)}
	oldSignal := Up
	q := params.QIni
	for i := 0; i < n; i++ {
		newSignal := Down
		if draw(2) == 1 {
			newSignal = Up
		}
		newQ, err := params.Forecast(oldSignal, newSignal, q)
		if err != nil {
			return Path{}, err
		}
		path.Signals = append(path.Signals, newSignal)
		path.Values = append(path.Values, newQ)
		if observer != nil {
			observer(Step{Iteration: i + 1, OldSignal: oldSignal, NewSignal: newSignal, OldQ: q, NewQ: newQ})
		}
		oldSignal, q = newSignal, newQ
	}
	return path, nil
}

// Summary aggregates many simulated paths of equal length.
type Summary struct {
	Paths   int
	Periods int
	// Mean and StdDev are per-period statistics across paths.
	Mean   []float64
	StdDev []float64
	// Quantiles of the final-period belief.
	P05 float64
	P50 float64
	P95 float64
}

// MonteCarlo simulates the given number of independent paths, all drawing
// from src, and summarizes them.
func MonteCarlo(params Params, periods, paths int, src rand.Source) (Summary, error) {
	if periods < 1 {
		return Summary{}, fmt.Errorf("need at least one period, got %d: %w", periods, numeric.ErrInvalidParameter)
	}
	if paths < 2 {
		return Summary{}, fmt.Errorf("need at least two paths, got %d: %w", paths, numeric.ErrInvalidParameter)
	}

	// byPeriod[t][k] is path k's belief in period t+1
	byPeriod := make([][]float64, periods)
	for t := range byPeriod {
		byPeriod[t] = make([]float64, paths)
	}
	for k := 0; k < paths; k++ {
		path, err := Simulate(params, periods, src, nil)
		if err != nil {
			return Summary{}, err
		}
		for t, v := range path.Values {
			byPeriod[t][k] = v
		}
	}

	s := Summary{
		Paths:   paths,
		Periods: periods,
		Mean:    make([]float64, periods),
		StdDev:  make([]float64, periods),
	}
	for t, xs := range byPeriod {
		s.Mean[t], s.StdDev[t] = stat.MeanStdDev(xs, nil)
	}
	final := append([]float64(nil), byPeriod[periods-1]...)
	sort.Float64s(final)
	s.P05 = stat.Quantile(0.05, stat.Empirical, final, nil)
	s.P50 = stat.Quantile(0.5, stat.Empirical, final, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, final, nil)
	return s, nil
}
