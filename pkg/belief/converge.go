package belief

import (
	"fmt"
	"math"

	"github.com/domino14/econsim/pkg/numeric"
)

const (
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 100
)

// Step is one belief update.
type Step struct {
	Iteration int
	OldSignal Signal
	NewSignal Signal
	OldQ      float64
	NewQ      float64
}

type Options struct {
	Tolerance     float64
	MaxIterations int
	Observer      func(Step)
}

func DefaultOptions() Options {
	return Options{Tolerance: DefaultTolerance, MaxIterations: DefaultMaxIterations}
}

func (o Options) Validate() error {
	if !(o.Tolerance > 0) {
		return fmt.Errorf("tolerance %v must be positive: %w", o.Tolerance, numeric.ErrInvalidParameter)
	}
	if o.MaxIterations <= 0 {
		return fmt.Errorf("max iterations %d must be positive: %w", o.MaxIterations, numeric.ErrInvalidParameter)
	}
	return nil
}

// Trajectory is the belief sequence q_0 (the initial belief), q_1, ...
// Iterations counts the updates applied, so len(Values) == Iterations+1.
type Trajectory struct {
	Values     []float64
	Status     numeric.Status
	Iterations int
}

func (t Trajectory) Converged() bool {
	return t.Status == numeric.Converged
}

// Final returns the last belief in the trajectory.
func (t Trajectory) Final() float64 {
	return t.Values[len(t.Values)-1]
}

func (t Trajectory) Err() error {
	if t.Converged() {
		return nil
	}
	return fmt.Errorf("belief still moving after %d updates (q=%v): %w",
		t.Iterations, t.Final(), numeric.ErrNonConvergence)
}

// Converge applies the same signal pair repeatedly, starting from the
// model's initial belief, until successive beliefs differ by less than the
// tolerance.
func Converge(params Params, oldSignal, newSignal Signal, opts Options) (Trajectory, error) {
	if err := params.Validate(); err != nil {
		return Trajectory{}, err
	}
	if err := opts.Validate(); err != nil {
		return Trajectory{}, err
	}

	values := make([]float64, 1, opts.MaxIterations+1)
	values[0] = params.QIni
	for i := 0; i < opts.MaxIterations; i++ {
		oldQ := values[len(values)-1]
		newQ, err := params.Forecast(oldSignal, newSignal, oldQ)
		if err != nil {
			return Trajectory{}, err
		}
		values = append(values, newQ)
		if opts.Observer != nil {
			opts.Observer(Step{Iteration: i + 1, OldSignal: oldSignal, NewSignal: newSignal, OldQ: oldQ, NewQ: newQ})
		}
		if math.Abs(newQ-oldQ) < opts.Tolerance {
			return Trajectory{Values: values, Status: numeric.Converged, Iterations: i + 1}, nil
		}
	}
	return Trajectory{Values: values, Status: numeric.Exhausted, Iterations: opts.MaxIterations}, nil
}
