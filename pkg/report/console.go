// package report turns solver steps and results into console tables, log
// events and metrics. The solvers themselves never print.

package report

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/domino14/econsim/pkg/belief"
	"github.com/domino14/econsim/pkg/exchange"
)

// Console writes per-iteration tables to W.
type Console struct {
	W io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{W: w}
}

func (c *Console) PriceHeader() {
	fmt.Fprintf(c.W, "iteration\tp1\t\te1\t\te2\n")
}

func (c *Console) PriceStep(s exchange.Step) {
	fmt.Fprintf(c.W, "%d\t\t%.8f\t%+.8f\t%+.8f\n", s.Iteration, s.P1, s.E1, s.E2)
}

func (c *Console) BeliefHeader() {
	fmt.Fprintf(c.W, "Iteration\tq\t\tnew_q\n")
}

func (c *Console) BeliefStep(s belief.Step) {
	fmt.Fprintf(c.W, "%d\t\t%.6f\t%.6f\n", s.Iteration, s.OldQ, s.NewQ)
}

func (c *Console) SimulationStep(s belief.Step) {
	fmt.Fprintf(c.W, "Period %2d: old_y = %2d, new_y = %2d, q = %.2f\n",
		s.Iteration, s.OldSignal, s.NewSignal, s.NewQ)
}

func (c *Console) Equilibrium(r exchange.Result) {
	fmt.Fprintf(c.W, "status: %s after %d iterations\n", r.Status, r.Iterations)
	fmt.Fprintf(c.W, "p1 = %.8f, e1 = %+.2e, e2 = %+.2e\n", r.P1, r.E1, r.E2)
	fmt.Fprintf(c.W, "A: x1 = %.6f, x2 = %.6f\n", r.A.X1, r.A.X2)
	fmt.Fprintf(c.W, "B: x1 = %.6f, x2 = %.6f\n", r.B.X1, r.B.X2)
}

func (c *Console) Trajectory(t belief.Trajectory) {
	fmt.Fprintf(c.W, "status: %s after %d updates, q = %.6f\n", t.Status, t.Iterations, t.Final())
}

func (c *Console) Summary(s belief.Summary) {
	fmt.Fprintf(c.W, "period\tmean\t\tstddev\n")
	for t := range s.Mean {
		fmt.Fprintf(c.W, "%d\t%.6f\t%.6f\n", t+1, s.Mean[t], s.StdDev[t])
	}
	fmt.Fprintf(c.W, "final q quantiles: p05 = %.4f, p50 = %.4f, p95 = %.4f (%d paths)\n",
		s.P05, s.P50, s.P95, s.Paths)
}

// LogPriceStep returns an observer that emits each tâtonnement step as a
// debug event.
func LogPriceStep(logger zerolog.Logger) func(exchange.Step) {
	return func(s exchange.Step) {
		logger.Debug().Int("iteration", s.Iteration).Float64("p1", s.P1).
			Float64("e1", s.E1).Float64("e2", s.E2).Msg("tatonnement-step")
	}
}

func LogBeliefStep(logger zerolog.Logger) func(belief.Step) {
	return func(s belief.Step) {
		logger.Debug().Int("iteration", s.Iteration).Int("oldSignal", int(s.OldSignal)).
			Int("newSignal", int(s.NewSignal)).Float64("q", s.OldQ).
			Float64("newQ", s.NewQ).Msg("belief-update")
	}
}

// PriceObservers fans one step out to several observers; nil entries are
// skipped.
func PriceObservers(obs ...func(exchange.Step)) func(exchange.Step) {
	return func(s exchange.Step) {
		for _, o := range obs {
			if o != nil {
				o(s)
			}
		}
	}
}

func BeliefObservers(obs ...func(belief.Step)) func(belief.Step) {
	return func(s belief.Step) {
		for _, o := range obs {
			if o != nil {
				o(s)
			}
		}
	}
}
