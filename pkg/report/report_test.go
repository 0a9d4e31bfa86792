package report

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/domino14/econsim/pkg/belief"
	"github.com/domino14/econsim/pkg/exchange"
)

func TestConsoleBeliefTable(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	c := NewConsole(&buf)
	opts := belief.DefaultOptions()
	opts.Observer = c.BeliefStep
	c.BeliefHeader()
	traj, err := belief.Converge(belief.DefaultParams(), belief.Up, belief.Up, opts)
	is.NoErr(err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	is.Equal(len(lines), traj.Iterations+1)
	is.Equal(lines[0], "Iteration\tq\t\tnew_q")
	is.Equal(lines[1], "1\t\t0.500000\t0.400000")
}

func TestConsoleSimulationLine(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	NewConsole(&buf).SimulationStep(belief.Step{Iteration: 3, OldSignal: belief.Up, NewSignal: belief.Down, NewQ: 0.6})
	is.Equal(buf.String(), "Period  3: old_y =  1, new_y = -1, q = 0.60\n")
}

func TestConsoleEquilibrium(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	c := NewConsole(&buf)
	res, err := exchange.FindEquilibrium(exchange.DefaultParams(), 1, exchange.DefaultOptions())
	is.NoErr(err)
	c.Equilibrium(res)
	is.True(strings.HasPrefix(buf.String(), "status: converged after "))
}

func TestLogObservers(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	opts := exchange.DefaultOptions()
	opts.MaxIter = 3
	opts.Observer = PriceObservers(LogPriceStep(logger), nil)
	_, err := exchange.FindEquilibrium(exchange.DefaultParams(), 1, opts)
	is.NoErr(err)
	is.Equal(strings.Count(buf.String(), `"message":"tatonnement-step"`), 3)

	buf.Reset()
	bopts := belief.DefaultOptions()
	bopts.MaxIterations = 2
	bopts.Observer = BeliefObservers(LogBeliefStep(logger))
	_, err = belief.Converge(belief.DefaultParams(), belief.Up, belief.Up, bopts)
	is.NoErr(err)
	is.Equal(strings.Count(buf.String(), `"message":"belief-update"`), 2)
}

func TestMetrics(t *testing.T) {
	is := is.New(t)
	m := NewMetrics()

	res, err := exchange.FindEquilibrium(exchange.DefaultParams(), 1, exchange.DefaultOptions())
	is.NoErr(err)
	m.ObserveEquilibrium(res)
	opts := exchange.DefaultOptions()
	opts.MaxIter = 2
	res, err = exchange.FindEquilibrium(exchange.DefaultParams(), 1, opts)
	is.NoErr(err)
	m.ObserveEquilibrium(res)

	traj, err := belief.Converge(belief.DefaultParams(), belief.Up, belief.Down, belief.DefaultOptions())
	is.NoErr(err)
	m.ObserveTrajectory(traj)
	path, err := belief.Simulate(belief.DefaultParams(), 12, rand.NewPCG(1, 1), nil)
	is.NoErr(err)
	m.ObservePath(path)

	is.Equal(testutil.ToFloat64(m.runs.WithLabelValues("tatonnement", "converged")), 1.0)
	is.Equal(testutil.ToFloat64(m.runs.WithLabelValues("tatonnement", "exhausted")), 1.0)
	is.Equal(testutil.ToFloat64(m.runs.WithLabelValues("belief", "converged")), 1.0)
	is.Equal(testutil.ToFloat64(m.simulated), 12.0)

	out := filepath.Join(t.TempDir(), "econsim.prom")
	is.NoErr(m.WriteTextfile(out))
	bts, err := os.ReadFile(out)
	is.NoErr(err)
	is.True(strings.Contains(string(bts), "econsim_runs_total"))
}
