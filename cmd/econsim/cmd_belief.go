package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/domino14/econsim/pkg/belief"
	"github.com/domino14/econsim/pkg/report"
)

func parseSignal(v int) (belief.Signal, error) {
	switch v {
	case 1:
		return belief.Up, nil
	case -1:
		return belief.Down, nil
	}
	return 0, fmt.Errorf("signal must be 1 or -1, got %d", v)
}

func newConvergeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Iterate the belief update on a fixed pair of shocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.cfg.BeliefParams()
			if err != nil {
				return err
			}
			oldV, _ := cmd.Flags().GetInt("old")
			newV, _ := cmd.Flags().GetInt("new")
			oldSignal, err := parseSignal(oldV)
			if err != nil {
				return err
			}
			newSignal, err := parseSignal(newV)
			if err != nil {
				return err
			}

			out := report.NewConsole(cmd.OutOrStdout())
			var printer func(belief.Step)
			if flagBool(cmd, "details") {
				out.BeliefHeader()
				printer = out.BeliefStep
			}
			opts := a.cfg.BeliefOptions()
			opts.Observer = report.BeliefObservers(printer, report.LogBeliefStep(log.Logger))

			traj, err := belief.Converge(params, oldSignal, newSignal, opts)
			if err != nil {
				return err
			}
			a.metrics.ObserveTrajectory(traj)
			out.Trajectory(traj)

			if flagBool(cmd, "save") {
				s, err := a.openStore()
				if err != nil {
					return err
				}
				id, err := s.SaveConvergence(cmd.Context(), params, traj)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved run %s\n", id)
			}
			if err := traj.Err(); err != nil {
				log.Warn().Err(err).Msg("belief-not-settled")
			}
			return nil
		},
	}
	cmd.Flags().Int("old", 1, "previous shock (1 or -1)")
	cmd.Flags().Int("new", 1, "current shock (1 or -1)")
	return cmd
}

func seedFlag(a *app, cmd *cobra.Command) uint64 {
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		return seed
	}
	return a.cfg.Belief.Seed
}

func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate the belief along a random sequence of shocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.cfg.BeliefParams()
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("n")

			out := report.NewConsole(cmd.OutOrStdout())
			var printer func(belief.Step)
			if flagBool(cmd, "details") {
				printer = out.SimulationStep
			}
			path, err := belief.Simulate(params, n, source(seedFlag(a, cmd)),
				report.BeliefObservers(printer, report.LogBeliefStep(log.Logger)))
			if err != nil {
				return err
			}
			a.metrics.ObservePath(path)
			if n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "simulated %d periods, final q = %.6f\n", n, path.Values[n-1])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "simulated 0 periods\n")
			}

			if flagBool(cmd, "save") {
				s, err := a.openStore()
				if err != nil {
					return err
				}
				id, err := s.SaveSimulation(cmd.Context(), params, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved run %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().Int("n", 25, "number of shocks")
	cmd.Flags().Uint64("seed", 0, "random seed (0 uses the ambient generator)")
	return cmd
}

func newMonteCarloCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "Summarize many simulated belief paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.cfg.BeliefParams()
			if err != nil {
				return err
			}
			periods, _ := cmd.Flags().GetInt("periods")
			paths, _ := cmd.Flags().GetInt("paths")
			summary, err := belief.MonteCarlo(params, periods, paths, source(seedFlag(a, cmd)))
			if err != nil {
				return err
			}
			report.NewConsole(cmd.OutOrStdout()).Summary(summary)
			return nil
		},
	}
	cmd.Flags().Int("periods", 25, "shocks per path")
	cmd.Flags().Int("paths", 1000, "number of paths")
	cmd.Flags().Uint64("seed", 0, "random seed (0 uses the ambient generator)")
	return cmd
}
