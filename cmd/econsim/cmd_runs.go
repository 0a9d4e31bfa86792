package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/domino14/econsim/pkg/runstore"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved runs",
	}
	cmd.AddCommand(newRunsListCmd(a), newRunsShowCmd(a), newRunsDeleteCmd(a))
	return cmd
}

func newRunsListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			kind, _ := cmd.Flags().GetString("kind")
			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := s.ListRuns(cmd.Context(), runstore.Kind(kind), limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Kind, r.Status, r.Iterations, r.DateCreated)
			}
			return nil
		},
	}
	cmd.Flags().String("kind", "", "only runs of this kind (equilibrium, converge, simulate)")
	cmd.Flags().Int("limit", 20, "maximum number of runs (0 for all)")
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's parameters, result and path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s (%s) %s after %d iterations, created %s\n",
				run.ID, run.Kind, run.Status, run.Iterations, run.DateCreated)
			keys := make([]string, 0, len(run.Params))
			for k := range run.Params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "  %s = %v\n", k, run.Params[k])
			}
			if eq := run.Equilibrium; eq != nil {
				fmt.Fprintf(w, "p1 = %.8f, e1 = %+.2e, e2 = %+.2e\n", eq.P1, eq.E1, eq.E2)
				fmt.Fprintf(w, "A: x1 = %.6f, x2 = %.6f\n", eq.A.X1, eq.A.X2)
				fmt.Fprintf(w, "B: x1 = %.6f, x2 = %.6f\n", eq.B.X1, eq.B.X2)
			}
			points, err := s.GetPoints(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			for _, pt := range points {
				if pt.Signal != 0 {
					fmt.Fprintf(w, "%d\t%2d\t%.6f\n", pt.Step, pt.Signal, pt.Value)
				} else {
					fmt.Fprintf(w, "%d\t%.6f\n", pt.Step, pt.Value)
				}
			}
			return nil
		},
	}
}

func newRunsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", args[0])
			return nil
		},
	}
}
