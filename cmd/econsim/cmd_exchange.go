package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/domino14/econsim/pkg/exchange"
	"github.com/domino14/econsim/pkg/report"
)

func newEquilibriumCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equilibrium",
		Short: "Find the market-clearing price by tâtonnement",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.cfg.ExchangeParams()
			if err != nil {
				return err
			}
			p1 := a.cfg.Exchange.InitialPrice
			if cmd.Flags().Changed("p1") {
				p1, _ = cmd.Flags().GetFloat64("p1")
			}

			out := report.NewConsole(cmd.OutOrStdout())
			prices := []float64{}
			var printer func(exchange.Step)
			if flagBool(cmd, "details") {
				out.PriceHeader()
				printer = out.PriceStep
			}
			opts := a.cfg.ExchangeOptions()
			opts.Observer = report.PriceObservers(
				printer,
				report.LogPriceStep(log.Logger),
				func(s exchange.Step) { prices = append(prices, s.P1) },
			)

			res, err := exchange.FindEquilibrium(params, p1, opts)
			if err != nil {
				return err
			}
			a.metrics.ObserveEquilibrium(res)
			out.Equilibrium(res)
			fmt.Fprintf(cmd.OutOrStdout(), "closed form: p1 = %.8f\n", params.AnalyticPrice())

			if flagBool(cmd, "save") {
				s, err := a.openStore()
				if err != nil {
					return err
				}
				id, err := s.SaveEquilibrium(cmd.Context(), params, opts, p1, res, prices)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved run %s\n", id)
			}
			if err := res.Err(); err != nil {
				log.Warn().Err(err).Msg("no-equilibrium")
			}
			return nil
		},
	}
	cmd.Flags().Float64("p1", 0, "initial price of good 1 (overrides config)")
	return cmd
}

func newCurveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Tabulate excess demand over a price grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.cfg.ExchangeParams()
			if err != nil {
				return err
			}
			lo, _ := cmd.Flags().GetFloat64("lo")
			hi, _ := cmd.Flags().GetFloat64("hi")
			n, _ := cmd.Flags().GetInt("n")
			points, err := exchange.ExcessDemandCurve(params, lo, hi, n)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "p1\t\te1\t\te2\n")
			for _, pt := range points {
				fmt.Fprintf(w, "%.6f\t%+.6f\t%+.6f\n", pt.P1, pt.E1, pt.E2)
			}
			best, _ := exchange.BestGridPrice(points)
			fmt.Fprintf(w, "smallest |e1| at p1 = %.6f (e1 = %+.2e)\n", best.P1, best.E1)
			return nil
		},
	}
	cmd.Flags().Float64("lo", 0.5, "lowest price")
	cmd.Flags().Float64("hi", 2.5, "highest price")
	cmd.Flags().Int("n", 76, "number of grid points")
	return cmd
}

func newLensCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lens",
		Short: "List allocations that make both agents weakly better off",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.cfg.ExchangeParams()
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("n")
			lens, err := exchange.ExchangeLens(params, n)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if flagBool(cmd, "details") {
				fmt.Fprintf(w, "x1A\t\tx2A\n")
				for _, x := range lens {
					fmt.Fprintf(w, "%.6f\t%.6f\n", x.X1, x.X2)
				}
			}
			fmt.Fprintf(w, "%d pareto-improving allocations on a %dx%d grid\n", len(lens), n+1, n+1)
			return nil
		},
	}
	cmd.Flags().Int("n", 75, "grid divisions per good")
	return cmd
}
