package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/domino14/econsim/pkg/config"
	"github.com/domino14/econsim/pkg/report"
	"github.com/domino14/econsim/pkg/runstore"
)

// app is the state shared by every subcommand, filled in before each run.
type app struct {
	cfg     *config.Config
	metrics *report.Metrics
	store   *runstore.SqliteStore
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "econsim",
		Short: "Exchange-economy equilibria and investor belief dynamics",
		Long: `econsim solves a two-agent Cobb-Douglas exchange economy by tâtonnement
and runs a Bayesian investor's belief recursion, deterministically or by
simulation. Runs can be saved to a SQLite database and inspected later.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("db", "", "SQLite database for saved runs (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "zerolog level (overrides config)")
	rootCmd.PersistentFlags().String("metrics-file", "", "write prometheus metrics to this textfile on exit")
	rootCmd.PersistentFlags().Bool("details", false, "print every iteration")
	rootCmd.PersistentFlags().Bool("save", false, "save the run to the database")

	rootCmd.AddCommand(
		newEquilibriumCmd(a),
		newCurveCmd(a),
		newLensCmd(a),
		newConvergeCmd(a),
		newSimulateCmd(a),
		newMonteCarloCmd(a),
		newRunsCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.Store.DBPath = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString("metrics-file"); v != "" {
		cfg.Metrics.Textfile = v
	}
	lvl, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})

	a.cfg = cfg
	a.metrics = report.NewMetrics()
	return nil
}

func (a *app) teardown() error {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Err(err).Msg("close-store")
		}
		a.store = nil
	}
	if a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		log.Debug().Str("path", a.cfg.Metrics.Textfile).Msg("wrote-metrics")
	}
	return nil
}

// openStore migrates and opens the run database on first use.
func (a *app) openStore() (*runstore.SqliteStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	err := runstore.EnsureMigrations(&runstore.Config{
		DBMigrationsPath: a.cfg.Store.MigrationsPath,
		DBPath:           a.cfg.Store.DBPath,
	})
	if err != nil {
		return nil, fmt.Errorf("migrating %s: %w", a.cfg.Store.DBPath, err)
	}
	s, err := runstore.NewSqliteStore(a.cfg.Store.DBPath)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// source returns a seeded generator, or nil to use the ambient one.
func source(seed uint64) rand.Source {
	if seed == 0 {
		return nil
	}
	return rand.NewPCG(seed, seed)
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
