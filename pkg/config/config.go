// Package config loads econsim settings. Values are layered:
// defaults, then a YAML file, then a .env file, then ECONSIM_* environment
// variables.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/domino14/econsim/pkg/belief"
	"github.com/domino14/econsim/pkg/exchange"
)

type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Belief   BeliefConfig   `yaml:"belief"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ExchangeConfig parametrizes the economy and the tâtonnement.
type ExchangeConfig struct {
	Alpha        float64 `yaml:"alpha"`
	Beta         float64 `yaml:"beta"`
	W1A          float64 `yaml:"w1a"`
	W2A          float64 `yaml:"w2a"`
	InitialPrice float64 `yaml:"initial_price"`
	Tolerance    float64 `yaml:"tolerance"`
	MaxIter      int     `yaml:"max_iter"`
	Kappa        float64 `yaml:"kappa"`
}

type BeliefConfig struct {
	PiL           float64 `yaml:"pi_l"`
	PiH           float64 `yaml:"pi_h"`
	Lam1          float64 `yaml:"lam_1"`
	Lam2          float64 `yaml:"lam_2"`
	QIni          float64 `yaml:"q_ini"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	// Seed makes simulations reproducible. Zero draws from the ambient
	// generator.
	Seed uint64 `yaml:"seed"`
}

type StoreConfig struct {
	DBPath         string `yaml:"db_path"`
	MigrationsPath string `yaml:"migrations_path"`
}

type LoggingConfig struct {
	// Level is any zerolog level name: trace, debug, info, warn, error.
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	// Textfile, if set, receives prometheus metrics when the command exits.
	Textfile string `yaml:"textfile"`
}

func Default() *Config {
	ep := exchange.DefaultParams()
	eo := exchange.DefaultOptions()
	bp := belief.DefaultParams()
	bo := belief.DefaultOptions()
	return &Config{
		Exchange: ExchangeConfig{
			Alpha:        ep.Alpha,
			Beta:         ep.Beta,
			W1A:          ep.W1A,
			W2A:          ep.W2A,
			InitialPrice: 1.0,
			Tolerance:    eo.Tolerance,
			MaxIter:      eo.MaxIter,
			Kappa:        eo.Kappa,
		},
		Belief: BeliefConfig{
			PiL:           bp.PiL,
			PiH:           bp.PiH,
			Lam1:          bp.Lam1,
			Lam2:          bp.Lam2,
			QIni:          bp.QIni,
			Tolerance:     bo.Tolerance,
			MaxIterations: bo.MaxIterations,
		},
		Store: StoreConfig{
			DBPath: "econsim.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds a config from defaults, the YAML file at path (skipped when
// path is empty), the .env file named by ECONSIM_ENV (default .env, ignored
// if missing) and finally the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	envFile := os.Getenv("ECONSIM_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	applyEnvOverrides(cfg)
	return cfg, cfg.Validate()
}

// LoadFromFile reads a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ECONSIM_DB_PATH"); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv("ECONSIM_MIGRATIONS_PATH"); v != "" {
		cfg.Store.MigrationsPath = v
	}
	if v := os.Getenv("ECONSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ECONSIM_METRICS_FILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
}

// Validate checks every section. Economic parameters are checked by the
// packages that own them.
func (c *Config) Validate() error {
	if _, err := c.ExchangeParams(); err != nil {
		return err
	}
	if err := c.ExchangeOptions().Validate(); err != nil {
		return err
	}
	if c.Exchange.InitialPrice <= 0 {
		return fmt.Errorf("initial_price must be positive, got %v", c.Exchange.InitialPrice)
	}
	if _, err := c.BeliefParams(); err != nil {
		return err
	}
	if err := c.BeliefOptions().Validate(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) ExchangeParams() (exchange.Params, error) {
	e := c.Exchange
	return exchange.NewParams(e.Alpha, e.Beta, e.W1A, e.W2A)
}

func (c *Config) ExchangeOptions() exchange.Options {
	return exchange.Options{
		Tolerance: c.Exchange.Tolerance,
		MaxIter:   c.Exchange.MaxIter,
		Kappa:     c.Exchange.Kappa,
	}
}

func (c *Config) BeliefParams() (belief.Params, error) {
	b := c.Belief
	return belief.NewParams(b.PiL, b.PiH, b.Lam1, b.Lam2, b.QIni)
}

func (c *Config) BeliefOptions() belief.Options {
	return belief.Options{
		Tolerance:     c.Belief.Tolerance,
		MaxIterations: c.Belief.MaxIterations,
	}
}

func (c *Config) LogLevel() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	return lvl, nil
}
