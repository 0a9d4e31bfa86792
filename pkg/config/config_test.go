package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/econsim/pkg/exchange"
	"github.com/domino14/econsim/pkg/numeric"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	is := is.New(t)
	cfg := Default()
	is.NoErr(cfg.Validate())
	p, err := cfg.ExchangeParams()
	is.NoErr(err)
	is.Equal(p, exchange.DefaultParams())
	is.Equal(cfg.ExchangeOptions().MaxIter, exchange.DefaultMaxIter)
	lvl, err := cfg.LogLevel()
	is.NoErr(err)
	is.Equal(lvl, zerolog.InfoLevel)
}

func TestLoadFromFile(t *testing.T) {
	is := is.New(t)
	path := writeFile(t, "econsim.yaml", `
exchange:
  alpha: 0.5
  w1a: 0.25
  kappa: 0.2
belief:
  pi_l: 0.3
  seed: 42
store:
  db_path: /tmp/runs.db
`)
	cfg, err := LoadFromFile(path)
	is.NoErr(err)
	is.Equal(cfg.Exchange.Alpha, 0.5)
	is.Equal(cfg.Exchange.W1A, 0.25)
	is.Equal(cfg.Exchange.Kappa, 0.2)
	// untouched keys keep their defaults
	is.Equal(cfg.Exchange.W2A, 0.3)
	is.Equal(cfg.Exchange.MaxIter, exchange.DefaultMaxIter)
	is.Equal(cfg.Belief.PiL, 0.3)
	is.Equal(cfg.Belief.PiH, 0.6)
	is.Equal(cfg.Belief.Seed, uint64(42))
	is.Equal(cfg.Store.DBPath, "/tmp/runs.db")
}

func TestLoadEnvOverrides(t *testing.T) {
	is := is.New(t)
	t.Setenv("ECONSIM_ENV", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("ECONSIM_DB_PATH", "/tmp/other.db")
	t.Setenv("ECONSIM_LOG_LEVEL", "debug")
	t.Setenv("ECONSIM_METRICS_FILE", "/tmp/econsim.prom")
	cfg, err := Load("")
	is.NoErr(err)
	is.Equal(cfg.Store.DBPath, "/tmp/other.db")
	is.Equal(cfg.Logging.Level, "debug")
	is.Equal(cfg.Metrics.Textfile, "/tmp/econsim.prom")
}

func TestLoadDotEnv(t *testing.T) {
	is := is.New(t)
	envFile := writeFile(t, "test.env", "ECONSIM_MIGRATIONS_PATH=file://db/migrations\n")
	t.Setenv("ECONSIM_ENV", envFile)
	// godotenv never overrides variables that are already set, so make
	// sure the key is absent and clean it up afterwards.
	t.Setenv("ECONSIM_MIGRATIONS_PATH", "")
	os.Unsetenv("ECONSIM_MIGRATIONS_PATH")
	cfg, err := Load("")
	is.NoErr(err)
	is.Equal(cfg.Store.MigrationsPath, "file://db/migrations")
}

func TestLoadInvalid(t *testing.T) {
	is := is.New(t)
	t.Setenv("ECONSIM_ENV", filepath.Join(t.TempDir(), "missing.env"))
	path := writeFile(t, "bad.yaml", "exchange:\n  alpha: 1.5\n")
	_, err := Load(path)
	is.True(errors.Is(err, numeric.ErrInvalidParameter))

	path = writeFile(t, "bad.yaml", "belief:\n  q_ini: -1\n")
	_, err = Load(path)
	is.True(errors.Is(err, numeric.ErrInvalidParameter))

	path = writeFile(t, "bad.yaml", "logging:\n  level: loud\n")
	_, err = Load(path)
	is.True(err != nil)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	is.True(err != nil)
}
