package runstore

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Config locates the database and, optionally, a migrations source URL such
// as file://db/migrations. An empty DBMigrationsPath uses the migrations
// compiled into the binary.
type Config struct {
	DBMigrationsPath string
	DBPath           string
}

func EnsureMigrations(cfg *Config) error {
	sqliteDb, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(sqliteDb, &sqlite3.Config{})
	if err != nil {
		sqliteDb.Close()
		return err
	}

	var m *migrate.Migrate
	if cfg.DBMigrationsPath == "" {
		src, err := iofs.New(embeddedMigrations, "migrations")
		if err != nil {
			return err
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite3", driver)
		if err != nil {
			return err
		}
	} else {
		m, err = migrate.NewWithDatabaseInstance(cfg.DBMigrationsPath, "sqlite3", driver)
		if err != nil {
			return err
		}
	}

	log.Info().Str("db", cfg.DBPath).Msg("bringing up migration")
	upErr := m.Up()
	if errors.Is(upErr, migrate.ErrNoChange) {
		upErr = nil
	}
	e1, e2 := m.Close()
	if e1 != nil {
		log.Err(e1).Msg("close-source")
	}
	if e2 != nil {
		log.Err(e2).Msg("close-database")
	}
	return upErr
}
