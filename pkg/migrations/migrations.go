// Package migrations embeds the Postgres schema and applies it with
// golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var files embed.FS

var migrationErrors = errx.NewRegistry("MIGRATIONS")

var (
	ErrSource = migrationErrors.Register("SOURCE", errx.TypeInternal, 500, "Failed to open embedded migrations")
	ErrDriver = migrationErrors.Register("DRIVER", errx.TypeInternal, 500, "Failed to create migration driver")
	ErrApply  = migrationErrors.Register("APPLY", errx.TypeInternal, 500, "Failed to apply migrations")
)

// Up applies every pending migration.
func Up(db *sql.DB) error {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return migrationErrors.NewWithCause(ErrSource, err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return migrationErrors.NewWithCause(ErrDriver, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return migrationErrors.NewWithCause(ErrDriver, err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logx.Info("migrations: schema is up to date")
			return nil
		}
		return migrationErrors.NewWithCause(ErrApply, err)
	}

	version, dirty, _ := m.Version()
	logx.WithFields(logx.Fields{"version": version, "dirty": dirty}).Info("migrations: applied")
	return nil
}
