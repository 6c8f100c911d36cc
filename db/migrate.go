// Package db owns the schema for the vector store and applies it with
// golang-migrate from migrations embedded in the binary.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx v5 driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending migrations in order. Applied versions are
// tracked by golang-migrate in the schema_migrations table, so re-running
// against an up-to-date schema is a no-op.
//
// connURL must be a postgres:// or postgresql:// URL.
func Migrate(connURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	dbURL, err := migrateURL(connURL)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer closeMigrate(m)

	// Refuse to touch a half-applied schema; that needs a human.
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("checking migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema dirty at version %d, inspect it and run `migrate force %d`", version, version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("schema up to date")
			return nil
		}
		if v, d, verr := m.Version(); verr == nil && d {
			slog.Error("migration failed, schema left dirty",
				"version", v,
				"hint", fmt.Sprintf("fix the migration and run: migrate force %d", v))
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	if v, d, verr := m.Version(); verr == nil {
		slog.Info("migrations applied", "version", v, "dirty", d)
	}
	return nil
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		slog.Warn("closing migration source", "error", srcErr)
	}
	if dbErr != nil {
		slog.Warn("closing migration connection", "error", dbErr)
	}
}

// migrateURL rewrites a postgres:// or postgresql:// URL onto the pgx5://
// scheme registered by the golang-migrate pgx v5 driver.
func migrateURL(connURL string) (string, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", fmt.Errorf("parsing database URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		u.Scheme = "pgx5"
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme %q, expected postgres or postgresql", u.Scheme)
	}
}
