// Package db opens the database that SQL migrations are run against.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/lib/pq"

	"go.hackfix.me/ratchet/migrator"
	"go.hackfix.me/ratchet/storage/sqlite"
)

// Drivers are the names of the supported database drivers.
var Drivers = []string{"sqlite", "postgres"}

// DB is a connection to the database migrations are run against.
type DB struct {
	*sql.DB
}

var _ migrator.Execer = (*DB)(nil)

// Open opens and pings a database connection.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	if !slices.Contains(Drivers, driver) {
		return nil, fmt.Errorf("unsupported database driver '%s'", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	switch driver {
	case "sqlite":
		sqlDB, err = sqlite.Open(dsn)
	case "postgres":
		sqlDB, err = sql.Open("postgres", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed opening %s database: %w", driver, err)
	}

	d := &DB{DB: sqlDB}

	if driver == "sqlite" {
		// Enable foreign key enforcement
		if _, err = d.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed enabling foreign key enforcement: %w", err)
		}
	}

	if err = d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed connecting to %s database: %w", driver, err)
	}

	return d, nil
}
