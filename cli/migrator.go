package cli

import (
	"fmt"
	"regexp"

	actx "go.hackfix.me/ratchet/app/context"
	aerrors "go.hackfix.me/ratchet/app/errors"
	"go.hackfix.me/ratchet/db"
	"go.hackfix.me/ratchet/migrator"
	"go.hackfix.me/ratchet/storage"
)

// openMigrator creates a Migrator from the application configuration. The
// returned function releases the storage and database connections.
func openMigrator(appCtx *actx.Context) (*migrator.Migrator, func(), error) {
	cfg := appCtx.Config
	if cfg == nil {
		panic("the application configuration wasn't loaded")
	}

	opts := []migrator.Option{
		migrator.WithFS(appCtx.FS),
		migrator.WithLogger(appCtx.Logger),
		migrator.WithMigrationsPath(cfg.Migrations.Path.V),
		migrator.WithEntryPoints(cfg.Migrations.UpName.V, cfg.Migrations.DownName.V),
		migrator.WithStorage(cfg.Storage.Name.V, storage.Options{
			FS:      appCtx.FS,
			Logger:  appCtx.Logger,
			TimeNow: appCtx.TimeSource.Now,
			Params:  cfg.Storage.Options,
		}),
	}

	if cfg.Migrations.Pattern.Valid {
		rx, err := regexp.Compile(cfg.Migrations.Pattern.V)
		if err != nil {
			return nil, nil, aerrors.NewWithCause("invalid migrations pattern", err,
				"pattern", cfg.Migrations.Pattern.V)
		}
		opts = append(opts, migrator.WithPattern(rx))
	}

	var targetDB *db.DB
	if cfg.Database.Driver.Valid || cfg.Database.DSN.Valid {
		var err error
		targetDB, err = db.Open(appCtx.Ctx, cfg.Database.Driver.V, cfg.Database.DSN.V)
		if err != nil {
			return nil, nil, aerrors.NewWithCause("failed opening the migrations database", err,
				"driver", cfg.Database.Driver.V)
		}
		opts = append(opts, migrator.WithSQLDB(targetDB))
	}

	m, err := migrator.New(opts...)
	if err != nil {
		if targetDB != nil {
			_ = targetDB.Close()
		}
		return nil, nil, err //nolint:wrapcheck // ConfigError carries the context.
	}

	closeFn := func() {
		if cerr := m.Close(); cerr != nil {
			appCtx.Logger.Warn("failed closing storage", "error", cerr)
		}
		if targetDB != nil {
			if cerr := targetDB.Close(); cerr != nil {
				appCtx.Logger.Warn("failed closing database", "error", cerr)
			}
		}
	}

	return m, closeFn, nil
}

func printIDs(appCtx *actx.Context, ids []string) error {
	for _, id := range ids {
		if _, err := fmt.Fprintln(appCtx.Stdout, id); err != nil {
			return aerrors.NewWithCause("failed writing to stdout", err)
		}
	}
	return nil
}
