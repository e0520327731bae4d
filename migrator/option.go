package migrator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/ratchet/storage"
)

// Option is a function that allows configuring the Migrator.
type Option func(*Migrator) error

// WithFS sets the filesystem migrations are discovered on.
func WithFS(fs vfs.FileSystem) Option {
	return func(m *Migrator) error {
		if fs == nil {
			return errors.New("filesystem is required")
		}
		m.fs = fs
		return nil
	}
}

// WithMigrationsPath sets the directory migrations are discovered in.
func WithMigrationsPath(path string) Option {
	return func(m *Migrator) error {
		if path == "" {
			return errors.New("migrations path is required")
		}
		if !filepath.IsAbs(path) {
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("failed resolving migrations path: %w", err)
			}
			path = abs
		}
		m.path = filepath.Clean(path)
		return nil
	}
}

// WithPattern sets the pattern migration file names must match. If unset, file
// names must start with digits, continue with word or hyphen characters, and
// end with the extension of a registered loader.
func WithPattern(pattern *regexp.Regexp) Option {
	return func(m *Migrator) error {
		m.pattern = pattern
		return nil
	}
}

// WithEntryPoints sets the names of the up and down actions in a migration.
func WithEntryPoints(up, down string) Option {
	return func(m *Migrator) error {
		if up == "" || down == "" {
			return errors.New("up and down entry point names are required")
		}
		if up == down {
			return fmt.Errorf("up and down entry points must differ, got '%s'", up)
		}
		m.entryPoints = EntryPoints{Up: up, Down: down}
		return nil
	}
}

// WithLoader registers the loader for migration files with the given
// extension, e.g. ".sql". A nil loader removes the registration.
func WithLoader(ext string, loader Loader) Option {
	return func(m *Migrator) error {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("invalid migration file extension '%s'", ext)
		}
		ext = strings.ToLower(ext)
		if loader == nil {
			delete(m.loaders, ext)
			return nil
		}
		m.loaders[ext] = loader
		return nil
	}
}

// WithSQLDB sets the database SQL migrations are run against.
func WithSQLDB(db Execer) Option {
	return WithLoader(".sql", &SQLLoader{DB: db})
}

// WithStorage selects the storage adapter by name. Built-in adapters take
// precedence over the ones in the registry set with WithStorageRegistry.
func WithStorage(name string, opts storage.Options) Option {
	return func(m *Migrator) error {
		m.storageName = name
		m.storageOpts = opts
		return nil
	}
}

// WithStorageRegistry sets additional storage adapters that can be selected
// with WithStorage.
func WithStorageRegistry(reg storage.Registry) Option {
	return func(m *Migrator) error {
		m.registry = reg
		return nil
	}
}

// WithStorageInstance sets the storage directly, bypassing name resolution.
// The Migrator doesn't close it.
func WithStorageInstance(s storage.Storage) Option {
	return func(m *Migrator) error {
		m.storage = s
		return nil
	}
}

// WithLogger sets the logger used by the Migrator.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) error {
		m.logger = logger.With("component", "migrator")
		return nil
	}
}

// DefaultOptions returns the default Migrator options.
func DefaultOptions() []Option {
	migrationsPath := "migrations"
	if cwd, err := os.Getwd(); err == nil {
		migrationsPath = filepath.Join(cwd, migrationsPath)
	}

	return []Option{
		WithFS(osfs.New()),
		WithMigrationsPath(migrationsPath),
		WithEntryPoints("up", "down"),
		WithLoader(".sql", &SQLLoader{}),
		WithStorage("json", storage.Options{}),
		WithLogger(slog.Default()),
	}
}
