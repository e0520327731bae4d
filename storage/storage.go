// Package storage defines the contract of the adapters that record which
// migrations have been applied.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Storage records the IDs of applied migrations. It's the single source of
// truth for whether a migration has been applied.
type Storage interface {
	// Executed returns the IDs of applied migrations in the order they were
	// recorded.
	Executed(ctx context.Context) ([]string, error)
	// Log records the migration as applied. Logging an already recorded
	// migration is a no-op.
	Log(ctx context.Context, id string) error
	// Unlog removes the migration record. Removing a missing record is a no-op.
	Unlog(ctx context.Context, id string) error
}

// Options are passed to a storage Constructor.
type Options struct {
	FS      vfs.FileSystem
	Logger  *slog.Logger
	TimeNow func() time.Time
	// Params are adapter specific, e.g. a file path or a DSN.
	Params map[string]string
}

// Param returns the value of the named parameter, or def if it's unset.
func (o Options) Param(name, def string) string {
	if v, ok := o.Params[name]; ok && v != "" {
		return v
	}
	return def
}

// RequiredParam returns the value of the named parameter, or an error if it's
// unset.
func (o Options) RequiredParam(name string) (string, error) {
	v := o.Param(name, "")
	if v == "" {
		return "", fmt.Errorf("storage option '%s' is required", name)
	}
	return v, nil
}

// Constructor creates a Storage from options.
type Constructor func(opts Options) (Storage, error)

// Registry maps storage adapter names to their constructors.
type Registry map[string]Constructor

// Lookup returns the constructor registered under name.
func (r Registry) Lookup(name string) (Constructor, bool) {
	c, ok := r[name]
	return c, ok
}

// Names returns the sorted names of all registered adapters.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// Contains reports whether the IDs returned by Executed contain id.
func Contains(ctx context.Context, s Storage, id string) (bool, error) {
	ids, err := s.Executed(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, id), nil
}
