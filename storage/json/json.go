// Package json implements the default storage adapter, which keeps applied
// migration IDs as a JSON array in a file.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/ratchet/storage"
)

// DefaultFileName is the name of the storage file in the working directory,
// used if no path option is given.
const DefaultFileName = "migrations.json"

// Storage keeps applied migration IDs in a JSON file.
type Storage struct {
	fs     vfs.FileSystem
	path   string
	logger *slog.Logger
}

var _ storage.Storage = (*Storage)(nil)

// New returns a new Storage backed by the file at path on fs.
func New(fs vfs.FileSystem, path string, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{fs: fs, path: path, logger: logger.With("storage", "json", "path", path)}
}

// Constructor is the storage.Constructor of this adapter. It accepts the
// "path" option.
func Constructor(opts storage.Options) (storage.Storage, error) {
	if opts.FS == nil {
		return nil, fmt.Errorf("filesystem is required")
	}

	path := opts.Param("path", "")
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed getting working directory: %w", err)
		}
		path = filepath.Join(cwd, DefaultFileName)
	}

	return New(opts.FS, path, opts.Logger), nil
}

// Path returns the path of the storage file.
func (s *Storage) Path() string {
	return s.path
}

// Executed implements the storage.Storage interface.
func (s *Storage) Executed(_ context.Context) ([]string, error) {
	return s.read()
}

// Log implements the storage.Storage interface.
func (s *Storage) Log(_ context.Context, id string) error {
	ids, err := s.read()
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}

	s.logger.Debug("logging migration", "migration", id)

	return s.write(append(ids, id))
}

// Unlog implements the storage.Storage interface.
func (s *Storage) Unlog(_ context.Context, id string) error {
	ids, err := s.read()
	if err != nil {
		return err
	}
	if !slices.Contains(ids, id) {
		return nil
	}

	s.logger.Debug("unlogging migration", "migration", id)

	return s.write(slices.DeleteFunc(ids, func(v string) bool { return v == id }))
}

func (s *Storage) read() ([]string, error) {
	data, err := vfs.ReadFile(s.fs, s.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return nil, fmt.Errorf("failed reading storage file: %w", err)
	}

	ids := []string{}
	if len(data) == 0 {
		return ids, nil
	}

	if err = json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed parsing storage file '%s': %w", s.path, err)
	}

	return ids, nil
}

func (s *Storage) write(ids []string) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed creating storage directory: %w", err)
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed serializing storage data: %w", err)
	}

	if err = vfs.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed writing storage file: %w", err)
	}

	return nil
}
