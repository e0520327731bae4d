package migrator

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"go.hackfix.me/ratchet/storage"
	"go.hackfix.me/ratchet/storage/builtin"
)

// Migrator discovers migration files, and applies or reverts them while keeping
// the applied set in a storage adapter up to date.
//
// A Migrator runs migrations strictly sequentially. Two Migrators must not
// share the same storage concurrently.
type Migrator struct {
	fs          vfs.FileSystem
	path        string
	pattern     *regexp.Regexp
	entryPoints EntryPoints
	loaders     map[string]Loader

	storageName  string
	storageOpts  storage.Options
	registry     storage.Registry
	storage      storage.Storage
	ownedStorage bool

	logger *slog.Logger
}

// New returns a new Migrator. It fails with a ConfigError if the storage
// adapter can't be resolved.
func New(opts ...Option) (*Migrator, error) {
	m := &Migrator{loaders: map[string]Loader{}}

	opts = append(DefaultOptions(), opts...)
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, ConfigError{Msg: "invalid migrator option", Err: err}
		}
	}

	if m.pattern == nil {
		if len(m.loaders) == 0 {
			return nil, ConfigError{Msg: "no migration loaders registered"}
		}
		m.pattern = DefaultPattern(m.loaders)
	}

	if m.storage == nil {
		s, err := m.initStorage()
		if err != nil {
			return nil, err
		}
		m.storage = s
		m.ownedStorage = true
	}

	return m, nil
}

// DefaultPattern returns the pattern matching file names that start with
// digits, continue with word or hyphen characters, and end with one of the
// extensions of the given loaders.
func DefaultPattern(loaders map[string]Loader) *regexp.Regexp {
	exts := make([]string, 0, len(loaders))
	for ext := range loaders {
		exts = append(exts, regexp.QuoteMeta(strings.TrimPrefix(ext, ".")))
	}
	slices.Sort(exts)

	return regexp.MustCompile(fmt.Sprintf(`^\d+[\w-]+\.(?:%s)$`, strings.Join(exts, "|")))
}

func (m *Migrator) initStorage() (storage.Storage, error) {
	ctor, ok := builtin.Registry().Lookup(m.storageName)
	if !ok {
		ctor, ok = m.registry.Lookup(m.storageName)
	}
	if !ok {
		return nil, ConfigError{
			Msg: fmt.Sprintf("unable to resolve the storage '%s'", m.storageName),
		}
	}

	opts := m.storageOpts
	if opts.FS == nil {
		opts.FS = m.fs
	}
	if opts.Logger == nil {
		opts.Logger = m.logger
	}

	s, err := ctor(opts)
	if err != nil {
		return nil, ConfigError{
			Msg: fmt.Sprintf("failed initializing the storage '%s'", m.storageName),
			Err: err,
		}
	}

	return s, nil
}

// Storage returns the storage adapter used by the Migrator.
func (m *Migrator) Storage() storage.Storage {
	return m.storage
}

// Close releases the storage adapter, unless it was set with
// WithStorageInstance.
func (m *Migrator) Close() error {
	if !m.ownedStorage {
		return nil
	}
	if c, ok := m.storage.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed closing storage: %w", err)
		}
	}
	return nil
}

// Discover loads all migration files whose names match the pattern, ordered
// by file name. It fails with an IOError if the directory can't be read, and
// with a LoadError if any migration can't be loaded.
func (m *Migrator) Discover(ctx context.Context) ([]*Migration, error) {
	infos, err := vfs.ReadDir(m.fs, m.path)
	if err != nil {
		return nil, IOError{Path: m.path, Err: err}
	}

	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() || !m.pattern.MatchString(fi.Name()) {
			continue
		}
		names = append(names, fi.Name())
	}
	slices.Sort(names)

	migrations := make([]*Migration, 0, len(names))
	for _, name := range names {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		mig, err := m.load(name)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, mig)
	}

	return migrations, nil
}

func (m *Migrator) load(name string) (*Migration, error) {
	path := filepath.Join(m.path, name)

	loader, ok := m.loaders[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, LoadError{Path: path, Msg: "no loader registered for the file extension"}
	}

	data, err := vfs.ReadFile(m.fs, path)
	if err != nil {
		return nil, LoadError{Path: path, Err: err}
	}

	up, down, err := loader.Load(Source{Name: name, Path: path, Data: data}, m.entryPoints)
	if err != nil {
		return nil, LoadError{Path: path, Err: err}
	}

	sum := blake2b.Sum256(data)

	return &Migration{
		ID:       name,
		Path:     path,
		Checksum: base58.Encode(sum[:]),
		Up:       up,
		Down:     down,
	}, nil
}

// Executed returns the applied migrations in the order they were recorded.
// The returned migrations only have their ID set.
func (m *Migrator) Executed(ctx context.Context) ([]*Migration, error) {
	ids, err := m.storage.Executed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed reading applied migrations: %w", err)
	}

	migrations := make([]*Migration, len(ids))
	for i, id := range ids {
		migrations[i] = &Migration{ID: id}
	}

	return migrations, nil
}

// Pending returns the discovered migrations that haven't been applied yet,
// ordered by ID.
func (m *Migrator) Pending(ctx context.Context) ([]*Migration, error) {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return nil, err
	}

	executed, err := m.Executed(ctx)
	if err != nil {
		return nil, err
	}

	return pending(discovered, executed), nil
}

func pending(discovered, applied []*Migration) []*Migration {
	appliedIDs := make(map[string]struct{}, len(applied))
	for _, mig := range applied {
		appliedIDs[mig.ID] = struct{}{}
	}

	result := make([]*Migration, 0, len(discovered))
	for _, mig := range discovered {
		if _, ok := appliedIDs[mig.ID]; !ok {
			result = append(result, mig)
		}
	}

	slices.SortStableFunc(result, func(a, b *Migration) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return result
}
