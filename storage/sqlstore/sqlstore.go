// Package sqlstore implements a storage adapter that keeps applied migrations
// in a SQL table. Dialects adapt it to specific databases.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"go.hackfix.me/ratchet/storage"
)

// DefaultTable is the name of the table used if none is given.
const DefaultTable = "ratchet_migrations"

var tableNameRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Dialect contains the database specific parts of the store.
type Dialect struct {
	Name string
	// CreateTable is the statement creating the table if it doesn't exist.
	// The %s verb is replaced with the table name.
	CreateTable string
	// Placeholder returns the bind parameter for the n-th argument, starting at 1.
	Placeholder func(n int) string
}

// Store keeps applied migration IDs in a SQL table. Insertion order is kept
// with an auto-incremented ID column.
type Store struct {
	db      *sql.DB
	table   string
	dialect Dialect
	owned   bool
	timeNow func() time.Time
	logger  *slog.Logger

	mx          sync.Mutex
	schemaReady bool
}

var _ storage.Storage = (*Store)(nil)

// New returns a new Store using the given table. If owned is true, Close closes
// the database.
func New(db *sql.DB, table string, dialect Dialect, owned bool, opts storage.Options) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRx.MatchString(table) {
		return nil, fmt.Errorf("invalid table name '%s'", table)
	}

	timeNow := opts.TimeNow
	if timeNow == nil {
		timeNow = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		db:      db,
		table:   table,
		dialect: dialect,
		owned:   owned,
		timeNow: timeNow,
		logger:  logger.With("storage", dialect.Name, "table", table),
	}, nil
}

// Close closes the database if it's owned by the Store.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close() //nolint:wrapcheck // This is wrapped by the caller.
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.schemaReady {
		return nil
	}

	s.logger.Debug("ensuring migrations table")
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.dialect.CreateTable, s.table)); err != nil {
		return fmt.Errorf("failed creating migrations table: %w", err)
	}
	s.schemaReady = true

	return nil
}

// Executed implements the storage.Storage interface.
func (s *Store) Executed(ctx context.Context) ([]string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT name FROM %s ORDER BY id ASC`, s.table))
	if err != nil {
		return nil, fmt.Errorf("failed querying applied migrations: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed scanning applied migration: %w", err)
		}
		ids = append(ids, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading applied migrations: %w", err)
	}

	return ids, nil
}

// Log implements the storage.Storage interface.
func (s *Store) Log(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (name, applied_at) VALUES (%s, %s)
		ON CONFLICT (name) DO NOTHING`,
		s.table, s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	if _, err := s.db.ExecContext(ctx, stmt, id, s.timeNow().UTC()); err != nil {
		return fmt.Errorf("failed inserting migration record: %w", err)
	}

	return nil
}

// Unlog implements the storage.Storage interface.
func (s *Store) Unlog(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	stmt := fmt.Sprintf(`DELETE FROM %s WHERE name = %s`, s.table, s.dialect.Placeholder(1))
	if _, err := s.db.ExecContext(ctx, stmt, id); err != nil {
		return fmt.Errorf("failed deleting migration record: %w", err)
	}

	return nil
}
