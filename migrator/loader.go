package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Source is the raw content of a migration file handed to a Loader.
type Source struct {
	Name string // file name
	Path string // absolute path
	Data []byte
}

// EntryPoints are the names of the up and down actions inside a migration.
type EntryPoints struct {
	Up   string
	Down string
}

// Loader builds the actions of a migration from its source. A returned nil
// action means the migration has no such action.
type Loader interface {
	Load(src Source, ep EntryPoints) (up, down Action, err error)
}

// Funcs is a Loader for migrations implemented as Go functions. It maps a
// migration file name to its actions, keyed by entry point name. The file on
// disk only determines the migration's existence and order.
type Funcs map[string]map[string]Action

var _ Loader = Funcs(nil)

// Load implements the Loader interface.
func (f Funcs) Load(src Source, ep EntryPoints) (up, down Action, err error) {
	actions, ok := f[src.Name]
	if !ok {
		return nil, nil, errors.New("no functions registered for migration")
	}

	return actions[ep.Up], actions[ep.Down], nil
}

// Execer runs SQL statements. It's satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLLoader loads SQL migration files, which are split into sections by
// `-- +migrate <name>` marker lines. The actions run against DB.
type SQLLoader struct {
	DB Execer
}

var _ Loader = (*SQLLoader)(nil)

// Load implements the Loader interface.
func (l *SQLLoader) Load(src Source, ep EntryPoints) (up, down Action, err error) {
	sections, err := parseSQLSections(src.Data)
	if err != nil {
		return nil, nil, err
	}

	for name := range sections {
		if name != ep.Up && name != ep.Down {
			return nil, nil, fmt.Errorf("unknown section '%s'", name)
		}
	}

	return l.action(sections[ep.Up]), l.action(sections[ep.Down]), nil
}

func (l *SQLLoader) action(query string) Action {
	if query == "" {
		return nil
	}

	return func(ctx context.Context) error {
		if l.DB == nil {
			return errors.New("no database connection configured for SQL migrations")
		}
		if _, err := l.DB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed executing SQL: %w", err)
		}
		return nil
	}
}
