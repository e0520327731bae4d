package migrator

import (
	"context"
	"fmt"
	"strings"
)

// Direction is the direction a migration is run in.
type Direction string

const (
	// MigrationUp applies a migration.
	MigrationUp Direction = "up"
	// MigrationDown reverts a migration.
	MigrationDown Direction = "down"
)

// DirectionFromString returns the Direction matching s.
func DirectionFromString(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(s)); d {
	case MigrationUp, MigrationDown:
		return d, nil
	default:
		return "", fmt.Errorf("invalid migration direction '%s'", s)
	}
}

// Action is a single migration step. A nil Action is a no-op.
type Action func(ctx context.Context) error

// Migration is a migration file loaded during discovery. Migrations are built
// fresh on every discovery and are never cached between calls.
type Migration struct {
	// ID is the file name of the migration, e.g. "001-create-users.sql". It's
	// the only identity used to compare migrations with applied records.
	ID string
	// Path is the absolute location of the migration file.
	Path string
	// Checksum is the base58 encoded BLAKE2b-256 hash of the file contents.
	Checksum string

	Up   Action
	Down Action
}

// Action returns the action for the given direction, which may be nil.
func (m *Migration) Action(dir Direction) Action {
	if dir == MigrationDown {
		return m.Down
	}
	return m.Up
}

// String implements fmt.Stringer.
func (m *Migration) String() string {
	return m.ID
}

func migrationIDs(migrations []*Migration) []string {
	ids := make([]string, len(migrations))
	for i, m := range migrations {
		ids[i] = m.ID
	}
	return ids
}
