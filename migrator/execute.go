package migrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/nrednav/cuid2"

	"go.hackfix.me/ratchet/storage"
)

// UpOptions configure Migrator.Up.
type UpOptions struct {
	// To is the ID prefix of the last migration to apply. If empty, all pending
	// migrations are applied.
	To string
}

// DownOptions configure Migrator.Down.
type DownOptions struct {
	// To is the ID prefix of the last migration to revert. If empty, only the
	// most recently applied migration is reverted.
	To string
}

// Execute runs the migrations with the given IDs in order. Each ID matches the
// first discovered migration whose file name starts with it.
//
// All IDs are resolved before anything runs, so a NotFoundError leaves the
// storage untouched. Applying skips migrations that are already applied.
// Reverting always runs the down action and removes the applied record. The
// first failing migration stops the batch, and migrations run before it stay
// as they are.
func (m *Migrator) Execute(ctx context.Context, ids []string, dir Direction) error {
	return m.execute(ctx, ids, dir, m.logger.With("run_id", cuid2.Generate()))
}

// Up applies pending migrations in ascending order, up to and including the
// one matching opts.To. It returns the IDs of the migrations in the batch.
func (m *Migrator) Up(ctx context.Context, opts UpOptions) ([]string, error) {
	logger := m.logger.With("run_id", cuid2.Generate())

	pend, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	batch, ok := truncateAt(migrationIDs(pend), opts.To)
	if !ok {
		logger.Warn("no pending migration matches the target, applying all", "to", opts.To)
	}
	if len(batch) == 0 {
		logger.Info("no pending migrations")
		return batch, nil
	}

	if err = m.execute(ctx, batch, MigrationUp, logger); err != nil {
		return nil, err
	}

	return batch, nil
}

// Down reverts applied migrations, most recently applied first, down to and
// including the one matching opts.To. Without opts.To only the most recently
// applied migration is reverted. It returns the IDs of the migrations in the
// batch.
func (m *Migrator) Down(ctx context.Context, opts DownOptions) ([]string, error) {
	logger := m.logger.With("run_id", cuid2.Generate())

	executed, err := m.Executed(ctx)
	if err != nil {
		return nil, err
	}

	ids := migrationIDs(executed)
	slices.Reverse(ids)

	batch := ids[:min(1, len(ids))]
	if opts.To != "" {
		var ok bool
		if batch, ok = truncateAt(ids, opts.To); !ok {
			logger.Warn("no applied migration matches the target, reverting all", "to", opts.To)
		}
	}
	if len(batch) == 0 {
		logger.Info("no applied migrations")
		return batch, nil
	}

	if err = m.execute(ctx, batch, MigrationDown, logger); err != nil {
		return nil, err
	}

	return batch, nil
}

// truncateAt returns the IDs up to and including the one matching to. It
// returns all IDs if to is empty or matches none of them, in which case ok is
// false.
func truncateAt(ids []string, to string) (batch []string, ok bool) {
	if to == "" {
		return ids, true
	}
	if i := matchID(ids, to); i >= 0 {
		return ids[:i+1], true
	}

	return ids, false
}

func (m *Migrator) execute(ctx context.Context, ids []string, dir Direction, logger *slog.Logger) error {
	if dir != MigrationUp && dir != MigrationDown {
		return fmt.Errorf("invalid migration direction '%s'", dir)
	}
	if len(ids) == 0 {
		return nil
	}

	discovered, err := m.Discover(ctx)
	if err != nil {
		return err
	}

	batch := make([]*Migration, 0, len(ids))
	for _, id := range ids {
		mig, err := findMigration(discovered, id)
		if err != nil {
			return err
		}
		batch = append(batch, mig)
	}

	logger = logger.With("direction", dir)
	logger.Debug("running migrations", "count", len(batch))

	for _, mig := range batch {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("migrations interrupted before '%s': %w", mig.ID, err)
		}
		if err = m.run(ctx, mig, dir, logger.With("migration", mig.ID)); err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) run(ctx context.Context, mig *Migration, dir Direction, logger *slog.Logger) error {
	applied, err := storage.Contains(ctx, m.storage, mig.ID)
	if err != nil {
		return fmt.Errorf("failed checking state of migration '%s': %w", mig.ID, err)
	}

	if dir == MigrationUp && applied {
		logger.Debug("migration already applied, skipping")
		return nil
	}

	start := time.Now()
	if action := mig.Action(dir); action != nil {
		if err = action(ctx); err != nil {
			return ActionError{ID: mig.ID, Direction: dir, Err: err}
		}
	} else {
		logger.Debug("migration has no action")
	}

	switch dir {
	case MigrationUp:
		if err = m.storage.Log(ctx, mig.ID); err != nil {
			return fmt.Errorf("failed recording migration '%s': %w", mig.ID, err)
		}
		logger.Info("applied migration", "duration", time.Since(start))
	case MigrationDown:
		if err = m.storage.Unlog(ctx, mig.ID); err != nil {
			return fmt.Errorf("failed removing record of migration '%s': %w", mig.ID, err)
		}
		logger.Info("reverted migration", "duration", time.Since(start), "was_applied", applied)
	}

	return nil
}

func findMigration(migrations []*Migration, id string) (*Migration, error) {
	if i := matchID(migrationIDs(migrations), id); i >= 0 {
		return migrations[i], nil
	}

	return nil, NotFoundError{ID: id}
}

// matchID returns the index of the ID equal to id, with or without its
// extension, or else of the first ID starting with id. It returns -1 if
// nothing matches.
func matchID(ids []string, id string) int {
	if id == "" {
		return -1
	}
	for i, v := range ids {
		if v == id || strings.TrimSuffix(v, filepath.Ext(v)) == id {
			return i
		}
	}
	for i, v := range ids {
		if strings.HasPrefix(v, id) {
			return i
		}
	}

	return -1
}
