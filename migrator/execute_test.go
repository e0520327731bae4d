package migrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/ratchet/migrator"
)

func TestMigratorExecute(t *testing.T) {
	t.Parallel()

	t.Run("ok/up_runs_up_action", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "123-migration.sql")

		err := f.m.Execute(t.Context(), []string{"123-migration"}, migrator.MigrationUp)
		require.NoError(t, err)
		assert.Equal(t, []string{"up:123-migration.sql"}, f.getCalls())
		assert.Equal(t, []string{"123-migration.sql"}, f.applied(t))
	})

	t.Run("ok/down_runs_down_action", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "123-migration.sql")

		err := f.m.Execute(t.Context(), []string{"123-migration"}, migrator.MigrationDown)
		require.NoError(t, err)
		assert.Equal(t, []string{"down:123-migration.sql"}, f.getCalls())
		assert.Empty(t, f.applied(t))
	})

	t.Run("ok/up_twice_runs_once", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "123-migration.sql")

		for range 2 {
			err := f.m.Execute(t.Context(), []string{"123-migration"}, migrator.MigrationUp)
			require.NoError(t, err)
		}
		assert.Equal(t, 1, f.countCalls("up:123-migration.sql"))
		assert.Equal(t, 0, f.countCalls("down:123-migration.sql"))
		assert.Equal(t, []string{"123-migration.sql"}, f.applied(t))
	})

	t.Run("ok/down_after_up", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "123-migration.sql")

		require.NoError(t, f.m.Execute(t.Context(), []string{"123"}, migrator.MigrationUp))
		require.NoError(t, f.m.Execute(t.Context(), []string{"123"}, migrator.MigrationDown))
		assert.Equal(t, []string{"up:123-migration.sql", "down:123-migration.sql"}, f.getCalls())
		assert.Empty(t, f.applied(t))
	})

	t.Run("ok/order_as_given", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql", "002-b.sql", "003-c.sql")

		err := f.m.Execute(t.Context(),
			[]string{"003-c.sql", "001-a.sql", "002-b.sql"}, migrator.MigrationUp)
		require.NoError(t, err)
		assert.Equal(t, []string{"up:003-c.sql", "up:001-a.sql", "up:002-b.sql"}, f.getCalls())
		assert.Equal(t, []string{"003-c.sql", "001-a.sql", "002-b.sql"}, f.applied(t))
	})

	t.Run("ok/exact_match_wins_over_prefix", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "1-migration-two.sql", "1-migration.sql")

		err := f.m.Execute(t.Context(), []string{"1-migration"}, migrator.MigrationUp)
		require.NoError(t, err)
		assert.Equal(t, []string{"up:1-migration.sql"}, f.getCalls())
	})

	t.Run("ok/missing_action", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.addFile(t, "001-a.sql")
		m, err := migrator.New(
			migrator.WithFS(f.fs),
			migrator.WithMigrationsPath(migrationsDir),
			migrator.WithLoader(".sql", migrator.Funcs{"001-a.sql": {}}),
			migrator.WithStorageInstance(f.store),
		)
		require.NoError(t, err)

		require.NoError(t, m.Execute(t.Context(), []string{"001"}, migrator.MigrationUp))
		assert.Equal(t, []string{"001-a.sql"}, f.applied(t))
		require.NoError(t, m.Execute(t.Context(), []string{"001"}, migrator.MigrationDown))
		assert.Empty(t, f.applied(t))
	})

	t.Run("ok/custom_entry_points", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.addFile(t, "001-a.sql")
		var calls []string
		record := func(name string) migrator.Action {
			return func(context.Context) error {
				calls = append(calls, name)
				return nil
			}
		}
		m, err := migrator.New(
			migrator.WithFS(f.fs),
			migrator.WithMigrationsPath(migrationsDir),
			migrator.WithEntryPoints("forward", "backward"),
			migrator.WithLoader(".sql", migrator.Funcs{"001-a.sql": {
				"up":       record("up"),
				"down":     record("down"),
				"forward":  record("forward"),
				"backward": record("backward"),
			}}),
			migrator.WithStorageInstance(f.store),
		)
		require.NoError(t, err)

		require.NoError(t, m.Execute(t.Context(), []string{"001"}, migrator.MigrationUp))
		require.NoError(t, m.Execute(t.Context(), []string{"001"}, migrator.MigrationDown))
		assert.Equal(t, []string{"forward", "backward"}, calls)
	})

	t.Run("ok/empty_batch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql")

		require.NoError(t, f.m.Execute(t.Context(), nil, migrator.MigrationUp))
		assert.Empty(t, f.getCalls())
	})

	t.Run("err/not_found_no_mutation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql")

		err := f.m.Execute(t.Context(), []string{"001-a", "999-missing"}, migrator.MigrationUp)
		var nfErr migrator.NotFoundError
		require.True(t, errors.As(err, &nfErr))
		assert.Equal(t, "999-missing", nfErr.ID)
		assert.Empty(t, f.getCalls())
		assert.Empty(t, f.applied(t))
	})

	t.Run("err/action_fails_stops_batch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql", "002-b.sql", "003-c.sql")
		f.failOn["up:002-b.sql"] = errors.New("syntax error")

		err := f.m.Execute(t.Context(),
			[]string{"001", "002", "003"}, migrator.MigrationUp)
		var actErr migrator.ActionError
		require.True(t, errors.As(err, &actErr))
		assert.Equal(t, "002-b.sql", actErr.ID)
		assert.Equal(t, migrator.MigrationUp, actErr.Direction)
		assert.EqualError(t, err, "failed running up migration '002-b.sql': syntax error")
		assert.Equal(t, []string{"up:001-a.sql", "up:002-b.sql"}, f.getCalls())
		assert.Equal(t, []string{"001-a.sql"}, f.applied(t))
	})

	t.Run("err/down_action_fails_keeps_record", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql")
		require.NoError(t, f.store.Log(t.Context(), "001-a.sql"))
		f.failOn["down:001-a.sql"] = errors.New("locked")

		err := f.m.Execute(t.Context(), []string{"001"}, migrator.MigrationDown)
		var actErr migrator.ActionError
		require.True(t, errors.As(err, &actErr))
		assert.Equal(t, []string{"001-a.sql"}, f.applied(t))
	})

	t.Run("err/invalid_direction", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql")

		err := f.m.Execute(t.Context(), []string{"001"}, migrator.Direction("sideways"))
		require.EqualError(t, err, "invalid migration direction 'sideways'")
		assert.Empty(t, f.getCalls())
	})

	t.Run("err/canceled_between_migrations", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.addFile(t, "001-a.sql")
		f.addFile(t, "002-b.sql")
		ctx, cancel := context.WithCancel(t.Context())
		var calls []string
		m, err := migrator.New(
			migrator.WithFS(f.fs),
			migrator.WithMigrationsPath(migrationsDir),
			migrator.WithLoader(".sql", migrator.Funcs{
				"001-a.sql": {"up": func(context.Context) error {
					calls = append(calls, "001-a.sql")
					cancel()
					return nil
				}},
				"002-b.sql": {"up": func(context.Context) error {
					calls = append(calls, "002-b.sql")
					return nil
				}},
			}),
			migrator.WithStorageInstance(f.store),
		)
		require.NoError(t, err)

		err = m.Execute(ctx, []string{"001", "002"}, migrator.MigrationUp)
		require.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "migrations interrupted before '002-b.sql'")
		assert.Equal(t, []string{"001-a.sql"}, calls)
		assert.Equal(t, []string{"001-a.sql"}, f.applied(t))
	})

	t.Run("err/storage_fails", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql")
		f.store.SetFailError(errors.New("read-only"))

		err := f.m.Execute(t.Context(), []string{"001"}, migrator.MigrationUp)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed checking state of migration '001-a.sql': read-only")
		assert.Empty(t, f.getCalls())
	})
}

func TestMigratorUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		files      []string
		applied    []string
		to         string
		expBatch   []string
		expApplied []string
	}{
		{
			name:       "ok/all_pending",
			files:      []string{"001-a.sql", "002-b.sql", "003-c.sql"},
			expBatch:   []string{"001-a.sql", "002-b.sql", "003-c.sql"},
			expApplied: []string{"001-a.sql", "002-b.sql", "003-c.sql"},
		},
		{
			name:       "ok/to_prefix",
			files:      []string{"001-a.sql", "002-b.sql"},
			to:         "001",
			expBatch:   []string{"001-a.sql"},
			expApplied: []string{"001-a.sql"},
		},
		{
			name:       "ok/to_inclusive",
			files:      []string{"001-a.sql", "002-b.sql", "003-c.sql", "004-d.sql"},
			to:         "003-c.sql",
			expBatch:   []string{"001-a.sql", "002-b.sql", "003-c.sql"},
			expApplied: []string{"001-a.sql", "002-b.sql", "003-c.sql"},
		},
		{
			name:       "ok/skips_applied",
			files:      []string{"001-a.sql", "002-b.sql", "003-c.sql"},
			applied:    []string{"002-b.sql"},
			expBatch:   []string{"001-a.sql", "003-c.sql"},
			expApplied: []string{"002-b.sql", "001-a.sql", "003-c.sql"},
		},
		{
			name:       "ok/nothing_pending",
			files:      []string{"001-a.sql"},
			applied:    []string{"001-a.sql"},
			expBatch:   []string{},
			expApplied: []string{"001-a.sql"},
		},
		{
			name:       "ok/to_not_pending",
			files:      []string{"001-a.sql", "002-b.sql"},
			applied:    []string{"001-a.sql"},
			to:         "001",
			expBatch:   []string{"002-b.sql"},
			expApplied: []string{"001-a.sql", "002-b.sql"},
		},
		{
			name:       "ok/to_matches_nothing",
			files:      []string{"001-a.sql", "002-b.sql"},
			to:         "009",
			expBatch:   []string{"001-a.sql", "002-b.sql"},
			expApplied: []string{"001-a.sql", "002-b.sql"},
		},
		{
			name:       "ok/to_exact_match_wins_over_prefix",
			files:      []string{"1-migration-two.sql", "1-migration.sql", "2-other.sql"},
			to:         "1-migration",
			expBatch:   []string{"1-migration-two.sql", "1-migration.sql"},
			expApplied: []string{"1-migration-two.sql", "1-migration.sql"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, tt.files...)
			for _, id := range tt.applied {
				require.NoError(t, f.store.Log(t.Context(), id))
			}

			batch, err := f.m.Up(t.Context(), migrator.UpOptions{To: tt.to})
			require.NoError(t, err)
			assert.Equal(t, tt.expBatch, batch)
			assert.Equal(t, tt.expApplied, f.applied(t))
		})
	}

	t.Run("ok/pending_after_partial_up", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql", "002-b.sql")

		_, err := f.m.Up(t.Context(), migrator.UpOptions{To: "001"})
		require.NoError(t, err)

		pending, err := f.m.Pending(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []string{"002-b.sql"}, ids(pending))
	})

	t.Run("ok/scenario_up_up_down", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "123-migration.sql")

		_, err := f.m.Up(t.Context(), migrator.UpOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, f.countCalls("up:123-migration.sql"))
		assert.Equal(t, []string{"123-migration.sql"}, f.applied(t))

		_, err = f.m.Up(t.Context(), migrator.UpOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, f.countCalls("up:123-migration.sql"))
		assert.Equal(t, []string{"123-migration.sql"}, f.applied(t))

		_, err = f.m.Down(t.Context(), migrator.DownOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, f.countCalls("down:123-migration.sql"))
		assert.Empty(t, f.applied(t))
	})

	t.Run("err/action_fails", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql", "002-b.sql", "003-c.sql")
		f.failOn["up:002-b.sql"] = errors.New("boom")

		batch, err := f.m.Up(t.Context(), migrator.UpOptions{})
		require.Error(t, err)
		assert.Nil(t, batch)
		assert.Equal(t, []string{"001-a.sql"}, f.applied(t))

		pending, err := f.m.Pending(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []string{"002-b.sql", "003-c.sql"}, ids(pending))
	})
}

func TestMigratorDown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		files      []string
		applied    []string
		to         string
		expBatch   []string
		expCalls   []string
		expApplied []string
		expErr     string
	}{
		{
			name:       "ok/last_applied_only",
			files:      []string{"001-a.sql", "002-b.sql", "003-c.sql"},
			applied:    []string{"001-a.sql", "002-b.sql", "003-c.sql"},
			expBatch:   []string{"003-c.sql"},
			expCalls:   []string{"down:003-c.sql"},
			expApplied: []string{"001-a.sql", "002-b.sql"},
		},
		{
			name:       "ok/last_applied_not_last_file",
			files:      []string{"001-a.sql", "002-b.sql", "003-c.sql"},
			applied:    []string{"003-c.sql", "001-a.sql"},
			expBatch:   []string{"001-a.sql"},
			expCalls:   []string{"down:001-a.sql"},
			expApplied: []string{"003-c.sql"},
		},
		{
			name:       "ok/to_inclusive",
			files:      []string{"001-a.sql", "002-b.sql", "003-c.sql"},
			applied:    []string{"001-a.sql", "002-b.sql", "003-c.sql"},
			to:         "002",
			expBatch:   []string{"003-c.sql", "002-b.sql"},
			expCalls:   []string{"down:003-c.sql", "down:002-b.sql"},
			expApplied: []string{"001-a.sql"},
		},
		{
			name:       "ok/to_first",
			files:      []string{"001-a.sql", "002-b.sql"},
			applied:    []string{"001-a.sql", "002-b.sql"},
			to:         "001-a.sql",
			expBatch:   []string{"002-b.sql", "001-a.sql"},
			expCalls:   []string{"down:002-b.sql", "down:001-a.sql"},
			expApplied: []string{},
		},
		{
			name:       "ok/nothing_applied",
			files:      []string{"001-a.sql"},
			expBatch:   []string{},
			expCalls:   []string{},
			expApplied: []string{},
		},
		{
			name:       "ok/to_not_applied",
			files:      []string{"001-a.sql", "002-b.sql"},
			applied:    []string{"001-a.sql"},
			to:         "002",
			expBatch:   []string{"001-a.sql"},
			expCalls:   []string{"down:001-a.sql"},
			expApplied: []string{},
		},
		{
			name:       "ok/to_matches_nothing",
			files:      []string{"001-a.sql", "002-b.sql"},
			applied:    []string{"001-a.sql", "002-b.sql"},
			to:         "009",
			expBatch:   []string{"002-b.sql", "001-a.sql"},
			expCalls:   []string{"down:002-b.sql", "down:001-a.sql"},
			expApplied: []string{},
		},
		{
			name:       "ok/to_exact_match_wins_over_prefix",
			files:      []string{"1-migration-two.sql", "1-migration.sql"},
			applied:    []string{"1-migration.sql", "1-migration-two.sql"},
			to:         "1-migration",
			expBatch:   []string{"1-migration-two.sql", "1-migration.sql"},
			expCalls:   []string{"down:1-migration-two.sql", "down:1-migration.sql"},
			expApplied: []string{},
		},
		{
			name:       "err/applied_file_missing",
			files:      []string{"001-a.sql"},
			applied:    []string{"001-a.sql", "002-gone.sql"},
			expErr:     "migration '002-gone.sql' doesn't exist",
			expApplied: []string{"001-a.sql", "002-gone.sql"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, tt.files...)
			for _, id := range tt.applied {
				require.NoError(t, f.store.Log(t.Context(), id))
			}

			batch, err := f.m.Down(t.Context(), migrator.DownOptions{To: tt.to})

			if tt.expErr != "" {
				require.EqualError(t, err, tt.expErr)
				assert.Empty(t, f.getCalls())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expBatch, batch)
				assert.Equal(t, tt.expCalls, f.getCalls())
			}
			assert.Equal(t, tt.expApplied, f.applied(t))
		})
	}

	t.Run("ok/round_trip", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "001-a.sql", "002-b.sql")
		_, err := f.m.Up(t.Context(), migrator.UpOptions{To: "001"})
		require.NoError(t, err)
		before := f.applied(t)

		_, err = f.m.Up(t.Context(), migrator.UpOptions{})
		require.NoError(t, err)
		_, err = f.m.Down(t.Context(), migrator.DownOptions{})
		require.NoError(t, err)

		assert.Equal(t, before, f.applied(t))
	})
}
