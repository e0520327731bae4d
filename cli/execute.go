package cli

import (
	actx "go.hackfix.me/ratchet/app/context"
	"go.hackfix.me/ratchet/migrator"
)

// The Execute command applies or reverts specific migrations in the given
// order. Reverting always runs the down action, even if the migration isn't
// recorded as applied.
type Execute struct {
	Method     string   `enum:"up,down" default:"up" help:"Whether to apply (up) or revert (down) the migrations."`
	Migrations []string `arg:"" help:"Names, or name prefixes, of the migrations to run."`
}

// Run the execute command.
func (c *Execute) Run(appCtx *actx.Context) error {
	dir, err := migrator.DirectionFromString(c.Method)
	if err != nil {
		return err //nolint:wrapcheck // This is fine.
	}

	m, closeFn, err := openMigrator(appCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	//nolint:wrapcheck // Migrator errors carry the context.
	return m.Execute(appCtx.Ctx, c.Migrations, dir)
}
