package cli

import (
	actx "go.hackfix.me/ratchet/app/context"
	"go.hackfix.me/ratchet/migrator"
)

// The Up command applies pending migrations in ascending order.
type Up struct {
	To string `help:"Stop after applying the migration whose name starts with this value."`
}

// Run the up command.
func (c *Up) Run(appCtx *actx.Context) error {
	m, closeFn, err := openMigrator(appCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	applied, err := m.Up(appCtx.Ctx, migrator.UpOptions{To: c.To})
	if err != nil {
		return err //nolint:wrapcheck // Migrator errors carry the context.
	}

	return printIDs(appCtx, applied)
}

// The Down command reverts applied migrations, most recently applied first.
type Down struct {
	To string `help:"Stop after reverting the migration whose name starts with this value. If unset, only the last applied migration is reverted."`
}

// Run the down command.
func (c *Down) Run(appCtx *actx.Context) error {
	m, closeFn, err := openMigrator(appCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	reverted, err := m.Down(appCtx.Ctx, migrator.DownOptions{To: c.To})
	if err != nil {
		return err //nolint:wrapcheck // Migrator errors carry the context.
	}

	return printIDs(appCtx, reverted)
}
