package cli

import (
	"slices"

	actx "go.hackfix.me/ratchet/app/context"
	aerrors "go.hackfix.me/ratchet/app/errors"
)

// Migration states shown by the status command.
const (
	stateApplied = "applied"
	statePending = "pending"
	// The migration is recorded as applied, but its file doesn't exist.
	stateMissing = "missing"
)

// The Status command shows all discovered and applied migrations.
type Status struct {
	FullChecksum bool `help:"Show full checksums instead of their first characters."`
}

// Run the status command.
func (c *Status) Run(appCtx *actx.Context) error {
	m, closeFn, err := openMigrator(appCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	discovered, err := m.Discover(appCtx.Ctx)
	if err != nil {
		return err //nolint:wrapcheck // Migrator errors carry the context.
	}
	executed, err := m.Executed(appCtx.Ctx)
	if err != nil {
		return err //nolint:wrapcheck // Migrator errors carry the context.
	}

	appliedIDs := make([]string, len(executed))
	for i, mig := range executed {
		appliedIDs[i] = mig.ID
	}

	rows := make([]statusRow, 0, len(discovered))
	discoveredIDs := make(map[string]struct{}, len(discovered))
	for _, mig := range discovered {
		discoveredIDs[mig.ID] = struct{}{}
		state := statePending
		if slices.Contains(appliedIDs, mig.ID) {
			state = stateApplied
		}
		rows = append(rows, statusRow{ID: mig.ID, State: state, Checksum: mig.Checksum})
	}
	for _, id := range appliedIDs {
		if _, ok := discoveredIDs[id]; !ok {
			rows = append(rows, statusRow{ID: id, State: stateMissing, Checksum: "-"})
		}
	}

	if len(rows) == 0 {
		return nil
	}

	if err = renderStatusTable(rows, c.FullChecksum, appCtx.Stdout); err != nil {
		return aerrors.NewWithCause("failed rendering table", err)
	}

	return nil
}

// The Pending command lists migrations that haven't been applied yet.
type Pending struct{}

// Run the pending command.
func (c *Pending) Run(appCtx *actx.Context) error {
	m, closeFn, err := openMigrator(appCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	pending, err := m.Pending(appCtx.Ctx)
	if err != nil {
		return err //nolint:wrapcheck // Migrator errors carry the context.
	}

	ids := make([]string, len(pending))
	for i, mig := range pending {
		ids[i] = mig.ID
	}

	return printIDs(appCtx, ids)
}

// The Executed command lists applied migrations in the order they were applied.
type Executed struct{}

// Run the executed command.
func (c *Executed) Run(appCtx *actx.Context) error {
	m, closeFn, err := openMigrator(appCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	executed, err := m.Executed(appCtx.Ctx)
	if err != nil {
		return err //nolint:wrapcheck // Migrator errors carry the context.
	}

	ids := make([]string, len(executed))
	for i, mig := range executed {
		ids[i] = mig.ID
	}

	return printIDs(appCtx, ids)
}
