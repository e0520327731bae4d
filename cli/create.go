package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/mandelsoft/vfs/pkg/vfs"

	actx "go.hackfix.me/ratchet/app/context"
	aerrors "go.hackfix.me/ratchet/app/errors"
)

// ordinalLayout is the time layout of the numeric prefix of new migrations.
const ordinalLayout = "20060102150405"

// The Create command writes a new, empty SQL migration file prefixed with the
// current UTC time, so that it sorts after all existing migrations.
type Create struct {
	Name migrationName `arg:"" help:"Name of the migration, e.g. create-users."`
}

// Run the create command.
func (c *Create) Run(appCtx *actx.Context) error {
	cfg := appCtx.Config
	fileName := fmt.Sprintf("%s-%s.sql",
		appCtx.TimeSource.Now().UTC().Format(ordinalLayout), c.Name)
	path := filepath.Join(cfg.Migrations.Path.V, fileName)

	if _, err := appCtx.FS.Stat(path); err == nil {
		return aerrors.NewWith("migration file already exists", "path", path)
	}

	if err := appCtx.FS.MkdirAll(cfg.Migrations.Path.V, 0o755); err != nil {
		return aerrors.NewWithCause("failed creating migrations directory", err,
			"path", cfg.Migrations.Path.V)
	}

	content := fmt.Sprintf("-- +migrate %s\n\n\n-- +migrate %s\n\n",
		cfg.Migrations.UpName.V, cfg.Migrations.DownName.V)
	if err := vfs.WriteFile(appCtx.FS, path, []byte(content), 0o644); err != nil {
		return aerrors.NewWithCause("failed writing migration file", err, "path", path)
	}

	appCtx.Logger.Info("created migration", "path", path)

	_, err := fmt.Fprintln(appCtx.Stdout, path)
	if err != nil {
		return aerrors.NewWithCause("failed writing to stdout", err)
	}

	return nil
}

var migrationNameRx = regexp.MustCompile(`^[\w-]+$`)

type migrationName string

func (n migrationName) Validate() error {
	if !migrationNameRx.MatchString(string(n)) {
		return errors.New("must only contain letters, digits, underscores and hyphens")
	}
	return nil
}
