package cli

import (
	actx "go.hackfix.me/ratchet/app/context"
	aerrors "go.hackfix.me/ratchet/app/errors"
)

// The Init command writes the effective configuration, i.e. the defaults merged
// with any given flags, to the configuration file.
type Init struct {
	Force bool `help:"Overwrite an existing configuration file."`
}

// Run the init command.
func (c *Init) Run(appCtx *actx.Context) error {
	cfg := appCtx.Config
	if cfg == nil {
		panic("the application configuration wasn't loaded")
	}

	if _, err := appCtx.FS.Stat(cfg.Path()); err == nil && !c.Force {
		return aerrors.NewWith("configuration file already exists", "path", cfg.Path())
	}

	if err := cfg.Save(); err != nil {
		return aerrors.WithCause(err, nil, "path", cfg.Path())
	}

	appCtx.Logger.Info("wrote configuration file", "path", cfg.Path())

	return nil
}
