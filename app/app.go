package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"go.hackfix.me/ratchet/app/config"
	actx "go.hackfix.me/ratchet/app/context"
	"go.hackfix.me/ratchet/cli"
)

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application. configFilePath is the configuration file
// used if none is given on the command line.
func New(name, configFilePath string, opts ...Option) (*App, error) {
	defaultCtx := &actx.Context{
		Ctx:        context.Background(),
		FS:         memoryfs.New(),
		Logger:     slog.Default(),
		TimeSource: timeSourceFunc(time.Now),
		Version:    "dev",
	}
	app := &App{name: name, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	if app.ctx.Env == nil {
		return nil, fmt.Errorf("the process environment is required")
	}

	var err error
	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version)
	app.cli, err = cli.New(configFilePath, ver)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run parses the command line arguments, loads the configuration and
// executes the selected command.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	cfg := config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
	if err := cfg.Load(); err != nil {
		return err //nolint:wrapcheck // This is already wrapped.
	}
	app.cli.OverrideConfig(cfg)

	workDir, err := app.ctx.Env.Getwd()
	if err != nil {
		return fmt.Errorf("failed getting working directory: %w", err)
	}
	cfg.SetDefaults(workDir)
	app.ctx.Config = cfg

	app.ctx.Logger.Debug("loaded configuration",
		"path", cfg.Path(), "storage", cfg.Storage.Name.V,
		"migrations_path", cfg.Migrations.Path.V)

	return app.cli.Execute(app.ctx)
}

type timeSourceFunc func() time.Time

func (f timeSourceFunc) Now() time.Time {
	return f()
}
