package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"go.hackfix.me/ratchet/app/config"
	actx "go.hackfix.me/ratchet/app/context"
	"go.hackfix.me/ratchet/storage/builtin"
)

// CLI is the command line interface of ratchet.
type CLI struct {
	Up         Up       `kong:"cmd,help='Apply pending migrations.'"`
	Down       Down     `kong:"cmd,help='Revert applied migrations.'"`
	ExecuteCmd Execute  `kong:"cmd,name='execute',help='Apply or revert specific migrations.'"`
	Status     Status   `kong:"cmd,help='Show the state of all migrations.'"`
	Pending    Pending  `kong:"cmd,help='List pending migrations.'"`
	Executed   Executed `kong:"cmd,help='List applied migrations.'"`
	Create     Create   `kong:"cmd,help='Create a new SQL migration file.'"`
	Init       Init     `kong:"cmd,help='Write the effective configuration to the configuration file.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	ConfigFile        string            `kong:"default='${configFile}',help='Path to the configuration file (JSON or YAML).'"`
	MigrationsPath    string            `kong:"help='Directory containing migration files. Default: ./migrations'"`
	MigrationsPattern string            `kong:"help='Regular expression migration file names must match.'"`
	UpName            string            `kong:"help='Name of the section applying a migration. Default: up'"`
	DownName          string            `kong:"help='Name of the section reverting a migration. Default: down'"`
	Storage           string            `kong:"help='Storage adapter recording applied migrations (${storages}). Default: json'"`
	StorageOption     map[string]string `kong:"help='Storage adapter option as key=value, e.g. path=migrations.json or dsn=...'"`
	DBDriver          string            `kong:"name='db-driver',help='Driver of the database SQL migrations run against (sqlite, postgres).'"`
	DBDSN             string            `kong:"name='db-dsn',help='DSN of the database SQL migrations run against.'"`
	Timeout           time.Duration     `kong:"help='Abort when running migrations takes longer than this. 0 disables it.'"`
	Version           kong.VersionFlag  `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(configFilePath, version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("ratchet"),
		kong.Description("Apply and revert versioned migrations."),
		kong.UsageOnError(),
		kong.DefaultEnvars("RATCHET"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"storages":   strings.Join(builtin.Registry().Names(), ", "),
			"version":    version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	if c.Timeout > 0 {
		ctx, cancel := context.WithTimeout(appCtx.Ctx, c.Timeout)
		defer cancel()
		cmdCtx := *appCtx
		cmdCtx.Ctx = ctx
		appCtx = &cmdCtx
	}

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// OverrideConfig sets the configuration values that were given on the command
// line, which take precedence over the configuration file.
func (c *CLI) OverrideConfig(cfg *config.Config) {
	set := func(dst *sql.Null[string], v string) {
		if v != "" {
			*dst = sql.Null[string]{V: v, Valid: true}
		}
	}

	set(&cfg.Migrations.Path, c.MigrationsPath)
	set(&cfg.Migrations.Pattern, c.MigrationsPattern)
	set(&cfg.Migrations.UpName, c.UpName)
	set(&cfg.Migrations.DownName, c.DownName)
	set(&cfg.Database.Driver, c.DBDriver)
	set(&cfg.Database.DSN, c.DBDSN)

	if c.Storage != "" && (!cfg.Storage.Name.Valid || cfg.Storage.Name.V != c.Storage) {
		// Options of another adapter don't apply.
		cfg.Storage.Options = nil
	}
	set(&cfg.Storage.Name, c.Storage)
	if len(c.StorageOption) > 0 {
		if cfg.Storage.Options == nil {
			cfg.Storage.Options = map[string]string{}
		}
		maps.Copy(cfg.Storage.Options, c.StorageOption)
	}
}
