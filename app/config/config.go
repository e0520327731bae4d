package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration, backed by a filesystem for
// persistence. The file is parsed as YAML if its extension is .yaml or .yml,
// and as JSON otherwise.
type Config struct {
	Storage    Storage
	Migrations Migrations
	Database   Database

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Storage defines the storage adapter that records applied migrations.
type Storage struct {
	// Name of the storage adapter, e.g. "json" or "sqlite".
	Name sql.Null[string] `json:"name"`
	// Options are passed to the storage adapter as is.
	Options map[string]string `json:"options"`
}

// Migrations defines where migrations are found and how they're loaded.
type Migrations struct {
	// Path is the directory containing migration files.
	Path sql.Null[string] `json:"path"`
	// Pattern is the regular expression migration file names must match.
	Pattern sql.Null[string] `json:"pattern"`
	// UpName is the name of the section applying a migration.
	UpName sql.Null[string] `json:"up_name"`
	// DownName is the name of the section reverting a migration.
	DownName sql.Null[string] `json:"down_name"`
}

// Database defines the database SQL migrations are run against.
type Database struct {
	Driver sql.Null[string] `json:"driver"`
	DSN    sql.Null[string] `json:"dsn"`
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	data, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that parsing doesn't fail if the file doesn't exist or is empty.
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	if c.isYAML() {
		var w cfgWrapper
		if err = yaml.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("failed parsing configuration file: %w", err)
		}
		c.fromWrapper(w)
		return nil
	}

	if err = json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if c.isYAML() {
		data, err = yaml.Marshal(c.toWrapper())
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}

	if err = vfs.WriteFile(c.fs, c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

func (c *Config) isYAML() bool {
	switch strings.ToLower(filepath.Ext(c.path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

type cfgWrapper struct {
	Storage    storageWrapper    `json:"storage"    yaml:"storage"`
	Migrations migrationsWrapper `json:"migrations" yaml:"migrations"`
	Database   databaseWrapper   `json:"database"   yaml:"database"`
}
type storageWrapper struct {
	Name    string            `json:"name,omitempty"    yaml:"name,omitempty"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}
type migrationsWrapper struct {
	Path     string `json:"path,omitempty"      yaml:"path,omitempty"`
	Pattern  string `json:"pattern,omitempty"   yaml:"pattern,omitempty"`
	UpName   string `json:"up_name,omitempty"   yaml:"up_name,omitempty"`
	DownName string `json:"down_name,omitempty" yaml:"down_name,omitempty"`
}
type databaseWrapper struct {
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN    string `json:"dsn,omitempty"    yaml:"dsn,omitempty"`
}

func (c Config) toWrapper() cfgWrapper {
	w := cfgWrapper{}

	if c.Storage.Name.Valid {
		w.Storage.Name = c.Storage.Name.V
	}
	if len(c.Storage.Options) > 0 {
		w.Storage.Options = maps.Clone(c.Storage.Options)
	}

	if c.Migrations.Path.Valid {
		w.Migrations.Path = c.Migrations.Path.V
	}
	if c.Migrations.Pattern.Valid {
		w.Migrations.Pattern = c.Migrations.Pattern.V
	}
	if c.Migrations.UpName.Valid {
		w.Migrations.UpName = c.Migrations.UpName.V
	}
	if c.Migrations.DownName.Valid {
		w.Migrations.DownName = c.Migrations.DownName.V
	}

	if c.Database.Driver.Valid {
		w.Database.Driver = c.Database.Driver.V
	}
	if c.Database.DSN.Valid {
		w.Database.DSN = c.Database.DSN.V
	}

	return w
}

func (c *Config) fromWrapper(w cfgWrapper) {
	if w.Storage.Name != "" {
		c.Storage.Name = sql.Null[string]{V: w.Storage.Name, Valid: true}
	}
	if len(w.Storage.Options) > 0 {
		c.Storage.Options = maps.Clone(w.Storage.Options)
	}

	if w.Migrations.Path != "" {
		c.Migrations.Path = sql.Null[string]{V: w.Migrations.Path, Valid: true}
	}
	if w.Migrations.Pattern != "" {
		c.Migrations.Pattern = sql.Null[string]{V: w.Migrations.Pattern, Valid: true}
	}
	if w.Migrations.UpName != "" {
		c.Migrations.UpName = sql.Null[string]{V: w.Migrations.UpName, Valid: true}
	}
	if w.Migrations.DownName != "" {
		c.Migrations.DownName = sql.Null[string]{V: w.Migrations.DownName, Valid: true}
	}

	if w.Database.Driver != "" {
		c.Database.Driver = sql.Null[string]{V: w.Database.Driver, Valid: true}
	}
	if w.Database.DSN != "" {
		c.Database.DSN = sql.Null[string]{V: w.Database.DSN, Valid: true}
	}
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	//nolint:wrapcheck // This is fine.
	return json.Marshal(c.toWrapper())
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}
	c.fromWrapper(w)

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
// Relative migration and storage paths are resolved against workDir.
func (c *Config) SetDefaults(workDir string) {
	if !c.Storage.Name.Valid {
		c.Storage.Name = sql.Null[string]{V: "json", Valid: true}
	}
	if c.Storage.Name.V == "json" {
		if c.Storage.Options == nil {
			c.Storage.Options = map[string]string{}
		}
		path := c.Storage.Options["path"]
		if path == "" {
			path = "migrations.json"
		}
		c.Storage.Options["path"] = resolvePath(workDir, path)
	}

	if !c.Migrations.Path.Valid {
		c.Migrations.Path = sql.Null[string]{V: "migrations", Valid: true}
	}
	c.Migrations.Path.V = resolvePath(workDir, c.Migrations.Path.V)

	if !c.Migrations.UpName.Valid {
		c.Migrations.UpName = sql.Null[string]{V: "up", Valid: true}
	}
	if !c.Migrations.DownName.Valid {
		c.Migrations.DownName = sql.Null[string]{V: "down", Valid: true}
	}
}

func resolvePath(workDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(workDir, path)
}
