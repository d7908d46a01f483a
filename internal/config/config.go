// Package config loads the optional HCL file that names databases so
// commands can refer to them as "city" instead of a full path.
//
// The file lives at ~/.config/mmdb/config.hcl unless MMDB_CONFIG or the
// --config flag points elsewhere:
//
//	default_database      = "city"
//	default_export_format = "jsonl"
//
//	database "city" {
//	  path = "/var/lib/mmdb/GeoLite2-City.mmdb"
//	}
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Database binds a short name to a database file.
type Database struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

// Config is the decoded configuration file.
type Config struct {
	DefaultDatabase     string     `hcl:"default_database,optional"`
	DefaultExportFormat string     `hcl:"default_export_format,optional"`
	Databases           []Database `hcl:"database,block"`
}

// DefaultPath returns the config file location: $MMDB_CONFIG when set,
// otherwise ~/.config/mmdb/config.hcl.
func DefaultPath() string {
	if p := os.Getenv("MMDB_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mmdb", "config.hcl")
}

// Load decodes the config file at path. The file must exist.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	seen := make(map[string]bool, len(cfg.Databases))
	for _, db := range cfg.Databases {
		if seen[db.Name] {
			return nil, fmt.Errorf("load config %s: duplicate database %q", path, db.Name)
		}
		seen[db.Name] = true
	}
	return &cfg, nil
}

// LoadDefault loads the config from override when given, otherwise from
// DefaultPath. A missing default file is not an error; commands work
// without any configuration.
func LoadDefault(override string) (*Config, error) {
	if override != "" {
		return Load(override)
	}
	path := DefaultPath()
	if path == "" {
		return &Config{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		return &Config{}, nil
	}
	return Load(path)
}

// Resolve turns a --db argument into a database file path. A configured
// name wins over a literal path of the same spelling; an empty argument
// falls back to default_database.
func (c *Config) Resolve(nameOrPath string) (string, error) {
	if nameOrPath == "" {
		if c.DefaultDatabase == "" {
			return "", fmt.Errorf("no database selected; pass --db or set default_database in the config")
		}
		nameOrPath = c.DefaultDatabase
		if c.lookup(nameOrPath) == "" {
			return "", fmt.Errorf("default_database %q is not a configured database", nameOrPath)
		}
	}
	if p := c.lookup(nameOrPath); p != "" {
		return p, nil
	}
	return nameOrPath, nil
}

func (c *Config) lookup(name string) string {
	for _, db := range c.Databases {
		if db.Name == name {
			return db.Path
		}
	}
	return ""
}

// ExportFormat returns the configured default export format, or fallback
// when the config does not set one.
func (c *Config) ExportFormat(fallback string) string {
	if c.DefaultExportFormat != "" {
		return c.DefaultExportFormat
	}
	return fallback
}
