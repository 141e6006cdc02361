package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	DriverSQLite    = "sqlite3"
	DriverSQLServer = "sqlserver"

	DefaultSeedsDir = "seeds"
	DefaultMetaFile = "seed_meta.json"
	DefaultDBPath   = "dbseed.db"
)

type DatabaseConfig struct {
	Driver   string `json:"driver" mapstructure:"driver"`
	Path     string `json:"path" mapstructure:"path"`
	Server   string `json:"server" mapstructure:"server"`
	Port     string `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

type QuerysetConfig struct {
	Model      string   `json:"model" mapstructure:"model"`
	Table      string   `json:"table" mapstructure:"table"`
	PK         string   `json:"pk" mapstructure:"pk"`
	Fields     []string `json:"fields" mapstructure:"fields"`
	Where      string   `json:"where" mapstructure:"where"`
	OrderBy    string   `json:"order_by" mapstructure:"order_by"`
	IdentityPK bool     `json:"identity_pk" mapstructure:"identity_pk"`
}

type SeederConfig struct {
	Slug           string           `json:"slug" mapstructure:"slug"`
	Tags           []string         `json:"tags" mapstructure:"tags"`
	Path           string           `json:"path" mapstructure:"path"`
	DeleteExisting bool             `json:"delete_existing" mapstructure:"delete_existing"`
	Querysets      []QuerysetConfig `json:"querysets" mapstructure:"querysets"`
}

type Config struct {
	Database   DatabaseConfig `json:"database" mapstructure:"database"`
	SeedsDir   string         `json:"seeds_dir" mapstructure:"seeds_dir"`
	MetaFile   string         `json:"meta_file" mapstructure:"meta_file"`
	LogLevel   string         `json:"log_level" mapstructure:"log_level"`
	Playground bool           `json:"playground" mapstructure:"playground"`
	Seeders    []SeederConfig `json:"seeders" mapstructure:"seeders"`
}

// Validate fills defaults and rejects configurations that cannot be connected to.
func (c *Config) Validate() error {
	if c.SeedsDir == "" {
		c.SeedsDir = DefaultSeedsDir
	}
	if c.MetaFile == "" {
		c.MetaFile = filepath.Join(c.SeedsDir, DefaultMetaFile)
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Seeders))
	for i, s := range c.Seeders {
		slug := strings.TrimSpace(s.Slug)
		if slug == "" {
			return fmt.Errorf("seeders[%d]: slug is required", i)
		}
		if seen[slug] {
			return fmt.Errorf("seeders[%d]: duplicate slug %q", i, slug)
		}
		seen[slug] = true
		if len(s.Querysets) == 0 {
			return fmt.Errorf("seeder %q: at least one queryset is required", slug)
		}
		for j, q := range s.Querysets {
			if q.Table == "" {
				return fmt.Errorf("seeder %q: querysets[%d].table is required", slug, j)
			}
		}
	}
	return nil
}

func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "", DriverSQLite, "sqlite":
		d.Driver = DriverSQLite
		if d.Path == "" {
			d.Path = DefaultDBPath
		}
	case DriverSQLServer, "mssql":
		d.Driver = DriverSQLServer
		if d.Server == "" {
			d.Server = "localhost"
		}
		if d.Port == "" {
			d.Port = "1433"
		}
		if d.Database == "" {
			return fmt.Errorf("the database name is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", d.Driver)
	}
	return nil
}
