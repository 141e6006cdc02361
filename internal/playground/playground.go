// Package playground holds the example_preset seed used by the demo command and the integration tests.
package playground

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/victorlunam/dbseed/internal/database"
	"github.com/victorlunam/dbseed/internal/models"
	"github.com/victorlunam/dbseed/internal/seeds"
)

const (
	ExamplePresetSlug  = "example_preset"
	ExamplePresetTable = "playground_examplepreset"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS playground_examplepreset (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    value INTEGER NOT NULL
);
`

const sqlServerSchema = `
IF OBJECT_ID(N'playground_examplepreset', N'U') IS NULL
CREATE TABLE playground_examplepreset (
    id BIGINT IDENTITY(1,1) PRIMARY KEY,
    name NVARCHAR(255) NOT NULL,
    value INT NOT NULL
);
`

type ExamplePreset struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Value int64  `db:"value"`
}

var ExamplePresetModel = models.Model{
	Name:       "playground.examplepreset",
	Table:      ExamplePresetTable,
	PK:         "id",
	IdentityPK: true,
}

// ExamplePresetSeed is the seed exporting every example preset.
func ExamplePresetSeed() seeds.Definition {
	return seeds.Definition{
		Slug:      ExamplePresetSlug,
		Querysets: []models.Queryset{{Model: ExamplePresetModel}},
	}
}

func Register(r *seeds.Registry) error {
	_, err := r.Register(ExamplePresetSeed(), "playground")
	return err
}

// Migrate creates the example preset table.
func Migrate(ctx context.Context, db *database.Database) error {
	schema := sqliteSchema
	if db.Dialect.Name() == "sqlserver" {
		schema = sqlServerSchema
	}
	if _, err := db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", ExamplePresetTable, err)
	}
	return nil
}

func Create(ctx context.Context, db sqlx.ExtContext, name string, value int64) error {
	query := db.Rebind("INSERT INTO playground_examplepreset (name, value) VALUES (?, ?)")
	if _, err := db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("create preset %q: %w", name, err)
	}
	return nil
}

func List(ctx context.Context, db sqlx.QueryerContext) ([]ExamplePreset, error) {
	var presets []ExamplePreset
	if err := sqlx.SelectContext(ctx, db, &presets, "SELECT id, name, value FROM playground_examplepreset ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return presets, nil
}

// Populate inserts the demo presets when the table is empty.
func Populate(ctx context.Context, db *database.Database) (int, error) {
	existing, err := List(ctx, db.DB)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	demo := []ExamplePreset{
		{Name: "Starter", Value: 10},
		{Name: "Standard", Value: 50},
		{Name: "Premium", Value: 100},
	}
	for _, p := range demo {
		if err := Create(ctx, db.DB, p.Name, p.Value); err != nil {
			return 0, err
		}
	}
	return len(demo), nil
}
