package seeds

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/victorlunam/dbseed/internal/config"
	"github.com/victorlunam/dbseed/internal/database"
	"github.com/victorlunam/dbseed/internal/models"
)

var presetModel = models.Model{Name: "app.preset", Table: "presets"}

type preset struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Value int64  `db:"value"`
}

func openTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.Connect(context.Background(), config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "seeds.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.DB.Exec(`CREATE TABLE presets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		value INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	return db
}

func insertPreset(t *testing.T, db *database.Database, name string, value int64) {
	t.Helper()
	_, err := db.DB.Exec("INSERT INTO presets (name, value) VALUES (?, ?)", name, value)
	require.NoError(t, err)
}

func listPresets(t *testing.T, db *database.Database) []preset {
	t.Helper()
	var rows []preset
	require.NoError(t, db.DB.Select(&rows, "SELECT id, name, value FROM presets ORDER BY id"))
	return rows
}

func newSeeder(db *database.Database, fsys afero.Fs, deleteExisting bool) *FixtureSeeder {
	d := Definition{
		Slug:           "presets",
		Querysets:      []models.Queryset{{Model: presetModel}},
		DeleteExisting: deleteExisting,
	}
	return New(d, db, WithFs(fsys), WithSeedsDir("fixtures"))
}

func TestExport_WritesFixture(t *testing.T) {
	db := openTestDB(t)
	fsys := afero.NewMemMapFs()
	insertPreset(t, db, "Lifecycle Test 1", 100)
	insertPreset(t, db, "Lifecycle Test 2", 200)

	s := newSeeder(db, fsys, false)
	report, err := s.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, "fixtures/presets.json", report.Path)
	assert.Positive(t, report.Bytes)

	data, err := afero.ReadFile(fsys, "fixtures/presets.json")
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "app.preset", records[0]["model"])
	assert.EqualValues(t, 1, records[0]["pk"])
	fields := records[0]["fields"].(map[string]any)
	assert.Equal(t, "Lifecycle Test 1", fields["name"])
	assert.EqualValues(t, 100, fields["value"])
	assert.NotContains(t, fields, "id")
}

func TestExport_OverwritesAndHonoursQueryset(t *testing.T) {
	db := openTestDB(t)
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "out.json", []byte("stale content that is longer than needed"), 0o644))
	insertPreset(t, db, "a", 1)
	insertPreset(t, db, "b", 2)
	insertPreset(t, db, "c", 3)

	m := presetModel
	m.Fields = []string{"name"}
	s := New(Definition{
		Slug:      "subset",
		Path:      "out.json",
		Querysets: []models.Queryset{{Model: m, Where: "value >= 2", OrderBy: "value DESC"}},
	}, db, WithFs(fsys))

	_, err := s.Export(context.Background())
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, "out.json")
	require.NoError(t, err)
	var records []models.FixtureRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].Fields["name"])
	assert.Equal(t, "b", records[1].Fields["name"])
	assert.NotContains(t, records[0].Fields, "value")
}

func TestExport_EmptyTableWritesEmptyArray(t *testing.T) {
	db := openTestDB(t)
	fsys := afero.NewMemMapFs()

	_, err := newSeeder(db, fsys, false).Export(context.Background())
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, "fixtures/presets.json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestExport_UnwritablePath(t *testing.T) {
	db := openTestDB(t)
	s := newSeeder(db, afero.NewReadOnlyFs(afero.NewMemMapFs()), false)

	_, err := s.Export(context.Background())
	assert.ErrorIs(t, err, ErrFixtureWrite)
}

func TestRoundTrip_ExportDeleteLoad(t *testing.T) {
	db := openTestDB(t)
	fsys := afero.NewMemMapFs()
	ctx := context.Background()
	insertPreset(t, db, "Lifecycle Test 1", 100)
	insertPreset(t, db, "Lifecycle Test 2", 200)
	before := listPresets(t, db)

	s := newSeeder(db, fsys, true)
	_, err := s.Export(ctx)
	require.NoError(t, err)

	_, err = db.DB.Exec("DELETE FROM presets")
	require.NoError(t, err)
	require.Empty(t, listPresets(t, db))

	report, err := s.LoadSeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, before, listPresets(t, db))
}

func TestLoadSeed_DeleteExisting(t *testing.T) {
	db := openTestDB(t)
	fsys := afero.NewMemMapFs()
	ctx := context.Background()
	insertPreset(t, db, "Seed Data", 999)

	s := newSeeder(db, fsys, true)
	_, err := s.Export(ctx)
	require.NoError(t, err)

	insertPreset(t, db, "Existing Data", 111)
	require.Len(t, listPresets(t, db), 2)

	report, err := s.LoadSeed(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.Deleted)

	rows := listPresets(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, "Seed Data", rows[0].Name)
}

func TestLoadSeed_KeepExisting(t *testing.T) {
	db := openTestDB(t)
	fsys := afero.NewMemMapFs()
	ctx := context.Background()
	insertPreset(t, db, "Seed Data", 999)

	s := newSeeder(db, fsys, false)
	_, err := s.Export(ctx)
	require.NoError(t, err)

	// the fixture row is changed and a second row added; loading restores the
	// fixture row by primary key and leaves the other row alone
	_, err = db.DB.Exec("UPDATE presets SET value = 1 WHERE id = 1")
	require.NoError(t, err)
	insertPreset(t, db, "Existing Data Again", 222)

	report, err := s.LoadSeed(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)

	rows := listPresets(t, db)
	require.Len(t, rows, 2)
	assert.Equal(t, preset{ID: 1, Name: "Seed Data", Value: 999}, rows[0])
	assert.Equal(t, "Existing Data Again", rows[1].Name)
}

func TestLoadSeed_PreservesPrimaryKeys(t *testing.T) {
	db := openTestDB(t)
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "fixtures/presets.json", []byte(`[
		{"model": "app.preset", "pk": 42, "fields": {"name": "answer", "value": 42}},
		{"model": "app.preset", "pk": 7, "fields": {"name": "seven", "value": 7}}
	]`), 0o644))

	_, err := newSeeder(db, fsys, false).LoadSeed(context.Background())
	require.NoError(t, err)

	rows := listPresets(t, db)
	require.Len(t, rows, 2)
	assert.Equal(t, preset{ID: 7, Name: "seven", Value: 7}, rows[0])
	assert.Equal(t, preset{ID: 42, Name: "answer", Value: 42}, rows[1])
}

func TestLoadSeed_MissingFixture(t *testing.T) {
	db := openTestDB(t)
	_, err := newSeeder(db, afero.NewMemMapFs(), true).LoadSeed(context.Background())
	assert.ErrorIs(t, err, ErrMissingFixture)
}

func TestLoadSeed_SchemaMismatch(t *testing.T) {
	cases := []struct {
		name    string
		fixture string
	}{
		{"unknown field", `[{"model": "app.preset", "pk": 1, "fields": {"name": "x", "value": 1, "colour": "red"}}]`},
		{"unknown model", `[{"model": "app.other", "pk": 1, "fields": {"name": "x"}}]`},
		{"null constraint", `[{"model": "app.preset", "pk": 1, "fields": {"name": null, "value": 1}}]`},
		{"not an array", `{"model": "app.preset"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := openTestDB(t)
			insertPreset(t, db, "keep me", 5)
			fsys := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fsys, "fixtures/presets.json", []byte(tc.fixture), 0o644))

			_, err := newSeeder(db, fsys, true).LoadSeed(context.Background())
			assert.ErrorIs(t, err, ErrSerialization)

			// the failed load is rolled back, including the delete
			rows := listPresets(t, db)
			require.Len(t, rows, 1)
			assert.Equal(t, "keep me", rows[0].Name)
		})
	}
}

func TestReport_String(t *testing.T) {
	assert.Equal(t, "2 records, 1.0 kB", Report{Records: 2, Bytes: 1000}.String())
	assert.Equal(t, "1 records, 10 B, 3 existing rows deleted", Report{Records: 1, Bytes: 10, Deleted: 3}.String())
}

func openBlobDB(t *testing.T) *database.Database {
	t.Helper()
	db := openTestDB(t)
	_, err := db.DB.Exec(`CREATE TABLE blobs (
		id INTEGER PRIMARY KEY,
		data BLOB,
		created DATETIME,
		born DATE,
		note TEXT
	)`)
	require.NoError(t, err)
	return db
}

func blobSeeder(db *database.Database, fsys afero.Fs) *FixtureSeeder {
	d := Definition{
		Slug:           "blobs",
		Querysets:      []models.Queryset{{Model: models.Model{Name: "app.blob", Table: "blobs"}}},
		DeleteExisting: true,
	}
	return New(d, db, WithFs(fsys), WithSeedsDir("fixtures"))
}

func TestRoundTrip_BinaryAndTimeColumns(t *testing.T) {
	db := openBlobDB(t)
	ctx := context.Background()
	_, err := db.DB.Exec(`INSERT INTO blobs (id, data, created, born, note) VALUES
		(1, x'00ff10fe', '2024-01-02 03:04:05', '2024-01-02', 'hi'),
		(2, NULL, NULL, NULL, NULL)`)
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	s := blobSeeder(db, fsys)
	_, err = s.Export(ctx)
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, "fixtures/blobs.json")
	require.NoError(t, err)
	var records []models.FixtureRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "AP8Q/g==", records[0].Fields["data"])
	assert.Equal(t, "2024-01-02 03:04:05", records[0].Fields["created"])
	assert.Equal(t, "2024-01-02", records[0].Fields["born"])
	assert.Nil(t, records[1].Fields["data"])

	_, err = s.LoadSeed(ctx)
	require.NoError(t, err)

	var row struct {
		Hex      string `db:"hex"`
		DataType string `db:"data_type"`
		Created  string `db:"created"`
		TimeType string `db:"time_type"`
		Born     string `db:"born"`
	}
	require.NoError(t, db.DB.Get(&row, `SELECT hex(data) AS hex, typeof(data) AS data_type,
		CAST(created AS TEXT) AS created, typeof(created) AS time_type, CAST(born AS TEXT) AS born
		FROM blobs WHERE id = 1`))
	assert.Equal(t, "00FF10FE", row.Hex)
	assert.Equal(t, "blob", row.DataType)
	assert.Equal(t, "2024-01-02 03:04:05", row.Created)
	assert.Equal(t, "text", row.TimeType)
	assert.Equal(t, "2024-01-02", row.Born)

	var nullType string
	require.NoError(t, db.DB.Get(&nullType, "SELECT typeof(data) FROM blobs WHERE id = 2"))
	assert.Equal(t, "null", nullType)
}

func TestExport_BinaryInTextColumnFails(t *testing.T) {
	db := openBlobDB(t)
	_, err := db.DB.Exec(`INSERT INTO blobs (id, note) VALUES (1, x'ff00')`)
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	_, err = blobSeeder(db, fsys).Export(context.Background())
	assert.ErrorIs(t, err, ErrSerialization)

	exists, err := afero.Exists(fsys, "fixtures/blobs.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLoadSeed_InvalidBase64(t *testing.T) {
	db := openBlobDB(t)
	fsys := afero.NewMemMapFs()
	fixture := `[{"model": "app.blob", "pk": 1, "fields": {"data": "not base64!"}}]`
	require.NoError(t, afero.WriteFile(fsys, "fixtures/blobs.json", []byte(fixture), 0o644))

	_, err := blobSeeder(db, fsys).LoadSeed(context.Background())
	assert.ErrorIs(t, err, ErrSerialization)
}
