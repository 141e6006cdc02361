package seeds

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"
	"github.com/victorlunam/dbseed/internal/database"
	"github.com/victorlunam/dbseed/internal/models"
)

// Seeder exports a seed's rows to its fixture and loads them back.
type Seeder interface {
	Slug() string
	Export(ctx context.Context) (Report, error)
	LoadSeed(ctx context.Context) (Report, error)
}

// Factory builds a fresh Seeder for a definition.
type Factory func(def Definition) Seeder

// Report summarizes one export or load.
type Report struct {
	Slug    string
	Path    string
	Records int
	Bytes   uint64
	Deleted int64
}

func (r Report) String() string {
	s := fmt.Sprintf("%d records, %s", r.Records, humanize.Bytes(r.Bytes))
	if r.Deleted > 0 {
		s += fmt.Sprintf(", %d existing rows deleted", r.Deleted)
	}
	return s
}

type Option func(*FixtureSeeder)

// WithFs sets the filesystem fixtures are read from and written to.
func WithFs(fsys afero.Fs) Option {
	return func(s *FixtureSeeder) {
		s.fs = fsys
	}
}

// WithSeedsDir sets the directory used for definitions without an explicit Path.
func WithSeedsDir(dir string) Option {
	return func(s *FixtureSeeder) {
		s.seedsDir = dir
	}
}

// FixtureSeeder is the JSON fixture backed Seeder.
type FixtureSeeder struct {
	def      Definition
	db       *database.Database
	fs       afero.Fs
	seedsDir string
}

func New(def Definition, db *database.Database, opts ...Option) *FixtureSeeder {
	s := &FixtureSeeder{
		def:      def,
		db:       db,
		fs:       afero.NewOsFs(),
		seedsDir: DefaultSeedsDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFactory returns a Factory building FixtureSeeders that share db and opts.
func NewFactory(db *database.Database, opts ...Option) Factory {
	return func(def Definition) Seeder {
		return New(def, db, opts...)
	}
}

func (s *FixtureSeeder) Slug() string {
	return s.def.Slug
}

func (s *FixtureSeeder) Path() string {
	return s.def.FixturePath(s.seedsDir)
}

// Export writes the rows of every queryset, in query order, to the fixture file, replacing it.
func (s *FixtureSeeder) Export(ctx context.Context) (Report, error) {
	report := Report{Slug: s.def.Slug, Path: s.Path()}

	var records []models.FixtureRecord
	for _, q := range s.def.Querysets {
		rows, err := s.selectRecords(ctx, q)
		if err != nil {
			return report, fmt.Errorf("export %s: %w", s.def.Slug, err)
		}
		records = append(records, rows...)
	}

	n, err := writeFixture(s.fs, report.Path, records)
	if err != nil {
		return report, fmt.Errorf("export %s: %w", s.def.Slug, err)
	}
	report.Records = len(records)
	report.Bytes = n
	slog.Debug("seed exported", "slug", s.def.Slug, "path", report.Path, "records", report.Records)
	return report, nil
}

func (s *FixtureSeeder) selectRecords(ctx context.Context, q models.Queryset) ([]models.FixtureRecord, error) {
	d := s.db.Dialect
	pk := q.Model.PrimaryKey()

	columns := "*"
	if len(q.Model.Fields) > 0 {
		quoted := []string{d.Quote(pk)}
		for _, f := range q.Model.Fields {
			if f != pk {
				quoted = append(quoted, d.Quote(f))
			}
		}
		columns = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", columns, d.Quote(q.Model.Table))
	if q.Where != "" {
		query += " WHERE " + q.Where
	}
	query += " ORDER BY " + q.Order()

	rows, err := s.db.DB.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Model.Name, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", q.Model.Name, err)
	}
	colTypes := make(map[string]database.Column, len(types))
	for _, ct := range types {
		colTypes[ct.Name()] = database.ColumnOf(ct)
	}

	var records []models.FixtureRecord
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Model.Name, err)
		}
		for k, v := range row {
			if row[k], err = exportValue(v, colTypes[k]); err != nil {
				return nil, fmt.Errorf("export %s: %w", q.Model.Name, err)
			}
		}
		pkValue, ok := row[pk]
		if !ok {
			return nil, fmt.Errorf("%w: table %s has no primary key column %q", ErrSerialization, q.Model.Table, pk)
		}
		delete(row, pk)
		records = append(records, models.FixtureRecord{
			Model:  q.Model.Name,
			PK:     pkValue,
			Fields: row,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", q.Model.Name, err)
	}
	return records, nil
}

// LoadSeed reads the fixture file into the database. With DeleteExisting every row of the seed's
// models is removed first. Records are upserted by primary key inside a single transaction.
func (s *FixtureSeeder) LoadSeed(ctx context.Context) (Report, error) {
	report := Report{Slug: s.def.Slug, Path: s.Path()}

	records, size, err := readFixture(s.fs, report.Path)
	if err != nil {
		return report, fmt.Errorf("load %s: %w", s.def.Slug, err)
	}
	report.Bytes = size

	byName := make(map[string]models.Model)
	for _, m := range s.def.Models() {
		byName[m.Name] = m
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if s.def.DeleteExisting {
			for _, m := range s.def.Models() {
				res, err := tx.ExecContext(ctx, "DELETE FROM "+s.db.Dialect.Quote(m.Table))
				if err != nil {
					return fmt.Errorf("delete existing %s: %w", m.Name, err)
				}
				n, _ := res.RowsAffected()
				report.Deleted += n
			}
		}

		columns := make(map[string]map[string]database.Column)
		for i, rec := range records {
			m, ok := byName[rec.Model]
			if !ok {
				return fmt.Errorf("%w: record %d: model %q is not part of seed %q", ErrSerialization, i, rec.Model, s.def.Slug)
			}
			cols, ok := columns[m.Table]
			if !ok {
				list, err := s.db.ColumnTypes(ctx, tx, m.Table)
				if err != nil {
					return err
				}
				cols = make(map[string]database.Column, len(list))
				for _, c := range list {
					cols[c.Name] = c
				}
				columns[m.Table] = cols
			}

			fields := make(map[string]any, len(rec.Fields))
			for field, v := range rec.Fields {
				col, ok := cols[field]
				if !ok {
					return fmt.Errorf("%w: record %d: %s has no field %q", ErrSerialization, i, m.Name, field)
				}
				value, err := loadValue(v, col)
				if err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
				fields[field] = value
			}
			rec.Fields = fields
			pk, err := loadValue(rec.PK, cols[m.PrimaryKey()])
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			rec.PK = pk
			if err := s.upsert(ctx, tx, m, rec); err != nil {
				return fmt.Errorf("%w: record %d (%s pk=%v): %v", ErrSerialization, i, m.Name, rec.PK, err)
			}
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("load %s: %w", s.def.Slug, err)
	}

	report.Records = len(records)
	slog.Debug("seed loaded", "slug", s.def.Slug, "path", report.Path, "records", report.Records, "deleted", report.Deleted)
	return report, nil
}

// upsert updates the row with the record's primary key, inserting it when no row matched.
func (s *FixtureSeeder) upsert(ctx context.Context, tx *sqlx.Tx, m models.Model, rec models.FixtureRecord) error {
	d := s.db.Dialect
	table := d.Quote(m.Table)
	pk := m.PrimaryKey()

	fields := make([]string, 0, len(rec.Fields))
	for f := range rec.Fields {
		if f != pk {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)

	if rec.PK != nil {
		matched, err := s.update(ctx, tx, m, rec, fields)
		if err != nil || matched {
			return err
		}
	}

	cols := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	if rec.PK != nil {
		cols = append(cols, d.Quote(pk))
		args = append(args, rec.PK)
	}
	for _, f := range fields {
		cols = append(cols, d.Quote(f))
		args = append(args, rec.Fields[f])
	}

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table,
			strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	}

	identity := ""
	if m.IdentityPK && rec.PK != nil {
		identity = d.IdentityInsert(m.Table, true)
	}
	if identity != "" {
		if _, err := tx.ExecContext(ctx, identity); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return err
	}
	if identity != "" {
		if _, err := tx.ExecContext(ctx, d.IdentityInsert(m.Table, false)); err != nil {
			return err
		}
	}
	return nil
}

func (s *FixtureSeeder) update(ctx context.Context, tx *sqlx.Tx, m models.Model, rec models.FixtureRecord, fields []string) (bool, error) {
	d := s.db.Dialect
	table := d.Quote(m.Table)
	where := d.Quote(m.PrimaryKey()) + " = ?"

	if len(fields) == 0 {
		var n int
		query := tx.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where))
		if err := tx.GetContext(ctx, &n, query, rec.PK); err != nil {
			return false, err
		}
		return n > 0, nil
	}

	sets := make([]string, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		sets[i] = d.Quote(f) + " = ?"
		args = append(args, rec.Fields[f])
	}
	args = append(args, rec.PK)

	query := tx.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
