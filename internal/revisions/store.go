package revisions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/victorlunam/dbseed/internal/database"
	"github.com/victorlunam/dbseed/internal/models"
)

// dbRevision is used for scanning rows where time is stored as TEXT.
type dbRevision struct {
	ID        int64  `db:"id"`
	SeedSlug  string `db:"seed_slug"`
	Revision  string `db:"revision"`
	CreatedAt string `db:"created_at"`
}

func (r dbRevision) record() (models.RevisionRecord, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return models.RevisionRecord{}, fmt.Errorf("parse created_at of revision %d: %w", r.ID, err)
	}
	return models.RevisionRecord{
		ID:        r.ID,
		SeedSlug:  r.SeedSlug,
		Revision:  models.Revision(r.Revision),
		CreatedAt: createdAt,
	}, nil
}

// Store is the append-only log of applied seed revisions.
type Store struct {
	db  *database.Database
	now func() time.Time
}

func NewStore(db *database.Database) *Store {
	return &Store{db: db, now: time.Now}
}

// Init creates the revision table if needed.
func (s *Store) Init(ctx context.Context) error {
	return s.db.EnsureSchema(ctx)
}

// Latest returns the most recently appended record for slug. ok is false when the seed was never installed.
func (s *Store) Latest(ctx context.Context, slug string) (rec models.RevisionRecord, ok bool, err error) {
	query := s.db.DB.Rebind(`SELECT id, seed_slug, revision, created_at FROM seed_revisions
	          WHERE id = (SELECT MAX(id) FROM seed_revisions WHERE seed_slug = ?)`)

	var row dbRevision
	if err := s.db.DB.GetContext(ctx, &row, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RevisionRecord{}, false, nil
		}
		return models.RevisionRecord{}, false, fmt.Errorf("query latest revision of %s: %w", slug, err)
	}

	rec, err = row.record()
	if err != nil {
		return models.RevisionRecord{}, false, err
	}
	return rec, true, nil
}

// Append records that revision was applied to slug.
func (s *Store) Append(ctx context.Context, slug string, revision models.Revision) error {
	row := dbRevision{
		SeedSlug:  slug,
		Revision:  string(revision),
		CreatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}

	query := `INSERT INTO seed_revisions (seed_slug, revision, created_at)
	          VALUES (:seed_slug, :revision, :created_at)`
	if _, err := s.db.DB.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("record revision %s of %s: %w", revision, slug, err)
	}
	slog.Debug("seed revision recorded", "slug", slug, "revision", string(revision))
	return nil
}

// History lists every record for slug, newest first.
func (s *Store) History(ctx context.Context, slug string) ([]models.RevisionRecord, error) {
	query := s.db.DB.Rebind(`SELECT id, seed_slug, revision, created_at FROM seed_revisions
	          WHERE seed_slug = ? ORDER BY id DESC`)

	var rows []dbRevision
	if err := s.db.DB.SelectContext(ctx, &rows, query, slug); err != nil {
		return nil, fmt.Errorf("query revision history of %s: %w", slug, err)
	}

	history := make([]models.RevisionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			slog.Error("skipping corrupt revision record", "id", row.ID, "error", err)
			continue
		}
		history = append(history, rec)
	}
	return history, nil
}
