package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/victorlunam/dbseed/internal/comparator"
	"github.com/victorlunam/dbseed/internal/models"
	"github.com/victorlunam/dbseed/internal/seeds"
)

const prefix = "[Synced Seeders] "

var (
	infoColor = color.New(color.FgCyan)
	skipColor = color.New(color.FgHiBlack)
	doneColor = color.New(color.FgGreen)
)

// RevisionLog is the revision record storage the sync loop reads and appends to.
type RevisionLog interface {
	comparator.RevisionSource
	Append(ctx context.Context, slug string, revision models.Revision) error
}

type Option func(*Syncer)

func WithOutput(w io.Writer) Option {
	return func(s *Syncer) {
		s.out = w
	}
}

// WithFs sets the filesystem the metadata file is read from.
func WithFs(fsys afero.Fs) Option {
	return func(s *Syncer) {
		s.fs = fsys
	}
}

func WithMetaPath(path string) Option {
	return func(s *Syncer) {
		s.metaPath = path
	}
}

// WithTags restricts the run to seeds carrying any of tags.
func WithTags(tags ...string) Option {
	return func(s *Syncer) {
		s.tags = tags
	}
}

// WithLockFile holds an exclusive file lock for the duration of a run.
func WithLockFile(path string) Option {
	return func(s *Syncer) {
		s.lockFile = path
	}
}

type Syncer struct {
	registry  *seeds.Registry
	revisions RevisionLog
	factory   seeds.Factory

	out      io.Writer
	fs       afero.Fs
	metaPath string
	tags     []string
	lockFile string
}

// Result lists what a run did.
type Result struct {
	Loaded    int
	Skipped   []string
	Installed []models.Diff
}

func New(registry *seeds.Registry, revisions RevisionLog, factory seeds.Factory, opts ...Option) *Syncer {
	s := &Syncer{
		registry:  registry,
		revisions: revisions,
		factory:   factory,
		out:       os.Stdout,
		fs:        afero.NewOsFs(),
		metaPath:  "seeds/seed_meta.json",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loads every seed whose desired revision differs from the last applied one.
// Seeds are processed in registry order; the first failure aborts the run and
// leaves the seeds processed before it applied.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	var result Result

	if s.lockFile != "" {
		unlock, err := acquire(ctx, s.lockFile)
		if err != nil {
			return result, err
		}
		defer unlock()
	}

	infoColor.Fprintln(s.out, prefix+"Syncing seeds...")

	meta, err := seeds.ReadMetadata(s.fs, s.metaPath)
	if err != nil {
		return result, err
	}
	cmp := comparator.NewComparator(s.revisions, meta)

	for _, def := range s.registry.Tagged(s.tags...) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		diff, err := cmp.Compare(ctx, def.Slug)
		if err != nil {
			return result, err
		}
		if diff.InSync() {
			skipColor.Fprintf(s.out, prefix+"Fixture %s is already synced, skipped.\n", def.Slug)
			result.Skipped = append(result.Skipped, def.Slug)
			continue
		}

		report, err := s.factory(def).LoadSeed(ctx)
		if err != nil {
			return result, fmt.Errorf("sync %s: %w", def.Slug, err)
		}
		if err := s.revisions.Append(ctx, def.Slug, diff.Desired); err != nil {
			return result, fmt.Errorf("sync %s: %w", def.Slug, err)
		}
		slog.Info("seed installed", "slug", def.Slug, "from", diff.From(), "to", string(diff.Desired), "records", report.Records)

		doneColor.Fprintf(s.out, prefix+"Fixture %s is installed (%s -> %s).\n", def.Slug, diff.From(), diff.Desired)
		result.Installed = append(result.Installed, diff)
		result.Loaded++
	}

	infoColor.Fprintf(s.out, prefix+"Synced %d seeds.\n", result.Loaded)
	return result, nil
}
