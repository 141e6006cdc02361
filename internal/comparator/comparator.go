package comparator

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/victorlunam/dbseed/internal/models"
	"github.com/victorlunam/dbseed/internal/seeds"
)

// RevisionSource reports the last applied revision of a seed.
type RevisionSource interface {
	Latest(ctx context.Context, slug string) (models.RevisionRecord, bool, error)
}

// Comparator checks the desired revision of each seed against the applied one.
type Comparator struct {
	Applied RevisionSource
	Desired seeds.Metadata
}

func NewComparator(applied RevisionSource, desired seeds.Metadata) *Comparator {
	return &Comparator{
		Applied: applied,
		Desired: desired,
	}
}

// Compare builds the diff for one seed.
func (c *Comparator) Compare(ctx context.Context, slug string) (models.Diff, error) {
	diff := models.Diff{
		Slug:    slug,
		Desired: c.Desired.Desired(slug),
	}

	rec, ok, err := c.Applied.Latest(ctx, slug)
	if err != nil {
		return diff, fmt.Errorf("error getting applied revision of %s: %w", slug, err)
	}
	if ok {
		diff.Installed = true
		diff.Applied = rec.Revision
	}
	return diff, nil
}

// Plan compares every definition, in order.
func (c *Comparator) Plan(ctx context.Context, defs []seeds.Definition) ([]models.Diff, error) {
	plan := make([]models.Diff, 0, len(defs))
	for _, def := range defs {
		diff, err := c.Compare(ctx, def.Slug)
		if err != nil {
			return nil, err
		}
		plan = append(plan, diff)
	}
	return plan, nil
}

// Pending returns the diffs that are not in sync.
func Pending(plan []models.Diff) []models.Diff {
	var pending []models.Diff
	for _, d := range plan {
		if !d.InSync() {
			pending = append(pending, d)
		}
	}
	return pending
}

// Describe renders one diff line for status output.
func Describe(d models.Diff) string {
	if d.InSync() {
		return color.GreenString("%-30s %s (synced)", d.Slug, d.Desired)
	}
	return color.YellowString("%-30s %s -> %s", d.Slug, d.From(), d.Desired)
}
