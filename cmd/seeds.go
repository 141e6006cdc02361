package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/victorlunam/dbseed/internal/comparator"
	"github.com/victorlunam/dbseed/internal/playground"
	"github.com/victorlunam/dbseed/internal/seeds"
	"github.com/victorlunam/dbseed/internal/syncer"
	"github.com/victorlunam/dbseed/internal/ui"
)

const lockFileName = ".dbseed.lock"

var errNoSeeds = errors.New("no seeds selected")

func (a *app) factory() seeds.Factory {
	return seeds.NewFactory(a.db, seeds.WithSeedsDir(a.cfg.SeedsDir))
}

func (a *app) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syncseeds",
		Short: "Load every seed whose revision changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, _ := cmd.Flags().GetStringSlice("tag")
			s := syncer.New(a.registry, a.store, a.factory(),
				syncer.WithOutput(cmd.OutOrStdout()),
				syncer.WithMetaPath(a.cfg.MetaFile),
				syncer.WithTags(tags...),
				syncer.WithLockFile(filepath.Join(a.cfg.SeedsDir, lockFileName)),
			)
			_, err := s.Run(cmd.Context())
			return err
		},
	}
	cmd.Flags().StringSlice("tag", nil, "only sync seeds carrying one of these tags")
	return cmd
}

func selectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("tag", nil, "only seeds carrying one of these tags")
	cmd.Flags().StringSlice("match", nil, "only seeds whose slug matches one of these globs")
	cmd.Flags().Bool("pick", false, "choose the seeds interactively")
}

// resolve turns explicit slugs, --match globs, --tag filters and --pick into definitions.
func (a *app) resolve(cmd *cobra.Command, args []string) ([]seeds.Definition, error) {
	tags, _ := cmd.Flags().GetStringSlice("tag")
	patterns, _ := cmd.Flags().GetStringSlice("match")
	pick, _ := cmd.Flags().GetBool("pick")

	var (
		defs []seeds.Definition
		err  error
	)
	switch {
	case len(args) > 0:
		defs, err = a.registry.Select(args...)
	case len(patterns) > 0:
		defs, err = a.registry.Match(patterns...)
	default:
		defs = a.registry.All()
	}
	if err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		filtered := defs[:0:0]
		for _, def := range defs {
			if def.HasTag(tags...) {
				filtered = append(filtered, def)
			}
		}
		defs = filtered
	}

	if pick && len(defs) > 0 {
		items := make([]ui.Item, 0, len(defs))
		for _, def := range defs {
			items = append(items, ui.Item{Value: def.Slug, Tags: sortedTags(def)})
		}
		chosen, err := ui.Pick("Select seeds", items,
			tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
		if err != nil {
			return nil, err
		}
		if defs, err = a.registry.Select(chosen...); err != nil {
			return nil, err
		}
	}

	if len(defs) == 0 {
		return nil, errNoSeeds
	}
	return defs, nil
}

func sortedTags(def seeds.Definition) []string {
	if def.Tags == nil {
		return nil
	}
	tags := def.Tags.ToSlice()
	sort.Strings(tags)
	return tags
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [slug...]",
		Short: "Write seeds from the database to their fixture files",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := a.resolve(cmd, args)
			if err != nil {
				return err
			}
			factory := a.factory()
			for _, def := range defs {
				report, err := factory(def).Export(cmd.Context())
				if err != nil {
					return fmt.Errorf("export %s: %w", def.Slug, err)
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Exported %s to %s (%s)\n", def.Slug, report.Path, report)
			}
			return nil
		},
	}
	selectionFlags(cmd)
	return cmd
}

func (a *app) loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [slug...]",
		Short: "Load fixture files into the database without recording a revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := a.resolve(cmd, args)
			if err != nil {
				return err
			}
			factory := a.factory()
			for _, def := range defs {
				report, err := factory(def).LoadSeed(cmd.Context())
				if err != nil {
					return fmt.Errorf("load %s: %w", def.Slug, err)
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Loaded %s from %s (%s)\n", def.Slug, report.Path, report)
			}
			return nil
		},
	}
	selectionFlags(cmd)
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered seeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, _ := cmd.Flags().GetStringSlice("tag")
			out := cmd.OutOrStdout()
			for _, def := range a.registry.Tagged(tags...) {
				fmt.Fprintf(out, "%-30s %-40s %s\n", def.Slug, def.FixturePath(a.cfg.SeedsDir), strings.Join(sortedTags(def), ","))
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("tag", nil, "only seeds carrying one of these tags")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Compare desired revisions with the applied ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := seeds.ReadMetadata(afero.NewOsFs(), a.cfg.MetaFile)
			if err != nil {
				return err
			}
			plan, err := comparator.NewComparator(a.store, meta).Plan(cmd.Context(), a.registry.All())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range plan {
				fmt.Fprintln(out, comparator.Describe(d))
			}
			fmt.Fprintf(out, "%d of %d seeds pending.\n", len(comparator.Pending(plan)), len(plan))
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <slug>",
		Short: "Show the revisions applied for a seed, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.store.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "%s: not installed\n", args[0])
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(out, "%-8s %s\n", rec.Revision, rec.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func (a *app) playgroundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "playground",
		Short: "Create the example preset table and demo rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := playground.Migrate(cmd.Context(), a.db); err != nil {
				return err
			}
			n, err := playground.Populate(cmd.Context(), a.db)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Created %d example presets in %s\n", n, playground.ExamplePresetTable)
			return nil
		},
	}
}
