package seeds

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/victorlunam/dbseed/internal/models"
)

const DefaultSeedsDir = "seeds"

// Definition is the plain data describing one seed.
type Definition struct {
	Slug           string
	Tags           mapset.Set[string]
	Querysets      []models.Queryset
	Path           string
	DeleteExisting bool
}

// FixturePath returns Path, or <dir>/<slug>.json when no path was declared.
func (d Definition) FixturePath(dir string) string {
	if d.Path != "" {
		return d.Path
	}
	if dir == "" {
		dir = DefaultSeedsDir
	}
	return filepath.Join(dir, d.Slug+".json")
}

func (d Definition) HasTag(tags ...string) bool {
	if d.Tags == nil {
		return false
	}
	return d.Tags.ContainsAny(tags...)
}

// Models returns the distinct models exported by the seed, in queryset order.
func (d Definition) Models() []models.Model {
	seen := make(map[string]bool, len(d.Querysets))
	list := make([]models.Model, 0, len(d.Querysets))
	for _, q := range d.Querysets {
		if seen[q.Model.Name] {
			continue
		}
		seen[q.Model.Name] = true
		list = append(list, q.Model)
	}
	return list
}

// Registry stores seed definitions by slug.
type Registry struct {
	items map[string]Definition
	order []string
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Definition)}
}

// Register adds def under its slug, merging tags into its tag set, and returns the stored definition.
func (r *Registry) Register(def Definition, tags ...string) (Definition, error) {
	def.Slug = strings.TrimSpace(def.Slug)
	if def.Slug == "" {
		return def, fmt.Errorf("%w: slug is required", ErrInvalidDefinition)
	}
	if len(def.Querysets) == 0 {
		return def, fmt.Errorf("%w: seed %q declares no querysets", ErrInvalidDefinition, def.Slug)
	}
	if _, ok := r.items[def.Slug]; ok {
		return def, fmt.Errorf("%w: %q", ErrDuplicateRegistration, def.Slug)
	}

	merged := mapset.NewThreadUnsafeSet[string](tags...)
	if def.Tags != nil {
		merged.Append(def.Tags.ToSlice()...)
	}
	def.Tags = merged

	querysets := make([]models.Queryset, len(def.Querysets))
	for i, q := range def.Querysets {
		if q.Model.Name == "" {
			q.Model.Name = q.Model.Table
		}
		querysets[i] = q
	}
	def.Querysets = querysets

	r.items[def.Slug] = def
	r.order = append(r.order, def.Slug)
	return def, nil
}

// MustRegister is Register for package initialisation; it panics on error.
func (r *Registry) MustRegister(def Definition, tags ...string) Definition {
	def, err := r.Register(def, tags...)
	if err != nil {
		panic(err)
	}
	return def
}

func (r *Registry) Get(slug string) (Definition, bool) {
	def, ok := r.items[slug]
	return def, ok
}

func (r *Registry) Len() int {
	return len(r.order)
}

// All returns every definition in registration order.
func (r *Registry) All() []Definition {
	list := make([]Definition, 0, len(r.order))
	for _, slug := range r.order {
		list = append(list, r.items[slug])
	}
	return list
}

// Tagged returns the definitions carrying any of tags. No tags selects everything.
func (r *Registry) Tagged(tags ...string) []Definition {
	if len(tags) == 0 {
		return r.All()
	}
	var list []Definition
	for _, def := range r.All() {
		if def.HasTag(tags...) {
			list = append(list, def)
		}
	}
	return list
}

// Match returns the definitions whose slug matches any of the glob patterns.
func (r *Registry) Match(patterns ...string) ([]Definition, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid seed pattern %q", p)
		}
	}
	if len(patterns) == 0 {
		return r.All(), nil
	}

	var list []Definition
	for _, def := range r.All() {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, def.Slug); ok {
				list = append(list, def)
				break
			}
		}
	}
	return list, nil
}

// Select resolves explicit slugs, in the given order.
func (r *Registry) Select(slugs ...string) ([]Definition, error) {
	list := make([]Definition, 0, len(slugs))
	for _, slug := range slugs {
		def, ok := r.items[slug]
		if !ok {
			return nil, fmt.Errorf("unknown seed %q", slug)
		}
		list = append(list, def)
	}
	return list, nil
}
