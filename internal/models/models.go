package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPK = "id"

// Model describes a table whose rows can be exported to and loaded from a fixture.
type Model struct {
	Name   string
	Table  string
	PK     string
	Fields []string
	// IdentityPK marks a SQL Server identity column that needs IDENTITY_INSERT to load explicit keys.
	IdentityPK bool
}

func (m Model) PrimaryKey() string {
	if m.PK == "" {
		return DefaultPK
	}
	return m.PK
}

type Queryset struct {
	Model   Model
	Where   string
	OrderBy string
}

func (q Queryset) Order() string {
	if q.OrderBy == "" {
		return q.Model.PrimaryKey()
	}
	return q.OrderBy
}

// FixtureRecord is one serialized row of a fixture file.
type FixtureRecord struct {
	Model  string         `json:"model"`
	PK     any            `json:"pk"`
	Fields map[string]any `json:"fields"`
}

// Revision is an opaque version marker. Numbers and strings with the same text are equal.
type Revision string

const InitialRevision Revision = "0"

func (r Revision) String() string {
	return "v" + string(r)
}

func (r *Revision) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*r = InitialRevision
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("revision %s: %w", raw, err)
		}
		*r = Revision(s)
		return nil
	}
	canonical, ok := canonicalNumber(raw)
	if !ok {
		return fmt.Errorf("revision must be a number or string, got %s", raw)
	}
	*r = Revision(canonical)
	return nil
}

func (r *Revision) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("revision must be a scalar at line %d", value.Line)
	}
	if tag := value.ShortTag(); tag == "!!int" || tag == "!!float" {
		if canonical, ok := canonicalNumber(value.Value); ok {
			*r = Revision(canonical)
			return nil
		}
	}
	*r = Revision(value.Value)
	return nil
}

// canonicalNumber renders a numeric literal so equal numbers share one text: 1, 1.0 and 1e0 all give "1".
func canonicalNumber(raw string) (string, bool) {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// RevisionRecord is one applied revision of a seed.
type RevisionRecord struct {
	ID        int64
	SeedSlug  string
	Revision  Revision
	CreatedAt time.Time
}

const NotInstalled = "Not installed"

// Diff compares the desired revision of a seed with the last applied one.
type Diff struct {
	Slug      string
	Desired   Revision
	Applied   Revision
	Installed bool
}

func (d Diff) InSync() bool {
	return d.Installed && d.Applied == d.Desired
}

// From renders the applied side of a transition.
func (d Diff) From() string {
	if !d.Installed {
		return NotInstalled
	}
	return string(d.Applied)
}
