package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRevision_UnmarshalJSON(t *testing.T) {
	var revs map[string]Revision
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1, "b": "1", "c": "beta", "d": 2.5}`), &revs))

	assert.Equal(t, Revision("1"), revs["a"])
	assert.Equal(t, revs["a"], revs["b"])
	assert.Equal(t, Revision("beta"), revs["c"])
	assert.Equal(t, Revision("2.5"), revs["d"])

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &revs))
}

func TestRevision_NumericFormsAreEqual(t *testing.T) {
	var revs map[string]Revision
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1.0, "b": 1, "c": 1e0, "d": 2.50, "e": "1.0"}`), &revs))
	assert.Equal(t, Revision("1"), revs["a"])
	assert.Equal(t, revs["a"], revs["b"])
	assert.Equal(t, revs["a"], revs["c"])
	assert.Equal(t, Revision("2.5"), revs["d"])
	// quoted text is kept as written
	assert.Equal(t, Revision("1.0"), revs["e"])

	require.NoError(t, yaml.Unmarshal([]byte("a: 1.0\nc: '1.0'\n"), &revs))
	assert.Equal(t, Revision("1"), revs["a"])
	assert.Equal(t, Revision("1.0"), revs["c"])
}

func TestRevision_UnmarshalYAML(t *testing.T) {
	var revs map[string]Revision
	require.NoError(t, yaml.Unmarshal([]byte("a: 1\nb: beta\n"), &revs))
	assert.Equal(t, Revision("1"), revs["a"])
	assert.Equal(t, Revision("beta"), revs["b"])

	assert.Error(t, yaml.Unmarshal([]byte("a: [1, 2]\n"), &revs))
}

func TestRevision_String(t *testing.T) {
	assert.Equal(t, "v3", Revision("3").String())
}

func TestDiff(t *testing.T) {
	// the sentinel never equals a revision, even the initial one
	notInstalled := Diff{Slug: "a", Desired: InitialRevision}
	assert.False(t, notInstalled.InSync())
	assert.Equal(t, NotInstalled, notInstalled.From())

	synced := Diff{Slug: "a", Desired: "1", Applied: "1", Installed: true}
	assert.True(t, synced.InSync())
	assert.Equal(t, "1", synced.From())

	// a revision jump is just a different value
	jumped := Diff{Slug: "a", Desired: "5", Applied: "1", Installed: true}
	assert.False(t, jumped.InSync())
}

func TestModelDefaults(t *testing.T) {
	m := Model{Table: "presets"}
	assert.Equal(t, DefaultPK, m.PrimaryKey())
	assert.Equal(t, "id", Queryset{Model: m}.Order())
	assert.Equal(t, "name", Queryset{Model: m, OrderBy: "name"}.Order())
}
