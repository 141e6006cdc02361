package seeds

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/victorlunam/dbseed/internal/models"
	"gopkg.in/yaml.v3"
)

// Metadata maps a seed slug to the revision that should be installed.
type Metadata map[string]models.Revision

// Desired returns the revision declared for slug, or the initial revision when absent.
func (m Metadata) Desired(slug string) models.Revision {
	if rev, ok := m[slug]; ok {
		return rev
	}
	return models.InitialRevision
}

// ReadMetadata loads a JSON metadata file, or YAML when the extension is .yaml or .yml.
func ReadMetadata(fsys afero.Fs, path string) (Metadata, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingMetadata, path)
		}
		return nil, fmt.Errorf("read seed metadata %s: %w", path, err)
	}

	meta := Metadata{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &meta)
	default:
		err = json.Unmarshal(data, &meta)
	}
	if err != nil {
		return nil, fmt.Errorf("parse seed metadata %s: %w", path, err)
	}
	return meta, nil
}
