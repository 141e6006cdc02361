package seeds

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/victorlunam/dbseed/internal/models"
)

func encodeFixture(records []models.FixtureRecord) ([]byte, error) {
	if records == nil {
		records = []models.FixtureRecord{}
	}
	return json.MarshalIndent(records, "", "  ")
}

func decodeFixture(data []byte) ([]models.FixtureRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []models.FixtureRecord
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	for i := range records {
		records[i].PK = normalizeValue(records[i].PK)
		for k, v := range records[i].Fields {
			records[i].Fields[k] = normalizeValue(v)
		}
	}
	return records, nil
}

// normalizeValue turns decoded json.Number values into int64 or float64 so drivers bind them natively.
func normalizeValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func writeFixture(fsys afero.Fs, path string, records []models.FixtureRecord) (uint64, error) {
	data, err := encodeFixture(records)
	if err != nil {
		return 0, fmt.Errorf("encode fixture: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrFixtureWrite, path, err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrFixtureWrite, path, err)
	}
	return uint64(len(data)), nil
}

func readFixture(fsys afero.Fs, path string) ([]models.FixtureRecord, uint64, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingFixture, path)
		}
		return nil, 0, fmt.Errorf("read fixture %s: %w", path, err)
	}
	records, err := decodeFixture(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: decode %s: %v", ErrSerialization, path, err)
	}
	return records, uint64(len(data)), nil
}
