package seeds

import (
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/victorlunam/dbseed/internal/database"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.999999999"
)

// exportValue converts a scanned column value into its fixture form. Binary columns are
// base64 encoded, times keep the "YYYY-MM-DD HH:MM:SS" text form both drivers store.
func exportValue(v any, col database.Column) (any, error) {
	switch val := v.(type) {
	case []byte:
		if col.Binary() {
			return base64.StdEncoding.EncodeToString(val), nil
		}
		if !utf8.Valid(val) {
			return nil, fmt.Errorf("%w: column %q (%s) holds bytes that are not UTF-8 text", ErrSerialization, col.Name, col.Type)
		}
		return string(val), nil
	case string:
		if col.Binary() {
			return base64.StdEncoding.EncodeToString([]byte(val)), nil
		}
		if !utf8.ValidString(val) {
			return nil, fmt.Errorf("%w: column %q (%s) holds bytes that are not UTF-8 text", ErrSerialization, col.Name, col.Type)
		}
		return val, nil
	case time.Time:
		return formatTime(val, col.Type), nil
	default:
		return v, nil
	}
}

func formatTime(t time.Time, typeName string) string {
	if typeName == "DATE" {
		h, m, s := t.Clock()
		if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
			return t.Format(dateLayout)
		}
	}
	if _, offset := t.Zone(); offset != 0 {
		return t.Format(timestampLayout + "-07:00")
	}
	return t.Format(timestampLayout)
}

// loadValue reverses exportValue for binary columns; everything else binds as decoded.
func loadValue(v any, col database.Column) (any, error) {
	s, ok := v.(string)
	if !ok || !col.Binary() {
		return v, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: column %q (%s) is not base64: %v", ErrSerialization, col.Name, col.Type, err)
	}
	return b, nil
}
