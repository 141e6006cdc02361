package database

import (
	"fmt"
	"strings"
)

const RevisionTable = "seed_revisions"

// Dialect hides the SQL differences between the supported drivers.
type Dialect interface {
	Name() string
	Quote(ident string) string
	RevisionSchema() string
	// IdentityInsert returns the statement toggling explicit key inserts, or "" when not needed.
	IdentityInsert(table string, on bool) string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Quote(ident string) string {
	return quoteParts(ident, `"`, `"`)
}

func (sqliteDialect) RevisionSchema() string {
	return `
CREATE TABLE IF NOT EXISTS seed_revisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    seed_slug TEXT NOT NULL,
    revision TEXT NOT NULL,
    created_at TEXT NOT NULL -- RFC3339
);

CREATE INDEX IF NOT EXISTS idx_seed_revisions_slug ON seed_revisions(seed_slug, id);
`
}

func (sqliteDialect) IdentityInsert(string, bool) string { return "" }

type sqlServerDialect struct{}

func (sqlServerDialect) Name() string { return "sqlserver" }

func (sqlServerDialect) Quote(ident string) string {
	return quoteParts(ident, "[", "]")
}

func (sqlServerDialect) RevisionSchema() string {
	return `
IF OBJECT_ID(N'seed_revisions', N'U') IS NULL
BEGIN
    CREATE TABLE seed_revisions (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        seed_slug NVARCHAR(255) NOT NULL,
        revision NVARCHAR(255) NOT NULL,
        created_at NVARCHAR(64) NOT NULL
    );
    CREATE INDEX idx_seed_revisions_slug ON seed_revisions(seed_slug, id);
END
`
}

func (d sqlServerDialect) IdentityInsert(table string, on bool) string {
	state := "OFF"
	if on {
		state = "ON"
	}
	return fmt.Sprintf("SET IDENTITY_INSERT %s %s", d.Quote(table), state)
}

// quoteParts quotes every dot separated part, so "dbo.users" becomes [dbo].[users].
func quoteParts(ident, open, close string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		p = strings.ReplaceAll(p, close, close+close)
		parts[i] = open + p + close
	}
	return strings.Join(parts, ".")
}
