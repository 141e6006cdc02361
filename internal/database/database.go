package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/jmoiron/sqlx"
	"github.com/victorlunam/dbseed/internal/config"
)

const memoryPath = ":memory:"

// SQLite pragmas applied to the single connection the seeder uses.
const sqlitePragma = `
PRAGMA busy_timeout=5000;
PRAGMA foreign_keys=ON;
`

type Database struct {
	Config  config.DatabaseConfig
	DB      *sqlx.DB
	Dialect Dialect
}

func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.DriverSQLServer:
		return connectSQLServer(ctx, cfg)
	default:
		return connectSQLite(ctx, cfg)
	}
}

func connectSQLite(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	dsn := memoryPath
	if cfg.Path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure parent directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", cfg.Path)
	}

	slog.Debug("db", "driver", sqliteDriverID, "path", cfg.Path)
	db, err := sqlx.ConnectContext(ctx, sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	// one connection keeps ":memory:" databases and transactions coherent
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqlitePragma); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	return &Database{Config: cfg, DB: db, Dialect: sqliteDialect{}}, nil
}

func connectSQLServer(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	connString := fmt.Sprintf("Server=%s,%s;Database=%s;User Id=%s;Password=%s;TrustServerCertificate=true;app name=DBSEED",
		cfg.Server, cfg.Port, cfg.Database, cfg.User, cfg.Password)

	slog.Debug("db", "driver", config.DriverSQLServer, "server", cfg.Server, "database", cfg.Database)
	db, err := sqlx.ConnectContext(ctx, config.DriverSQLServer, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &Database{Config: cfg, DB: db, Dialect: sqlServerDialect{}}, nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Column is a table column and its declared type, upper-cased.
type Column struct {
	Name string
	Type string
}

// Binary reports whether the declared type stores raw bytes.
func (c Column) Binary() bool {
	return IsBinaryType(c.Type)
}

func ColumnOf(ct *sql.ColumnType) Column {
	return Column{Name: ct.Name(), Type: strings.ToUpper(ct.DatabaseTypeName())}
}

// IsBinaryType reports whether a declared column type holds raw bytes rather than text.
func IsBinaryType(typeName string) bool {
	t := strings.ToUpper(typeName)
	for _, kind := range []string{"BLOB", "BINARY", "IMAGE", "BYTEA", "UNIQUEIDENTIFIER"} {
		if strings.Contains(t, kind) {
			return true
		}
	}
	return false
}

// ColumnTypes returns the columns of table in declaration order.
func (d *Database) ColumnTypes(ctx context.Context, q sqlx.QueryerContext, table string) ([]Column, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", d.Dialect.Quote(table))
	rows, err := q.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	columns := make([]Column, len(types))
	for i, ct := range types {
		columns[i] = ColumnOf(ct)
	}
	return columns, nil
}

// Columns returns the column names of table in declaration order.
func (d *Database) Columns(ctx context.Context, q sqlx.QueryerContext, table string) ([]string, error) {
	columns, err := d.ColumnTypes(ctx, q, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names, nil
}

// EnsureSchema creates the revision tracking table when it does not exist.
func (d *Database) EnsureSchema(ctx context.Context) error {
	if _, err := d.DB.ExecContext(ctx, d.Dialect.RevisionSchema()); err != nil {
		return fmt.Errorf("initialize revision schema: %w", err)
	}
	return nil
}
