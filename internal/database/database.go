package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Dialect names the SQL flavour spoken by the connection pool.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// Options configures the connection pool.
type Options struct {
	Driver          string // "mysql" or "sqlite"
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Querier is implemented by both *sql.DB and *sql.Tx, so store helpers can
// run in or out of a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the shared connection pool plus the dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open creates, configures and pings a connection pool.
func Open(ctx context.Context, opts Options) (*DB, error) {
	var (
		dialect    Dialect
		driverName string
	)
	switch opts.Driver {
	case "mysql":
		dialect, driverName = MySQL, "mysql"
	case "sqlite", "":
		dialect, driverName = SQLite, SQLiteDriverName
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	dsn := opts.DSN
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}

	// 1. Open a new connection pool.
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 2. Configure the connection pool settings.
	if dialect == SQLite {
		// SQLite has a single writer, and every connection to ":memory:"
		// would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		maxOpen := opts.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 25
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	// 3. Ping the database to verify the connection.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// sqliteDSN adds the driver's foreign key parameter to dsn, so every
// connection the pool opens enforces foreign keys.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, foreignKeysParam) {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + foreignKeysParam
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, so readers never observe a partial
// write.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() // Safety net

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Upsert renders the dialect-specific conflict clause for an INSERT.
// conflictCols is only used by SQLite; MySQL resolves the conflict against
// any unique key. Assignments may reference the proposed row through
// Excluded.
func (d Dialect) Upsert(conflictCols, assignments string) string {
	if d == MySQL {
		return "ON DUPLICATE KEY UPDATE " + assignments
	}
	return "ON CONFLICT(" + conflictCols + ") DO UPDATE SET " + assignments
}

// Excluded references the value proposed for col by the failed INSERT.
func (d Dialect) Excluded(col string) string {
	if d == MySQL {
		return "VALUES(" + col + ")"
	}
	return "excluded." + col
}
