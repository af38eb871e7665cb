// Package sqlite implements the repository interfaces on SQLite.
//
// DRIVER: modernc.org/sqlite is a pure-Go translation of SQLite, so the
// binary builds without CGo and cross-compiles anywhere Go does.
//
// QUERY MAPPING: sqlx sits on top of database/sql. GetContext and
// SelectContext scan rows into structs by their `db` tags, which removes
// the long rows.Scan(&a, &b, &c, ...) lists.
//
// SCHEMA: golang-migrate applies the SQL files embedded from migrations/
// and records the applied version in schema_migrations, so a restarted
// server never replays a migration.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Gur1a/CheckList/internal/apperror"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const driverName = "sqlite"

func init() {
	// sqlx doesn't know the "sqlite" driver name; tell it to use '?'.
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// DB owns the connection pool. It implements every repository interface
// in internal/repository.
type DB struct {
	conn *sqlx.DB
}

// New opens (or creates) the database at dbPath and migrates it to the
// latest schema.
//
// dbPath examples:
//   - "data/checklist.db" → file-based database
//   - ":memory:"          → in-memory database, used by tests
//
// PRAGMAs go in the DSN rather than a one-off Exec because SQLite applies
// them per connection, and database/sql may open several.
func New(dbPath string) (*DB, error) {
	memory := dbPath == ":memory:"

	conn, err := sqlx.Open(driverName, dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database. A
	// single connection keeps the whole pool looking at one of them.
	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func dsn(dbPath string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		// Store times as "2006-01-02 15:04:05.999999999-07:00" so they sort
		// as text and SQLite's date functions understand them.
		"_time_format=sqlite",
	}
	if dbPath == ":memory:" {
		return "file::memory:?" + strings.Join(pragmas, "&")
	}
	// WAL lets readers proceed while a write is in progress.
	pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_txlock=immediate")
	return "file:" + dbPath + "?" + strings.Join(pragmas, "&")
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// SQL exposes the underlying pool for stats collection.
func (db *DB) SQL() *sql.DB {
	return db.conn.DB
}

// migrate applies every pending migration.
//
// m.Close() is deliberately not called: the sqlite migrate driver's Close
// closes the *sql.DB it was given, which is our live pool. Only the
// source is closed.
func (db *DB) migrate() error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db.conn.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back
// on error. fn must use tx, never db.conn: with a single-connection pool
// a query on db.conn would wait forever for the connection tx holds.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// constraintCode returns the extended SQLite result code of err, or 0.
func constraintCode(err error) int {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	switch constraintCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// checkAffected turns "0 rows affected" into a NotFound error.
func checkAffected(result sql.Result, resource string, id any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
