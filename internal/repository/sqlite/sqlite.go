// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// Foodgram is a single-node service with modest write volume. An embedded
// database keeps deployment to one binary plus one file, and ":memory:" gives
// every test its own fresh database.
//
// modernc.org/sqlite is a pure Go port of SQLite, so no C toolchain is needed.
// sqlx sits on top of database/sql for struct scanning and IN (...) expansion;
// golang-migrate applies the embedded schema in migrations/.
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
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/foodgram/internal/apperror"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sqlx connection pool and implements every repository interface.
type DB struct {
	conn *sqlx.DB
}

// New opens the database at dbPath and migrates it to the latest schema.
//
// dbPath examples:
//   - "data/foodgram.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
//
// PRAGMAS IN THE DSN:
// foreign_keys is a per-connection setting in SQLite. Passing it through the
// DSN makes the driver apply it to every connection the pool opens, not just
// the first one.
func New(dbPath string) (*DB, error) {
	memory := dbPath == ":memory:"

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a separate, empty database.
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

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate applies the embedded migrations with golang-migrate.
//
// The migrate instance is deliberately not closed: its database driver would
// close the shared *sql.DB along with it. Only the source driver is released.
func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db.conn.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling back
// on any error. Inside fn, use only tx: with a single pooled connection a query
// on db.conn would wait forever for the connection the transaction holds.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

type constraint int

const (
	noConstraint constraint = iota
	uniqueConstraint
	foreignKeyConstraint
	checkConstraint
)

// constraintViolation classifies a SQLite constraint error. The driver reports
// the primary result code in the low byte; the constraint kind is read from
// the message, which SQLite words as "UNIQUE constraint failed: ..." etc.
func constraintViolation(err error) constraint {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) || se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return noConstraint
	}

	msg := se.Error()
	switch {
	case strings.Contains(msg, "UNIQUE"), strings.Contains(msg, "PRIMARY KEY"):
		return uniqueConstraint
	case strings.Contains(msg, "FOREIGN KEY"):
		return foreignKeyConstraint
	case strings.Contains(msg, "CHECK"):
		return checkConstraint
	}
	return noConstraint
}

// notFound translates sql.ErrNoRows into the domain NotFound error and wraps
// anything else with the action that failed.
func notFound(err error, resource string, id any, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(resource, fmt.Sprint(id))
	}
	return fmt.Errorf("sqlite: %s: %w", action, err)
}

// expectOne turns "no rows affected" into NotFound.
func expectOne(res sql.Result, resource string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, fmt.Sprint(id))
	}
	return nil
}
