// Package store provides durable storage and retrieval of vehicle records
// on SQLite, with uniqueness on id and safe, allow-listed aggregation for
// the reporting layer.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// dateLayout is the storage format for the date_added column.
const dateLayout = "2006-01-02"

// vehicleColumns is the column order used by every SELECT, INSERT, CSV
// export and seed import. Keep schema, scanRecord and insertRecord in sync.
var vehicleColumns = []string{
	"id", "category", "brand", "model", "color", "fuel",
	"engine_cc", "horsepower", "doors", "sunroof", "cases",
	"manufacture_year", "status", "kilometers", "price", "date_added",
}

const schema = `
CREATE TABLE vehicles (
	id               INTEGER PRIMARY KEY,
	category         TEXT NOT NULL,
	brand            TEXT NOT NULL,
	model            TEXT NOT NULL,
	color            TEXT NOT NULL,
	fuel             TEXT NOT NULL,
	engine_cc        INTEGER NOT NULL,
	horsepower       INTEGER NOT NULL,
	doors            INTEGER,
	sunroof          TEXT,
	cases            INTEGER,
	manufacture_year INTEGER NOT NULL,
	status           TEXT NOT NULL,
	kilometers       INTEGER NOT NULL,
	price            INTEGER NOT NULL,
	date_added       TEXT NOT NULL
);

CREATE INDEX idx_vehicles_key ON vehicles (category, brand, model);
`

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL
);
`

// Store owns the vehicles relation. All operations are synchronous and
// acquire a connection per call via database/sql; the pool is capped at a
// single connection so SQLite sees one writer at a time.
type Store struct {
	db *sql.DB

	// now stamps date_added at commit time. Overridable in tests.
	now func() time.Time

	// seedNeeded is true when Open created the vehicles table in this
	// process; ImportSeed is a no-op otherwise.
	seedNeeded bool
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the schema exists. The vehicles table is only created when
// absent, so a seed import never runs twice against the same file.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Err: err}
	}

	s := &Store{db: db, now: time.Now}

	exists, err := s.tableExists(ctx, "vehicles")
	if err != nil {
		db.Close()
		return nil, err
	}
	if !exists {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			db.Close()
			return nil, &StorageError{Op: "create schema", Err: err}
		}
		s.seedNeeded = true
	}
	if _, err := db.ExecContext(ctx, usersSchema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "create users schema", Err: err}
	}

	return s, nil
}

// DB exposes the underlying handle for collaborators that share the same
// database file (the credential gateway).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, &StorageError{Op: "inspect schema", Err: err}
	}
	return n > 0, nil
}

// StorageError wraps a failed storage operation. Operations abort without
// partial mutation; callers surface the error rather than retrying silently.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
