package store

// records.go implements the typed CRUD surface over the vehicles table.
// Every statement is parameterized; identifiers never come from callers.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/athioak7/carly/internal/vehicle"
)

// NextID returns max(id)+1 over all records, or 1 for an empty store.
// IDs are never reused: deleting the highest row makes its id available
// again only because the source behaved that way; callers assign ids at
// submission time and commit promptly.
func (s *Store) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM vehicles`).Scan(&next)
	if err != nil {
		return 0, &StorageError{Op: "next id", Err: err}
	}
	return next, nil
}

// GetAll returns every record ordered by id ascending.
func (s *Store) GetAll(ctx context.Context) ([]vehicle.Record, error) {
	return s.queryRecords(ctx,
		fmt.Sprintf(`SELECT %s FROM vehicles ORDER BY id`, strings.Join(vehicleColumns, ", ")))
}

// FindByKey returns all records matching (category, brand, model) exactly,
// ordered by id ascending.
func (s *Store) FindByKey(ctx context.Context, key vehicle.Key) ([]vehicle.Record, error) {
	return s.queryRecords(ctx,
		fmt.Sprintf(`SELECT %s FROM vehicles WHERE category = ? AND brand = ? AND model = ? ORDER BY id`,
			strings.Join(vehicleColumns, ", ")),
		string(key.Category), key.Brand, key.Model)
}

// Add inserts rec only if no row with its id exists; an id collision is a
// silent no-op, never an overwrite. The idempotency is what makes conflict
// resolution safe to replay, but it also masks genuine id collisions —
// callers must obtain ids from NextID.
//
// DateAdded is stamped with the store clock when the record has none,
// so the column reflects commit time rather than submission time.
func (s *Store) Add(ctx context.Context, rec vehicle.Record) error {
	if err := rec.Validate(); err != nil {
		return &StorageError{Op: "add", Err: err}
	}
	if err := s.execInsert(ctx, s.db, rec); err != nil {
		return err
	}
	return nil
}

// Delete removes the row with the given id; absent ids are a no-op.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}

// ResolveConflict applies a resolution decision as one transaction:
// idempotent adds for every kept record, then deletes for every discarded
// one. On any failure nothing commits, so a crash mid-resolution cannot
// leave a mix of kept and discarded rows.
func (s *Store) ResolveConflict(ctx context.Context, keep, discard []vehicle.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "resolve begin", Err: err}
	}
	defer tx.Rollback()

	for _, rec := range keep {
		if err := s.execInsert(ctx, tx, rec); err != nil {
			return err
		}
	}
	for _, rec := range discard {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, rec.ID); err != nil {
			return &StorageError{Op: "resolve delete", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "resolve commit", Err: err}
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execInsert(ctx context.Context, db execer, rec vehicle.Record) error {
	date := rec.DateAdded
	if date.IsZero() {
		date = s.now()
	}

	var doors, cases sql.NullInt64
	var sunroof sql.NullString
	switch rec.Category {
	case vehicle.CategoryCar:
		doors = sql.NullInt64{Int64: int64(rec.Car.Doors), Valid: true}
		sunroof = sql.NullString{String: formatBool(rec.Car.Sunroof), Valid: true}
	case vehicle.CategoryMotorbike:
		cases = sql.NullInt64{Int64: int64(rec.Bike.Cases), Valid: true}
	}

	query := fmt.Sprintf(`INSERT OR IGNORE INTO vehicles (%s) VALUES (%s)`,
		strings.Join(vehicleColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(vehicleColumns)), ", "))

	_, err := db.ExecContext(ctx, query,
		rec.ID, string(rec.Category), rec.Brand, rec.Model, rec.Color, rec.Fuel,
		rec.EngineCC, rec.Horsepower, doors, sunroof, cases,
		rec.ManufactureYear, string(rec.Status), rec.Kilometers, rec.Price,
		date.Format(dateLayout))
	if err != nil {
		return &StorageError{Op: "add", Err: err}
	}
	return nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]vehicle.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "query records", Err: err}
	}
	defer rows.Close()

	var records []vehicle.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &StorageError{Op: "scan record", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "query records", Err: err}
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (vehicle.Record, error) {
	var rec vehicle.Record
	var category, status, date string
	var doors, cases sql.NullInt64
	var sunroof sql.NullString

	err := rows.Scan(
		&rec.ID, &category, &rec.Brand, &rec.Model, &rec.Color, &rec.Fuel,
		&rec.EngineCC, &rec.Horsepower, &doors, &sunroof, &cases,
		&rec.ManufactureYear, &status, &rec.Kilometers, &rec.Price, &date)
	if err != nil {
		return vehicle.Record{}, err
	}

	rec.Category = vehicle.Category(category)
	rec.Status = vehicle.Status(status)
	if rec.DateAdded, err = parseDate(date); err != nil {
		return vehicle.Record{}, err
	}

	switch rec.Category {
	case vehicle.CategoryCar:
		rec.Car = &vehicle.CarDetails{
			Doors:   int(doors.Int64),
			Sunroof: parseBool(sunroof.String),
		}
	case vehicle.CategoryMotorbike:
		rec.Bike = &vehicle.BikeDetails{Cases: int(cases.Int64)}
	}
	return rec, nil
}
