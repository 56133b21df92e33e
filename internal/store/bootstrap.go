package store

// bootstrap.go imports the one-time seed dataset. The original inventory
// lived in a tabular file; it is loaded only when Open created a fresh
// vehicles table, so restarting against an existing database never
// re-imports.

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/athioak7/carly/internal/vehicle"
)

// ImportSeed loads vehicle rows from the CSV file at path. It is a no-op
// when the vehicles table already existed before Open. The header row must
// match the vehicles columns; every data row is validated before the
// import commits, and the whole import is one transaction.
func (s *Store) ImportSeed(ctx context.Context, path string) error {
	if !s.seedNeeded {
		slog.Debug("seed import skipped, vehicles table already existed")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read seed header: %w", err)
	}
	if err := validateSeedHeader(header); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "seed begin", Err: err}
	}
	defer tx.Rollback()

	line := 1
	count := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read seed row: %w", err)
		}
		line++

		rec, err := parseSeedRow(row)
		if err != nil {
			return fmt.Errorf("seed line %d: %w", line, err)
		}
		if err := s.execInsert(ctx, tx, rec); err != nil {
			return err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "seed commit", Err: err}
	}
	s.seedNeeded = false

	slog.Info("seed data imported", "file", path, "rows", count)
	return nil
}

func validateSeedHeader(header []string) error {
	if len(header) != len(vehicleColumns) {
		return fmt.Errorf("seed header has %d columns, want %d", len(header), len(vehicleColumns))
	}
	var missing []string
	for i, want := range vehicleColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("seed header mismatch at columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func parseSeedRow(row []string) (vehicle.Record, error) {
	if len(row) != len(vehicleColumns) {
		return vehicle.Record{}, fmt.Errorf("row has %d fields, want %d", len(row), len(vehicleColumns))
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	var rec vehicle.Record
	var err error

	if rec.ID, err = strconv.ParseInt(row[0], 10, 64); err != nil || rec.ID <= 0 {
		return vehicle.Record{}, fmt.Errorf("invalid id %q", row[0])
	}
	rec.Category = vehicle.Category(row[1])
	if !rec.Category.Valid() {
		return vehicle.Record{}, fmt.Errorf("unknown category %q", row[1])
	}
	rec.Brand, rec.Model, rec.Color, rec.Fuel = row[2], row[3], row[4], row[5]

	if rec.EngineCC, err = seedInt("engine_cc", row[6]); err != nil {
		return vehicle.Record{}, err
	}
	if rec.Horsepower, err = seedInt("horsepower", row[7]); err != nil {
		return vehicle.Record{}, err
	}
	if rec.ManufactureYear, err = seedInt("manufacture_year", row[11]); err != nil {
		return vehicle.Record{}, err
	}
	rec.Status = vehicle.Status(row[12])
	if !rec.Status.Valid() {
		return vehicle.Record{}, fmt.Errorf("unknown status %q", row[12])
	}
	if rec.Kilometers, err = seedInt("kilometers", row[13]); err != nil {
		return vehicle.Record{}, err
	}
	if rec.Price, err = seedInt("price", row[14]); err != nil {
		return vehicle.Record{}, err
	}
	if rec.DateAdded, err = parseDate(row[15]); err != nil {
		return vehicle.Record{}, err
	}

	switch rec.Category {
	case vehicle.CategoryCar:
		doors, err := seedInt("doors", row[8])
		if err != nil {
			return vehicle.Record{}, err
		}
		rec.Car = &vehicle.CarDetails{Doors: doors, Sunroof: parseBool(row[9])}
	case vehicle.CategoryMotorbike:
		cases, err := seedInt("cases", row[10])
		if err != nil {
			return vehicle.Record{}, err
		}
		rec.Bike = &vehicle.BikeDetails{Cases: cases}
	}

	return rec, rec.Validate()
}

func seedInt(field, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative %s %q", field, value)
	}
	return n, nil
}
