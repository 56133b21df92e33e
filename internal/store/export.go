package store

// export.go writes the full-dump CSV consumed by the download endpoint.
// The column order matches the persisted schema and the seed file format,
// so an export is importable as a seed.

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/athioak7/carly/internal/vehicle"
)

// ExportCSV streams every record to w as CSV with a header row, ordered
// by id ascending.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) error {
	records, err := s.GetAll(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(vehicleColumns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(exportRow(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(rec vehicle.Record) []string {
	var doors, sunroof, cases string
	switch rec.Category {
	case vehicle.CategoryCar:
		doors = strconv.Itoa(rec.Car.Doors)
		sunroof = formatBool(rec.Car.Sunroof)
	case vehicle.CategoryMotorbike:
		cases = strconv.Itoa(rec.Bike.Cases)
	}
	return []string{
		strconv.FormatInt(rec.ID, 10),
		string(rec.Category),
		rec.Brand,
		rec.Model,
		rec.Color,
		rec.Fuel,
		strconv.Itoa(rec.EngineCC),
		strconv.Itoa(rec.Horsepower),
		doors,
		sunroof,
		cases,
		strconv.Itoa(rec.ManufactureYear),
		string(rec.Status),
		strconv.Itoa(rec.Kilometers),
		strconv.Itoa(rec.Price),
		rec.DateAdded.Format(dateLayout),
	}
}
