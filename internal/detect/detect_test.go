package detect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/athioak7/carly/internal/store"
	"github.com/athioak7/carly/internal/vehicle"
)

func newTestDetector(t *testing.T) (*Detector, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "carly.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func car(id int64, brand, model string) vehicle.Record {
	return vehicle.Record{
		ID:              id,
		Category:        vehicle.CategoryCar,
		Brand:           brand,
		Model:           model,
		Color:           "Red",
		Fuel:            "Petrol",
		EngineCC:        1600,
		Horsepower:      120,
		ManufactureYear: 2020,
		Status:          vehicle.StatusUsed,
		Kilometers:      40000,
		Price:           12000,
		Car:             &vehicle.CarDetails{Doors: 4},
	}
}

func TestDetect_NoMatch(t *testing.T) {
	d, s := newTestDetector(t)
	ctx := context.Background()

	if err := s.Add(ctx, car(1, "Ford", "Focus")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	incoming := car(2, "Toyota", "Corolla")
	set, err := d.Detect(ctx, incoming)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("Detect() set size = %d, want 1 (no conflict)", len(set))
	}
	if set.Submitted().ID != 2 {
		t.Errorf("Submitted().ID = %d, want 2", set.Submitted().ID)
	}
}

func TestDetect_MatchesOrderedWithSubmissionLast(t *testing.T) {
	d, s := newTestDetector(t)
	ctx := context.Background()

	for _, rec := range []vehicle.Record{
		car(1, "Toyota", "Corolla"),
		car(2, "Ford", "Focus"),
		car(3, "Toyota", "Corolla"),
	} {
		if err := s.Add(ctx, rec); err != nil {
			t.Fatalf("Add(%d) error = %v", rec.ID, err)
		}
	}

	incoming := car(4, "Toyota", "Corolla")
	set, err := d.Detect(ctx, incoming)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(set) != 3 {
		t.Fatalf("Detect() set size = %d, want 3", len(set))
	}
	for i, want := range []int64{1, 3, 4} {
		if set[i].ID != want {
			t.Errorf("set[%d].ID = %d, want %d", i, set[i].ID, want)
		}
	}

	// Detection never writes.
	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("store has %d records after Detect, want 3", len(all))
	}
}
