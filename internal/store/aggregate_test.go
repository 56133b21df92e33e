package store

import (
	"context"
	"testing"
	"time"

	"github.com/athioak7/carly/internal/vehicle"
)

func seedAggregateData(t *testing.T, s *Store) {
	t.Helper()

	mk := func(rec vehicle.Record, date string) vehicle.Record {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			t.Fatalf("bad test date %q: %v", date, err)
		}
		rec.DateAdded = d
		return rec
	}

	a := testCar(1, "Toyota", "Corolla")
	a.EngineCC, a.Price = 1600, 10000
	b := testCar(2, "Toyota", "Yaris")
	b.EngineCC, b.Price = 1000, 8000
	c := testCar(3, "Ford", "Focus")
	c.EngineCC, c.Price = 2000, 15000
	d := testBike(4, "Honda", "CB500")
	d.EngineCC, d.Price = 500, 6000

	mustAdd(t, s,
		mk(a, "2025-01-10"),
		mk(b, "2025-01-20"),
		mk(c, "2025-02-05"),
		mk(d, "2025-02-15"),
	)
}

func TestAggregate_CountByCategory(t *testing.T) {
	s := newTestStore(t)
	seedAggregateData(t, s)

	rows, err := s.Aggregate(context.Background(), AggregateQuery{GroupBy: []string{"category"}})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Aggregate() returned %d rows, want 2", len(rows))
	}
	// Ordered by group key: Car before Motorbike.
	if rows[0].Keys[0] != "Car" || rows[0].Value != 3 {
		t.Errorf("row 0 = %v/%v, want Car/3", rows[0].Keys, rows[0].Value)
	}
	if rows[1].Keys[0] != "Motorbike" || rows[1].Value != 1 {
		t.Errorf("row 1 = %v/%v, want Motorbike/1", rows[1].Keys, rows[1].Value)
	}
}

func TestAggregate_AvgWithCategoryFilter(t *testing.T) {
	s := newTestStore(t)
	seedAggregateData(t, s)

	cat := vehicle.CategoryCar
	rows, err := s.Aggregate(context.Background(), AggregateQuery{
		GroupBy:  []string{"brand"},
		Func:     AggAvg,
		Target:   "price",
		Category: &cat,
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Aggregate() returned %d rows, want 2 (Ford, Toyota)", len(rows))
	}
	if rows[0].Keys[0] != "Ford" || rows[0].Value != 15000 {
		t.Errorf("Ford avg = %v, want 15000", rows[0].Value)
	}
	if rows[1].Keys[0] != "Toyota" || rows[1].Value != 9000 {
		t.Errorf("Toyota avg = %v, want 9000", rows[1].Value)
	}
}

func TestAggregate_MaxEnginePerBrand(t *testing.T) {
	s := newTestStore(t)
	seedAggregateData(t, s)

	rows, err := s.Aggregate(context.Background(), AggregateQuery{
		GroupBy: []string{"brand"},
		Func:    AggMax,
		Target:  "engine_cc",
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	got := map[string]float64{}
	for _, r := range rows {
		got[r.Keys[0]] = r.Value
	}
	if got["Toyota"] != 1600 {
		t.Errorf("max engine_cc for Toyota = %v, want 1600", got["Toyota"])
	}
	if got["Honda"] != 500 {
		t.Errorf("max engine_cc for Honda = %v, want 500", got["Honda"])
	}
}

func TestAggregate_MonthBucketWithDateRange(t *testing.T) {
	s := newTestStore(t)
	seedAggregateData(t, s)

	rows, err := s.Aggregate(context.Background(), AggregateQuery{
		GroupBy:    []string{"date_added"},
		DateBucket: BucketMonth,
		From:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Aggregate() returned %d rows, want 1 (January only)", len(rows))
	}
	if rows[0].Keys[0] != "2025-01-01" || rows[0].Value != 2 {
		t.Errorf("January bucket = %v/%v, want 2025-01-01/2", rows[0].Keys, rows[0].Value)
	}
}

func TestAggregate_RejectsUnknownIdentifiers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		q    AggregateQuery
	}{
		{"no group columns", AggregateQuery{}},
		{"off-list group column", AggregateQuery{GroupBy: []string{"id; DROP TABLE vehicles"}}},
		{"off-list target", AggregateQuery{GroupBy: []string{"brand"}, Func: AggAvg, Target: "brand"}},
		{"unknown function", AggregateQuery{GroupBy: []string{"brand"}, Func: "sum"}},
		{"unknown bucket", AggregateQuery{GroupBy: []string{"date_added"}, DateBucket: "fortnight"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Aggregate(ctx, tt.q); err == nil {
				t.Error("Aggregate() = nil, want rejection")
			}
		})
	}
}

func TestMinDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.MinDate(ctx)
	if err != nil {
		t.Fatalf("MinDate() error = %v", err)
	}
	if ok {
		t.Error("MinDate() ok = true on empty store")
	}

	seedAggregateData(t, s)

	min, ok, err := s.MinDate(ctx)
	if err != nil {
		t.Fatalf("MinDate() error = %v", err)
	}
	if !ok {
		t.Fatal("MinDate() ok = false on populated store")
	}
	if got := min.Format("2006-01-02"); got != "2025-01-10" {
		t.Errorf("MinDate() = %s, want 2025-01-10", got)
	}
}

func TestMaxOf(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	max, err := s.MaxOf(ctx, "price")
	if err != nil {
		t.Fatalf("MaxOf() error = %v", err)
	}
	if max != 0 {
		t.Errorf("MaxOf() on empty store = %d, want 0", max)
	}

	seedAggregateData(t, s)

	max, err = s.MaxOf(ctx, "price")
	if err != nil {
		t.Fatalf("MaxOf() error = %v", err)
	}
	if max != 15000 {
		t.Errorf("MaxOf(price) = %d, want 15000", max)
	}

	if _, err := s.MaxOf(ctx, "brand"); err == nil {
		t.Error("MaxOf(brand) = nil, want rejection of non-numeric column")
	}
}
