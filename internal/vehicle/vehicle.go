// Package vehicle defines the vehicle record domain model and submission
// validation. This package has no storage or HTTP dependencies and can be
// used by any frontend.
package vehicle

import (
	"fmt"
	"time"
)

// Category is the Car/Motorbike discriminant. It controls which detail
// group (CarDetails or BikeDetails) is populated on a Record.
type Category string

const (
	CategoryCar       Category = "Car"
	CategoryMotorbike Category = "Motorbike"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryCar || c == CategoryMotorbike
}

// Status indicates whether a vehicle is new or used.
type Status string

const (
	StatusNew  Status = "New"
	StatusUsed Status = "Used"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusNew || s == StatusUsed
}

// MinManufactureYear is the earliest accepted manufacture year.
// 1885 is the year of the first motor vehicle.
const MinManufactureYear = 1885

// CarDetails holds the fields that only apply to cars.
type CarDetails struct {
	Doors   int  `json:"doors"`
	Sunroof bool `json:"sunroof"`
}

// BikeDetails holds the fields that only apply to motorbikes.
type BikeDetails struct {
	Cases int `json:"cases"`
}

// Record is a registered vehicle. Exactly one of Car or Bike is set,
// matching Category; the other is nil. ID and DateAdded are assigned by
// the store and immutable once committed.
type Record struct {
	ID              int64        `json:"id"`
	Category        Category     `json:"category"`
	Brand           string       `json:"brand"`
	Model           string       `json:"model"`
	Color           string       `json:"color"`
	Fuel            string       `json:"fuel"`
	EngineCC        int          `json:"engine_cc"`
	Horsepower      int          `json:"horsepower"`
	ManufactureYear int          `json:"manufacture_year"`
	Status          Status       `json:"status"`
	Kilometers      int          `json:"kilometers"`
	Price           int          `json:"price"`
	DateAdded       time.Time    `json:"date_added"`
	Car             *CarDetails  `json:"car,omitempty"`
	Bike            *BikeDetails `json:"motorbike,omitempty"`
}

// Key is the duplicate-detection key: records sharing a Key are treated
// as candidates for the same real-world vehicle entry.
type Key struct {
	Category Category
	Brand    string
	Model    string
}

// Key returns the record's duplicate-detection key.
func (r Record) Key() Key {
	return Key{Category: r.Category, Brand: r.Brand, Model: r.Model}
}

// Validate checks the tagged-variant invariant: the detail group matching
// Category is set and the other is nil.
func (r Record) Validate() error {
	switch r.Category {
	case CategoryCar:
		if r.Car == nil || r.Bike != nil {
			return fmt.Errorf("car record %d: expected car details only", r.ID)
		}
	case CategoryMotorbike:
		if r.Bike == nil || r.Car != nil {
			return fmt.Errorf("motorbike record %d: expected motorbike details only", r.ID)
		}
	default:
		return fmt.Errorf("record %d: unknown category %q", r.ID, r.Category)
	}
	return nil
}

// CandidateSet is the ordered set of records sharing a Key with a pending
// submission. The newly submitted record is always last. A CandidateSet
// exists only for the duration of one resolution cycle.
type CandidateSet []Record

// Submitted returns the newly submitted record (the last entry).
func (cs CandidateSet) Submitted() Record {
	return cs[len(cs)-1]
}
