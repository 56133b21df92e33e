package vehicle

// submission.go provides validation of raw form submissions before a
// Record is built. Validation mirrors the insert form: every field is
// required, with doors/sunroof applying to cars and cases to motorbikes.

import (
	"fmt"
	"strings"
	"time"
)

// Submission carries the raw fields of an insert form. Pointer fields
// distinguish "not provided" from zero values.
type Submission struct {
	Category        string `json:"category"`
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	Color           string `json:"color"`
	Fuel            string `json:"fuel"`
	EngineCC        *int   `json:"engine_cc"`
	Horsepower      *int   `json:"horsepower"`
	Doors           *int   `json:"doors"`
	Sunroof         *bool  `json:"sunroof"`
	Cases           *int   `json:"cases"`
	ManufactureYear *int   `json:"manufacture_year"`
	Status          string `json:"status"`
	Kilometers      *int   `json:"kilometers"`
	Price           *int   `json:"price"`
}

// FieldError describes a single invalid or missing submission field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormError reports why a submission was rejected. It is recoverable:
// nothing has been persisted and the caller may correct and resubmit.
type FormError struct {
	Fields []FieldError `json:"fields"`
}

func (e *FormError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("invalid submission: %s", strings.Join(names, ", "))
}

func (e *FormError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Build validates the submission for its category and assembles a Record.
// ID and DateAdded are not set here; the workflow assigns the ID and the
// store stamps DateAdded at commit. On failure it returns a *FormError
// listing every missing or invalid field.
func (s Submission) Build(now time.Time) (Record, error) {
	ferr := &FormError{}

	cat := Category(s.Category)
	if s.Category == "" {
		ferr.add("category", "required field is empty")
	} else if !cat.Valid() {
		ferr.add("category", "must be Car or Motorbike")
	}

	requireText(ferr, "brand", s.Brand)
	requireText(ferr, "model", s.Model)
	requireText(ferr, "color", s.Color)
	requireText(ferr, "fuel", s.Fuel)
	requireInt(ferr, "engine_cc", s.EngineCC)
	requireInt(ferr, "horsepower", s.Horsepower)
	requireInt(ferr, "kilometers", s.Kilometers)
	requireInt(ferr, "price", s.Price)

	if s.ManufactureYear == nil {
		ferr.add("manufacture_year", "required field is empty")
	} else if *s.ManufactureYear < MinManufactureYear || *s.ManufactureYear > now.Year() {
		ferr.add("manufacture_year", fmt.Sprintf("must be between %d and %d", MinManufactureYear, now.Year()))
	}

	st := Status(s.Status)
	if s.Status == "" {
		ferr.add("status", "required field is empty")
	} else if !st.Valid() {
		ferr.add("status", "must be New or Used")
	}

	// Category-specific group: doors+sunroof for cars, cases for motorbikes.
	switch cat {
	case CategoryCar:
		requireInt(ferr, "doors", s.Doors)
		if s.Sunroof == nil {
			ferr.add("sunroof", "required field is empty")
		}
	case CategoryMotorbike:
		requireInt(ferr, "cases", s.Cases)
	}

	if len(ferr.Fields) > 0 {
		return Record{}, ferr
	}

	rec := Record{
		Category:        cat,
		Brand:           s.Brand,
		Model:           s.Model,
		Color:           s.Color,
		Fuel:            s.Fuel,
		EngineCC:        *s.EngineCC,
		Horsepower:      *s.Horsepower,
		ManufactureYear: *s.ManufactureYear,
		Status:          st,
		Kilometers:      *s.Kilometers,
		Price:           *s.Price,
	}
	switch cat {
	case CategoryCar:
		rec.Car = &CarDetails{Doors: *s.Doors, Sunroof: *s.Sunroof}
	case CategoryMotorbike:
		rec.Bike = &BikeDetails{Cases: *s.Cases}
	}
	return rec, nil
}

func requireText(ferr *FormError, field, value string) {
	if strings.TrimSpace(value) == "" {
		ferr.add(field, "required field is empty")
	}
}

func requireInt(ferr *FormError, field string, value *int) {
	if value == nil {
		ferr.add(field, "required field is empty")
		return
	}
	if *value < 0 {
		ferr.add(field, "must be non-negative")
	}
}
