// Package detect decides whether a pending submission collides with
// existing data. The detector is read-only: it performs no writes and
// holds no state between calls.
package detect

import (
	"context"

	"github.com/athioak7/carly/internal/store"
	"github.com/athioak7/carly/internal/vehicle"
)

// Detector finds existing records that share a submission's
// (category, brand, model) key.
type Detector struct {
	store *store.Store
}

// New returns a detector backed by st.
func New(st *store.Store) *Detector {
	return &Detector{store: st}
}

// Detect returns the records sharing rec's key with rec appended last.
// A result of size 1 means no pre-existing match: the caller may commit
// directly. Size > 1 means a conflict that must be resolved.
func (d *Detector) Detect(ctx context.Context, rec vehicle.Record) (vehicle.CandidateSet, error) {
	matches, err := d.store.FindByKey(ctx, rec.Key())
	if err != nil {
		return nil, err
	}
	set := make(vehicle.CandidateSet, 0, len(matches)+1)
	set = append(set, matches...)
	set = append(set, rec)
	return set, nil
}
