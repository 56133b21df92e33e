package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/athioak7/carly/internal/detect"
	"github.com/athioak7/carly/internal/store"
	"github.com/athioak7/carly/internal/vehicle"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func carSub(brand, model string) vehicle.Submission {
	return vehicle.Submission{
		Category:        "Car",
		Brand:           brand,
		Model:           model,
		Color:           "Red",
		Fuel:            "Petrol",
		EngineCC:        intp(1600),
		Horsepower:      intp(120),
		Doors:           intp(4),
		Sunroof:         boolp(false),
		ManufactureYear: intp(2020),
		Status:          "Used",
		Kilometers:      intp(45000),
		Price:           intp(12500),
	}
}

func newTestWorkflow(t *testing.T, ttl time.Duration) (*Workflow, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "carly.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	w := New(s, detect.New(s), ttl)
	return w, s
}

func countRecords(t *testing.T, s *store.Store) int {
	t.Helper()
	records, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	return len(records)
}

func TestSubmit_CommitsWithoutDuplicates(t *testing.T) {
	w, s := newTestWorkflow(t, time.Hour)
	ctx := context.Background()

	res, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !res.Committed {
		t.Fatal("Submit() Committed = false, want immediate commit")
	}
	if res.Record == nil || res.Record.ID != 1 {
		t.Errorf("Record = %+v, want id 1", res.Record)
	}
	if got := w.State("alice"); got != StateIdle {
		t.Errorf("State() = %q, want idle after commit", got)
	}
	if n := countRecords(t, s); n != 1 {
		t.Errorf("store has %d records, want 1", n)
	}
}

func TestSubmit_FormErrorLeavesStoreUntouched(t *testing.T) {
	w, s := newTestWorkflow(t, time.Hour)

	sub := carSub("Toyota", "Corolla")
	sub.Doors = nil

	_, err := w.Submit(context.Background(), "alice", sub)
	var ferr *vehicle.FormError
	if !errors.As(err, &ferr) {
		t.Fatalf("Submit() error = %v, want *vehicle.FormError", err)
	}
	if n := countRecords(t, s); n != 0 {
		t.Errorf("store has %d records after rejected submission, want 0", n)
	}
	if got := w.State("alice"); got != StateIdle {
		t.Errorf("State() = %q, want idle", got)
	}
}

func TestSubmit_StagesConflictWithoutCommitting(t *testing.T) {
	w, s := newTestWorkflow(t, time.Hour)
	ctx := context.Background()

	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("conflicting Submit() error = %v", err)
	}
	// The second submission conflicted; resolve it by keeping both.
	if _, err := w.Select(ctx, "alice", []int{0, 1}); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if n := countRecords(t, s); n != 2 {
		t.Fatalf("store has %d records, want 2", n)
	}

	res, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Committed {
		t.Fatal("Submit() committed despite duplicates")
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("Candidates size = %d, want 3", len(res.Candidates))
	}
	if res.Candidates.Submitted().ID != 3 {
		t.Errorf("Submitted().ID = %d, want the new record (3) last", res.Candidates.Submitted().ID)
	}
	if got := w.State("alice"); got != StateAwaitingSelection {
		t.Errorf("State() = %q, want awaiting_selection", got)
	}
	// Nothing committed while awaiting selection.
	if n := countRecords(t, s); n != 2 {
		t.Errorf("store has %d records while staged, want 2", n)
	}
}

func TestSubmit_RejectsWhileConflictPending(t *testing.T) {
	w, _ := newTestWorkflow(t, time.Hour)
	ctx := context.Background()

	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("conflicting Submit() error = %v", err)
	}

	// Even an unrelated submission is rejected until the conflict settles.
	_, err := w.Submit(ctx, "alice", carSub("Ford", "Focus"))
	if !errors.Is(err, ErrConflictInProgress) {
		t.Fatalf("Submit() error = %v, want ErrConflictInProgress", err)
	}
}

func TestSelect_KeepOnlyFirst(t *testing.T) {
	w, s := newTestWorkflow(t, time.Hour)
	ctx := context.Background()

	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("conflicting Submit() error = %v", err)
	}

	res, err := w.Select(ctx, "alice", []int{0})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if res.Kept != 1 || res.Discarded != 1 {
		t.Errorf("ResolveResult = %+v, want 1 kept / 1 discarded", res)
	}

	records, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != 1 {
		t.Errorf("store after Select = %v, want only the first record", records)
	}
	if got := w.State("alice"); got != StateIdle {
		t.Errorf("State() = %q, want idle after resolution", got)
	}
}

func TestSelect_KeepAll(t *testing.T) {
	w, s := newTestWorkflow(t, time.Hour)
	ctx := context.Background()

	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("conflicting Submit() error = %v", err)
	}

	res, err := w.Select(ctx, "alice", []int{0, 1})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if res.Kept != 2 || res.Discarded != 0 {
		t.Errorf("ResolveResult = %+v, want 2 kept / 0 discarded", res)
	}
	if n := countRecords(t, s); n != 2 {
		t.Errorf("store has %d records, want 2", n)
	}
}

func TestSelect_BadIndicesKeepConflictStaged(t *testing.T) {
	w, _ := newTestWorkflow(t, time.Hour)
	ctx := context.Background()

	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("conflicting Submit() error = %v", err)
	}

	for _, keep := range [][]int{{-1}, {2}, {0, 5}} {
		if _, err := w.Select(ctx, "alice", keep); !errors.Is(err, ErrBadSelection) {
			t.Errorf("Select(%v) error = %v, want ErrBadSelection", keep, err)
		}
	}

	// The conflict survives a bad selection and can still be resolved.
	if got := w.State("alice"); got != StateAwaitingSelection {
		t.Fatalf("State() = %q, want awaiting_selection after bad selection", got)
	}
	if _, err := w.Select(ctx, "alice", []int{0}); err != nil {
		t.Errorf("Select() after bad attempt error = %v", err)
	}
}

func TestSelect_NoPendingConflict(t *testing.T) {
	w, _ := newTestWorkflow(t, time.Hour)

	if _, err := w.Select(context.Background(), "alice", []int{0}); !errors.Is(err, ErrNoPendingConflict) {
		t.Errorf("Select() error = %v, want ErrNoPendingConflict", err)
	}
	if _, err := w.Cancel(context.Background(), "alice"); !errors.Is(err, ErrNoPendingConflict) {
		t.Errorf("Cancel() error = %v, want ErrNoPendingConflict", err)
	}
}

func TestCancel_KeepsExistingDiscardsNew(t *testing.T) {
	w, s := newTestWorkflow(t, time.Hour)
	ctx := context.Background()

	// Two existing Toyota/Corolla records.
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("conflicting Submit() error = %v", err)
	}
	if _, err := w.Select(ctx, "alice", []int{0, 1}); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	// A third conflicting submission, then cancel.
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("third Submit() error = %v", err)
	}
	res, err := w.Cancel(ctx, "alice")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if res.Kept != 2 || res.Discarded != 1 {
		t.Errorf("ResolveResult = %+v, want 2 kept / 1 discarded", res)
	}

	records, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("store has %d records after cancel, want the 2 pre-existing", len(records))
	}
	if records[0].ID != 1 || records[1].ID != 2 {
		t.Errorf("store ids = [%d %d], want [1 2]", records[0].ID, records[1].ID)
	}
	if got := w.State("alice"); got != StateIdle {
		t.Errorf("State() = %q, want idle after cancel", got)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	w, _ := newTestWorkflow(t, time.Hour)
	ctx := context.Background()

	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("conflicting Submit() error = %v", err)
	}

	// Alice's staged conflict must not block Bob.
	res, err := w.Submit(ctx, "bob", carSub("Ford", "Focus"))
	if err != nil {
		t.Fatalf("Submit() for second session error = %v", err)
	}
	if !res.Committed {
		t.Error("second session's unrelated submission did not commit")
	}
	if got := w.State("alice"); got != StateAwaitingSelection {
		t.Errorf("first session State() = %q, want awaiting_selection", got)
	}
}

func TestStagedConflictExpires(t *testing.T) {
	w, _ := newTestWorkflow(t, time.Hour)
	ctx := context.Background()

	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := w.Submit(ctx, "alice", carSub("Toyota", "Corolla")); err != nil {
		t.Fatalf("conflicting Submit() error = %v", err)
	}

	// Advance the clock past the TTL.
	w.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if got := w.State("alice"); got != StateIdle {
		t.Errorf("State() = %q, want idle after expiry", got)
	}
	if _, err := w.Select(ctx, "alice", []int{0}); !errors.Is(err, ErrNoPendingConflict) {
		t.Errorf("Select() after expiry error = %v, want ErrNoPendingConflict", err)
	}
}
