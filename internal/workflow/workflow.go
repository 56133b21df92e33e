// Package workflow orchestrates vehicle submission: validation, duplicate
// detection, and the conflict-resolution state machine that decides what
// finally gets persisted.
//
// Each session moves between two states. Idle: a Submit either commits
// immediately (no duplicates) or stages a candidate set. AwaitingSelection:
// the staged set waits for Select or Cancel, which apply the decision to
// the store as one transaction and return the session to Idle. Pending
// conflicts are keyed by session ID so independent users never share a
// slot, and a staged set expires after a TTL so an abandoned conflict does
// not block that session forever.
package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/athioak7/carly/internal/detect"
	"github.com/athioak7/carly/internal/store"
	"github.com/athioak7/carly/internal/vehicle"
)

// State identifies where a session is in the resolution cycle.
type State string

const (
	StateIdle              State = "idle"
	StateAwaitingSelection State = "awaiting_selection"
)

var (
	// ErrConflictInProgress rejects a Submit while the session is awaiting
	// a selection. Fatal to the request, not to the session: resolve or
	// cancel the staged conflict first.
	ErrConflictInProgress = errors.New("a duplicate conflict is already awaiting selection")

	// ErrNoPendingConflict rejects Select/Cancel for an Idle session.
	ErrNoPendingConflict = errors.New("no pending conflict for this session")

	// ErrBadSelection rejects out-of-range or duplicate keep indices.
	ErrBadSelection = errors.New("selection indices out of range")
)

// SubmitResult reports what Submit did.
type SubmitResult struct {
	// Committed is true when the record was persisted immediately.
	Committed bool `json:"committed"`

	// Record is the persisted record (when Committed).
	Record *vehicle.Record `json:"record,omitempty"`

	// Candidates is the staged set awaiting selection (when !Committed).
	Candidates vehicle.CandidateSet `json:"candidates,omitempty"`
}

// ResolveResult reports how a conflict was settled.
type ResolveResult struct {
	Kept      int `json:"kept"`
	Discarded int `json:"discarded"`
}

// Workflow is safe for concurrent use; the store serializes writes and
// the pending map is guarded by a mutex.
type Workflow struct {
	store    *store.Store
	detector *detect.Detector
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingConflict
}

type pendingConflict struct {
	set    vehicle.CandidateSet
	staged time.Time
}

// New creates a workflow over st and det. Staged conflicts expire after
// ttl; a background janitor reclaims abandoned slots.
func New(st *store.Store, det *detect.Detector, ttl time.Duration) *Workflow {
	w := &Workflow{
		store:    st,
		detector: det,
		ttl:      ttl,
		now:      time.Now,
		pending:  make(map[string]*pendingConflict),
	}
	go w.janitor()
	return w
}

// janitor drops expired pending conflicts every TTL interval.
func (w *Workflow) janitor() {
	for {
		time.Sleep(w.ttl)
		now := w.now()
		w.mu.Lock()
		for session, p := range w.pending {
			if now.Sub(p.staged) > w.ttl {
				delete(w.pending, session)
			}
		}
		w.mu.Unlock()
	}
}

// takePending removes and returns the session's staged set, treating an
// expired entry as absent.
func (w *Workflow) takePending(session string) (vehicle.CandidateSet, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[session]
	if !ok {
		return nil, false
	}
	delete(w.pending, session)
	if w.now().Sub(p.staged) > w.ttl {
		return nil, false
	}
	return p.set, true
}

// State returns the session's current state.
func (w *Workflow) State(session string) State {
	if _, ok := w.Pending(session); ok {
		return StateAwaitingSelection
	}
	return StateIdle
}

// Pending returns the session's staged candidate set without consuming it.
func (w *Workflow) Pending(session string) (vehicle.CandidateSet, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[session]
	if !ok || w.now().Sub(p.staged) > w.ttl {
		return nil, false
	}
	return p.set, true
}

// Submit validates sub, assigns the next id, and either commits the record
// (no duplicates) or stages a candidate set for the session and waits for
// Select/Cancel.
//
// Failure modes: *vehicle.FormError when required fields are missing or
// invalid (no mutation, session stays Idle); ErrConflictInProgress when
// the session already has a staged set; *store.StorageError on storage
// failure.
func (w *Workflow) Submit(ctx context.Context, session string, sub vehicle.Submission) (*SubmitResult, error) {
	if _, busy := w.Pending(session); busy {
		return nil, ErrConflictInProgress
	}

	rec, err := sub.Build(w.now())
	if err != nil {
		return nil, err
	}

	rec.ID, err = w.store.NextID(ctx)
	if err != nil {
		return nil, err
	}

	set, err := w.detector.Detect(ctx, rec)
	if err != nil {
		return nil, err
	}

	if len(set) <= 1 {
		if err := w.store.Add(ctx, rec); err != nil {
			return nil, err
		}
		return &SubmitResult{Committed: true, Record: &rec}, nil
	}

	w.mu.Lock()
	w.pending[session] = &pendingConflict{set: set, staged: w.now()}
	w.mu.Unlock()
	return &SubmitResult{Candidates: set}, nil
}

// Select applies an explicit user choice: the candidates at keep indices
// are persisted (idempotently, so already-present rows are unaffected) and
// the rest are deleted, all in one transaction. The staged set is cleared
// and the session returns to Idle.
//
// If the store fails, the set stays staged so the decision can be retried.
func (w *Workflow) Select(ctx context.Context, session string, keep []int) (*ResolveResult, error) {
	set, ok := w.takePending(session)
	if !ok {
		return nil, ErrNoPendingConflict
	}

	chosen := make(map[int]bool, len(keep))
	for _, i := range keep {
		if i < 0 || i >= len(set) {
			w.restage(session, set)
			return nil, ErrBadSelection
		}
		chosen[i] = true
	}

	var kept, discarded []vehicle.Record
	for i, rec := range set {
		if chosen[i] {
			kept = append(kept, rec)
		} else {
			discarded = append(discarded, rec)
		}
	}

	if err := w.store.ResolveConflict(ctx, kept, discarded); err != nil {
		w.restage(session, set)
		return nil, err
	}
	return &ResolveResult{Kept: len(kept), Discarded: len(discarded)}, nil
}

// Cancel dismisses the pending conflict with the default selection: every
// candidate except the last, so the pre-existing records are kept and the
// newly submitted one is discarded.
func (w *Workflow) Cancel(ctx context.Context, session string) (*ResolveResult, error) {
	set, ok := w.Pending(session)
	if !ok {
		return nil, ErrNoPendingConflict
	}
	keep := make([]int, len(set)-1)
	for i := range keep {
		keep[i] = i
	}
	return w.Select(ctx, session, keep)
}

func (w *Workflow) restage(session string, set vehicle.CandidateSet) {
	w.mu.Lock()
	w.pending[session] = &pendingConflict{set: set, staged: w.now()}
	w.mu.Unlock()
}
