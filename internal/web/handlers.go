package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/athioak7/carly/internal/logging"
	"github.com/athioak7/carly/internal/store"
	"github.com/athioak7/carly/internal/vehicle"
)

// loginRequest is the POST /api/login body.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin verifies credentials through the auth gateway and issues a
// session cookie. Bad credentials are a 401, never an error.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorStatus(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	ok, err := s.gateway.CheckCredential(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !ok {
		respondErrorStatus(w, r, http.StatusUnauthorized, "BAD_CREDENTIALS", "incorrect credentials")
		return
	}

	token := s.sessions.create(req.Username)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.Auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	logging.FromContext(r.Context()).Info("login", "user", req.Username)
	writeJSON(w, map[string]string{"username": req.Username})
}

// handleLogout invalidates the current session, if any.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.destroy(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleListVehicles returns every record ordered by id.
func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.GetAll(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"vehicles": records, "count": len(records)})
}

// handleExport streams the full database as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="database.csv"`)
	if err := s.store.ExportCSV(r.Context(), w); err != nil {
		// Headers may already be sent; log instead of rewriting the response.
		logging.FromContext(r.Context()).Error("csv export failed", "error", err)
	}
}

// handleSubmit runs a submission through the workflow. A clean submission
// commits immediately (201); a duplicate key stages a candidate set and
// answers 409 with the candidates so the client can ask the user which
// entries to keep.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub vehicle.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondErrorStatus(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	result, err := s.flow.Submit(r.Context(), sessionToken(r.Context()), sub)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logger := logging.FromContext(r.Context()).With("user", sessionUser(r.Context()))
	if result.Committed {
		logger.Info("vehicle committed", "id", result.Record.ID,
			"brand", result.Record.Brand, "model", result.Record.Model)
		writeJSONStatus(w, http.StatusCreated, result)
		return
	}

	logger.Info("duplicate conflict staged", "candidates", len(result.Candidates))
	writeJSONStatus(w, http.StatusConflict, result)
}

// handlePending re-serves the session's staged candidate set.
func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	set, ok := s.flow.Pending(sessionToken(r.Context()))
	if !ok {
		respondErrorStatus(w, r, http.StatusNotFound, "NO_PENDING_CONFLICT",
			"no duplicate conflict is awaiting selection")
		return
	}
	writeJSON(w, map[string]any{"candidates": set})
}

// resolveRequest is the POST /api/vehicles/resolve body: indices into the
// staged candidate set to keep.
type resolveRequest struct {
	Keep []int `json:"keep"`
}

// handleResolve applies an explicit keep selection to the staged conflict.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorStatus(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	result, err := s.flow.Select(r.Context(), sessionToken(r.Context()), req.Keep)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("conflict resolved",
		"user", sessionUser(r.Context()), "kept", result.Kept, "discarded", result.Discarded)
	writeJSON(w, result)
}

// handleCancel dismisses the staged conflict with the default selection:
// keep the pre-existing entries, discard the new submission.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	result, err := s.flow.Cancel(r.Context(), sessionToken(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("conflict cancelled",
		"user", sessionUser(r.Context()), "kept", result.Kept, "discarded", result.Discarded)
	writeJSON(w, result)
}

// handleAggregate serves the reporting layer's group-by queries.
//
// Query parameters: group (comma-separated allow-listed columns, required),
// fn (count|avg|max, default count), target (numeric column for avg/max),
// category (Car|Motorbike), bucket (day|week|month|year, applies to
// date_added), from/to (YYYY-MM-DD bounds on date_added).
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	agg := store.AggregateQuery{
		Func:       store.AggFunc(q.Get("fn")),
		Target:     q.Get("target"),
		DateBucket: store.Bucket(q.Get("bucket")),
	}
	for _, col := range strings.Split(q.Get("group"), ",") {
		if col = strings.TrimSpace(col); col != "" {
			agg.GroupBy = append(agg.GroupBy, col)
		}
	}
	if c := q.Get("category"); c != "" {
		cat := vehicle.Category(c)
		agg.Category = &cat
	}

	var err error
	if agg.From, err = parseDateParam(q.Get("from")); err != nil {
		respondErrorStatus(w, r, http.StatusBadRequest, "BAD_REQUEST", "from must be YYYY-MM-DD")
		return
	}
	if agg.To, err = parseDateParam(q.Get("to")); err != nil {
		respondErrorStatus(w, r, http.StatusBadRequest, "BAD_REQUEST", "to must be YYYY-MM-DD")
		return
	}

	rows, err := s.store.Aggregate(r.Context(), agg)
	if err != nil {
		var storageErr *store.StorageError
		if !errors.As(err, &storageErr) {
			// Allow-list violations and similar are the caller's mistake.
			respondErrorStatus(w, r, http.StatusBadRequest, "BAD_AGGREGATE", err.Error())
			return
		}
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"rows": rows})
}

// handleDateRange returns the stored date_added bounds for date-picker
// defaults.
func (s *Server) handleDateRange(w http.ResponseWriter, r *http.Request) {
	min, ok, err := s.store.MinDate(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, map[string]any{"empty": true})
		return
	}
	writeJSON(w, map[string]any{
		"min": min.Format("2006-01-02"),
		"max": time.Now().Format("2006-01-02"),
	})
}

func parseDateParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
