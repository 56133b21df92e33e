package web

// sessions.go holds the in-memory login sessions. A session token doubles
// as the workflow's session key, so each logged-in client gets its own
// pending-conflict slot.

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionCookie is the name of the session cookie.
const sessionCookie = "carly_session"

type session struct {
	username string
	expires  time.Time
}

// sessionManager issues and validates opaque session tokens.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
}

func newSessionManager(ttl time.Duration) *sessionManager {
	sm := &sessionManager{
		sessions: make(map[string]session),
		ttl:      ttl,
	}
	go sm.cleanup()
	return sm
}

// cleanup drops expired sessions periodically.
func (sm *sessionManager) cleanup() {
	for {
		time.Sleep(time.Minute)
		now := time.Now()
		sm.mu.Lock()
		for token, s := range sm.sessions {
			if now.After(s.expires) {
				delete(sm.sessions, token)
			}
		}
		sm.mu.Unlock()
	}
}

// create issues a fresh token for username.
func (sm *sessionManager) create(username string) string {
	token := uuid.NewString()
	sm.mu.Lock()
	sm.sessions[token] = session{username: username, expires: time.Now().Add(sm.ttl)}
	sm.mu.Unlock()
	return token
}

// lookup resolves a token to its username; expired tokens are misses.
func (sm *sessionManager) lookup(token string) (string, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[token]
	if !ok || time.Now().After(s.expires) {
		delete(sm.sessions, token)
		return "", false
	}
	return s.username, true
}

// destroy invalidates a token.
func (sm *sessionManager) destroy(token string) {
	sm.mu.Lock()
	delete(sm.sessions, token)
	sm.mu.Unlock()
}

type contextKey string

const (
	ctxKeySession  contextKey = "session_token"
	ctxKeyUsername contextKey = "session_user"
)

// requireSession rejects requests without a valid session cookie and
// stores the token and username in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			respondErrorStatus(w, r, http.StatusUnauthorized, "AUTH_REQUIRED", "log in to use this endpoint")
			return
		}
		username, ok := s.sessions.lookup(cookie.Value)
		if !ok {
			respondErrorStatus(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "session expired, log in again")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, cookie.Value)
		ctx = context.WithValue(ctx, ctxKeyUsername, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionToken extracts the session token placed by requireSession.
func sessionToken(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySession).(string); ok {
		return v
	}
	return ""
}

// sessionUser extracts the logged-in username placed by requireSession.
func sessionUser(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUsername).(string); ok {
		return v
	}
	return ""
}
