package internal

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionStore is the single authoritative holder of the bearer token.
// Everything that performs authenticated calls receives this object;
// nothing reads the token out of persistent storage on its own. Login and
// Logout are the only update paths.
type SessionStore struct {
	store *Store // may be nil, persistence is best-effort
	token string
}

// NewSessionStore creates a session store, restoring any persisted token.
func NewSessionStore(store *Store) *SessionStore {
	s := &SessionStore{store: store}
	if store != nil {
		var token string
		if ok, err := store.GetJSON(KeyToken, &token); err != nil {
			LogWarn("could not restore session token: %v", err)
		} else if ok {
			s.token = token
		}
	}
	return s
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *SessionStore) Token() string {
	return s.token
}

// Authenticated reports whether a token is present.
func (s *SessionStore) Authenticated() bool {
	return s.token != ""
}

// Login stores token in memory and persists it best-effort.
func (s *SessionStore) Login(token string) {
	s.token = token
	if s.store != nil {
		if err := s.store.SetJSON(KeyToken, token); err != nil {
			LogWarn("could not persist session token: %v", err)
		}
	}
}

// Logout clears the in-memory token and the persisted copy.
func (s *SessionStore) Logout() {
	s.token = ""
	if s.store != nil {
		if err := s.store.Delete(KeyToken); err != nil {
			LogWarn("could not clear persisted token: %v", err)
		}
	}
}

// ExpiresAt decodes the token's exp claim without verifying the signature
// (the backend verifies; this side only wants a friendlier message than a
// raw 401). The second return is false when the token is absent, is not a
// JWT, or carries no expiry.
func (s *SessionStore) ExpiresAt() (time.Time, bool) {
	if s.token == "" {
		return time.Time{}, false
	}
	parser := jwt.NewParser()
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(s.token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token is known to have expired. A token
// without a readable expiry is treated as live; the backend has the last
// word either way.
func (s *SessionStore) Expired() bool {
	exp, ok := s.ExpiresAt()
	if !ok {
		return false
	}
	return time.Now().After(exp)
}
