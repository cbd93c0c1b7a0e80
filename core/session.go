package core

import (
	"context"
	"sync"
	"time"
)

// Session is the identity state established by a completed ceremony. It lives
// from login (or signup completion) until logout or account deletion.
type Session struct {
	User        *User
	AccessToken string
	JWT         string
	IDToken     string
}

// Valid reports whether the session satisfies the state invariant: an access
// token is present exactly when a user is.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	return (s.AccessToken != "") == (s.User != nil)
}

// Authenticated reports whether the session carries an established identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil && s.AccessToken != ""
}

// ExpiresAt reports the expiry claim of the session JWT, when one was issued
// and carries an exp claim.
func (s *Session) ExpiresAt() (time.Time, bool) {
	if s == nil || s.JWT == "" {
		return time.Time{}, false
	}
	claims, err := InspectToken(s.JWT)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// SessionStore owns the single mutable session. Implementations must be safe
// for concurrent use; Current must return a non-nil empty session rather than
// nil when no session is stored.
type SessionStore interface {
	Current(ctx context.Context) (*Session, error)

	// Replace swaps the stored session wholesale. Implementations reject
	// sessions that break the token/user invariant.
	Replace(ctx context.Context, session *Session) error

	Clear(ctx context.Context) error
}

// memoryStore is the fallback store used when a client is built without one.
// storage.MemoryStore is the full-featured equivalent.
type memoryStore struct {
	mu      sync.RWMutex
	session Session
}

func (m *memoryStore) Current(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session := m.session
	return &session, nil
}

func (m *memoryStore) Replace(ctx context.Context, session *Session) error {
	if !session.Valid() {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = *session
	return nil
}

func (m *memoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	return nil
}
