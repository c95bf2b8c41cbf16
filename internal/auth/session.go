package auth

import (
	"sync"
	"time"
)

// Session reports the authentication state the sync core keys its behavior
// on: guest mode when not authenticated, remote-synced when it is. Ready is
// distinct from Authenticated because right after login the token may not
// have settled yet; the orchestrator polls Ready before its first sync.
type Session interface {
	Authenticated() bool
	Ready() bool
	UserID() string
	BearerToken() string
}

// Guest is the unauthenticated session: all writes stay local.
type Guest struct{}

func (Guest) Authenticated() bool { return false }

func (Guest) Ready() bool { return false }

func (Guest) UserID() string { return "" }

func (Guest) BearerToken() string { return "" }

// TokenSession holds a mutable JWT-backed session. SetToken validates and
// installs a token; Clear drops it (logout / back to guest).
type TokenSession struct {
	mu         sync.RWMutex
	signingKey string
	issuer     string
	token      string
	claims     Claims
}

// NewTokenSession creates an empty (guest) token session.
func NewTokenSession(signingKey, issuer string) *TokenSession {
	return &TokenSession{signingKey: signingKey, issuer: issuer}
}

// SetToken validates and installs an access token.
func (s *TokenSession) SetToken(token string) error {
	claims, err := Parse(token, s.signingKey, s.issuer)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()
	return nil
}

// Clear drops the session back to guest.
func (s *TokenSession) Clear() {
	s.mu.Lock()
	s.token = ""
	s.claims = Claims{}
	s.mu.Unlock()
}

// Authenticated reports whether a token is installed.
func (s *TokenSession) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Ready reports whether the installed token is usable right now.
func (s *TokenSession) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	if s.claims.ExpiresAt != nil && s.claims.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// UserID returns the authenticated subject, or empty in guest mode.
func (s *TokenSession) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims.Subject
}

// BearerToken returns the raw access token for remote calls.
func (s *TokenSession) BearerToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
