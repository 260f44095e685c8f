// Package session holds the authenticated principal used to authorize
// redemption calls: a numeric platform user ID and a bearer access token.
// The token is externally owned; this package only caches it and asks the
// token source for a fresh one when the cached token is missing or expired.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when no usable token can be obtained after one
// silent refresh attempt. Callers abandon the action; nothing is queued.
var ErrNoSession = errors.New("session unavailable")

// TokenSource issues access tokens. Implemented by the backend auth client
// and by test stubs.
type TokenSource interface {
	Issue(ctx context.Context) (string, error)
}

// Session is an explicit, injectable session object. Ready means a
// non-expired token is cached.
type Session struct {
	mu     sync.Mutex
	userID int64
	token  string
	source TokenSource
	now    func() time.Time
}

// New creates a session for the given platform user. initialToken may be
// empty, in which case the first Token call refreshes.
func New(userID int64, initialToken string, source TokenSource) *Session {
	return &Session{
		userID: userID,
		token:  initialToken,
		source: source,
		now:    time.Now,
	}
}

// UserID returns the numeric platform user ID.
func (s *Session) UserID() int64 {
	return s.userID
}

// Ready reports whether a usable token is already cached.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != "" && !expired(s.token, s.now())
}

// Token returns the cached access token, refreshing it silently exactly once
// if it is missing or expired. A failed refresh yields ErrNoSession; the
// client never proceeds without a token.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && !expired(s.token, s.now()) {
		return s.token, nil
	}

	if s.source == nil {
		return "", ErrNoSession
	}
	token, err := s.source.Issue(ctx)
	if err != nil || token == "" {
		return "", ErrNoSession
	}
	s.token = token
	return s.token, nil
}

// Invalidate drops the cached token, forcing a refresh on next use. Called
// after the API rejects a token the expiry check considered valid.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// expired reads the exp claim without verifying the signature — signature
// verification is the backend's trust boundary, not the client's. Opaque
// non-JWT tokens never expire locally.
func expired(token string, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}
