package provider

import (
	"context"
	"sync"
	"time"
)

// expirySkew is how early a token is treated as expired, so a call never
// starts with a token about to lapse mid-flight.
const expirySkew = 30 * time.Second

// AccessToken is a short-lived bearer credential and its expiry.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// valid reports whether the token can still be used at the given instant.
func (t AccessToken) valid(now time.Time) bool {
	return t.Value != "" && now.Add(expirySkew).Before(t.ExpiresAt)
}

// RefreshFunc obtains a fresh token from the auth endpoint.
type RefreshFunc func(ctx context.Context) (AccessToken, error)

// TokenStore caches a bearer token and refreshes it on demand. The mutex is
// held across the refresh call, so at most one refresh is in flight per
// credential and concurrent callers never race duplicate auth requests.
type TokenStore struct {
	mu      sync.Mutex
	refresh RefreshFunc
	current AccessToken
	now     func() time.Time
}

// NewTokenStore creates a store that refreshes through fn.
func NewTokenStore(fn RefreshFunc) *TokenStore {
	return &TokenStore{refresh: fn, now: time.Now}
}

// Token returns a valid bearer token, refreshing first when the cached one
// is missing or within the expiry skew. A rejected credential surfaces as
// *AuthError from the refresh function.
func (s *TokenStore) Token(ctx context.Context) (AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.valid(s.now()) {
		return s.current, nil
	}

	tok, err := s.refresh(ctx)
	if err != nil {
		return AccessToken{}, err
	}
	if tok.Value == "" {
		return AccessToken{}, &AuthError{Message: "auth endpoint returned an empty token"}
	}
	s.current = tok
	return tok, nil
}
