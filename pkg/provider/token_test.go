package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStoreReusesValidToken(t *testing.T) {
	calls := 0
	store := NewTokenStore(func(ctx context.Context) (AccessToken, error) {
		calls++
		return AccessToken{
			Value:     fmt.Sprintf("tok-%d", calls),
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil
	})

	first, err := store.Token(context.Background())
	require.NoError(t, err)
	second, err := store.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call within validity must not re-authenticate")
	assert.Equal(t, first.Value, second.Value)
}

func TestTokenStoreRefreshesExpiredToken(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base

	calls := 0
	store := NewTokenStore(func(ctx context.Context) (AccessToken, error) {
		calls++
		return AccessToken{
			Value:     fmt.Sprintf("tok-%d", calls),
			ExpiresAt: now.Add(time.Minute),
		}, nil
	})
	store.now = func() time.Time { return now }

	first, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", first.Value)

	now = base.Add(2 * time.Minute)
	second, err := store.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, "tok-2", second.Value, "an expired token must never be returned again")
}

func TestTokenStoreExpirySkew(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	calls := 0
	store := NewTokenStore(func(ctx context.Context) (AccessToken, error) {
		calls++
		// Expires in 10s, inside the 30s skew.
		return AccessToken{Value: "tok", ExpiresAt: base.Add(10 * time.Second)}, nil
	})
	store.now = func() time.Time { return base }

	_, err := store.Token(context.Background())
	require.NoError(t, err)
	_, err = store.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "a token inside the expiry skew counts as expired")
}

func TestTokenStoreRefreshError(t *testing.T) {
	store := NewTokenStore(func(ctx context.Context) (AccessToken, error) {
		return AccessToken{}, &AuthError{Code: 7, Message: "bad credential"}
	})

	_, err := store.Token(context.Background())
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 7, authErr.Code)
}

func TestTokenStoreEmptyToken(t *testing.T) {
	store := NewTokenStore(func(ctx context.Context) (AccessToken, error) {
		return AccessToken{ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	_, err := store.Token(context.Background())

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
}
