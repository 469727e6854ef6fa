package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	// Arrange
	svc, err := NewJWTService("secret", "kbweb", time.Hour)
	require.NoError(t, err)

	// Act
	token, err := svc.GenerateToken("user-1", []string{"editor"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken("Bearer " + token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, []string{"editor"}, claims.Roles)
}

func TestJWTService_Rejects(t *testing.T) {
	svc, err := NewJWTService("secret", "kbweb", time.Hour)
	require.NoError(t, err)
	other, err := NewJWTService("other", "kbweb", time.Hour)
	require.NoError(t, err)
	foreign, err := NewJWTService("secret", "someone-else", time.Hour)
	require.NoError(t, err)
	expired, err := NewJWTService("secret", "kbweb", -time.Minute)
	require.NoError(t, err)

	forged, _ := other.GenerateToken("user-1", nil)
	wrongIssuer, _ := foreign.GenerateToken("user-1", nil)
	stale, _ := expired.GenerateToken("user-1", nil)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"bad signature", forged, ErrInvalidSignature},
		{"wrong issuer", wrongIssuer, ErrInvalidClaims},
		{"expired", stale, ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("", "kbweb", time.Hour)
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user-1"})

	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)

	_, err = GetUserFromContext(context.Background())
	assert.Error(t, err)
}

func TestSlidingWindowLimiter(t *testing.T) {
	// Arrange
	ctx := context.Background()
	limiter := NewSlidingWindowLimiter(2, time.Minute)
	clock := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return clock }

	// Act and Assert
	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "k")
	assert.False(t, ok)

	ok, _ = limiter.Allow(ctx, "other")
	assert.True(t, ok, "keys are independent")

	clock = clock.Add(61 * time.Second)
	ok, _ = limiter.Allow(ctx, "k")
	assert.True(t, ok, "window slid past the old requests")

	require.NoError(t, limiter.Reset(ctx, "k"))
	ok, _ = limiter.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestAuthenticator(t *testing.T) {
	svc, err := NewJWTService("secret", "kbweb", time.Hour)
	require.NoError(t, err)
	token, err := svc.GenerateToken("user-7", nil)
	require.NoError(t, err)

	t.Run("header token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		user, err := NewAuthenticator(svc).Authenticate(r)

		require.NoError(t, err)
		assert.Equal(t, "user-7", user.UserID)
	})

	t.Run("query token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)

		user, err := NewAuthenticator(svc).Authenticate(r)

		require.NoError(t, err)
		assert.Equal(t, "user-7", user.UserID)
	})

	t.Run("missing token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)

		_, err := NewAuthenticator(svc).Authenticate(r)

		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("development", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		a := NewAuthenticator(nil)

		user, err := a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, DevUserID, user.UserID)
		assert.False(t, a.Enabled())

		r.Header.Set("X-User-ID", "alice")
		user, err = a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.UserID)
	})
}
