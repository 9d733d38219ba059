package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

func TestAuthService_CreateAccessToken_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	svc := &AuthService{AccessSecret: []byte("test-jwt-secret")}
	userID := uuid.NewString()
	accessExp := time.Now().Add(15 * time.Minute).UTC()

	token, err := svc.CreateAccessToken(models.RoleAdmin, userID, accessExp)
	require.NoError(t, err)

	claims, err := tokens.AccessClaimsFromToken(token, svc.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, userID, claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, accessExp, claims.ExpiresAt.Time, time.Second)
}

func TestAuthService_CreateRefreshToken_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	svc := &AuthService{RefreshSecret: []byte("test-refresh-secret")}
	userID := uuid.NewString()
	refreshExp := time.Now().Add(24 * time.Hour).UTC()

	token, jti, err := svc.CreateRefreshToken(userID, refreshExp)
	require.NoError(t, err)

	claims, err := tokens.RefreshClaimsFromToken(token, svc.RefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, jti, claims.ID)
	assert.WithinDuration(t, refreshExp, claims.ExpiresAt.Time, time.Second)
}

func TestAuthService_Register_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "secret"},
		{name: "empty password", username: "user", password: ""},
		{name: "short password", username: "user", password: "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Auth.Register(ctx, tt.username, "", tt.password)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.Auth.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = env.Auth.Register(ctx, "alice", "", "secret2")
	require.ErrorIs(t, err, ErrConflict)

	_, err = env.Auth.Login(ctx, "alice", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.Auth.Login(ctx, "bob", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.Auth.Login(ctx, "", "")
	require.ErrorIs(t, err, ErrValidation)

	pair, err := env.Auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), pair.UserID)

	claims, err := tokens.AccessClaimsFromToken(pair.AccessToken, env.Auth.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, models.RoleUser, claims.Role)

	var stored models.RefreshToken
	require.NoError(t, env.Repo.DB.Where("user_id = ?", user.ID).Take(&stored).Error)
	assert.NotEqual(t, pair.RefreshToken, stored.TokenHash)
	assert.False(t, stored.Revoked)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Auth.Register(ctx, "carol", "", "secret1")
	require.NoError(t, err)
	first, err := env.Auth.Login(ctx, "carol", "secret1")
	require.NoError(t, err)

	second, err := env.Auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = env.Auth.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken, "a rotated token cannot be reused")

	require.NoError(t, env.Auth.LogOut(ctx, second.RefreshToken))
	_, err = env.Auth.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_Refresh_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.Auth.Refresh(context.Background(), "not-a-valid-jwt")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrInvalidRefreshToken))

	forged, err := tokens.SignRefresh(env.Auth.RefreshSecret, uuid.NewString(), "unknown-jti", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = env.Auth.Refresh(context.Background(), forged)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_LogOut_EmptyToken_NoError(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Auth.LogOut(context.Background(), ""))
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.Auth.EnsureAdmin(ctx, "root", "rootpass"))
	require.NoError(t, env.Auth.EnsureAdmin(ctx, "root", "rootpass"))

	pair, err := env.Auth.Login(ctx, "root", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, pair.Role)

	_, err = env.Auth.Register(ctx, "dave", "", "secret1")
	require.NoError(t, err)
	require.NoError(t, env.Auth.EnsureAdmin(ctx, "dave", "ignored"))
	u, err := env.Repo.UserByUsername(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}
