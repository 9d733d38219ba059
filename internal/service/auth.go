package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/events"
	pkg_hash "github.com/Skotchmaster/storefront/pkg/hash"
	jwthelp "github.com/Skotchmaster/storefront/pkg/jwt"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const minPasswordLen = 6

type AuthService struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
	Events        events.Publisher
}

func (s *AuthService) CreateAccessToken(role, id string, accessExp time.Time) (string, error) {
	return tokens.SignAccess(s.AccessSecret, id, role, accessExp)
}

func (s *AuthService) CreateRefreshToken(id string, refreshExp time.Time) (token, jti string, err error) {
	jti = jwthelp.NewJTI()
	token, err = tokens.SignRefresh(s.RefreshSecret, id, jti, refreshExp)
	return token, jti, err
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required: %w", ErrValidation)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, ErrValidation)
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, fmt.Errorf("username %q taken: %w", username, ErrConflict)
		}
		return nil, infra("register", err)
	}

	l.Info("register_success", "user_id", user.ID)
	publish(ctx, s.Events, events.TopicUser, user.ID.String(), map[string]any{
		"type":     "user_registered",
		"user_id":  user.ID.String(),
		"username": user.Username,
	})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("username and password required: %w", ErrValidation)
	}

	user, err := s.Repo.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, infra("login", err)
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, s.Repo, user)
	if err != nil {
		return nil, infra("login", err)
	}

	l.Info("login_success", "user_id", user.ID)
	return pair, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued in the same transaction.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidRefreshToken)
	}

	var pair *tokens.Pair
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		stored, err := tx.RefreshByJTI(ctx, claims.ID)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: unknown token", ErrInvalidRefreshToken)
		}
		if err != nil {
			return err
		}
		if stored.TokenHash != jwthelp.Sha256Hex(refreshToken) || stored.UserID != userID {
			return fmt.Errorf("%w: token mismatch", ErrInvalidRefreshToken)
		}
		if stored.Revoked || time.Now().After(stored.ExpiresAt) {
			return fmt.Errorf("%w: expired or revoked", ErrInvalidRefreshToken)
		}

		user, err := tx.UserByID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: user gone", ErrInvalidRefreshToken)
		}
		if err != nil {
			return err
		}

		if err := tx.RevokeRefresh(ctx, stored.JTI); err != nil {
			return err
		}
		pair, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, infra("refresh", err)
	}

	l.Info("refresh_success", "user_id", userID)
	return pair, nil
}

// LogOut revokes the refresh token. An empty token is a no-op.
func (s *AuthService) LogOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.Repo.RevokeRefreshByHash(ctx, jwthelp.Sha256Hex(refreshToken)); err != nil {
		return infra("logout", err)
	}
	return nil
}

// EnsureAdmin creates the admin account, or promotes an existing user of
// that name.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.ensure_admin", "username", username)

	if username == "" || password == "" {
		return nil
	}

	user, err := s.Repo.UserByUsername(ctx, username)
	switch {
	case err == nil:
		if user.Role == models.RoleAdmin {
			return nil
		}
		if err := s.Repo.SetUserRole(ctx, user.ID, models.RoleAdmin); err != nil {
			return infra("ensure admin", err)
		}
		l.Info("admin_promoted", "user_id", user.ID)
		return nil
	case !errors.Is(err, repo.ErrNotFound):
		return infra("ensure admin", err)
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &models.User{Username: username, PasswordHash: pwHash, Role: models.RoleAdmin}
	if err := s.Repo.CreateUserIfNotExists(ctx, admin); err != nil && !errors.Is(err, repo.ErrUserAlreadyExist) {
		return infra("ensure admin", err)
	}
	l.Info("admin_created", "user_id", admin.ID)
	return nil
}

func (s *AuthService) issue(ctx context.Context, r *repo.GormRepo, user *models.User) (*tokens.Pair, error) {
	now := time.Now()
	accessExp := now.Add(tokens.AccessTTL)
	refreshExp := now.Add(tokens.RefreshTTL)

	access, err := s.CreateAccessToken(user.Role, user.ID.String(), accessExp)
	if err != nil {
		return nil, fmt.Errorf("sign access: %w", err)
	}
	refresh, jti, err := s.CreateRefreshToken(user.ID.String(), refreshExp)
	if err != nil {
		return nil, fmt.Errorf("sign refresh: %w", err)
	}

	if err := r.SaveRefresh(ctx, &models.RefreshToken{
		TokenHash: jwthelp.Sha256Hex(refresh),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp,
	}); err != nil {
		return nil, err
	}

	return &tokens.Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		UserID:       user.ID.String(),
		Role:         user.Role,
	}, nil
}
