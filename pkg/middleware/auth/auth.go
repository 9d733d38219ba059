package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	jwthelp "github.com/Skotchmaster/storefront/pkg/jwt"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Refresher rotates a refresh token into a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error)
}

type Middleware struct {
	AccessSecret []byte
	Refresher    Refresher
}

func New(accessSecret []byte, r Refresher) *Middleware {
	return &Middleware{AccessSecret: accessSecret, Refresher: r}
}

type validatorFunc func(claims *tokens.AccessClaims) error

func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(next, nil)
}

func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(next, func(claims *tokens.AccessClaims) error {
		if claims.Role != RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *Middleware) require(next echo.HandlerFunc, validate validatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("mw", "auth")

		claims, err := m.claims(c)
		if err != nil {
			l.Warn("auth_failed", "status", 401, "error", err)
			return err
		}

		if validate != nil {
			if err := validate(claims); err != nil {
				l.Warn("auth_forbidden", "status", 403, "user_id", claims.Subject)
				return err
			}
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxRole, claims.Role)
		return next(c)
	}
}

func (m *Middleware) claims(c echo.Context) (*tokens.AccessClaims, error) {
	accessCookie, err := c.Cookie(jwthelp.AccessCookie)
	var access string
	if err == nil {
		access = accessCookie.Value
	}

	if access != "" {
		claims, err := tokens.AccessClaimsFromToken(access, m.AccessSecret)
		if err == nil {
			return claims, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			ClearAuthCookies(c)
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
	}

	refreshCookie, err := c.Cookie(jwthelp.RefreshCookie)
	if err != nil || refreshCookie.Value == "" {
		if access == "" {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}
		ClearAuthCookies(c)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}
	if m.Refresher == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "access token expired")
	}

	pair, err := m.Refresher.Refresh(c.Request().Context(), refreshCookie.Value)
	if err != nil {
		ClearAuthCookies(c)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "refresh failed")
	}
	SetAuthCookies(c, pair)

	claims, err := tokens.AccessClaimsFromToken(pair.AccessToken, m.AccessSecret)
	if err != nil {
		ClearAuthCookies(c)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "new access token invalid")
	}
	return claims, nil
}

func SetAuthCookies(c echo.Context, pair *tokens.Pair) {
	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, pair.AccessToken, "/", pair.AccessExp))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp))
}

func ClearAuthCookies(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/"))
}

// UserID returns the verified subject set by RequireAuth.
func UserID(c echo.Context) (string, bool) {
	s, ok := c.Get(CtxUserID).(string)
	return s, ok && s != ""
}
