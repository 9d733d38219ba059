package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	jwthelp "github.com/Skotchmaster/storefront/pkg/jwt"
	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_error", "invalid body", err)
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	authmw.SetAuthCookies(c, pair)
	l.Info("login_successful", "user_id", pair.UserID)
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  pair.UserID,
		"is_admin": pair.Role == authmw.RoleAdmin,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	cookie, err := c.Cookie(jwthelp.RefreshCookie)
	if err != nil || cookie.Value == "" {
		l.Warn("refresh_failed", "status", 401, "reason", "refresh cookie missing")
		return echo.NewHTTPError(http.StatusUnauthorized, transport.ErrorResponse{Error: "refresh token missing"})
	}

	pair, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		authmw.ClearAuthCookies(c)
		return fail(l, "refresh_failed", err)
	}

	authmw.SetAuthCookies(c, pair)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	var token string
	if cookie, err := c.Cookie(jwthelp.RefreshCookie); err == nil {
		token = cookie.Value
	}
	authmw.ClearAuthCookies(c)

	if err := h.Svc.LogOut(ctx, token); err != nil {
		return fail(l, "logout_failed", err)
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}
