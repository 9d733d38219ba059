package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

// fail turns a service error into the HTTP error the client sees and logs it.
func fail(l *slog.Logger, event string, err error) error {
	code, body := classify(err)
	if code >= 500 {
		l.Error(event, "status", code, "error", err)
		body.Error = "internal error"
	} else {
		l.Warn(event, "status", code, "error", err)
	}
	return echo.NewHTTPError(code, body).SetInternal(err)
}

func classify(err error) (int, transport.ErrorResponse) {
	body := transport.ErrorResponse{Error: err.Error()}

	var stockErr *service.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		available := stockErr.Available()
		body.Available = &available
		body.Shortages = stockErr.Shortages
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, body
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, body
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, body
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, service.ErrConflict):
		body.Retryable = true
		return http.StatusConflict, body
	default:
		return http.StatusInternalServerError, body
	}
}

func badRequest(l *slog.Logger, event, msg string, err error) error {
	l.Warn(event, "status", 400, "reason", msg, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{Error: msg})
}

func userID(c echo.Context) (uuid.UUID, error) {
	s, ok := authmw.UserID(c)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, transport.ErrorResponse{Error: "unauthorized"})
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, transport.ErrorResponse{Error: "unauthorized"})
	}
	return id, nil
}

func idParam(c echo.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return uint(n), nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
