package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

func TestClassify(t *testing.T) {
	stock := &service.InsufficientStockError{Shortages: []service.Shortage{{ProductID: 1, Requested: 3, Available: 2}}}

	cases := []struct {
		name      string
		err       error
		code      int
		retryable bool
	}{
		{"validation", fmt.Errorf("bad qty: %w", service.ErrValidation), http.StatusBadRequest, false},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, false},
		{"refresh", service.ErrInvalidRefreshToken, http.StatusUnauthorized, false},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, false},
		{"not found", fmt.Errorf("item 4: %w", service.ErrNotFound), http.StatusNotFound, false},
		{"conflict", service.ErrConflict, http.StatusConflict, true},
		{"empty cart", service.ErrEmptyCart, http.StatusUnprocessableEntity, false},
		{"stock", fmt.Errorf("checkout: %w", stock), http.StatusUnprocessableEntity, false},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := classify(tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.retryable, body.Retryable)
		})
	}
}

func TestClassify_StockCarriesAvailable(t *testing.T) {
	err := &service.InsufficientStockError{Shortages: []service.Shortage{
		{ProductID: 1, Requested: 3, Available: 2},
		{ProductID: 2, Requested: 1, Available: 0},
	}}

	_, body := classify(err)
	if assert.NotNil(t, body.Available) {
		assert.Equal(t, uint(2), *body.Available)
	}
	assert.Len(t, body.Shortages, 2)
}

func TestFail_LogsOnce(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewTo(&buf, "debug")

	err := fail(l, "add_item_error", fmt.Errorf("add item: %w", service.ErrNotFound))
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
	assert.Equal(t, 1, strings.Count(buf.String(), "add_item_error"))
}
