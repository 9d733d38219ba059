package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho(cfg Config) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/form", ok)
	e.POST("/submit", ok)
	e.POST("/login", ok)
	return e
}

func TestSafeMethodIssuesToken(t *testing.T) {
	e := newEcho(Config{})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/form", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	tok := rec.Header().Get("X-CSRF-Token")
	assert.NotEmpty(t, tok)

	var found bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "XSRF-TOKEN" {
			found = true
			assert.Equal(t, tok, ck.Value)
		}
	}
	assert.True(t, found)
}

func TestUnsafeMethod(t *testing.T) {
	e := newEcho(Config{EnforceSameOrigin: true, SkipPaths: []string{"/login"}})

	cases := []struct {
		name   string
		path   string
		header string
		origin string
		want   int
	}{
		{"valid", "/submit", "tok", "http://example.com", http.StatusOK},
		{"missing header", "/submit", "", "http://example.com", http.StatusForbidden},
		{"mismatch", "/submit", "other", "http://example.com", http.StatusForbidden},
		{"foreign origin", "/submit", "tok", "http://evil.test", http.StatusForbidden},
		{"skipped path", "/login", "", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, nil)
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
			if tc.header != "" {
				req.Header.Set("X-CSRF-Token", tc.header)
			}
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
