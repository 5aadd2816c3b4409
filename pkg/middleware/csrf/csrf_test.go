package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{SkipPrefixes: []string{"/api/stripe/"}}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/api/cart/getcart", ok)
	e.POST("/api/cart/addtocart", ok)
	e.POST("/api/stripe/webhook", ok)
	return e
}

func TestCSRF_SafeMethodIssuesToken(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart/getcart", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-CSRF-Token"))
}

func TestCSRF_UnsafeMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		origin string
		want   int
	}{
		{name: "matching token", header: "tok", origin: "http://example.com", want: http.StatusNoContent},
		{name: "missing token", header: "", origin: "http://example.com", want: http.StatusForbidden},
		{name: "wrong token", header: "other", origin: "http://example.com", want: http.StatusForbidden},
		{name: "cross origin", header: "tok", origin: "http://evil.test", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "http://example.com/api/cart/addtocart", nil)
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
			req.Header.Set("Origin", tt.origin)
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			rec := httptest.NewRecorder()
			newServer().ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRF_SkipPrefix(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRF_AllowCrossOrigin(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(Middleware(Config{AllowCrossOrigin: true}))
	e.POST("/api/cart/addtocart", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/cart/addtocart", nil)
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
	req.Header.Set("Origin", "http://evil.test")
	req.Header.Set("X-CSRF-Token", "tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRF_MissingOriginRejected(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/cart/addtocart", nil)
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
	req.Header.Set("X-CSRF-Token", "tok")
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
