package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/payment"
	"github.com/Skotchmaster/veritas_shop/internal/plans"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/internal/service"
	"github.com/Skotchmaster/veritas_shop/internal/testutil"
	middleware "github.com/Skotchmaster/veritas_shop/pkg/middleware/auth"
)

const testWebhookSecret = "whsec_http_test"

type fakePayments struct {
	mu       sync.Mutex
	sessions []payment.SessionRequest
}

func (f *fakePayments) Currency() string { return "usd" }

func (f *fakePayments) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	return "cus_" + email, nil
}

func (f *fakePayments) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, req)
	return &payment.Session{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (f *fakePayments) last(t *testing.T) payment.SessionRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sessions)
	return f.sessions[len(f.sessions)-1]
}

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Payments *fakePayments
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := testutil.NewDB(t)
	r := repo.New(gdb)
	pay := &fakePayments{}
	table := plans.MustDefault()

	authSvc := &service.AuthService{
		Repo:          r,
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		FrontendURL:   "https://shop.test",
	}
	checkout := &service.CheckoutService{Repo: r, Payments: pay, Plans: table}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	Register(e, &Deps{
		UserHandler: &UserHTTP{
			Auth:     authSvc,
			Users:    &service.UserService{Repo: r},
			Checkout: checkout,
		},
		ProductHandler: &ProductHTTP{Svc: &service.CatalogService{Repo: r}},
		CartHandler:    &CartHTTP{Svc: &service.CartService{Repo: r}, Checkout: checkout},
		OrderHandler:   &OrderHTTP{Svc: &service.OrderService{Repo: r}},
		BlogHandler:    &BlogHTTP{Svc: &service.BlogService{Repo: r}},
		WebhookHandler: &WebhookHTTP{Svc: &service.WebhookService{
			Repo:     r,
			Verifier: payment.NewVerifier(testWebhookSecret),
			Plans:    table,
			Currency: "usd",
		}},
		Auth:  middleware.NewAutoRefreshMiddleware(authSvc.AccessSecret, authSvc, false),
		Ready: r.Ping,
	})

	return &testEnv{T: t, E: e, DB: gdb, Payments: pay}
}

func (env *testEnv) doJSONRequest(method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	env.T.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doWebhook(payload []byte, signature string) *httptest.ResponseRecorder {
	env.T.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func signPayload(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	}).Header
}

// login signs in as a fresh user and returns the session cookies.
func (env *testEnv) login(email, role string) (*models.User, []*http.Cookie) {
	env.T.Helper()

	u := testutil.CreateUser(env.T, env.DB, email, role)
	target := "/api/users/login"
	if role == middleware.RoleAdmin {
		target = "/api/users/admin-login"
	}
	rec := env.doJSONRequest(http.MethodPost, target, map[string]string{
		"email":    email,
		"password": "password123",
	})
	require.Equal(env.T, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(env.T, cookies, 2)
	return u, cookies
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
