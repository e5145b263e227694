package misc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/geoip"
	"github.com/2beens/realestate/internal/middleware"
	"github.com/2beens/realestate/internal/telemetry/metrics"

	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testRequestRateLimiter struct {
	// key to remaining allowed requests, missing keys are unlimited
	Limits map[string]int
}

func (l *testRequestRateLimiter) Allow(_ context.Context, key string, _ redis_rate.Limit) (*redis_rate.Result, error) {
	remaining, ok := l.Limits[key]
	if !ok {
		return &redis_rate.Result{Allowed: 1}, nil
	}
	if remaining == 0 {
		return &redis_rate.Result{Allowed: 0, RetryAfter: time.Second}, nil
	}
	l.Limits[key]--
	return &redis_rate.Result{Allowed: 1}, nil
}

type testCredentialStore struct {
	creds map[string]*auth.Credential
}

func (s *testCredentialStore) GetCredentialByEmail(_ context.Context, email string) (*auth.Credential, error) {
	c, ok := s.creds[email]
	if !ok {
		return nil, auth.ErrCredentialNotFound
	}
	return c, nil
}

type testRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (r *testRevoker) Revoke(_ context.Context, id string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[id] = true
	return nil
}

func (r *testRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[id], nil
}

type testLocator struct {
	loc *geoip.Location
	err error
}

func (l *testLocator) Locate(context.Context, string) (*geoip.Location, error) {
	return l.loc, l.err
}

func newTestSessions(t *testing.T) *auth.Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager([]byte("misc-handler-test-secret-32-bytes!!"), auth.DefaultTokenTTL)
	require.NoError(t, err)

	store := &testCredentialStore{creds: map[string]*auth.Credential{
		"admin@example.com": {ID: 1, Email: "admin@example.com", Name: "Admin", Role: auth.RoleAdmin, PasswordHash: string(hash)},
	}}
	return auth.NewService(store, tokens, &testRevoker{revoked: map[string]bool{}})
}

// the same setup as in Server.routerSetup(), without telemetry
func setupRouterForTests(
	t *testing.T,
	sessions *auth.Service,
	locator ipLocator,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
) *mux.Router {
	t.Helper()

	r := mux.NewRouter()
	r.Use(middleware.PanicRecovery(metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(metricsManager))
	r.Use(middleware.NewRouteGate(sessions).Check())
	r.Use(middleware.DrainAndCloseRequest(1 << 20))

	handler := NewHandler(locator, "v-test", sessions, false, metricsManager)
	handler.SetupRoutes(r, rateLimiter, 0)
	return r
}

func doRequest(router http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.RemoteAddr = "83.12.53.65:51000"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func authCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.CookieName)
	return nil
}

func TestNewMiscHandler(t *testing.T) {
	mainRouter := mux.NewRouter()
	handler := NewHandler(nil, "dummy", newTestSessions(t), false, metrics.NewTestManager())
	handler.SetupRoutes(mainRouter, &testRequestRateLimiter{}, 0)

	for caseName, route := range map[string]struct {
		name   string
		path   string
		method string
	}{
		"root":    {name: "root", path: "/", method: "GET"},
		"version": {name: "version", path: "/version", method: "GET"},
		"login":   {name: "login", path: "/api/auth/login", method: "POST"},
		"logout":  {name: "logout", path: "/api/auth/logout", method: "POST"},
		"me":      {name: "me", path: "/api/auth/me", method: "GET"},
		"page":    {name: "dashboard-subpage", path: "/dashboard/blog", method: "GET"},
	} {
		t.Run(caseName, func(t *testing.T) {
			req, err := http.NewRequest(route.method, route.path, nil)
			require.NoError(t, err)

			routeMatch := &mux.RouteMatch{}
			require.True(t, mainRouter.Match(req, routeMatch), route.path)
			assert.Equal(t, route.name, routeMatch.Route.GetName())
		})
	}
}

func TestLoginFlow(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	router := setupRouterForTests(t, newTestSessions(t), &testLocator{}, &testRequestRateLimiter{}, metricsManager)

	// anonymous visitor is kept out of the back office
	rr := doRequest(router, http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = doRequest(router, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, rr.Body.String())

	rr = doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"admin@example.com","password":"secret-pass"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"success":true,"user":{"id":1,"email":"admin@example.com","name":"Admin","role":"admin"}}`,
		rr.Body.String(),
	)
	cookie := authCookie(t, rr)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)
	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterLogins.WithLabelValues("ok")))

	rr = doRequest(router, http.MethodGet, "/dashboard/users", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Page string         `json:"page"`
		User *auth.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, "/dashboard/users", page.Page)
	require.NotNil(t, page.User)
	assert.Equal(t, auth.RoleAdmin, page.User.Role)

	rr = doRequest(router, http.MethodGet, "/login", "", cookie)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	rr = doRequest(router, http.MethodGet, "/api/auth/me", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(router, http.MethodPost, "/api/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	assert.Equal(t, -1, authCookie(t, rr).MaxAge)

	// a replayed cookie is no longer accepted
	rr = doRequest(router, http.MethodGet, "/dashboard", "", cookie)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	// logout without a cookie is still a success
	rr = doRequest(router, http.MethodPost, "/api/auth/logout", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLogin_Failures(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	router := setupRouterForTests(t, newTestSessions(t), &testLocator{}, &testRequestRateLimiter{}, metricsManager)

	wrongPass := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"admin@example.com","password":"nope"}`)
	unknown := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"secret-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, wrongPass.Code, unknown.Code)
	assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())
	assert.JSONEq(t, `{"success":false,"error":"email or password incorrect"}`, unknown.Body.String())
	assert.Empty(t, wrongPass.Result().Cookies())

	rr := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(router, http.MethodPost, "/api/auth/login", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, 3.0, testutil.ToFloat64(metricsManager.CounterLogins.WithLabelValues("failed")))
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := &testRequestRateLimiter{Limits: map[string]int{
		"rate-limit::login::83.12.53.65": 1,
	}}
	router := setupRouterForTests(t, newTestSessions(t), &testLocator{}, limiter, metrics.NewTestManager())

	body := `{"email":"admin@example.com","password":"nope"}`
	rr := doRequest(router, http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = doRequest(router, http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// other endpoints are not limited
	rr = doRequest(router, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "v-test", rr.Body.String())
}

func TestWhereAmI(t *testing.T) {
	locator := &testLocator{loc: &geoip.Location{Country: "Spain", City: "Marbella"}}
	router := setupRouterForTests(t, newTestSessions(t), locator, &testRequestRateLimiter{}, metrics.NewTestManager())

	rr := doRequest(router, http.MethodGet, "/whereami", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"country":"Spain","city":"Marbella"}`, rr.Body.String())

	locator.loc = nil
	rr = doRequest(router, http.MethodGet, "/whereami", "")
	assert.JSONEq(t, `{"country":"","city":""}`, rr.Body.String())

	locator.err = errors.New("quota exceeded")
	rr = doRequest(router, http.MethodGet, "/whereami", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = doRequest(router, http.MethodGet, "/myip", "")
	assert.Equal(t, "83.12.53.65", rr.Body.String())
}
