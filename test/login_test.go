//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/2beens/realestate/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginResponse struct {
	Success bool           `json:"success"`
	User    *auth.Identity `json:"user"`
	Error   string         `json:"error"`
}

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cases := map[string]struct {
		email              string
		password           string
		expectedStatusCode int
		expectedSuccess    bool
	}{
		"good creds":     {email: testAdminEmail, password: testAdminPassword, expectedStatusCode: http.StatusOK, expectedSuccess: true},
		"wrong password": {email: testAdminEmail, password: "nope", expectedStatusCode: http.StatusUnauthorized},
		"unknown email":  {email: "ghost@realestate.test", password: testAdminPassword, expectedStatusCode: http.StatusUnauthorized},
	}

	var failureBodies []string
	for name, tc := range cases {
		s.Run(name, func() {
			t := s.T()
			c := newClient(t)
			status, body, _ := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
				"email":    tc.email,
				"password": tc.password,
			})
			assert.Equal(t, tc.expectedStatusCode, status)

			var resp loginResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, tc.expectedSuccess, resp.Success)
			if tc.expectedSuccess {
				require.NotNil(t, resp.User)
				assert.Equal(t, testAdminEmail, resp.User.Email)
				assert.Equal(t, auth.RoleAdmin, resp.User.Role)
			} else {
				failureBodies = append(failureBodies, string(body))
			}
		})
	}

	// failures do not tell which part was wrong
	require.Len(t, failureBodies, 2)
	assert.Equal(t, failureBodies[0], failureBodies[1])
}

func (s *IntegrationTestSuite) TestSessionLifecycle() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newClient(t)

	status, _, header := c.do(ctx, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", header.Get("Location"))

	status, _, _ = c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	c.login(ctx, testAdminEmail, testAdminPassword)

	status, body, _ := c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)
	var me auth.Identity
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, testAdminEmail, me.Email)

	status, _, _ = c.do(ctx, http.MethodGet, "/dashboard/blog", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _, header = c.do(ctx, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/dashboard", header.Get("Location"))

	status, _, _ = c.do(ctx, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _, _ = c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func (s *IntegrationTestSuite) TestRevokedTokenStaysRevoked() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newClient(t)
	c.login(ctx, testAdminEmail, testAdminPassword)

	// keep the token around, as a stolen cookie would be
	endpoint, err := url.Parse(serverEndpoint)
	require.NoError(t, err)
	var token string
	for _, cookie := range c.http.Jar.Cookies(endpoint) {
		if cookie.Name == auth.CookieName {
			token = cookie.Value
		}
	}
	require.NotEmpty(t, token)
	stolen := newClient(t)
	stolen.http.Jar.SetCookies(endpoint, []*http.Cookie{{Name: auth.CookieName, Value: token, Path: "/"}})

	status, _, _ := stolen.do(ctx, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)

	status, _, _ = c.do(ctx, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)

	status, _, _ = stolen.do(ctx, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func (s *IntegrationTestSuite) TestNonAdminCannotManage() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newClient(t)
	c.login(ctx, testUserEmail, testUserPassword)

	status, _, _ := c.do(ctx, http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _, _ = c.do(ctx, http.MethodDelete, "/api/users/1", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _, _ = c.do(ctx, http.MethodGet, "/api/analytics/visitors?period=week", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
