//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/2beens/realestate/internal/analytics"
	"github.com/2beens/realestate/internal/visitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestPageViewsReachAnalytics() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	visitorClient := newClient(t)
	for _, path := range []string{"/properties/villa-bali", "/properties/villa-bali", "/about", "/api/blog", "/favicon.ico"} {
		visitorClient.do(ctx, http.MethodGet, path, nil)
	}

	// explicit track calls are recorded as well
	status, body, _ := visitorClient.do(ctx, http.MethodPost, "/api/track", map[string]string{
		"path":      "/contact",
		"userAgent": testUserAgent,
		"ip":        "203.0.113.9",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	admin := newClient(t)
	admin.login(ctx, testAdminEmail, testAdminPassword)

	// page loads are recorded in the background
	var recent []visitor.PageView
	require.Eventually(t, func() bool {
		status, body, _ := admin.do(ctx, http.MethodGet, "/api/analytics/recent", nil)
		if status != http.StatusOK {
			return false
		}
		recent = nil
		if err := json.Unmarshal(body, &recent); err != nil {
			return false
		}
		return countPath(recent, "/properties/villa-bali") == 2 && countPath(recent, "/about") == 1
	}, 5*time.Second, 100*time.Millisecond)

	assert.Zero(t, countPath(recent, "/api/blog"))
	assert.Zero(t, countPath(recent, "/favicon.ico"))
	assert.Equal(t, 1, countPath(recent, "/contact"))

	var sessionIDs = map[string]bool{}
	for _, pv := range recent {
		if pv.Path == "/properties/villa-bali" || pv.Path == "/about" {
			assert.Equal(t, "Safari", pv.Browser)
			assert.Equal(t, "desktop", pv.DeviceType)
			sessionIDs[pv.SessionID] = true
		}
	}
	assert.Len(t, sessionIDs, 1, "one visitor cookie across page loads")

	status, body, _ = admin.do(ctx, http.MethodGet, "/api/analytics/pages?period=day", nil)
	require.Equal(t, http.StatusOK, status)
	var pages []analytics.KeyCount
	require.NoError(t, json.Unmarshal(body, &pages))
	require.NotEmpty(t, pages)

	status, body, _ = admin.do(ctx, http.MethodGet, "/api/analytics/export?period=day&format=csv", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "/properties/villa-bali")
}

func countPath(views []visitor.PageView, path string) int {
	n := 0
	for _, pv := range views {
		if pv.Path == path {
			n++
		}
	}
	return n
}
