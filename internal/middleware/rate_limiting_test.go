package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/2beens/realestate/internal/telemetry/metrics"

	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type testRequestRateLimiter struct {
	// key to remaining allowed requests
	Limits map[string]int
	Keys   []string
	Err    error
}

func (l *testRequestRateLimiter) Allow(_ context.Context, key string, _ redis_rate.Limit) (*redis_rate.Result, error) {
	l.Keys = append(l.Keys, key)
	if l.Err != nil {
		return nil, l.Err
	}
	res := &redis_rate.Result{RetryAfter: 1500 * time.Millisecond}
	if l.Limits[key] > 0 {
		res.Allowed = 1
		res.RetryAfter = -1
		l.Limits[key]--
	}
	return res, nil
}

func TestRateLimit(t *testing.T) {
	key := "rate-limit::login::83.12.53.65"
	limiter := &testRequestRateLimiter{Limits: map[string]int{key: 2}}
	metricsManager := metrics.NewTestManager()
	handler := RateLimit(limiter, "login", 2, metricsManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "83.12.53.65:40000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests {
			assert.Equal(t, "2", rr.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, []string{key, key, key}, limiter.Keys)
	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterRateLimitedRequests))
}

func TestRateLimit_LimiterError(t *testing.T) {
	limiter := &testRequestRateLimiter{Err: errors.New("redis down")}
	handler := RateLimit(limiter, "login", 2, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
