package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/ratelimit"
)

func TestMiddlewareEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := ratelimit.NewRedisLimiter(client, "rl", 2, time.Minute)
	require.NoError(t, err)

	handler := ratelimit.Handler{
		Limiter: limiter,
		Key:     func(*http.Request) string { return "admin:margin" },
	}
	counted := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		counted.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	counted.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(_ context.Context, _ string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis down")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	var sawErr error
	handler := ratelimit.Handler{
		Limiter: failingLimiter{},
		Key:     func(*http.Request) string { return "k" },
		OnError: func(err error) { sawErr = err },
	}
	next := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Error(t, sawErr)
}
